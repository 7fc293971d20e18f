package commands

import (
	"github.com/dyluth/drey/internal/printer"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the node configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Reconcile and print the node configuration",
	Long: `Load cluster.properties, apply overrides from drey.yml and DREY_*
variables, persist any change, and print the result.

On first run this generates the node identity.`,
	RunE: runConfigShow,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	nodeCfg, err := loadNode()
	if err != nil {
		return err
	}
	store, err := openStore(nodeCfg)
	if err != nil {
		return err
	}

	printer.Step("%s\n", store.Path())
	printer.KeyValues(store.Snapshot())
	return nil
}
