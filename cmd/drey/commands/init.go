package commands

import (
	"github.com/dyluth/drey/internal/printer"
	"github.com/dyluth/drey/internal/scaffold"
	"github.com/spf13/cobra"
)

var forceInit bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter drey.yml",
	Long: `Write a starter node file (drey.yml, or the path given with -f) listing
every setting with its default value.

Use --force to overwrite an existing file.`,
	RunE: runInit,
}

func init() {
	// Note: Cannot use -f shorthand because it conflicts with the global --file flag
	initCmd.Flags().BoolVar(&forceInit, "force", false, "Overwrite an existing node file")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	if err := scaffold.Initialize(nodeFile, forceInit); err != nil {
		return printer.Error("Initialization failed", err.Error(), map[string]string{"File": nodeFile})
	}

	printer.Success("Created %s\n", nodeFile)
	printer.Printf("\nNext steps:\n")
	printer.Printf("  1. Point redis.url at the shared Redis server\n")
	printer.Printf("  2. Run 'drey run' on every node\n")
	return nil
}
