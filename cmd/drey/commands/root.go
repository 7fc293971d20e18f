package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	nodeFile  string
	configDir string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "drey",
	Short: "drey - cluster event synchronization over Redis",
	Long: `drey keeps a cluster of nodes in sync. Each node publishes its local
changes to a shared Redis channel and applies the changes published by its
peers, skipping the ones it published itself.

Node identity and bus settings live in cluster.properties inside the config
directory; drey.yml and DREY_* environment variables override them.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	// We print formatted colored errors directly in the printer package
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&nodeFile, "file", "f", "drey.yml", "Node file (missing file means defaults)")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "Directory holding cluster.properties (default $DREY_CONFIG_DIR or the user config dir)")
}
