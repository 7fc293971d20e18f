package commands

import (
	"time"

	"github.com/dyluth/drey/internal/catalog"
	"github.com/dyluth/drey/internal/printer"
	"github.com/dyluth/drey/internal/watch"
	"github.com/spf13/cobra"
)

var (
	getInstance string
	getWait     time.Duration
)

var getCmd = &cobra.Command{
	Use:   "get <type> [name]",
	Short: "Read catalog entries from a node",
	Long: `Read a node's catalog. With a name, print that entry; without one,
list every entry of the type.

--instance reads a peer's catalog instead of this node's, and --wait polls
until the entry arrives, which is how to check that a change replicated.

Examples:
  drey get layer
  drey get layer roads --instance node-b --wait 10s`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runGet,
}

func init() {
	getCmd.Flags().StringVar(&getInstance, "instance", "", "Node whose catalog to read (default: this node)")
	getCmd.Flags().DurationVar(&getWait, "wait", 0, "Wait up to this long for the entry to appear")
	rootCmd.AddCommand(getCmd)
}

func runGet(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	nodeCfg, err := loadNode()
	if err != nil {
		return err
	}
	store, err := openStore(nodeCfg)
	if err != nil {
		return err
	}
	client, err := openBus(ctx, store, nodeCfg)
	if err != nil {
		return err
	}
	defer client.Close()

	instance := getInstance
	if instance == "" {
		instance = store.InstanceName()
	}
	cat, err := catalog.NewStore(client.Redis(), instance)
	if err != nil {
		return printer.Error("Invalid instance", err.Error(), nil)
	}

	entryType := args[0]
	if len(args) == 1 {
		entries, err := cat.List(ctx, entryType)
		if err != nil {
			return printer.Error("Cannot list entries", err.Error(), map[string]string{"Instance": instance})
		}
		if len(entries) == 0 {
			printer.Warning("No %s entries on %s\n", entryType, instance)
			return nil
		}
		printer.KeyValues(entries)
		return nil
	}

	name := args[1]
	var body string
	if getWait > 0 {
		body, err = watch.PollForEntry(ctx, cat, entryType, name, getWait)
	} else {
		body, err = cat.Get(ctx, entryType, name)
	}
	if err != nil {
		if catalog.IsNotFound(err) {
			return printer.Error("Entry not found",
				entryType+"/"+name+" does not exist on "+instance,
				nil,
				"Use --wait to wait for it to replicate")
		}
		return printer.Error("Cannot read entry", err.Error(), map[string]string{"Instance": instance})
	}

	printer.Printf("%s\n", body)
	return nil
}
