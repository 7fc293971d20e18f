package commands

import (
	"time"

	"github.com/dyluth/drey/internal/printer"
	"github.com/dyluth/drey/internal/timespec"
	"github.com/spf13/cobra"
)

var (
	rejectedLimit int64
	rejectedSince string
	rejectedUntil string
)

var rejectedCmd = &cobra.Command{
	Use:   "rejected",
	Short: "List recently rejected messages",
	Long: `List messages that a node on this channel failed to admit or apply,
newest first. Each entry carries the error and the raw message.

--since and --until take a duration ago ("1h30m") or an RFC3339 timestamp.`,
	RunE: runRejected,
}

func init() {
	rejectedCmd.Flags().Int64VarP(&rejectedLimit, "limit", "n", 20, "Maximum entries to show")
	rejectedCmd.Flags().StringVar(&rejectedSince, "since", "", "Only show messages rejected after this time")
	rejectedCmd.Flags().StringVar(&rejectedUntil, "until", "", "Only show messages rejected before this time")
	rootCmd.AddCommand(rejectedCmd)
}

func runRejected(cmd *cobra.Command, args []string) error {
	window, err := timespec.ParseRange(rejectedSince, rejectedUntil, time.Now())
	if err != nil {
		return printer.Error("Invalid time range", err.Error(), nil)
	}

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

	rejected, err := client.Rejected(ctx, rejectedLimit)
	if err != nil {
		return printer.Error("Cannot read rejected messages", err.Error(), nil)
	}

	shown := rejected[:0]
	for _, r := range rejected {
		if window.Contains(r.AtMs) {
			shown = append(shown, r)
		}
	}

	if len(shown) == 0 {
		printer.Success("No rejected messages on %s\n", client.Channel())
		return nil
	}

	for _, r := range shown {
		printer.Warning("%s  %s\n", time.UnixMilli(r.AtMs).UTC().Format(time.RFC3339), r.Error)
		printer.Printf("    %s\n", r.Message)
	}
	return nil
}
