package commands

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/dyluth/drey/internal/health"
	"github.com/dyluth/drey/internal/node"
	"github.com/dyluth/drey/internal/printer"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run this node until interrupted",
	Long: `Run this node: consume peer events from the bus and apply them to the
local catalog until SIGINT or SIGTERM.

A /healthz endpoint reports Redis connectivity and delivery counters.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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

	n, err := node.New(nodeCfg, store, client)
	if err != nil {
		return printer.Error("Node setup failed", err.Error(), nil)
	}

	healthServer := health.NewServer(client, n, nodeCfg.Health.Addr)
	if err := healthServer.Start(); err != nil {
		return printer.Error("Health server failed", err.Error(), nil)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := healthServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("[ERROR] Health server shutdown error: %v", err)
		}
	}()
	log.Printf("[INFO] Health server started on %s", nodeCfg.Health.Addr)

	if err := n.Run(ctx); err != nil {
		return printer.Error("Node stopped with an error", err.Error(),
			map[string]string{"Instance": n.InstanceName()})
	}

	log.Printf("[INFO] Node shutdown complete")
	return nil
}
