package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/dyluth/drey/internal/catalog"
	"github.com/dyluth/drey/internal/handlers"
	"github.com/dyluth/drey/internal/node"
	"github.com/dyluth/drey/internal/printer"
	"github.com/spf13/cobra"
)

var (
	publishBody     string
	publishBodyFile string
	publishFormat   string
	publishParams   []string
)

var publishCmd = &cobra.Command{
	Use:   "publish <put|update|delete> <type> <name>",
	Short: "Apply a catalog change locally and publish it to the cluster",
	Long: `Apply a catalog change to this node's catalog and publish it to every peer.

The change is only published if it applies locally. --format picks the
encoding (and so the handler) peers must use to read it.

Examples:
  drey publish put layer roads --body '{"srs":"EPSG:4326"}'
  drey publish delete style roads --param purge=true`,
	Args: cobra.ExactArgs(3),
	RunE: runPublish,
}

func init() {
	publishCmd.Flags().StringVar(&publishBody, "body", "", "Entry body")
	publishCmd.Flags().StringVar(&publishBodyFile, "body-file", "", "Read the entry body from a file")
	publishCmd.Flags().StringVar(&publishFormat, "format", "json", "Payload encoding: json or yaml")
	publishCmd.Flags().StringArrayVar(&publishParams, "param", nil, "Extra key=value property for peer handlers (repeatable)")
	rootCmd.AddCommand(publishCmd)
}

// parseParams turns key=value flags into a map.
func parseParams(raw []string) (map[string]string, error) {
	params := make(map[string]string, len(raw))
	for _, p := range raw {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --param %q (expected key=value)", p)
		}
		params[k] = v
	}
	return params, nil
}

// handlerForFormat maps --format to a built-in handler ID.
func handlerForFormat(format string) (string, error) {
	switch format {
	case "json":
		return handlers.CatalogJSON, nil
	case "yaml":
		return handlers.CatalogYAML, nil
	default:
		return "", fmt.Errorf("unknown format %q (must be 'json' or 'yaml')", format)
	}
}

func runPublish(cmd *cobra.Command, args []string) error {
	event := &catalog.Event{Op: catalog.Op(args[0]), Type: args[1], Name: args[2], Body: publishBody}
	if publishBodyFile != "" {
		data, err := os.ReadFile(publishBodyFile)
		if err != nil {
			return printer.Error("Cannot read body file", err.Error(), nil)
		}
		event.Body = string(data)
	}
	if err := event.Validate(); err != nil {
		return printer.Error("Invalid change", err.Error(), nil)
	}

	handlerID, err := handlerForFormat(publishFormat)
	if err != nil {
		return printer.Error("Invalid format", err.Error(), nil)
	}
	params, err := parseParams(publishParams)
	if err != nil {
		return printer.Error("Invalid parameter", err.Error(), nil)
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

	n, err := node.New(nodeCfg, store, client)
	if err != nil {
		return printer.Error("Node setup failed", err.Error(), nil)
	}

	eventID, err := n.Commit(ctx, handlerID, event, params)
	if err != nil {
		return printer.Error("Publish failed", err.Error(), map[string]string{
			"Instance": n.InstanceName(),
			"Handler":  handlerID,
		})
	}

	printer.Success("Published %s %s/%s as %s (event %s)\n", event.Op, event.Type, event.Name, handlerID, eventID)
	return nil
}
