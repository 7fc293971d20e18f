package commands

import (
	"context"
	"time"

	"github.com/dyluth/drey/internal/config"
	"github.com/dyluth/drey/internal/printer"
	"github.com/dyluth/drey/pkg/bus"
	"github.com/redis/go-redis/v9"
)

// loadNode reads drey.yml.
func loadNode() (*config.NodeConfig, error) {
	node, err := config.LoadNodeOrDefault(nodeFile)
	if err != nil {
		return nil, printer.Error("Invalid node file",
			err.Error(),
			map[string]string{"File": nodeFile},
			"Fix the file or remove it to run with defaults")
	}
	return node, nil
}

// openStore resolves the config directory and initializes the node configuration.
func openStore(node *config.NodeConfig) (*config.Store, error) {
	resolve := config.ResolveDir
	if configDir != "" {
		resolve = func() (string, error) { return config.CheckDir(configDir) }
	}

	dir, err := resolve()
	if err != nil {
		return nil, printer.Error("No configuration directory",
			err.Error(),
			nil,
			"Set "+config.DirEnv+" to a writable directory",
			"Pass --config-dir")
	}

	store := config.NewStore(dir, node.OverrideSources(), config.NewBusExtension(node))
	if err := store.Initialize(); err != nil {
		return nil, printer.Error("Configuration failed",
			err.Error(),
			map[string]string{"Path": store.Path()},
			"Check that the directory is writable")
	}
	return store, nil
}

// openBus connects to the reconciled Redis URL and waits until it answers.
func openBus(ctx context.Context, store *config.Store, node *config.NodeConfig) (*bus.Client, error) {
	url := store.GetOr(config.RedisURLKey, node.Redis.URL)
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, printer.Error("Invalid Redis URL", err.Error(), map[string]string{"URL": url})
	}

	client, err := bus.NewClient(opts, store.GetOr(config.ChannelKey, node.Channel))
	if err != nil {
		return nil, printer.Error("Bus setup failed", err.Error(), nil)
	}

	if err := client.WaitReady(ctx, 10*time.Second); err != nil {
		client.Close()
		return nil, printer.Error("Redis not accessible",
			err.Error(),
			map[string]string{"URL": url},
			"Start Redis or set "+config.EnvName(config.EnvPrefix, config.RedisURLKey))
	}
	return client, nil
}
