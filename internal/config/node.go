package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied by NodeConfig.Validate.
const (
	DefaultRedisURL       = "redis://localhost:6379/0"
	DefaultChannel        = "drey:cluster:events"
	DefaultSessions       = 2
	DefaultHealthAddr     = ":8080"
	DefaultHandlerTimeout = 30 * time.Second
)

// NodeConfig represents the drey.yml node file.
type NodeConfig struct {
	Version        string            `yaml:"version"`
	Redis          RedisConfig       `yaml:"redis"`
	Channel        string            `yaml:"channel,omitempty"`
	Sessions       int               `yaml:"sessions,omitempty"`        // Parallel consumer workers (default 2)
	HandlerTimeout time.Duration     `yaml:"handler_timeout,omitempty"` // Per-message deadline, 0 = default
	Publish        *bool             `yaml:"publish,omitempty"`         // Producer role (default true)
	Consume        *bool             `yaml:"consume,omitempty"`         // Consumer role (default true)
	Handlers       []string          `yaml:"handlers,omitempty"`        // Enabled handler IDs, empty = all built-ins
	Overrides      map[string]string `yaml:"overrides,omitempty"`       // Values that win over cluster.properties
	Health         *HealthConfig     `yaml:"health,omitempty"`
}

// RedisConfig locates the shared bus.
type RedisConfig struct {
	URL string `yaml:"url"`
}

// HealthConfig configures the /healthz listener.
type HealthConfig struct {
	Addr string `yaml:"addr"`
}

// DefaultNode returns a validated node config for when no drey.yml exists.
func DefaultNode() *NodeConfig {
	n := &NodeConfig{Version: "1.0"}
	// Cannot fail for the zero config.
	_ = n.Validate()
	return n
}

// PublishEnabled reports whether this node publishes local changes.
func (n *NodeConfig) PublishEnabled() bool {
	return n.Publish == nil || *n.Publish
}

// ConsumeEnabled reports whether this node applies peer changes.
func (n *NodeConfig) ConsumeEnabled() bool {
	return n.Consume == nil || *n.Consume
}

// Validate performs strict validation and applies defaults.
func (n *NodeConfig) Validate() error {
	if n.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", n.Version)
	}

	if n.Redis.URL == "" {
		n.Redis.URL = DefaultRedisURL
	}
	if n.Channel == "" {
		n.Channel = DefaultChannel
	}

	if n.Sessions == 0 {
		n.Sessions = DefaultSessions
	}
	if n.Sessions < 1 {
		return fmt.Errorf("sessions must be >= 1, got %d", n.Sessions)
	}

	if n.HandlerTimeout == 0 {
		n.HandlerTimeout = DefaultHandlerTimeout
	}
	if n.HandlerTimeout < 0 {
		return fmt.Errorf("handler_timeout must be positive, got %s", n.HandlerTimeout)
	}

	seen := make(map[string]bool)
	for _, id := range n.Handlers {
		if id == "" {
			return fmt.Errorf("handlers: empty handler id")
		}
		if seen[id] {
			return fmt.Errorf("handlers: duplicate handler id '%s'", id)
		}
		seen[id] = true
	}

	if v, ok := n.Overrides[InstanceNameKey]; ok && v == "" {
		return fmt.Errorf("overrides.%s cannot be empty", InstanceNameKey)
	}

	if n.Health == nil {
		n.Health = &HealthConfig{Addr: DefaultHealthAddr}
	} else if n.Health.Addr == "" {
		n.Health.Addr = DefaultHealthAddr
	}

	return nil
}

// LoadNode reads and validates drey.yml from the specified path.
func LoadNode(path string) (*NodeConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var node NodeConfig
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := node.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &node, nil
}

// LoadNodeOrDefault is LoadNode, except a missing file yields DefaultNode.
func LoadNodeOrDefault(path string) (*NodeConfig, error) {
	node, err := LoadNode(path)
	if errors.Is(err, fs.ErrNotExist) {
		return DefaultNode(), nil
	}
	return node, err
}

// OverrideSources builds the override chain for a node: environment first,
// then the node file's overrides section.
func (n *NodeConfig) OverrideSources() Sources {
	return Sources{NewEnvSource(EnvPrefix), MapSource(n.Overrides)}
}
