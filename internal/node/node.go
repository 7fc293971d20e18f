// Package node assembles a drey cluster member: the configuration store, the
// handler registry, the inbound pipeline and the bus.
package node

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"

	"github.com/dyluth/drey/internal/catalog"
	"github.com/dyluth/drey/internal/config"
	"github.com/dyluth/drey/internal/dispatch"
	"github.com/dyluth/drey/internal/filter"
	"github.com/dyluth/drey/internal/handlers"
	"github.com/dyluth/drey/internal/listener"
	"github.com/dyluth/drey/pkg/bus"
)

// ErrPublishDisabled is returned by Publish on nodes with publish: false.
var ErrPublishDisabled = errors.New("publishing is disabled on this node")

// Node is one cluster member.
type Node struct {
	cfg        *config.NodeConfig
	store      *config.Store
	bus        *bus.Client
	catalog    *catalog.Store
	registry   *dispatch.Registry
	dispatcher *dispatch.Dispatcher
	listener   *listener.Listener
}

// New assembles a node. store must already be initialized.
// The registry is built from the built-in handlers enabled in cfg.
func New(cfg *config.NodeConfig, store *config.Store, client *bus.Client) (*Node, error) {
	instanceName := store.InstanceName()
	if instanceName == "" {
		return nil, fmt.Errorf("configuration store has no %s; call Initialize first", config.InstanceNameKey)
	}

	cat, err := catalog.NewStore(client.Redis(), instanceName)
	if err != nil {
		return nil, fmt.Errorf("failed to create catalog store: %w", err)
	}

	provider, err := handlers.Provider(cat, cfg.Handlers)
	if err != nil {
		return nil, err
	}

	return NewWithProviders(cfg, store, client, cat, provider)
}

// NewWithProviders assembles a node with an explicit provider list.
func NewWithProviders(cfg *config.NodeConfig, store *config.Store, client *bus.Client, cat *catalog.Store, providers ...dispatch.Provider) (*Node, error) {
	registry, err := dispatch.NewRegistry(providers...)
	if err != nil {
		return nil, fmt.Errorf("failed to build handler registry: %w", err)
	}

	dispatcher := dispatch.NewDispatcher(registry)

	return &Node{
		cfg:        cfg,
		store:      store,
		bus:        client,
		catalog:    cat,
		registry:   registry,
		dispatcher: dispatcher,
		listener:   listener.New(store, filter.New(store), dispatcher),
	}, nil
}

// InstanceName returns the node identity.
func (n *Node) InstanceName() string {
	return n.store.InstanceName()
}

// Counters reports consumer outcomes for the health endpoint.
func (n *Node) Counters() (delivered, failed int64) {
	s := n.bus.Stats()
	return s.Delivered.Load(), s.Failed.Load()
}

// Catalog returns the node-local catalog.
func (n *Node) Catalog() *catalog.Store {
	return n.catalog
}

// Registry returns the handler registry.
func (n *Node) Registry() *dispatch.Registry {
	return n.registry
}

// Listener returns the inbound pipeline.
func (n *Node) Listener() *listener.Listener {
	return n.listener
}

// Start begins consuming peer events and returns once the subscription is
// live. It returns a nil subscription on nodes with consume: false.
func (n *Node) Start(ctx context.Context) (*bus.Subscription, error) {
	log.Printf("[INFO] Node '%s' starting (handlers: %v)", n.InstanceName(), n.registry.IDs())

	if !n.cfg.ConsumeEnabled() {
		log.Printf("[INFO] Consumer disabled, publishing only")
		return nil, nil
	}

	sub, err := n.bus.Consume(ctx, bus.ConsumeOptions{
		Sessions:       n.sessions(),
		HandlerTimeout: n.cfg.HandlerTimeout,
	}, n.listener.OnMessage)
	if err != nil {
		return nil, fmt.Errorf("failed to start consumer: %w", err)
	}
	return sub, nil
}

// Run starts the node and blocks until ctx is cancelled.
func (n *Node) Run(ctx context.Context) error {
	sub, err := n.Start(ctx)
	if err != nil {
		return err
	}
	if sub != nil {
		defer sub.Close()
	}

	<-ctx.Done()
	log.Printf("[INFO] Node '%s' shutting down...", n.InstanceName())
	return nil
}

// sessions prefers the reconciled value in the configuration store.
func (n *Node) sessions() int {
	sessions, err := strconv.Atoi(n.store.GetOr(config.SessionsKey, ""))
	if err != nil || sessions < 1 {
		return n.cfg.Sessions
	}
	return sessions
}
