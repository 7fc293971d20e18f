package config

import (
	"log"
	"strconv"
)

// Keys owned by BusExtension.
const (
	RedisURLKey = "redisURL"
	ChannelKey  = "channel"
	SessionsKey = "sessions"
)

// BusExtension owns the transport tunables in the node configuration.
// Defaults come from drey.yml; overrides and persisted values win over them.
type BusExtension struct {
	RedisURL string
	Channel  string
	Sessions int

	shadowed []string
}

// NewBusExtension builds the extension from the node file.
func NewBusExtension(n *NodeConfig) *BusExtension {
	return &BusExtension{
		RedisURL: n.Redis.URL,
		Channel:  n.Channel,
		Sessions: n.Sessions,
	}
}

func (b *BusExtension) defaults() [][2]string {
	return [][2]string{
		{RedisURLKey, b.RedisURL},
		{ChannelKey, b.Channel},
		{SessionsKey, strconv.Itoa(b.Sessions)},
	}
}

// CheckForOverride implements Extension. A persisted value that differs from
// the node file is kept, and a warning names the key.
func (b *BusExtension) CheckForOverride(s *Store) bool {
	changed := false
	b.shadowed = b.shadowed[:0]
	for _, kv := range b.defaults() {
		key, def := kv[0], kv[1]
		if s.ReconcileKey(key, func() string { return def }) {
			changed = true
			continue
		}
		if v, _ := s.Get(key); v != def {
			b.shadowed = append(b.shadowed, key)
			log.Printf("[WARN] %s in drey.yml (%s) is ignored: %s already holds %s; use overrides.%s or %s to change it",
				key, def, s.Path(), v, key, EnvName(EnvPrefix, key))
		}
	}
	return changed
}

// Shadowed lists the keys whose node-file value lost to a persisted one on
// the last CheckForOverride.
func (b *BusExtension) Shadowed() []string {
	return append([]string(nil), b.shadowed...)
}

// InitDefaults implements Extension.
func (b *BusExtension) InitDefaults(s *Store) {
	b.CheckForOverride(s)
}
