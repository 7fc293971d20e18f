package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/magiconair/properties"
)

const (
	// InstanceNameKey is the only key every node configuration must carry.
	InstanceNameKey = "instanceName"

	// FileName is the name of the persisted configuration inside the config dir.
	FileName = "cluster.properties"
)

// Extension lets other modules own keys in the node configuration without the
// store knowing them in advance. Extensions are consulted in registration order.
type Extension interface {
	// CheckForOverride reconciles the extension's keys against overrides after a
	// successful load. Returns true if anything changed and must be persisted.
	CheckForOverride(s *Store) bool

	// InitDefaults populates the extension's keys on first run.
	InitDefaults(s *Store)
}

// Store holds the per-node configuration record.
// All access goes through a single RWMutex: reads (the identity comparison on
// every inbound message) take the read lock, writes take the write lock.
type Store struct {
	mu         sync.RWMutex
	dir        string
	values     map[string]string
	overrides  OverrideSource
	extensions []Extension

	newInstanceName func() string

	// saveMu serializes writers of the file; mu is only held to copy values.
	saveMu sync.Mutex
	saves  int
}

// NewStore creates an empty store persisting into dir.
// overrides may be nil when no external override source exists.
func NewStore(dir string, overrides OverrideSource, extensions ...Extension) *Store {
	return &Store{
		dir:             dir,
		values:          make(map[string]string),
		overrides:       overrides,
		extensions:      extensions,
		newInstanceName: uuid.NewString,
	}
}

// Path returns the location of the persisted configuration file.
func (s *Store) Path() string {
	return filepath.Join(s.dir, FileName)
}

// Initialize loads the persisted configuration and reconciles it with overrides,
// or generates defaults on first run. Any change is persisted before returning.
// I/O failures other than a missing file are returned and must be treated as fatal.
func (s *Store) Initialize() error {
	err := s.load()
	if errors.Is(err, fs.ErrNotExist) {
		log.Printf("[INFO] No configuration at %s, generating defaults", s.Path())
		s.initDefaults()
		if err := s.Save(); err != nil {
			return fmt.Errorf("failed to persist default configuration: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	changed := s.ReconcileKey(InstanceNameKey, s.newInstanceName)
	for _, ext := range s.extensions {
		// Every extension runs, even once a change is already known.
		if ext.CheckForOverride(s) {
			changed = true
		}
	}

	if changed {
		log.Printf("[INFO] Configuration overridden since last start, persisting to %s", s.Path())
		if err := s.Save(); err != nil {
			return fmt.Errorf("failed to persist overridden configuration: %w", err)
		}
	}
	return nil
}

func (s *Store) initDefaults() {
	s.ReconcileKey(InstanceNameKey, s.newInstanceName)
	for _, ext := range s.extensions {
		ext.InitDefaults(s)
	}
}

// ReconcileKey resolves key from the override source, the current (persisted)
// value and generate, stores the result and reports whether it changed.
func (s *Store) ReconcileKey(key string, generate func() string) bool {
	override := None
	if s.overrides != nil {
		if v, ok := s.overrides.Lookup(key); ok {
			override = Some(v)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	persisted := None
	if v, ok := s.values[key]; ok {
		persisted = Some(v)
	}

	value, changed := Reconcile(persisted, override, generate)
	s.values[key] = value
	return changed
}

// Get returns the value for key.
func (s *Store) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// GetOr returns the value for key, or def when unset.
func (s *Store) GetOr(key, def string) string {
	if v, ok := s.Get(key); ok {
		return v
	}
	return def
}

// Put sets key in memory. Call Save to persist.
func (s *Store) Put(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

// InstanceName returns this node's identity.
func (s *Store) InstanceName() string {
	v, _ := s.Get(InstanceNameKey)
	return v
}

// Snapshot returns a copy of the whole configuration.
func (s *Store) Snapshot() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		return err
	}

	loader := properties.Loader{Encoding: properties.UTF8, DisableExpansion: true}
	p, err := loader.LoadBytes(data)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", s.Path(), err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range p.Map() {
		s.values[k] = v
	}
	return nil
}

// Save writes the full configuration as key=value lines under an empty comment
// header. The file is written to a temp file and renamed into place; readers
// are not blocked while it is written.
func (s *Store) Save() error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	values := s.Snapshot()
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteString("#\n")
	for _, k := range keys {
		buf.WriteString(encodeKey(k))
		buf.WriteByte('=')
		buf.WriteString(encodeValue(values[k]))
		buf.WriteByte('\n')
	}

	tmp, err := os.CreateTemp(s.dir, "."+FileName+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temp config file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write config file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close config file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.Path()); err != nil {
		return fmt.Errorf("failed to replace config file: %w", err)
	}

	s.saves++
	return nil
}

// encodeKey escapes every character the properties lexer would treat as a
// separator, comment marker or escape.
func encodeKey(k string) string {
	var b strings.Builder
	for _, r := range k {
		writeEscaped(&b, r, " :=#!")
	}
	return b.String()
}

// encodeValue escapes control characters, backslashes and leading whitespace,
// which the lexer would otherwise drop after the separator.
func encodeValue(v string) string {
	var b strings.Builder
	leading := true
	for _, r := range v {
		if leading && r == ' ' {
			b.WriteString("\\ ")
			continue
		}
		leading = false
		writeEscaped(&b, r, "")
	}
	return b.String()
}

func writeEscaped(b *strings.Builder, r rune, special string) {
	switch r {
	case '\\':
		b.WriteString(`\\`)
	case '\n':
		b.WriteString(`\n`)
	case '\r':
		b.WriteString(`\r`)
	case '\t':
		b.WriteString(`\t`)
	case '\f':
		b.WriteString(`\f`)
	default:
		if strings.ContainsRune(special, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
}
