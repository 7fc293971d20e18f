package config

import (
	"os"
	"strings"
	"unicode"
)

// OverrideSource supplies externally configured values that take precedence
// over persisted ones.
type OverrideSource interface {
	Lookup(key string) (string, bool)
}

// EnvPrefix is the prefix for environment overrides (instanceName -> DREY_INSTANCE_NAME).
const EnvPrefix = "DREY_"

// EnvSource reads overrides from the process environment.
// Empty variables are treated as unset.
type EnvSource struct {
	Prefix string
	lookup func(string) (string, bool)
}

// NewEnvSource creates an EnvSource over os.LookupEnv.
func NewEnvSource(prefix string) *EnvSource {
	return &EnvSource{Prefix: prefix, lookup: os.LookupEnv}
}

// Lookup implements OverrideSource.
func (e *EnvSource) Lookup(key string) (string, bool) {
	v, ok := e.lookup(EnvName(e.Prefix, key))
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// EnvName converts a camelCase configuration key to an environment variable name.
// Acronyms stay together: redisURL -> REDIS_URL.
func EnvName(prefix, key string) string {
	runes := []rune(key)
	var b strings.Builder
	b.WriteString(prefix)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				b.WriteByte('_')
			}
		}
		switch {
		case r == '.' || r == '-':
			b.WriteByte('_')
		default:
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	return b.String()
}

// MapSource is a fixed set of overrides, typically the overrides section of drey.yml.
type MapSource map[string]string

// Lookup implements OverrideSource.
func (m MapSource) Lookup(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

// Sources consults each source in order; the first hit wins.
type Sources []OverrideSource

// Lookup implements OverrideSource.
func (s Sources) Lookup(key string) (string, bool) {
	for _, src := range s {
		if src == nil {
			continue
		}
		if v, ok := src.Lookup(key); ok {
			return v, true
		}
	}
	return "", false
}
