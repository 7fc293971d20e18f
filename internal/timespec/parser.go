// Package timespec parses the --since/--until flags used to filter rejected messages.
package timespec

import (
	"fmt"
	"time"
)

// Range is a closed time window in Unix milliseconds. Zero means unbounded.
type Range struct {
	Since int64
	Until int64
}

// Contains reports whether atMs falls inside the range.
func (r Range) Contains(atMs int64) bool {
	if r.Since > 0 && atMs < r.Since {
		return false
	}
	if r.Until > 0 && atMs > r.Until {
		return false
	}
	return true
}

// Parse parses a time specification into Unix milliseconds, relative to now.
// Accepts a Go duration ("1h30m", meaning that long ago) or an RFC3339 timestamp.
func Parse(spec string, now time.Time) (int64, error) {
	if spec == "" {
		return 0, fmt.Errorf("empty time specification")
	}

	if t, err := time.Parse(time.RFC3339, spec); err == nil {
		return t.UnixMilli(), nil
	}

	if d, err := time.ParseDuration(spec); err == nil {
		if d < 0 {
			return 0, fmt.Errorf("negative duration: %s", spec)
		}
		return now.Add(-d).UnixMilli(), nil
	}

	return 0, fmt.Errorf("invalid time specification: %s (use duration like '1h30m' or RFC3339 like '2026-01-02T15:04:05Z')", spec)
}

// ParseRange parses --since and --until into a Range. Empty flags leave that end open.
func ParseRange(since, until string, now time.Time) (Range, error) {
	var r Range
	var err error

	if since != "" {
		if r.Since, err = Parse(since, now); err != nil {
			return Range{}, fmt.Errorf("invalid --since: %w", err)
		}
	}
	if until != "" {
		if r.Until, err = Parse(until, now); err != nil {
			return Range{}, fmt.Errorf("invalid --until: %w", err)
		}
	}

	if r.Since > 0 && r.Until > 0 && r.Since >= r.Until {
		return Range{}, fmt.Errorf("--since must be before --until")
	}
	return r, nil
}
