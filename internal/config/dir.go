package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// DirEnv names the environment variable that pins the configuration directory.
const DirEnv = "DREY_CONFIG_DIR"

// ErrNoWritableDir is returned when no usable configuration directory exists.
// A node must not run with an unpersisted identity.
var ErrNoWritableDir = errors.New("no writable configuration directory")

var resolved struct {
	once sync.Once
	dir  string
	err  error
}

// ResolveDir returns the writable directory holding cluster.properties.
// The directory is resolved once per process and cached, including failures.
func ResolveDir() (string, error) {
	resolved.once.Do(func() {
		resolved.dir, resolved.err = resolveDir(os.Getenv(DirEnv), os.UserConfigDir)
	})
	return resolved.dir, resolved.err
}

// CheckDir validates an explicitly chosen directory the same way ResolveDir
// validates DREY_CONFIG_DIR, creating it if needed.
func CheckDir(dir string) (string, error) {
	return resolveDir(dir, os.UserConfigDir)
}

// resolveDir picks the explicit directory when set, otherwise <user config>/drey.
// An explicit directory that is unusable is an error; there is no fallback.
func resolveDir(explicit string, userConfigDir func() (string, error)) (string, error) {
	if explicit != "" {
		if err := ensureWritable(explicit); err != nil {
			return "", fmt.Errorf("%w: %s: %v", ErrNoWritableDir, explicit, err)
		}
		return explicit, nil
	}

	base, err := userConfigDir()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoWritableDir, err)
	}
	dir := filepath.Join(base, "drey")
	if err := ensureWritable(dir); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrNoWritableDir, dir, err)
	}
	return dir, nil
}

func ensureWritable(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("not a directory")
	}

	probe, err := os.CreateTemp(dir, ".drey-probe-*")
	if err != nil {
		return err
	}
	probe.Close()
	return os.Remove(probe.Name())
}
