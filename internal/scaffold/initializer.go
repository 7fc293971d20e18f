// Package scaffold writes a starter drey.yml.
package scaffold

import (
	"embed"
	"fmt"
	"os"

	"github.com/dyluth/drey/internal/config"
)

//go:embed templates/*
var templatesFS embed.FS

// Template returns the starter node file.
func Template() ([]byte, error) {
	content, err := templatesFS.ReadFile("templates/drey.yml.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to read drey.yml template: %w", err)
	}
	return content, nil
}

// Initialize writes the starter node file to path.
// Without force it refuses to overwrite an existing file.
func Initialize(path string, force bool) error {
	if !force {
		if err := CheckExisting(path); err != nil {
			return err
		}
	}

	content, err := Template()
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, content, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	// The template must load cleanly.
	if _, err := config.LoadNode(path); err != nil {
		return fmt.Errorf("created %s is not valid: %w", path, err)
	}

	return nil
}
