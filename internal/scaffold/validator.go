package scaffold

import (
	"fmt"
	"os"
)

// CheckExisting returns an error if a node file already exists at path.
func CheckExisting(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("node already initialized\n\nFound existing: %s\n\nUse 'drey init --force' to overwrite it", path)
	}
	return nil
}
