// ABOUTME: XDG-based data and config directory resolution for the conjure CLI.
// ABOUTME: Checks XDG_DATA_HOME / XDG_CONFIG_HOME, falls back to ~/.local/share/conjure and ~/.config/conjure.
package main

import (
	"fmt"
	"os"
	"path/filepath"
)

// defaultDataDir returns the default data directory for conjure persistent
// state: the run database and generated artifacts.
func defaultDataDir() (string, error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "conjure"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}

	return filepath.Join(home, ".local", "share", "conjure"), nil
}

// defaultConfigDir returns the default config directory for the conjure
// config.yaml file.
func defaultConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "conjure"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}

	return filepath.Join(home, ".config", "conjure"), nil
}
