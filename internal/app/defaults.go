package app

import (
	"fmt"
	"os"
	"path/filepath"

	"dreamlog/internal/config"
)

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - DREAMLOG_CONFIG_PATH: config file location (default: ~/.config/dreamlog.toml)
//   - DREAMLOG_HOME: base directory for dreamlog data (default: ~/.local/share/dreamlog)
func GetDefaults() (map[string]string, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	baseDir, err := getBaseDir()
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"log_dir":     filepath.Join(baseDir, "log"),
	}, nil
}

// getConfigPath returns the config file path, checking DREAMLOG_CONFIG_PATH
// first, then falling back to the default ~/.config/dreamlog.toml.
func getConfigPath() (string, error) {
	if path := os.Getenv(config.EnvConfigPath); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "dreamlog.toml"), nil
}

// getBaseDir returns the base directory for dreamlog data, checking
// DREAMLOG_HOME first, then falling back to the XDG default
// ~/.local/share/dreamlog.
func getBaseDir() (string, error) {
	if path := os.Getenv(config.EnvHome); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "dreamlog"), nil
}
