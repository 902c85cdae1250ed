package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - REWIND_CONFIG_PATH: config file location (default: $XDG_CONFIG_HOME/rewind/config.toml)
//   - REWIND_HOME: base directory for rewind data (default: $XDG_DATA_HOME/rewind)
func GetDefaults() (map[string]string, error) {
	xdg.Reload()

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

func getConfigPath() (string, error) {
	if path := os.Getenv("REWIND_CONFIG_PATH"); path != "" {
		return path, nil
	}

	configHome := xdg.ConfigHome
	if configHome == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		configHome = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configHome, "rewind", "config.toml"), nil
}

func getBaseDir() (string, error) {
	if path := os.Getenv("REWIND_HOME"); path != "" {
		return path, nil
	}

	dataHome := xdg.DataHome
	if dataHome == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		dataHome = filepath.Join(homeDir, ".local", "share")
	}
	return filepath.Join(dataHome, "rewind"), nil
}
