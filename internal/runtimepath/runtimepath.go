package runtimepath

import (
	"fmt"
	"os"
	"path/filepath"
)

// HomeEnv overrides the directory holding persistwin's config and state.
const HomeEnv = "PERSISTWIN_HOME"

// Dir returns the directory used for persistwin config and state. Priority:
// 1) PERSISTWIN_HOME (if set)
// 2) <user config dir>/persistwin (%AppData% on Windows, XDG_CONFIG_HOME or ~/.config elsewhere)
func Dir() (string, error) {
	if home := os.Getenv(HomeEnv); home != "" {
		return home, nil
	}
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate user config directory: %w", err)
	}
	return filepath.Join(configDir, "persistwin"), nil
}

// ConfigPath returns the config file path.
func ConfigPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// DatabasePath returns the default placement store path.
func DatabasePath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "placements.db"), nil
}

// LogPath returns the conventional log file path, used when logging to a
// file is requested without an explicit location.
func LogPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "persistwin.log"), nil
}
