package config

import (
	"os"
	"path/filepath"
)

// EnvConfigPath overrides the configuration file location.
const EnvConfigPath = "TICKBT_CONFIG"

// GetConfigPath returns $TICKBT_CONFIG when set, otherwise ~/.tickbt/config.
func GetConfigPath() (string, error) {
	if path := os.Getenv(EnvConfigPath); path != "" {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".tickbt", "config"), nil
}
