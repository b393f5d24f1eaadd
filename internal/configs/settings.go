package configs

import (
	"log"
	"os"
	"path/filepath"

	"github.com/PolarWolf314/stash/internal/utils"
)

// UserSettings holds per-user locations that do not depend on any vault.
type UserSettings struct {
	HomeDir         string
	UserConfigsPath string
	UserDataPath    string
	Username        string
}

// ConfigFileEnv overrides the location of the TOML config file.
const ConfigFileEnv = "STASH_CONFIG"

var UserStashSettings *UserSettings

func init() {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Fatalf("error getting home directory: %s", err)
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		log.Fatalf("error getting config directory: %s", err)
	}

	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	username, err := utils.GetUsername()
	if err != nil {
		username = "unknown"
	}

	UserStashSettings = &UserSettings{
		HomeDir:         homeDir,
		UserConfigsPath: filepath.Join(configDir, "stash"),
		UserDataPath:    filepath.Join(dataDir, "stash"),
		Username:        username,
	}
}

// ConfigFilePath returns the TOML config location: $STASH_CONFIG, or
// config.toml in the user config directory.
func ConfigFilePath() string {
	if p := os.Getenv(ConfigFileEnv); p != "" {
		return p
	}
	return filepath.Join(UserStashSettings.UserConfigsPath, "config.toml")
}
