package workflows

import (
	"context"

	"github.com/PolarWolf314/stash/internal/configs"
	"github.com/PolarWolf314/stash/internal/utils"
)

// ConfigShowOptions configures the config show workflow.
type ConfigShowOptions struct {
	Common
}

// ConfigShowResult contains the effective configuration.
type ConfigShowResult struct {
	// Config is the merged configuration.
	Config *configs.Config

	// Path is the config file location.
	Path string

	// FileExists reports whether Path exists.
	FileExists bool
}

// ConfigShow returns the configuration after merging flags, environment,
// the config file and defaults.
func ConfigShow(ctx context.Context, opts ConfigShowOptions) (*ConfigShowResult, error) {
	cfg, err := loadConfig(opts.Common)
	if err != nil {
		return nil, err
	}

	path := configs.ConfigFilePath()
	exists, _ := utils.Exists(path)
	return &ConfigShowResult{Config: cfg, Path: path, FileExists: exists}, nil
}
