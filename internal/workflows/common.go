package workflows

import (
	"context"
	"fmt"

	"github.com/PolarWolf314/stash/internal/audit"
	"github.com/PolarWolf314/stash/internal/configs"
	logger "github.com/PolarWolf314/stash/internal/logging"
	"github.com/PolarWolf314/stash/internal/secrets"
	"github.com/PolarWolf314/stash/internal/vault"
)

// Common carries what every workflow needs from the CLI layer.
type Common struct {
	// Overrides holds values set by flags. They win over every other source.
	Overrides *configs.Config

	// Logger receives progress output. Nil discards it.
	Logger *logger.Logger
}

func (c Common) logger() *logger.Logger {
	if c.Logger == nil {
		return logger.Nop()
	}
	return c.Logger
}

// loadConfig merges the configuration and applies its process-wide settings.
func loadConfig(c Common) (*configs.Config, error) {
	cfg, err := configs.Load(c.Overrides)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	audit.Disabled = cfg.Audit.Disabled
	c.logger().Debugf("Using stash at %s", cfg.Vault.Root)
	return cfg, nil
}

// vaultConfig maps the merged configuration onto the engine's.
func vaultConfig(cfg *configs.Config, root string, log *logger.Logger) vault.Config {
	return vault.Config{
		Root:             root,
		Cipher:           secrets.Cipher(cfg.Vault.Cipher),
		StoreBackend:     cfg.Store.Backend,
		LockTimeout:      cfg.Store.LockTimeout,
		CacheBackend:     cfg.Cache.Backend,
		CacheTTL:         cfg.Cache.TTL,
		KeychainService:  cfg.Cache.KeychainService,
		ArchiveTool:      cfg.Archive.Tool,
		CompressionLevel: cfg.Archive.CompressionLevel,
		ListTool:         cfg.List.Tool,
		Logger:           log,
	}
}

// openVault loads the configuration and opens the configured vault. The
// caller closes the vault.
func openVault(ctx context.Context, c Common) (*vault.Vault, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	return vault.Open(ctx, vaultConfig(cfg, cfg.Vault.Root, c.logger()))
}
