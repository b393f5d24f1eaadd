package configs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PolarWolf314/stash/internal/archive"
	"github.com/PolarWolf314/stash/internal/cache"
	serrors "github.com/PolarWolf314/stash/internal/errors"
	"github.com/PolarWolf314/stash/internal/secrets"
	"github.com/PolarWolf314/stash/internal/store"
)

// Config is the merged configuration of one invocation. Every source (flags,
// environment, TOML file, defaults) decodes into this shape.
type Config struct {
	Vault   VaultConfig   `toml:"vault" envPrefix:"VAULT_"`
	Store   StoreConfig   `toml:"store" envPrefix:"STORE_"`
	Cache   CacheConfig   `toml:"cache" envPrefix:"CACHE_"`
	Archive ArchiveConfig `toml:"archive" envPrefix:"ARCHIVE_"`
	List    ListConfig    `toml:"list" envPrefix:"LIST_"`
	Audit   AuditConfig   `toml:"audit" envPrefix:"AUDIT_"`
}

type VaultConfig struct {
	Root   string `toml:"root,omitempty" env:"ROOT"`
	Cipher string `toml:"cipher,omitempty" env:"CIPHER"`
}

type StoreConfig struct {
	Backend     string        `toml:"backend,omitempty" env:"BACKEND"`
	LockTimeout time.Duration `toml:"lock_timeout,omitempty" env:"LOCK_TIMEOUT"`
}

type CacheConfig struct {
	Backend         string        `toml:"backend,omitempty" env:"BACKEND"`
	TTL             time.Duration `toml:"ttl,omitempty" env:"TTL"`
	KeychainService string        `toml:"keychain_service,omitempty" env:"KEYCHAIN_SERVICE"`
}

type ArchiveConfig struct {
	Tool string `toml:"tool,omitempty" env:"TOOL"`
	// CompressionLevel is a gzip level; zero selects the default.
	CompressionLevel int `toml:"compression_level,omitempty" env:"COMPRESSION_LEVEL"`
}

type ListConfig struct {
	Tool string `toml:"tool,omitempty" env:"TOOL"`
}

type AuditConfig struct {
	Disabled bool `toml:"disabled,omitempty" env:"DISABLED"`
}

// DefaultRootName is the vault directory created under the home directory by default.
const DefaultRootName = "stash"

// Defaults returns the configuration used when no source sets a value.
func Defaults() *Config {
	return &Config{
		Vault: VaultConfig{
			Root:   filepath.Join(UserStashSettings.HomeDir, DefaultRootName),
			Cipher: string(secrets.DefaultCipher),
		},
		Store: StoreConfig{
			Backend:     store.BackendBolt,
			LockTimeout: store.DefaultLockTimeout,
		},
		Cache: CacheConfig{
			Backend:         cache.BackendKernel,
			TTL:             cache.DefaultTTL,
			KeychainService: cache.DefaultService,
		},
		Archive: ArchiveConfig{
			Tool:             archive.ToolNative,
			CompressionLevel: 6,
		},
		List: ListConfig{
			Tool: archive.ToolNative,
		},
	}
}

// Load merges, in decreasing priority, overrides (from flags), the
// environment, the TOML config file and Defaults. The returned config is validated.
func Load(overrides *Config) (*Config, error) {
	return newConfigBuilder().
		withOverrides(overrides).
		withEnv().
		withFile(ConfigFilePath()).
		withDefaults().
		build()
}

// Validate rejects unknown backends, tools and ciphers.
func (c *Config) Validate() error {
	var errs []error

	if c.Vault.Root == "" {
		errs = append(errs, fmt.Errorf("%w: vault.root is empty", serrors.ErrInvalidInput))
	}
	if _, err := secrets.ParseCipher(c.Vault.Cipher); err != nil {
		errs = append(errs, fmt.Errorf("vault.cipher: %w", err))
	}
	if !store.ValidBackend(c.Store.Backend) {
		errs = append(errs, fmt.Errorf("%w: store.backend %q", serrors.ErrInvalidInput, c.Store.Backend))
	}
	if c.Store.LockTimeout < 0 {
		errs = append(errs, fmt.Errorf("%w: store.lock_timeout is negative", serrors.ErrInvalidInput))
	}
	if !cache.ValidBackend(c.Cache.Backend) {
		errs = append(errs, fmt.Errorf("%w: cache.backend %q", serrors.ErrInvalidInput, c.Cache.Backend))
	}
	if c.Cache.TTL < 0 {
		errs = append(errs, fmt.Errorf("%w: cache.ttl is negative", serrors.ErrInvalidInput))
	}
	if c.Archive.Tool != archive.ToolNative && c.Archive.Tool != archive.ToolTar {
		errs = append(errs, fmt.Errorf("%w: archive.tool %q", serrors.ErrInvalidInput, c.Archive.Tool))
	}
	if c.Archive.CompressionLevel < 0 || c.Archive.CompressionLevel > 9 {
		errs = append(errs, fmt.Errorf("%w: archive.compression_level %d", serrors.ErrInvalidInput, c.Archive.CompressionLevel))
	}
	if c.List.Tool != archive.ToolNative && c.List.Tool != archive.ToolLs {
		errs = append(errs, fmt.Errorf("%w: list.tool %q", serrors.ErrInvalidInput, c.List.Tool))
	}

	return serrors.Join(errs...)
}

// ExpandPath resolves a leading ~ and makes path absolute.
func ExpandPath(path string) (string, error) {
	if path == "~" {
		path = UserStashSettings.HomeDir
	} else if strings.HasPrefix(path, "~/") {
		path = filepath.Join(UserStashSettings.HomeDir, path[2:])
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", path, err)
	}
	return abs, nil
}

// LoadFile reads the TOML config file. A missing file yields an empty config.
func LoadFile(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if err := LoadTOML(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", path, err)
	}
	return cfg, nil
}

// SaveRoot records root as vault.root in the TOML config file, keeping every other key.
func SaveRoot(root string) error {
	path := ConfigFilePath()
	cfg, err := LoadFile(path)
	if err != nil {
		return err
	}
	cfg.Vault.Root = root
	if err := SaveTOML(path, cfg); err != nil {
		return fmt.Errorf("failed to save config %s: %w", path, err)
	}
	return nil
}
