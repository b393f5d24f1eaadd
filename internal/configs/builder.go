package configs

import (
	"errors"
	"fmt"

	"dario.cat/mergo"
	"github.com/caarlos0/env/v11"
)

// EnvPrefix is prepended to every environment variable, e.g. STASH_VAULT_ROOT.
const EnvPrefix = "STASH_"

// configBuilder collects sources in decreasing priority. mergo only fills
// zero fields, so the first source to set a value wins.
type configBuilder struct {
	configs []*Config
	err     error
}

func newConfigBuilder() *configBuilder {
	return &configBuilder{configs: make([]*Config, 0, 4)}
}

func (b *configBuilder) build() (*Config, error) {
	if b.err != nil {
		return nil, fmt.Errorf("error occurred during building config: %w", b.err)
	}

	cfg := new(Config)
	for _, c := range b.configs {
		if err := mergo.Merge(cfg, c); err != nil {
			return nil, fmt.Errorf("error merging configs: %w", err)
		}
	}

	root, err := ExpandPath(cfg.Vault.Root)
	if err != nil {
		return nil, err
	}
	cfg.Vault.Root = root

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (b *configBuilder) withOverrides(overrides *Config) *configBuilder {
	if overrides != nil {
		b.configs = append(b.configs, overrides)
	}
	return b
}

func (b *configBuilder) withEnv() *configBuilder {
	envCfg := &Config{}
	if err := parseEnv(envCfg); err != nil {
		b.err = errors.Join(b.err, err)
		return b
	}
	b.configs = append(b.configs, envCfg)
	return b
}

func (b *configBuilder) withFile(path string) *configBuilder {
	fileCfg, err := LoadFile(path)
	if err != nil {
		b.err = errors.Join(b.err, err)
		return b
	}
	b.configs = append(b.configs, fileCfg)
	return b
}

func (b *configBuilder) withDefaults() *configBuilder {
	b.configs = append(b.configs, Defaults())
	return b
}

// parseEnv populates cfg from STASH_* variables, e.g. STASH_CACHE_BACKEND.
func parseEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("error getting env configs: %w", err)
	}
	return nil
}
