// Package configs resolves the configuration of a stash invocation.
//
// A Config is assembled from four sources, highest priority first:
//
//   - command-line flags (passed to Load as overrides)
//   - STASH_* environment variables, e.g. STASH_VAULT_ROOT, STASH_CACHE_BACKEND
//   - the TOML file at $STASH_CONFIG or <user config dir>/stash/config.toml
//   - Defaults
//
// The sources are merged with mergo, which only fills fields still at their
// zero value, so the first source to set a key wins. The result is validated
// before it is returned.
//
// # Config File
//
//	[vault]
//	root = "~/stash"
//	cipher = "aes-256-gcm"
//
//	[store]
//	backend = "bolt"
//	lock_timeout = "1s"
//
//	[cache]
//	backend = "kernel"
//	ttl = "30m"
//
// `stash init` records the new vault root in this file with SaveRoot.
//
// # Settings
//
// UserStashSettings is initialized at startup with the home, config and data
// directories and the current username. The audit log lives in the data
// directory, outside any vault.
package configs
