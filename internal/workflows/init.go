package workflows

import (
	"context"
	"fmt"
	"os"

	"github.com/PolarWolf314/stash/internal/audit"
	"github.com/PolarWolf314/stash/internal/configs"
	"github.com/PolarWolf314/stash/internal/vault"
)

// InitOptions configures the init workflow.
type InitOptions struct {
	Common

	// Label names the new stash directory.
	Label string

	// Parent is the directory to create the stash in. Defaults to the home directory.
	Parent string

	// SetDefault records the new stash as vault.root in the config file.
	SetDefault bool
}

// InitResult contains the outcome of an init operation.
type InitResult struct {
	// Root is the path of the new stash.
	Root string

	// VaultID is the identifier recorded in the new store.
	VaultID string

	// Cipher is the AEAD the stash will use for its lifetime.
	Cipher string

	// ConfigUpdated is true when the config file now points at the new stash.
	ConfigUpdated bool
}

// Init creates a new stash directory and its secret store.
//
// Returns ErrInvalidLabel for labels that cannot be directory names,
// ErrAlreadyExists when the target is taken and ErrNotFound when the parent
// directory is missing.
func Init(ctx context.Context, opts InitOptions) (*InitResult, error) {
	log := opts.logger()

	cfg, err := loadConfig(opts.Common)
	if err != nil {
		return nil, err
	}

	parent := opts.Parent
	if parent == "" {
		parent = configs.UserStashSettings.HomeDir
	}
	if parent, err = configs.ExpandPath(parent); err != nil {
		return nil, err
	}

	root, err := vault.Create(parent, opts.Label)
	if err != nil {
		return nil, err
	}
	log.Infof("Created %s", root)

	v, err := vault.Open(ctx, vaultConfig(cfg, root, log))
	if err != nil {
		// Leave no half-initialized directory behind.
		_ = os.RemoveAll(root)
		return nil, fmt.Errorf("initializing secret store: %w", err)
	}
	defer v.Close()

	status, err := v.Status(ctx)
	if err != nil {
		return nil, err
	}

	result := &InitResult{
		Root:    root,
		VaultID: status.ID,
		Cipher:  status.Cipher,
	}

	if opts.SetDefault {
		if err := configs.SaveRoot(root); err != nil {
			return nil, fmt.Errorf("saving default stash: %w", err)
		}
		result.ConfigUpdated = true
	}

	entry := audit.LogWithUser("init", root)
	entry.Label = opts.Label
	entry.VaultID = status.ID
	audit.Log(entry)

	return result, nil
}
