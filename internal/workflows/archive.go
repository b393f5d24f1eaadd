package workflows

import (
	"context"

	"github.com/PolarWolf314/stash/internal/audit"
	"github.com/PolarWolf314/stash/internal/vault"
)

// ArchiveOptions configures the archive workflow.
type ArchiveOptions struct {
	Common
}

// ArchiveResult contains the outcome of an archive or unpack operation.
type ArchiveResult struct {
	// Files are the items moved into (or restored from) the container.
	Files []string

	// State is the archive state afterwards.
	State vault.State
}

// Archive collapses the stash into its encrypted container.
//
// Returns ErrAlreadyArchived when a container exists and ErrNothingToArchive
// when the stash is empty.
func Archive(ctx context.Context, opts ArchiveOptions) (*ArchiveResult, error) {
	v, err := openVault(ctx, opts.Common)
	if err != nil {
		return nil, err
	}
	defer v.Close()

	files, err := v.Archive(ctx)
	if err != nil {
		return nil, err
	}

	entry := audit.LogWithUser("archive", v.Root())
	entry.Files = files
	entry.State = v.State().String()
	audit.Log(entry)

	return &ArchiveResult{Files: files, State: v.State()}, nil
}

// UnpackOptions configures the unpack workflow.
type UnpackOptions struct {
	Common
}

// Unpack restores the stash from its container.
//
// Returns ErrVaultNotArchived when there is no container.
func Unpack(ctx context.Context, opts UnpackOptions) (*ArchiveResult, error) {
	v, err := openVault(ctx, opts.Common)
	if err != nil {
		return nil, err
	}
	defer v.Close()

	files, err := v.Unpack(ctx)
	if files == nil && err != nil {
		return nil, err
	}

	entry := audit.LogWithUser("unpack", v.Root())
	entry.Files = files
	entry.State = v.State().String()
	audit.Log(entry)

	return &ArchiveResult{Files: files, State: v.State()}, err
}
