package workflows

import (
	"context"
	"errors"

	"github.com/PolarWolf314/stash/internal/audit"
)

// CleanOptions configures the clean workflow.
type CleanOptions struct {
	Common

	// DryRun previews what would be removed without making changes.
	DryRun bool

	// Force skips the confirmation prompt (handled by caller).
	Force bool
}

// CleanResult contains the outcome of a clean operation.
type CleanResult struct {
	// Dangling are store entries whose file is gone.
	Dangling []string

	// Orphaned are stash files with no secret. Clean never deletes them:
	// they may still be recovered from a backup of the store.
	Orphaned []string

	// TempFiles are scratch files left in the stash by an interrupted write.
	TempFiles []string

	// Removed are the entries actually removed (empty if dry-run).
	Removed []string

	// Swept are the temp files actually removed (empty if dry-run).
	Swept []string

	// DryRun indicates whether this was a dry-run.
	DryRun bool
}

// Clean removes dangling secret entries and leftover temp files.
//
// A dangling entry is a secret whose file is no longer in the stash. This can
// happen if:
//   - A file was removed by hand
//   - An add was interrupted after the secret was stored
//   - The archive container was grabbed, leaving the entries of its contents
//
// Temp files are the scratch copies of an atomic write that never got renamed
// into place. They hold ciphertext or an unfinished write and are never items.
func Clean(ctx context.Context, opts CleanOptions) (*CleanResult, error) {
	v, err := openVault(ctx, opts.Common)
	if err != nil {
		return nil, err
	}
	defer v.Close()

	scan, err := v.Scan(ctx)
	if err != nil {
		return nil, err
	}

	result := &CleanResult{
		Dangling: scan.DanglingEntries,
		Orphaned:  scan.OrphanedFiles,
		TempFiles: scan.TempFiles,
		DryRun:    opts.DryRun,
	}
	if result.Empty() || opts.DryRun {
		return result, nil
	}

	var errs []error
	if len(scan.DanglingEntries) > 0 {
		removed, err := v.Prune(ctx, scan.DanglingEntries)
		result.Removed = removed
		errs = append(errs, err)
	}
	if len(scan.TempFiles) > 0 {
		swept, err := v.Sweep(ctx, scan.TempFiles)
		result.Swept = swept
		errs = append(errs, err)
	}

	if len(result.Removed) > 0 || len(result.Swept) > 0 {
		entry := audit.LogWithUser("clean", v.Root())
		entry.RemovedCount = len(result.Removed) + len(result.Swept)
		audit.Log(entry)
	}

	return result, errors.Join(errs...)
}

// Empty reports whether there is nothing for Clean to remove.
func (r *CleanResult) Empty() bool {
	return len(r.Dangling) == 0 && len(r.TempFiles) == 0
}
