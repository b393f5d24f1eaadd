package workflows

import (
	"context"

	"github.com/PolarWolf314/stash/internal/vault"
)

// StatusOptions configures the status workflow.
type StatusOptions struct {
	Common
}

// StatusResult contains the outcome of a status operation.
type StatusResult struct {
	*vault.Status

	// Scan is the consistency check of the stash against its store.
	Scan *vault.ScanResult `json:"scan"`
}

// Status reports the state of the stash: archive mode, items, store entries,
// the backends in use and any inconsistency between files and secrets.
func Status(ctx context.Context, opts StatusOptions) (*StatusResult, error) {
	v, err := openVault(ctx, opts.Common)
	if err != nil {
		return nil, err
	}
	defer v.Close()

	status, err := v.Status(ctx)
	if err != nil {
		return nil, err
	}
	scan, err := v.Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &StatusResult{Status: status, Scan: scan}, nil
}
