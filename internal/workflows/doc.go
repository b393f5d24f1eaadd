// Package workflows provides high-level orchestration for stash commands.
//
// Workflows coordinate configuration, the vault engine and the audit log to
// implement complete user-facing features. Each workflow handles a single
// command's business logic, independent of CLI concerns like flag parsing,
// spinners, and output formatting.
//
// # Design Philosophy
//
// The cmd/ package should be a thin layer that:
//   - Parses command-line flags and arguments
//   - Calls the appropriate workflow function
//   - Formats the result for display
//
// Workflows handle everything else:
//   - Loading configuration (flags, environment, config file, defaults)
//   - Opening the stash for exactly one engine operation
//   - Recording audit trail entries
//
// # Error Handling
//
// Workflows return typed errors from the internal/errors package, allowing
// the CLI layer to provide appropriate user-facing messages without string
// matching. Use errors.Is() to check for specific error conditions:
//
//	result, err := workflows.Add(ctx, opts)
//	if errors.Is(err, serrors.ErrVaultArchived) {
//	    // Suggest `stash unpack`
//	}
//
// # Context Usage
//
// All workflow functions accept a context.Context as their first parameter.
// It is passed to the store, the cache and external tools.
package workflows
