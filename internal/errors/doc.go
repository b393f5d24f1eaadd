// Package errors provides typed error values for stash.
//
// Errors come in two layers. Category errors (ErrNotFound, ErrAlreadyExists,
// ErrInvalidInput, ErrCorruptSecret, ErrAuthenticationFailed, ErrIO,
// ErrExternalToolFailure) describe what kind of failure happened. Specific
// errors (ErrSecretNotFound, ErrVaultArchived, ErrReservedName, ...) wrap a
// category so both levels can be checked with errors.Is:
//
//	if errors.Is(err, serrors.ErrSecretNotFound) { ... } // exact condition
//	if errors.Is(err, serrors.ErrNotFound) { ... }       // any absence
//
// # Usage
//
// Return errors from internal packages, wrapping them with the failing step:
//
//	if _, err := os.Stat(root); os.IsNotExist(err) {
//	    return serrors.ErrVaultNotFound
//	}
//	return fmt.Errorf("persisting secret for %s: %w", name, err)
//
// Filesystem failures are wrapped with IO so they carry the ErrIO category
// alongside the original os error:
//
//	return serrors.IO("reading file", err)
package errors
