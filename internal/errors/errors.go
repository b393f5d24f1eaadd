package errors

import (
	"errors"
	"fmt"
)

// Category errors. Every error returned by the vault wraps exactly one of these,
// so callers can branch on the category with errors.Is.
var (
	// ErrNotFound indicates a vault, file or secret is absent.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates a destination collision.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates a request that is not allowed in the current state.
	ErrInvalidInput = errors.New("invalid input")

	// ErrCorruptSecret indicates a stored secret blob has the wrong length.
	ErrCorruptSecret = errors.New("corrupt secret")

	// ErrAuthenticationFailed indicates an AEAD tag mismatch: wrong secret or tampered ciphertext.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrIO indicates a filesystem failure.
	ErrIO = errors.New("i/o error")

	// ErrExternalToolFailure indicates an archive or listing subprocess exited non-zero.
	ErrExternalToolFailure = errors.New("external tool failed")

	// ErrCrypto indicates the cipher could not be constructed or used.
	ErrCrypto = errors.New("cryptographic failure")
)

// Vault state errors.
var (
	// ErrVaultNotFound indicates the vault root directory does not exist.
	ErrVaultNotFound = fmt.Errorf("no stash found: %w", ErrNotFound)

	// ErrVaultArchived indicates the vault is collapsed into its container.
	ErrVaultArchived = fmt.Errorf("stash is in archive mode, run `stash unpack` first: %w", ErrInvalidInput)

	// ErrVaultNotArchived indicates unpack was requested without a container.
	ErrVaultNotArchived = fmt.Errorf("no archive exists: %w", ErrInvalidInput)

	// ErrAlreadyArchived indicates archive was requested on an archived vault.
	ErrAlreadyArchived = fmt.Errorf("archive already exists: %w", ErrInvalidInput)

	// ErrNothingToArchive indicates the persistent store holds no entries.
	ErrNothingToArchive = fmt.Errorf("no files in stash, nothing to archive: %w", ErrInvalidInput)
)

// File and name errors.
var (
	// ErrFileNotFound indicates a file is missing from the vault or the source location.
	ErrFileNotFound = fmt.Errorf("file not found: %w", ErrNotFound)

	// ErrFileExists indicates the destination of an add or grab is already taken.
	ErrFileExists = fmt.Errorf("file already exists: %w", ErrAlreadyExists)

	// ErrIsDirectory indicates a directory was given where a regular file was expected.
	ErrIsDirectory = fmt.Errorf("source is a directory: %w", ErrInvalidInput)

	// ErrReservedName indicates a program file (such as the secret store) was targeted.
	ErrReservedName = fmt.Errorf("cannot operate on program file: %w", ErrInvalidInput)

	// ErrInvalidLabel indicates a vault label that cannot be used as a directory name.
	ErrInvalidLabel = fmt.Errorf("invalid stash label: %w", ErrInvalidInput)

	// ErrInvalidArchive indicates a container with entries the vault refuses to extract.
	ErrInvalidArchive = fmt.Errorf("invalid archive structure: %w", ErrInvalidInput)
)

// Secret storage errors.
var (
	// ErrSecretNotFound indicates neither tier holds a secret for the description.
	ErrSecretNotFound = fmt.Errorf("secret not found: %w", ErrNotFound)

	// ErrStoreLocked indicates another process holds the persistent store.
	ErrStoreLocked = fmt.Errorf("secret store is locked by another process: %w", ErrIO)

	// ErrCacheUnavailable indicates the session cache backend cannot be used on this system.
	ErrCacheUnavailable = errors.New("session cache unavailable")
)

// IO wraps a filesystem error with ErrIO and the failing step.
func IO(step string, err error) error {
	return fmt.Errorf("%s: %w: %w", step, ErrIO, err)
}

// Join is errors.Join, re-exported so callers importing this package
// under the errors name keep access to it.
func Join(errs ...error) error {
	return errors.Join(errs...)
}
