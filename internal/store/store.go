package store

//go:generate mockgen -source=store.go -destination=../mock/store_mock.go -package=mock

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	serrors "github.com/PolarWolf314/stash/internal/errors"
	"github.com/PolarWolf314/stash/internal/secrets"
)

// FileName is the name of the persistent store inside the vault root.
const FileName = ".db"

// Supported backends.
const (
	BackendBolt   = "bolt"
	BackendSQLite = "sqlite"
)

// DefaultLockTimeout bounds how long Open waits for another invocation to release the store.
const DefaultLockTimeout = time.Second

// Store is the durable tier of the secret store: description -> 44-byte secret blob.
// It is the source of truth for every encrypted item resident in a vault.
type Store interface {
	// Put persists secret under description, replacing any previous value.
	Put(ctx context.Context, description string, secret *secrets.Secret) error

	// Get loads the secret stored under description. It returns
	// ErrSecretNotFound when absent and ErrCorruptSecret when the stored blob
	// is not 44 bytes. The caller owns the returned secret.
	Get(ctx context.Context, description string) (*secrets.Secret, error)

	// Remove deletes the entry for description. Removing a missing entry is not an error.
	Remove(ctx context.Context, description string) error

	// IsEmpty reports whether the store holds no secrets.
	IsEmpty(ctx context.Context) (bool, error)

	// Descriptions lists every stored description in key order.
	Descriptions(ctx context.Context) ([]string, error)

	// Meta returns the vault metadata, or ErrNotFound if it was never written.
	Meta(ctx context.Context) (*Meta, error)

	// InitMeta writes meta unless metadata already exists, and returns the stored value.
	InitMeta(ctx context.Context, meta Meta) (*Meta, error)

	// Backend names the implementation ("bolt" or "sqlite").
	Backend() string

	// Close releases the store and its file lock.
	Close() error
}

// Meta describes a vault. It is written once, when the store is first created.
type Meta struct {
	ID        string
	Cipher    string
	CreatedAt time.Time
}

// Options configures Open.
type Options struct {
	// Backend selects the implementation. Empty selects BackendBolt.
	Backend string

	// LockTimeout bounds how long Open waits for a concurrent invocation.
	// Zero selects DefaultLockTimeout.
	LockTimeout time.Duration
}

// Path returns the store location inside root.
func Path(root string) string {
	return filepath.Join(root, FileName)
}

// Open opens the store at root/.db, creating it if absent. A second
// concurrent opener fails with ErrStoreLocked.
func Open(root string, opts Options) (Store, error) {
	timeout := opts.LockTimeout
	if timeout <= 0 {
		timeout = DefaultLockTimeout
	}

	switch opts.Backend {
	case BackendBolt, "":
		return openBolt(Path(root), timeout)
	case BackendSQLite:
		return openSQLite(Path(root), timeout)
	default:
		return nil, fmt.Errorf("%w: unknown store backend %q", serrors.ErrInvalidInput, opts.Backend)
	}
}

// ValidBackend reports whether name selects a known backend.
func ValidBackend(name string) bool {
	return name == "" || name == BackendBolt || name == BackendSQLite
}

func checkDescription(description string) error {
	if description == "" {
		return fmt.Errorf("%w: empty description", serrors.ErrInvalidInput)
	}
	return nil
}

// loadSecret copies a raw value out of backend-owned memory before FromBytes wipes it.
func loadSecret(description string, raw []byte) (*secrets.Secret, error) {
	blob := make([]byte, len(raw))
	copy(blob, raw)

	secret, err := secrets.FromBytes(blob)
	if err != nil {
		return nil, fmt.Errorf("loading secret for %s: %w", description, err)
	}
	return secret, nil
}
