package cache

//go:generate mockgen -source=cache.go -destination=../mock/cache_mock.go -package=mock

import (
	"context"
	"fmt"
	"time"

	serrors "github.com/PolarWolf314/stash/internal/errors"
	"github.com/PolarWolf314/stash/internal/secrets"
)

// Supported backends.
const (
	BackendKernel   = "kernel"
	BackendKeychain = "keychain"
	BackendMemory   = "memory"
	BackendNone     = "none"
)

// DefaultTTL is how long a cached secret survives in backends that support expiry.
const DefaultTTL = 30 * time.Minute

// DefaultService is the keychain service name entries are filed under.
const DefaultService = "stash"

// Cache is the volatile tier of the secret store. It is never authoritative:
// a miss or a failure falls through to the persistent store.
type Cache interface {
	// Put caches secret under description.
	Put(ctx context.Context, description string, secret *secrets.Secret) error

	// Get returns the cached secret or ErrSecretNotFound on a miss.
	// The caller owns the returned secret.
	Get(ctx context.Context, description string) (*secrets.Secret, error)

	// Invalidate drops the entry for description. A missing entry is not an error.
	Invalidate(ctx context.Context, description string) error

	// Name identifies the backend for status output.
	Name() string
}

// Options configures New.
type Options struct {
	// Backend selects the implementation. Empty selects BackendKernel.
	Backend string

	// Namespace keeps entries of different vaults apart.
	Namespace string

	// TTL is the entry lifetime. Zero selects DefaultTTL.
	TTL time.Duration

	// Service is the keychain service name. Empty selects DefaultService.
	Service string
}

// New returns the cache backend named in opts. It returns an error wrapping
// ErrCacheUnavailable when the backend cannot be used on this system; callers
// decide whether to fall back to NewMemory.
func New(opts Options) (Cache, error) {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Service == "" {
		opts.Service = DefaultService
	}

	switch opts.Backend {
	case BackendKernel, "":
		return newKernel(opts)
	case BackendKeychain:
		return newKeychain(opts)
	case BackendMemory:
		return NewMemory(opts.TTL), nil
	case BackendNone:
		return None{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown cache backend %q", serrors.ErrInvalidInput, opts.Backend)
	}
}

// ValidBackend reports whether name selects a known backend.
func ValidBackend(name string) bool {
	switch name {
	case "", BackendKernel, BackendKeychain, BackendMemory, BackendNone:
		return true
	}
	return false
}

// entryName is the namespaced key an entry is stored under.
func entryName(namespace, description string) string {
	if namespace == "" {
		return "stash:" + description
	}
	return "stash:" + namespace + ":" + description
}

func miss(description string) error {
	return fmt.Errorf("%s: %w", description, serrors.ErrSecretNotFound)
}

// None is a cache that never holds anything.
type None struct{}

func (None) Put(context.Context, string, *secrets.Secret) error { return nil }

func (None) Get(_ context.Context, description string) (*secrets.Secret, error) {
	return nil, miss(description)
}

func (None) Invalidate(context.Context, string) error { return nil }

func (None) Name() string { return BackendNone }
