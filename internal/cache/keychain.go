package cache

import (
	"context"
	"errors"
	"fmt"

	serrors "github.com/PolarWolf314/stash/internal/errors"
	"github.com/PolarWolf314/stash/internal/secrets"
	"github.com/99designs/keyring"
	"github.com/awnumar/memguard"
)

// keychainBackends are the OS credential stores the keychain cache may use.
// The encrypted-file backend is excluded because it prompts for a password.
var keychainBackends = []keyring.BackendType{
	keyring.KeychainBackend,
	keyring.WinCredBackend,
	keyring.SecretServiceBackend,
	keyring.KWalletBackend,
}

// keychainCache stores secrets in the platform credential store. Entries have
// no expiry; they are removed on delete, grab and unpack like any other backend.
type keychainCache struct {
	ring      keyring.Keyring
	namespace string
}

func newKeychain(opts Options) (Cache, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName:     opts.Service,
		AllowedBackends: keychainBackends,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", serrors.ErrCacheUnavailable, err)
	}
	return NewKeychain(ring, opts.Namespace), nil
}

// NewKeychain wraps an opened keyring.
func NewKeychain(ring keyring.Keyring, namespace string) Cache {
	return &keychainCache{ring: ring, namespace: namespace}
}

func (k *keychainCache) Name() string { return BackendKeychain }

func (k *keychainCache) Put(ctx context.Context, description string, secret *secrets.Secret) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data := make([]byte, secrets.BlobSize)
	copy(data, secret.Bytes())

	err := k.ring.Set(keyring.Item{
		Key:         entryName(k.namespace, description),
		Data:        data,
		Label:       "stash: " + description,
		Description: "stash file secret",
	})
	memguard.WipeBytes(data)
	if err != nil {
		return fmt.Errorf("caching secret for %s: %w", description, err)
	}
	return nil
}

func (k *keychainCache) Get(ctx context.Context, description string) (*secrets.Secret, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	item, err := k.ring.Get(entryName(k.namespace, description))
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return nil, miss(description)
	}
	if err != nil {
		return nil, fmt.Errorf("reading cached secret for %s: %w", description, err)
	}

	blob := make([]byte, len(item.Data))
	copy(blob, item.Data)
	memguard.WipeBytes(item.Data)
	secret, err := secrets.FromBytes(blob)
	if err != nil {
		return nil, fmt.Errorf("cached secret for %s: %w", description, err)
	}
	return secret, nil
}

func (k *keychainCache) Invalidate(ctx context.Context, description string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := k.ring.Remove(entryName(k.namespace, description))
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("invalidating cached secret for %s: %w", description, err)
	}
	return nil
}
