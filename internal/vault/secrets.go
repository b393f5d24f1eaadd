package vault

import (
	"context"
	"errors"
	"fmt"

	serrors "github.com/PolarWolf314/stash/internal/errors"
	"github.com/PolarWolf314/stash/internal/secrets"
)

// remember persists a freshly generated secret. The store is written first
// and is the source of truth; a cache failure only costs the fast path.
func (v *Vault) remember(ctx context.Context, description string, secret *secrets.Secret) error {
	if err := v.store.Put(ctx, description, secret); err != nil {
		return fmt.Errorf("storing secret for %s: %w", description, err)
	}
	v.log.Step("Stored secret", map[string]any{"description": description, "store": v.store.Backend()})
	return nil
}

func (v *Vault) cacheSecret(ctx context.Context, description string, secret *secrets.Secret) {
	if err := v.cache.Put(ctx, description, secret); err != nil {
		v.log.Warnf("Could not cache secret for %s: %v", description, err)
		return
	}
	v.log.Step("Cached secret", map[string]any{"description": description, "cache": v.cache.Name()})
}

// forget removes the secret for description from both tiers.
func (v *Vault) forget(ctx context.Context, description string) error {
	var errs []error
	if err := v.store.Remove(ctx, description); err != nil {
		errs = append(errs, fmt.Errorf("removing secret for %s: %w", description, err))
	}
	if err := v.cache.Invalidate(ctx, description); err != nil {
		errs = append(errs, fmt.Errorf("invalidating cached secret for %s: %w", description, err))
	}
	return errors.Join(errs...)
}

// Lookup returns the secret for description, trying the session cache first
// and the persistent store second. The caller owns the returned secret.
func (v *Vault) Lookup(ctx context.Context, description string) (*secrets.Secret, error) {
	secret, err := v.cache.Get(ctx, description)
	if err == nil {
		v.log.Step("Secret found in cache", map[string]any{"description": description})
		return secret, nil
	}
	if !errors.Is(err, serrors.ErrSecretNotFound) {
		v.log.Warnf("Session cache lookup for %s failed: %v", description, err)
	}

	secret, err = v.store.Get(ctx, description)
	if err != nil {
		return nil, fmt.Errorf("looking up secret for %s: %w", description, err)
	}
	v.log.Step("Secret found in store", map[string]any{"description": description})
	return secret, nil
}

// decrypt decrypts path with the secret of description and returns that
// secret. A cached secret that fails authentication is stale: it is dropped
// and the persistent store is consulted.
func (v *Vault) decrypt(ctx context.Context, path, description string) (*secrets.Secret, error) {
	cached, err := v.cache.Get(ctx, description)
	switch {
	case err == nil:
		err = secrets.DecryptInPlace(path, cached, v.cipher)
		if err == nil {
			v.log.Step("Decrypted with cached secret", map[string]any{"description": description})
			return cached, nil
		}
		cached.Destroy()
		if !errors.Is(err, serrors.ErrAuthenticationFailed) {
			return nil, fmt.Errorf("decrypting %s: %w", description, err)
		}
		v.log.Warnf("Cached secret for %s is stale, using the store", description)
		if err := v.cache.Invalidate(ctx, description); err != nil {
			v.log.Warnf("Could not drop stale cached secret for %s: %v", description, err)
		}
	case !errors.Is(err, serrors.ErrSecretNotFound):
		v.log.Warnf("Session cache lookup for %s failed: %v", description, err)
	}

	secret, err := v.store.Get(ctx, description)
	if err != nil {
		return nil, fmt.Errorf("looking up secret for %s: %w", description, err)
	}
	if err := secrets.DecryptInPlace(path, secret, v.cipher); err != nil {
		secret.Destroy()
		return nil, fmt.Errorf("decrypting %s: %w", description, err)
	}
	v.log.Step("Decrypted with stored secret", map[string]any{"description": description})
	return secret, nil
}
