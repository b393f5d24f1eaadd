//go:build linux

package cache

import (
	"context"
	"errors"
	"fmt"

	serrors "github.com/PolarWolf314/stash/internal/errors"
	"github.com/PolarWolf314/stash/internal/secrets"
	"github.com/awnumar/memguard"
	"golang.org/x/sys/unix"
)

const keyType = "user"

// kernelCache keeps secrets as "user" keys in the session keyring, so they
// outlive a single invocation and are discarded on logout or expiry.
type kernelCache struct {
	namespace string
	timeout   int
}

func newKernel(opts Options) (Cache, error) {
	if _, err := unix.KeyctlGetKeyringID(unix.KEY_SPEC_SESSION_KEYRING, false); err != nil {
		return nil, fmt.Errorf("%w: session keyring: %w", serrors.ErrCacheUnavailable, err)
	}
	return &kernelCache{
		namespace: opts.Namespace,
		timeout:   int(opts.TTL.Seconds()),
	}, nil
}

func (k *kernelCache) Name() string { return BackendKernel }

func (k *kernelCache) Put(ctx context.Context, description string, secret *secrets.Secret) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	id, err := unix.AddKey(keyType, entryName(k.namespace, description), secret.Bytes(), unix.KEY_SPEC_SESSION_KEYRING)
	if err != nil {
		return fmt.Errorf("caching secret for %s: %w", description, err)
	}
	if k.timeout > 0 {
		if _, err := unix.KeyctlInt(unix.KEYCTL_SET_TIMEOUT, id, k.timeout, 0, 0); err != nil {
			return fmt.Errorf("setting cache timeout for %s: %w", description, err)
		}
	}
	return nil
}

func (k *kernelCache) Get(ctx context.Context, description string) (*secrets.Secret, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	id, err := k.search(description)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, 2*secrets.BlobSize)
	defer memguard.WipeBytes(buf)

	n, err := unix.KeyctlBuffer(unix.KEYCTL_READ, id, buf, 0)
	if err != nil {
		if isGone(err) {
			return nil, miss(description)
		}
		return nil, fmt.Errorf("reading cached secret for %s: %w", description, err)
	}
	if n > len(buf) {
		n = len(buf)
	}
	secret, err := secrets.FromBytes(buf[:n])
	if err != nil {
		return nil, fmt.Errorf("cached secret for %s: %w", description, err)
	}
	return secret, nil
}

func (k *kernelCache) Invalidate(ctx context.Context, description string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	id, err := k.search(description)
	if errors.Is(err, serrors.ErrSecretNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if _, err := unix.KeyctlInt(unix.KEYCTL_INVALIDATE, id, 0, 0, 0); err != nil {
		if isGone(err) {
			return nil
		}
		// Kernels before 3.5 lack KEYCTL_INVALIDATE.
		if _, uerr := unix.KeyctlInt(unix.KEYCTL_UNLINK, id, unix.KEY_SPEC_SESSION_KEYRING, 0, 0); uerr != nil && !isGone(uerr) {
			return fmt.Errorf("invalidating cached secret for %s: %w", description, err)
		}
	}
	return nil
}

func (k *kernelCache) search(description string) (int, error) {
	id, err := unix.KeyctlSearch(unix.KEY_SPEC_SESSION_KEYRING, keyType, entryName(k.namespace, description), 0)
	if err != nil {
		if isGone(err) {
			return 0, miss(description)
		}
		return 0, fmt.Errorf("searching cache for %s: %w", description, err)
	}
	return id, nil
}

func isGone(err error) bool {
	return errors.Is(err, unix.ENOKEY) || errors.Is(err, unix.EKEYEXPIRED) || errors.Is(err, unix.EKEYREVOKED)
}
