package vault

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	serrors "github.com/PolarWolf314/stash/internal/errors"
	"github.com/PolarWolf314/stash/internal/secrets"
)

// Archive collapses every item of the vault into the encrypted container and
// returns the archived names.
func (v *Vault) Archive(ctx context.Context) ([]string, error) {
	if err := v.refreshState(); err != nil {
		return nil, err
	}
	if v.archived {
		return nil, serrors.ErrAlreadyArchived
	}

	empty, err := v.store.IsEmpty(ctx)
	if err != nil {
		return nil, err
	}
	items, err := v.items()
	if err != nil {
		return nil, err
	}
	if empty || len(items) == 0 {
		return nil, serrors.ErrNothingToArchive
	}

	names, err := v.archiver.Build(ctx, v.root, ContainerName, IsReserved)
	if err != nil {
		return nil, fmt.Errorf("building archive with %s: %w", v.archiver.Name(), err)
	}
	v.log.Step("Built container", map[string]any{"path": v.containerPath, "items": len(names)})

	secret := secrets.Generate()
	defer secret.Destroy()

	if err := v.remember(ctx, ContainerName, secret); err != nil {
		return nil, rollback(err, v.restoreContainer(ctx))
	}
	if err := secrets.EncryptInPlace(v.containerPath, secret, v.cipher); err != nil {
		return nil, rollback(fmt.Errorf("encrypting container: %w", err),
			v.store.Remove(ctx, ContainerName), v.restoreContainer(ctx))
	}
	v.log.Step("Encrypted container", map[string]any{"path": v.containerPath, "cipher": string(v.cipher)})

	v.cacheSecret(ctx, ContainerName, secret)
	v.archived = true
	return names, nil
}

// Unpack restores the items of the container into the vault root and removes
// the container. It returns the restored names.
func (v *Vault) Unpack(ctx context.Context) ([]string, error) {
	if err := v.refreshState(); err != nil {
		return nil, err
	}
	if !v.archived {
		return nil, serrors.ErrVaultNotArchived
	}

	secret, err := v.decrypt(ctx, v.containerPath, ContainerName)
	if err != nil {
		return nil, err
	}
	defer secret.Destroy()

	written, err := v.archiver.Extract(ctx, v.containerPath, v.root, IsReserved)
	if err != nil {
		return nil, rollback(fmt.Errorf("extracting container with %s: %w", v.archiver.Name(), err),
			v.removeAll(written), secrets.EncryptInPlace(v.containerPath, secret, v.cipher))
	}
	v.log.Step("Extracted container", map[string]any{"items": len(written)})

	if err := os.Remove(v.containerPath); err != nil {
		return nil, rollback(serrors.IO("removing container", err),
			v.removeAll(written), secrets.EncryptInPlace(v.containerPath, secret, v.cipher))
	}
	v.archived = false

	return written, v.forget(ctx, ContainerName)
}

// restoreContainer extracts a plaintext container back into the root and
// removes it.
func (v *Vault) restoreContainer(ctx context.Context) error {
	if _, err := v.archiver.Extract(ctx, v.containerPath, v.root, IsReserved); err != nil {
		return fmt.Errorf("restoring archived files: %w", err)
	}
	if err := os.Remove(v.containerPath); err != nil {
		return serrors.IO("removing container", err)
	}
	return nil
}

func (v *Vault) removeAll(names []string) error {
	var errs []error
	for _, name := range names {
		if err := os.RemoveAll(filepath.Join(v.root, name)); err != nil {
			errs = append(errs, serrors.IO(fmt.Sprintf("removing %s", name), err))
		}
	}
	return errors.Join(errs...)
}
