package vault

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	serrors "github.com/PolarWolf314/stash/internal/errors"
	"github.com/PolarWolf314/stash/internal/secrets"
	"github.com/PolarWolf314/stash/internal/utils"
)

// Add encrypts source into the vault with a fresh secret and, unless copy is
// set, removes source afterwards. It returns the item's description, which is
// the file's base name.
func (v *Vault) Add(ctx context.Context, source string, copy bool) (string, error) {
	if err := v.refreshState(); err != nil {
		return "", err
	}
	if v.archived {
		return "", serrors.ErrVaultArchived
	}

	name, err := itemName(source)
	if err != nil {
		return "", err
	}
	if name == ContainerName {
		return "", fmt.Errorf("%s is the archive container name: %w", name, serrors.ErrReservedName)
	}

	info, err := os.Lstat(source)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%s: %w", source, serrors.ErrFileNotFound)
	}
	if err != nil {
		return "", serrors.IO("reading source", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s: %w", source, serrors.ErrIsDirectory)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%w: %s is not a regular file", serrors.ErrInvalidInput, source)
	}

	dest := filepath.Join(v.root, name)
	exists, err := utils.Exists(dest)
	if err != nil {
		return "", serrors.IO("checking destination", err)
	}
	if exists {
		return "", fmt.Errorf("%s: %w", name, serrors.ErrFileExists)
	}

	secret := secrets.Generate()
	defer secret.Destroy()

	if err := v.remember(ctx, name, secret); err != nil {
		return "", err
	}

	// The plaintext never enters the root: the ciphertext is written next to
	// dest and renamed into place before a moved source is removed.
	if err := secrets.EncryptTo(source, dest, secret, v.cipher); err != nil {
		return "", rollback(fmt.Errorf("encrypting %s: %w", name, err), v.store.Remove(ctx, name))
	}
	v.log.Step("Encrypted file", map[string]any{"source": source, "dest": dest, "cipher": string(v.cipher)})

	if !copy {
		if err := os.Remove(source); err != nil {
			return "", rollback(serrors.IO(fmt.Sprintf("removing %s", source), err),
				os.Remove(dest), v.store.Remove(ctx, name))
		}
		v.log.Step("Removed source", map[string]any{"source": source})
	}

	v.cacheSecret(ctx, name, secret)
	return name, nil
}

// Grab releases file from the vault into destDir. The ciphertext is placed at
// the destination first and decrypted there. Unless copy is set the vault
// item and its secret are removed.
func (v *Vault) Grab(ctx context.Context, file string, copy bool, destDir string) (string, error) {
	if err := v.refreshState(); err != nil {
		return "", err
	}

	name, err := itemName(file)
	if err != nil {
		return "", err
	}
	if v.archived && name != ContainerName && !copy {
		return "", serrors.ErrVaultArchived
	}

	src := filepath.Join(v.root, name)
	if err := checkItem(src, name); err != nil {
		return "", err
	}

	dest := filepath.Join(destDir, name)
	exists, err := utils.Exists(dest)
	if err != nil {
		return "", serrors.IO("checking destination", err)
	}
	if exists {
		return "", fmt.Errorf("%s: %w", dest, serrors.ErrFileExists)
	}

	if copy {
		err = utils.CopyFile(src, dest)
	} else {
		err = utils.MoveFile(src, dest)
	}
	if err != nil {
		return "", serrors.IO(fmt.Sprintf("releasing %s", name), err)
	}
	v.log.Step("Released ciphertext", map[string]any{"source": src, "dest": dest, "copy": copy})

	secret, err := v.decrypt(ctx, dest, name)
	if err != nil {
		var undo error
		if copy {
			undo = os.Remove(dest)
		} else {
			undo = utils.MoveFile(dest, src)
		}
		return "", rollback(err, undo)
	}
	secret.Destroy()

	if copy {
		return dest, nil
	}

	if err := v.forget(ctx, name); err != nil {
		return dest, err
	}
	if name == ContainerName {
		v.archived = false
		if remaining, err := v.store.Descriptions(ctx); err == nil && len(remaining) > 0 {
			v.log.Warnf("%d %s of archived files remain in the store, run `stash clean` to remove them",
				len(remaining), utils.Plural(len(remaining), "secret"))
		}
	}
	return dest, nil
}

// Delete removes file and its secret. While archived only the container can
// be deleted, which also drops the secrets of everything inside it.
func (v *Vault) Delete(ctx context.Context, file string) error {
	if err := v.refreshState(); err != nil {
		return err
	}

	name, err := itemName(file)
	if err != nil {
		return err
	}
	if v.archived && name != ContainerName {
		return serrors.ErrVaultArchived
	}

	path := filepath.Join(v.root, name)
	if err := checkItem(path, name); err != nil {
		return err
	}

	descriptions := []string{name}
	if name == ContainerName {
		if descriptions, err = v.store.Descriptions(ctx); err != nil {
			return err
		}
	}

	if err := os.Remove(path); err != nil {
		return serrors.IO(fmt.Sprintf("deleting %s", name), err)
	}
	v.log.Step("Deleted file", map[string]any{"path": path})
	if name == ContainerName {
		v.archived = false
	}

	var errs []error
	for _, d := range descriptions {
		if err := v.forget(ctx, d); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ListOptions filters List.
type ListOptions struct {
	// Pattern is a doublestar glob matched against each name.
	Pattern string

	// All includes hidden names and program files.
	All bool
}

// List returns the names in the vault root.
func (v *Vault) List(ctx context.Context, opts ListOptions) ([]string, error) {
	if err := v.refreshState(); err != nil {
		return nil, err
	}
	if opts.Pattern != "" && !doublestar.ValidatePattern(opts.Pattern) {
		return nil, fmt.Errorf("%w: bad pattern %q", serrors.ErrInvalidInput, opts.Pattern)
	}

	out, err := v.lister.List(ctx, v.root, opts.All)
	if err != nil {
		return nil, fmt.Errorf("listing stash: %w", err)
	}

	var names []string
	for _, line := range strings.Split(out, "\n") {
		name := strings.TrimSpace(line)
		if name == "" || (!opts.All && IsReserved(name)) {
			continue
		}
		if opts.Pattern != "" {
			if ok, _ := doublestar.Match(opts.Pattern, name); !ok {
				continue
			}
		}
		names = append(names, name)
	}
	return names, nil
}

func checkItem(path, name string) error {
	info, err := os.Lstat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s: %w", name, serrors.ErrFileNotFound)
	}
	if err != nil {
		return serrors.IO(fmt.Sprintf("reading %s", name), err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s: %w", name, serrors.ErrIsDirectory)
	}
	return nil
}
