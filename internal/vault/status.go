package vault

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	serrors "github.com/PolarWolf314/stash/internal/errors"
	"github.com/PolarWolf314/stash/internal/secrets"
	"github.com/PolarWolf314/stash/internal/utils"
)

// Status describes an open vault.
type Status struct {
	Root         string    `json:"root"`
	ID           string    `json:"id,omitempty"`
	State        string    `json:"state"`
	Archived     bool      `json:"archived"`
	Items        []string  `json:"items"`
	Entries      int       `json:"entries"`
	Cipher       string    `json:"cipher"`
	CreatedAt    time.Time `json:"created_at"`
	StoreBackend string    `json:"store_backend"`
	CacheBackend string    `json:"cache_backend"`
}

// Status reports the vault's state and contents.
func (v *Vault) Status(ctx context.Context) (*Status, error) {
	if err := v.refreshState(); err != nil {
		return nil, err
	}

	items, err := v.items()
	if err != nil {
		return nil, err
	}
	entries, err := v.store.Descriptions(ctx)
	if err != nil {
		return nil, err
	}

	s := &Status{
		Root:         v.root,
		State:        v.State().String(),
		Archived:     v.archived,
		Items:        items,
		Entries:      len(entries),
		Cipher:       string(v.cipher),
		StoreBackend: v.store.Backend(),
		CacheBackend: v.cache.Name(),
	}

	meta := v.meta
	if meta == nil {
		if meta, err = v.store.Meta(ctx); err != nil && !errors.Is(err, serrors.ErrNotFound) {
			return nil, err
		}
	}
	if meta != nil {
		s.ID = meta.ID
		s.CreatedAt = meta.CreatedAt
	}
	return s, nil
}

// ScanResult lists inconsistencies between the vault root and the store.
type ScanResult struct {
	// OrphanedFiles are items with no secret. They cannot be decrypted.
	OrphanedFiles []string `json:"orphaned_files"`

	// DanglingEntries are secrets whose item is gone.
	DanglingEntries []string `json:"dangling_entries"`

	// TempFiles are scratch files left in the root by an interrupted write.
	TempFiles []string `json:"temp_files"`
}

// Clean reports whether the scan found nothing.
func (r *ScanResult) Clean() bool {
	return len(r.OrphanedFiles) == 0 && len(r.DanglingEntries) == 0 && len(r.TempFiles) == 0
}

// Scan compares the vault root with the persistent store. While archived the
// entries of archived files live on inside the container, so only the
// container itself is checked.
func (v *Vault) Scan(ctx context.Context) (*ScanResult, error) {
	if err := v.refreshState(); err != nil {
		return nil, err
	}

	items, err := v.items()
	if err != nil {
		return nil, err
	}
	descriptions, err := v.store.Descriptions(ctx)
	if err != nil {
		return nil, err
	}

	result := &ScanResult{}
	if result.TempFiles, err = v.tempFiles(); err != nil {
		return nil, err
	}
	if v.archived {
		if !slices.Contains(descriptions, ContainerName) {
			result.OrphanedFiles = append(result.OrphanedFiles, ContainerName)
		}
		return result, nil
	}

	for _, item := range items {
		if !slices.Contains(descriptions, item) {
			result.OrphanedFiles = append(result.OrphanedFiles, item)
		}
	}
	for _, d := range descriptions {
		exists, err := utils.Exists(filepath.Join(v.root, d))
		if err != nil {
			return nil, serrors.IO(fmt.Sprintf("checking %s", d), err)
		}
		if !exists {
			result.DanglingEntries = append(result.DanglingEntries, d)
		}
	}
	return result, nil
}

// Prune removes the given dangling entries from both tiers. Entries whose
// item has reappeared are left alone.
func (v *Vault) Prune(ctx context.Context, entries []string) ([]string, error) {
	scan, err := v.Scan(ctx)
	if err != nil {
		return nil, err
	}

	var removed []string
	var errs []error
	for _, e := range entries {
		if !slices.Contains(scan.DanglingEntries, e) {
			v.log.Debugf("Skipping %s, not a dangling entry", e)
			continue
		}
		if err := v.forget(ctx, e); err != nil {
			errs = append(errs, err)
			continue
		}
		removed = append(removed, e)
	}
	return removed, errors.Join(errs...)
}

// Sweep removes the given leftover temp files from the root. Names that are
// not temp files in the current scan are left alone.
func (v *Vault) Sweep(ctx context.Context, names []string) ([]string, error) {
	scan, err := v.Scan(ctx)
	if err != nil {
		return nil, err
	}

	var removed []string
	var errs []error
	for _, name := range names {
		if !slices.Contains(scan.TempFiles, name) {
			v.log.Debugf("Skipping %s, not a temp file", name)
			continue
		}
		if err := os.Remove(filepath.Join(v.root, name)); err != nil {
			errs = append(errs, serrors.IO(fmt.Sprintf("removing %s", name), err))
			continue
		}
		v.log.Step("Removed temp file", map[string]any{"name": name})
		removed = append(removed, name)
	}
	return removed, errors.Join(errs...)
}

// tempFiles returns the scratch files in the root.
func (v *Vault) tempFiles() ([]string, error) {
	entries, err := os.ReadDir(v.root)
	if err != nil {
		return nil, serrors.IO("reading stash directory", err)
	}
	var names []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), secrets.TempPrefix) {
			names = append(names, e.Name())
		}
	}
	return names, nil
}
