package workflows

import (
	"context"
	"fmt"
	"os"

	"github.com/PolarWolf314/stash/internal/audit"
	"github.com/PolarWolf314/stash/internal/vault"
)

// AddOptions configures the add workflow.
type AddOptions struct {
	Common

	// Files are the paths to protect.
	Files []string

	// Copy leaves the originals in place.
	Copy bool
}

// AddResult contains the outcome of an add operation.
type AddResult struct {
	// Added are the descriptions of the files now in the stash.
	Added []string
}

// Add moves (or copies) files into the stash and encrypts them. Files are
// processed in order and the first failure stops the run; Added lists what
// was protected before it.
func Add(ctx context.Context, opts AddOptions) (*AddResult, error) {
	v, err := openVault(ctx, opts.Common)
	if err != nil {
		return nil, err
	}
	defer v.Close()

	result := &AddResult{}
	defer func() { logFiles("add", v, result.Added, opts.Copy) }()

	for _, file := range opts.Files {
		desc, err := v.Add(ctx, file, opts.Copy)
		if err != nil {
			return result, fmt.Errorf("adding %s: %w", file, err)
		}
		result.Added = append(result.Added, desc)
	}
	return result, nil
}

// GrabOptions configures the grab workflow.
type GrabOptions struct {
	Common

	// Files are the stash items to release.
	Files []string

	// Copy keeps the items in the stash.
	Copy bool

	// DestDir receives the files. Defaults to the working directory.
	DestDir string
}

// GrabResult contains the outcome of a grab operation.
type GrabResult struct {
	// Paths are the released plaintext files.
	Paths []string

	// State is the archive state afterwards.
	State vault.State
}

// Grab decrypts stash items into the destination directory.
func Grab(ctx context.Context, opts GrabOptions) (*GrabResult, error) {
	destDir := opts.DestDir
	if destDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("getting working directory: %w", err)
		}
		destDir = wd
	}

	v, err := openVault(ctx, opts.Common)
	if err != nil {
		return nil, err
	}
	defer v.Close()

	result := &GrabResult{}
	var grabbed []string
	defer func() { logFiles("grab", v, grabbed, opts.Copy) }()

	for _, file := range opts.Files {
		path, err := v.Grab(ctx, file, opts.Copy, destDir)
		if path != "" {
			result.Paths = append(result.Paths, path)
			grabbed = append(grabbed, file)
		}
		result.State = v.State()
		if err != nil {
			return result, fmt.Errorf("grabbing %s: %w", file, err)
		}
	}
	return result, nil
}

// DeleteOptions configures the delete workflow.
type DeleteOptions struct {
	Common

	// Files are the stash items to delete.
	Files []string
}

// DeleteResult contains the outcome of a delete operation.
type DeleteResult struct {
	// Deleted are the removed items.
	Deleted []string

	// State is the archive state afterwards.
	State vault.State
}

// Delete removes stash items and their secrets.
func Delete(ctx context.Context, opts DeleteOptions) (*DeleteResult, error) {
	v, err := openVault(ctx, opts.Common)
	if err != nil {
		return nil, err
	}
	defer v.Close()

	result := &DeleteResult{}
	defer func() { logFiles("delete", v, result.Deleted, false) }()

	for _, file := range opts.Files {
		err := v.Delete(ctx, file)
		result.State = v.State()
		if err != nil {
			return result, fmt.Errorf("deleting %s: %w", file, err)
		}
		result.Deleted = append(result.Deleted, file)
	}
	return result, nil
}

// ListOptions configures the list workflow.
type ListOptions struct {
	Common

	// Pattern is an optional glob, e.g. "*.pdf" or "**/notes*".
	Pattern string

	// All includes hidden names and program files.
	All bool
}

// ListResult contains the outcome of a list operation.
type ListResult struct {
	Names []string
	State vault.State
}

// List enumerates the stash.
func List(ctx context.Context, opts ListOptions) (*ListResult, error) {
	v, err := openVault(ctx, opts.Common)
	if err != nil {
		return nil, err
	}
	defer v.Close()

	names, err := v.List(ctx, vault.ListOptions{Pattern: opts.Pattern, All: opts.All})
	if err != nil {
		return nil, err
	}
	return &ListResult{Names: names, State: v.State()}, nil
}

func logFiles(op string, v *vault.Vault, files []string, copy bool) {
	if len(files) == 0 {
		return
	}
	entry := audit.LogWithUser(op, v.Root())
	entry.Files = files
	entry.Copy = copy
	entry.State = v.State().String()
	audit.Log(entry)
}
