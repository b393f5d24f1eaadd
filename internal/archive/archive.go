package archive

//go:generate mockgen -source=archive.go -destination=../mock/archive_mock.go -package=mock

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path"
	"sort"
	"strings"

	serrors "github.com/PolarWolf314/stash/internal/errors"
)

// Tools.
const (
	ToolNative = "native"
	ToolTar    = "tar"
	ToolLs     = "ls"
)

// Filter reports whether a top-level name in the vault root must be left out
// of a container, and refused when it appears inside one.
type Filter func(name string) bool

// Archiver builds and extracts the compressed container of a vault.
type Archiver interface {
	// Build packs every entry of root not matched by skip into root/container
	// and removes the originals. It returns the archived top-level names.
	Build(ctx context.Context, root, container string, skip Filter) ([]string, error)

	// Extract unpacks containerPath into root and returns the top-level names
	// it wrote. The container itself is left in place.
	Extract(ctx context.Context, containerPath, root string, skip Filter) ([]string, error)

	// Name identifies the implementation.
	Name() string
}

// Lister enumerates a directory.
type Lister interface {
	// List returns the names in dir, sorted and newline-joined. Hidden names are
	// included only when all is set.
	List(ctx context.Context, dir string, all bool) (string, error)

	// Name identifies the implementation.
	Name() string
}

// NewArchiver returns the archiver for tool ("native" or "tar").
func NewArchiver(tool string, compressionLevel int) (Archiver, error) {
	switch tool {
	case ToolNative, "":
		return NewNative(compressionLevel), nil
	case ToolTar:
		return &Tar{Command: "tar"}, nil
	default:
		return nil, fmt.Errorf("%w: unknown archive tool %q", serrors.ErrInvalidInput, tool)
	}
}

// NewLister returns the lister for tool ("native" or "ls").
func NewLister(tool string) (Lister, error) {
	switch tool {
	case ToolNative, "":
		return DirLister{}, nil
	case ToolLs:
		return &Ls{Command: "ls"}, nil
	default:
		return nil, fmt.Errorf("%w: unknown list tool %q", serrors.ErrInvalidInput, tool)
	}
}

// sources returns the sorted top-level names of root to archive.
func sources(root, container string, skip Filter) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, serrors.IO("reading stash directory", err)
	}

	var names []string
	for _, e := range entries {
		name := e.Name()
		if name == container || (skip != nil && skip(name)) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// checkEntry validates a container entry name and returns its cleaned form
// and top-level component.
func checkEntry(name string, skip Filter) (clean, top string, err error) {
	clean = path.Clean(strings.TrimPrefix(name, "./"))
	if clean == "." || path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", "", fmt.Errorf("%w: entry %q escapes the stash", serrors.ErrInvalidArchive, name)
	}

	top = strings.SplitN(clean, "/", 2)[0]
	if skip != nil && skip(top) {
		return "", "", fmt.Errorf("%w: entry %q uses a reserved name", serrors.ErrInvalidArchive, name)
	}
	return clean, top, nil
}

// run executes an external tool and maps failures to ErrExternalToolFailure.
func run(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stderr strings.Builder
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, fmt.Errorf("%s %s: %w: %s", name, args[0], serrors.ErrExternalToolFailure, msg)
	}
	return out, nil
}

func appendUnique(names []string, seen map[string]bool, name string) []string {
	if seen[name] {
		return names
	}
	seen[name] = true
	return append(names, name)
}
