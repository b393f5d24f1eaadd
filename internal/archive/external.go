package archive

import (
	"context"
	"os"
	"path/filepath"
	"strings"
)

// Tar builds and extracts containers by running the tar tool.
type Tar struct {
	Command string
}

func (t *Tar) Name() string { return ToolTar }

func (t *Tar) Build(ctx context.Context, root, container string, skip Filter) ([]string, error) {
	names, err := sources(root, container, skip)
	if err != nil {
		return nil, err
	}

	args := append([]string{"czf", filepath.Join(root, container), "--remove-files", "-C", root, "--"}, names...)
	if _, err := run(ctx, t.Command, args...); err != nil {
		// tar may leave a partial container behind.
		os.Remove(filepath.Join(root, container))
		return nil, err
	}
	return names, nil
}

func (t *Tar) Extract(ctx context.Context, containerPath, root string, skip Filter) ([]string, error) {
	// List first so no entry is written before every name is validated.
	out, err := run(ctx, t.Command, "tzf", containerPath)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	var names []string
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		if line == "" {
			continue
		}
		_, top, err := checkEntry(line, skip)
		if err != nil {
			return nil, err
		}
		names = appendUnique(names, seen, top)
	}

	if _, err := run(ctx, t.Command, "xzf", containerPath, "-C", root, "--keep-old-files"); err != nil {
		return names, err
	}
	return names, nil
}
