package archive

import (
	"context"
	"os"
	"sort"
	"strings"

	serrors "github.com/PolarWolf314/stash/internal/errors"
)

// DirLister lists a directory in process, in the same shape as `ls -1`.
type DirLister struct{}

func (DirLister) Name() string { return ToolNative }

func (DirLister) List(ctx context.Context, dir string, all bool) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", serrors.IO("reading stash directory", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !all && strings.HasPrefix(e.Name(), ".") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return strings.Join(names, "\n"), nil
}

// Ls lists a directory by running the ls tool.
type Ls struct {
	Command string
}

func (l *Ls) Name() string { return ToolLs }

func (l *Ls) List(ctx context.Context, dir string, all bool) (string, error) {
	flags := "-1"
	if all {
		flags = "-1A"
	}
	out, err := run(ctx, l.Command, flags, "--", dir)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(out), "\n"), nil
}
