package vault

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	serrors "github.com/PolarWolf314/stash/internal/errors"
)

// maxLabelLength is the longest directory name common filesystems accept.
const maxLabelLength = 255

// ValidateLabel checks that label can be used as a vault directory name.
func ValidateLabel(label string) error {
	switch {
	case label == "":
		return fmt.Errorf("%w: label is empty", serrors.ErrInvalidLabel)
	case label == "." || label == "..":
		return fmt.Errorf("%w: %q", serrors.ErrInvalidLabel, label)
	case len(label) > maxLabelLength:
		return fmt.Errorf("%w: longer than %d bytes", serrors.ErrInvalidLabel, maxLabelLength)
	case strings.ContainsAny(label, `/\:*?[]<>|"`):
		return fmt.Errorf("%w: %q contains a reserved character", serrors.ErrInvalidLabel, label)
	}
	for _, r := range label {
		if r < 0x20 || r == 0x7f {
			return fmt.Errorf("%w: %q contains a control character", serrors.ErrInvalidLabel, label)
		}
	}
	return nil
}

// Create makes a new, empty vault directory named label under parent and
// returns its path. The store is created on first open.
func Create(parent, label string) (string, error) {
	if err := ValidateLabel(label); err != nil {
		return "", err
	}

	info, err := os.Stat(parent)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("parent directory %s: %w", parent, serrors.ErrNotFound)
	}
	if err != nil {
		return "", serrors.IO("checking parent directory", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s is not a directory", serrors.ErrInvalidInput, parent)
	}

	root := filepath.Join(parent, label)
	if err := os.Mkdir(root, 0700); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("%s: %w", root, serrors.ErrAlreadyExists)
		}
		return "", serrors.IO("creating stash directory", err)
	}
	return root, nil
}
