//go:build !linux

package cache

import (
	"fmt"

	serrors "github.com/PolarWolf314/stash/internal/errors"
)

func newKernel(Options) (Cache, error) {
	return nil, fmt.Errorf("%w: kernel keyring is only available on linux", serrors.ErrCacheUnavailable)
}
