// Package tempfile allocates scratch segment files across a list of
// candidate directories, preferring ones with room for the requested size.
package tempfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/ghalamif/spillq/internal/ports"
)

// FiveGiB is the default free-space hint, matching the size ceiling
// scratch files have historically been allowed to grow to.
const FiveGiB int64 = 5 << 30

type Allocator struct {
	freeSpace func(dir string) (int64, error)
}

func NewAllocator() *Allocator {
	return &Allocator{freeSpace: freeSpace}
}

// Allocate creates prefix+<uuid>+suffix in the first directory with at least
// maxBytes free. If none qualifies, the directory with the most free space is
// used. Directories are created when missing. Unknown free space (-1) counts
// as enough.
func (a *Allocator) Allocate(dirs []string, prefix, suffix string, maxBytes int64) (*os.File, error) {
	if len(dirs) == 0 {
		return nil, errors.New("tempfile: no directories")
	}

	var (
		errs     []error
		best     string
		bestFree int64 = -1
	)
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			errs = append(errs, err)
			continue
		}
		free, err := a.freeSpace(dir)
		if err != nil {
			errs = append(errs, fmt.Errorf("statfs %s: %w", dir, err))
			continue
		}
		if free < 0 || free >= maxBytes {
			f, err := create(dir, prefix, suffix)
			if err == nil {
				return f, nil
			}
			errs = append(errs, err)
			continue
		}
		if best == "" || free > bestFree {
			best, bestFree = dir, free
		}
	}

	if best != "" {
		f, err := create(best, prefix, suffix)
		if err == nil {
			return f, nil
		}
		errs = append(errs, err)
	}
	return nil, fmt.Errorf("tempfile: no usable directory in %v: %w", dirs, errors.Join(errs...))
}

func create(dir, prefix, suffix string) (*os.File, error) {
	path := filepath.Join(dir, prefix+uuid.NewString()+suffix)
	return os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o600)
}

var _ ports.SegmentAllocator = (*Allocator)(nil)
