package ports

import "os"

// SegmentAllocator hands out one uniquely named, writable file in one of dirs.
// maxBytes is a hint for how large the file may grow. Callers own the file.
type SegmentAllocator interface {
	Allocate(dirs []string, prefix, suffix string, maxBytes int64) (*os.File, error)
}
