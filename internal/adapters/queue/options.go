package queue

import (
	"github.com/ghalamif/spillq/internal/adapters/compress"
	"github.com/ghalamif/spillq/internal/adapters/tempfile"
	"github.com/ghalamif/spillq/internal/ports"
)

// DefaultBufferSize is the I/O buffer used on both sides of the spill segment.
const DefaultBufferSize = 128 << 10

const (
	DefaultSegmentPrefix = "spillq."
	DefaultSegmentSuffix = ".tmp"
)

// Option customizes a DiskQueue at construction time.
type Option func(*options)

type options struct {
	bufferSize      int
	compression     compress.Kind
	prefix          string
	suffix          string
	maxSegmentBytes int64
	allocator       ports.SegmentAllocator
	obs             ports.Observability
	removeOnClose   bool
}

func defaultOptions() options {
	return options{
		bufferSize:      DefaultBufferSize,
		compression:     compress.None,
		prefix:          DefaultSegmentPrefix,
		suffix:          DefaultSegmentSuffix,
		maxSegmentBytes: tempfile.FiveGiB,
	}
}

// WithBufferSize sets the bufio size for the write and read streams. Zero keeps
// DefaultBufferSize; negative values are rejected by New.
func WithBufferSize(n int) Option {
	return func(o *options) {
		if n != 0 {
			o.bufferSize = n
		}
	}
}

// WithCompression wraps the spill segment in a block compression stream.
func WithCompression(k compress.Kind) Option {
	return func(o *options) {
		o.compression = k
	}
}

// WithSegmentNaming overrides the segment file name prefix and suffix.
func WithSegmentNaming(prefix, suffix string) Option {
	return func(o *options) {
		o.prefix = prefix
		o.suffix = suffix
	}
}

// WithMaxSegmentBytes sets the free-space hint passed to the allocator.
func WithMaxSegmentBytes(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.maxSegmentBytes = n
		}
	}
}

// WithAllocator replaces the default free-space aware allocator.
func WithAllocator(a ports.SegmentAllocator) Option {
	return func(o *options) {
		o.allocator = a
	}
}

// WithObservability plugs in logging and metrics.
func WithObservability(obs ports.Observability) Option {
	return func(o *options) {
		o.obs = obs
	}
}

// WithRemoveOnClose deletes the segment file on Close and Clear.
func WithRemoveOnClose(remove bool) Option {
	return func(o *options) {
		o.removeOnClose = remove
	}
}
