package spillq

import (
	"github.com/ghalamif/spillq/internal/adapters/codec"
	"github.com/ghalamif/spillq/internal/adapters/compress"
	"github.com/ghalamif/spillq/internal/adapters/queue"
	"github.com/ghalamif/spillq/internal/adapters/tempfile"
	"github.com/ghalamif/spillq/internal/domain"
	"github.com/ghalamif/spillq/internal/ports"
)

// Queue is a FIFO that holds a bounded number of records in memory and spills
// the rest to one temporary segment file. It is not safe for concurrent use.
type Queue[T any] = queue.DiskQueue[T]

// Codec serializes one record to and from the spill segment.
type Codec[T any] = ports.Codec[T]

// Option customizes a Queue.
type Option = queue.Option

// Stats is a snapshot of where a Queue's records live.
type Stats = queue.Stats

// IOError wraps a storage failure on the spill segment.
type IOError = queue.IOError

// Compression selects the block compression used for the spill segment.
type Compression = compress.Kind

// SegmentAllocator creates the spill segment file.
type SegmentAllocator = ports.SegmentAllocator

// Record is the unit moved by the spool pipeline and the CLI.
type Record = domain.Record

// Sink consumes drained batches of records.
type Sink = ports.Sink

// Observability receives logs and metrics from the queue and pipeline.
type Observability = ports.Observability

// Field is a structured log field used by Observability implementations.
type Field = ports.Field

const (
	CompressionNone   = compress.None
	CompressionSnappy = compress.Snappy
	CompressionS2     = compress.S2

	DefaultBufferSize = queue.DefaultBufferSize
)

var (
	ErrConfig       = queue.ErrConfig
	ErrInvalidState = queue.ErrInvalidState
	ErrEmptyQueue   = queue.ErrEmptyQueue
	ErrBroken       = queue.ErrBroken
	ErrClosed       = queue.ErrClosed
	ErrIO           = queue.ErrIO
)

// New builds an empty queue keeping at most maxRamRecords records in memory.
// It fails with ErrConfig if maxRamRecords <= 0 or tempDirs is empty.
func New[T any](c Codec[T], maxRamRecords int, tempDirs []string, opts ...Option) (*Queue[T], error) {
	return queue.New(c, maxRamRecords, tempDirs, opts...)
}

// WithBufferSize sets the I/O buffer for the spill segment (default DefaultBufferSize).
func WithBufferSize(n int) Option { return queue.WithBufferSize(n) }

// WithCompression compresses the spill segment with k.
func WithCompression(k Compression) Option { return queue.WithCompression(k) }

// WithSegmentNaming sets the segment file name prefix and suffix.
func WithSegmentNaming(prefix, suffix string) Option { return queue.WithSegmentNaming(prefix, suffix) }

// WithMaxSegmentBytes is the free-space hint used when picking a temp directory.
func WithMaxSegmentBytes(n int64) Option { return queue.WithMaxSegmentBytes(n) }

// WithAllocator replaces the default segment allocator.
func WithAllocator(a SegmentAllocator) Option { return queue.WithAllocator(a) }

// WithQueueObservability reports the queue's spill logs and metrics to obs.
func WithQueueObservability(obs Observability) Option {
	return queue.WithObservability(obs)
}

// WithRemoveOnClose deletes the segment file when the queue is closed or cleared.
func WithRemoveOnClose(remove bool) Option { return queue.WithRemoveOnClose(remove) }

// NewJSONCodec frames records as length-prefixed JSON.
func NewJSONCodec[T any]() Codec[T] { return codec.NewJSONCodec[T]() }

// BytesCodec frames raw byte slices with a varint length.
func BytesCodec() Codec[[]byte] { return codec.BytesCodec{} }

// StringCodec frames strings with a varint length.
func StringCodec() Codec[string] { return codec.StringCodec{} }

// NewTempAllocator returns the default free-space aware segment allocator.
func NewTempAllocator() SegmentAllocator { return tempfile.NewAllocator() }
