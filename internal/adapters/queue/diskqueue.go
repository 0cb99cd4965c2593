// Package queue implements DiskQueue, a FIFO that keeps a bounded number of
// records in memory and spills the rest to a single append-only segment file.
//
// The front record is held in a dedicated head slot. Behind it sit up to
// maxRamRecords-1 records in memory, then the segment. Once any record has
// been spilled, every later record goes to the segment too, so the segment is
// always an ordered continuation of the in-memory buffer. The segment is
// written once and read once: the first read from it makes the queue
// permanently read-only until Clear.
//
// A DiskQueue is not safe for concurrent use.
package queue

import (
	"errors"
	"fmt"
	"os"

	"github.com/ghalamif/spillq/internal/adapters/compress"
	"github.com/ghalamif/spillq/internal/adapters/tempfile"
	"github.com/ghalamif/spillq/internal/ports"
)

type DiskQueue[T any] struct {
	codec         ports.Codec[T]
	dirs          []string
	opts          options
	maxRamRecords int

	head    T
	hasHead bool
	ram     *ringBuffer[T]

	stream       stream
	segment      string
	onDisk       int
	bytesWritten int64

	writable bool
	broken   error
	closed   bool
}

// Stats is a point-in-time view of where the queue's records live.
type Stats struct {
	Size          int
	RamRecords    int
	DiskRecords   int
	Segment       string
	SegmentBytes  int64
	Writable      bool
	MaxRamRecords int
}

// New builds an empty, writable queue holding at most maxRamRecords records
// in memory (head included). Segments are allocated in tempDirs.
func New[T any](codec ports.Codec[T], maxRamRecords int, tempDirs []string, opts ...Option) (*DiskQueue[T], error) {
	if codec == nil {
		return nil, fmt.Errorf("%w: codec is required", ErrConfig)
	}
	if maxRamRecords <= 0 {
		return nil, fmt.Errorf("%w: maxRamRecords must be > 0, got %d", ErrConfig, maxRamRecords)
	}
	if len(tempDirs) == 0 {
		return nil, fmt.Errorf("%w: at least one temp directory must be provided", ErrConfig)
	}

	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.bufferSize < 0 {
		return nil, fmt.Errorf("%w: buffer size must be >= 0, got %d", ErrConfig, o.bufferSize)
	}
	if _, err := compress.Parse(string(o.compression)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	if o.allocator == nil {
		o.allocator = tempfile.NewAllocator()
	}
	if o.obs == nil {
		o.obs = ports.Nop{}
	}

	return &DiskQueue[T]{
		codec:         codec,
		dirs:          append([]string(nil), tempDirs...),
		opts:          o,
		maxRamRecords: maxRamRecords,
		ram:           newRingBuffer[T](maxRamRecords - 1),
		stream:        noStream{},
		writable:      true,
	}, nil
}

// Add appends rec to the tail. It fails with ErrInvalidState once the queue
// has started reading from disk, and with an *IOError if spilling fails.
func (q *DiskQueue[T]) Add(rec T) error {
	if err := q.usable(); err != nil {
		return err
	}
	if !q.writable {
		return ErrInvalidState
	}

	switch {
	case !q.hasHead:
		q.head, q.hasHead = rec, true
	case q.segment != "" || q.ram.full():
		return q.spill(rec)
	default:
		q.ram.pushBack(rec)
	}
	return nil
}

// Offer is Add that reports a read-only queue as false instead of an error.
// Storage failures are still returned.
func (q *DiskQueue[T]) Offer(rec T) (bool, error) {
	if err := q.usable(); err != nil {
		return false, err
	}
	if !q.writable {
		return false, nil
	}
	if err := q.Add(rec); err != nil {
		return false, err
	}
	return true, nil
}

// AddAll adds records in order and stops at the first error.
func (q *DiskQueue[T]) AddAll(records ...T) error {
	for i, rec := range records {
		if err := q.Add(rec); err != nil {
			return fmt.Errorf("add record %d of %d: %w", i+1, len(records), err)
		}
	}
	return nil
}

// Poll removes and returns the head. ok is false when the queue is empty.
func (q *DiskQueue[T]) Poll() (rec T, ok bool, err error) {
	var zero T
	if err := q.usable(); err != nil {
		return zero, false, err
	}
	if !q.hasHead {
		return zero, false, nil
	}

	out := q.head
	if err := q.refill(); err != nil {
		return zero, false, err
	}
	return out, true, nil
}

// Remove is Poll that fails with ErrEmptyQueue on an empty queue.
func (q *DiskQueue[T]) Remove() (T, error) {
	rec, ok, err := q.Poll()
	if err != nil {
		return rec, err
	}
	if !ok {
		return rec, ErrEmptyQueue
	}
	return rec, nil
}

// Peek returns the head without removing it.
func (q *DiskQueue[T]) Peek() (T, bool) {
	return q.head, q.hasHead
}

// Element is Peek that fails with ErrEmptyQueue on an empty queue.
func (q *DiskQueue[T]) Element() (T, error) {
	if !q.hasHead {
		var zero T
		return zero, ErrEmptyQueue
	}
	return q.head, nil
}

// Size is zero whenever there is no head; otherwise it counts the head, the
// in-memory buffer and the records still on disk.
func (q *DiskQueue[T]) Size() int {
	if !q.hasHead {
		return 0
	}
	return 1 + q.ram.len() + q.onDisk
}

func (q *DiskQueue[T]) IsEmpty() bool { return !q.hasHead }

// CanAdd reports whether Add is still permitted.
func (q *DiskQueue[T]) CanAdd() bool {
	return q.writable && q.broken == nil && !q.closed
}

func (q *DiskQueue[T]) Stats() Stats {
	return Stats{
		Size:          q.Size(),
		RamRecords:    q.ram.len(),
		DiskRecords:   q.onDisk,
		Segment:       q.segment,
		SegmentBytes:  q.bytesWritten,
		Writable:      q.writable,
		MaxRamRecords: q.maxRamRecords,
	}
}

// Clear empties the queue and returns it to a fresh, writable state. The open
// stream is always released; its close error, if any, is returned.
func (q *DiskQueue[T]) Clear() error {
	if q.closed {
		return ErrClosed
	}
	err := q.dropSegment()

	var zero T
	q.head, q.hasHead = zero, false
	q.ram.reset()
	q.writable = true
	q.broken = nil
	return err
}

// Close releases the segment stream and, with WithRemoveOnClose, deletes the
// segment file. Further operations return ErrClosed. Close is idempotent.
func (q *DiskQueue[T]) Close() error {
	if q.closed {
		return nil
	}
	q.closed = true

	var zero T
	q.head, q.hasHead = zero, false
	q.ram.reset()
	return q.dropSegment()
}

func (q *DiskQueue[T]) usable() error {
	if q.closed {
		return ErrClosed
	}
	if q.broken != nil {
		return fmt.Errorf("%w: %w", ErrBroken, q.broken)
	}
	return nil
}

// refill replaces the head with the next record from memory, then from disk.
func (q *DiskQueue[T]) refill() error {
	var zero T
	q.head, q.hasHead = zero, false

	if rec, ok := q.ram.popFront(); ok {
		q.head, q.hasHead = rec, true
		return nil
	}
	if q.segment == "" {
		return nil
	}

	rec, ok, err := q.unspill()
	if err != nil {
		return err
	}
	if ok {
		q.head, q.hasHead = rec, true
	}
	return nil
}

// dropSegment releases the stream and forgets the segment.
func (q *DiskQueue[T]) dropSegment() error {
	var errs []error
	if err := q.releaseStream(); err != nil {
		errs = append(errs, err)
	}
	if q.segment != "" {
		if q.opts.removeOnClose {
			if err := os.Remove(q.segment); err != nil && !errors.Is(err, os.ErrNotExist) {
				errs = append(errs, err)
			}
		}
		q.opts.obs.LogInfo("segment_closed",
			ports.Field{Key: "path", Value: q.segment},
			ports.Field{Key: "removed", Value: q.opts.removeOnClose})
	}

	q.segment = ""
	q.onDisk = 0
	q.bytesWritten = 0
	return errors.Join(errs...)
}
