package queue

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ghalamif/spillq/internal/adapters/compress"
	"github.com/ghalamif/spillq/internal/ports"
)

// stream is the state of the segment's I/O: noStream, *writeStream or
// *readStream. Writes and reads are never open at the same time.
type stream interface {
	close() error
}

type noStream struct{}

func (noStream) close() error { return nil }

// writeStream layers codec -> bufio -> compressor -> byte counter -> file.
type writeStream struct {
	file    *os.File
	counter *countingWriter
	comp    compress.Writer
	buf     *bufio.Writer
}

// flush pushes one record all the way to the file.
func (w *writeStream) flush() error {
	if err := w.buf.Flush(); err != nil {
		return err
	}
	return w.comp.Flush()
}

func (w *writeStream) close() error {
	var errs []error
	if err := w.buf.Flush(); err != nil {
		errs = append(errs, err)
	}
	if err := w.comp.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := w.file.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// readStream layers codec <- decompressor <- bufio <- file.
type readStream struct {
	file *os.File
	src  io.Reader
}

func (r *readStream) close() error {
	return r.file.Close()
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// spill appends rec to the segment, creating it on first use.
func (q *DiskQueue[T]) spill(rec T) error {
	ws, err := q.openWriter()
	if err != nil {
		return q.fail(err)
	}

	start := time.Now()
	if err := q.codec.Encode(ws.buf, rec); err != nil {
		return q.fail(writeError("write", q.segment, err))
	}
	if err := ws.flush(); err != nil {
		return q.fail(writeError("flush", q.segment, err))
	}
	q.onDisk++
	q.bytesWritten = ws.counter.n

	q.opts.obs.ObserveLatency(ports.MetricSpillWrite, time.Since(start).Seconds())
	q.opts.obs.IncCounter(ports.MetricRecordsSpilled, 1)
	q.opts.obs.SetGauge(ports.MetricSegmentBytes, float64(ws.counter.n))
	return nil
}

func (q *DiskQueue[T]) openWriter() (*writeStream, error) {
	switch s := q.stream.(type) {
	case *writeStream:
		return s, nil
	case *readStream:
		return nil, ErrInvalidState
	}

	f, err := q.opts.allocator.Allocate(q.dirs, q.opts.prefix, q.opts.suffix, q.opts.maxSegmentBytes)
	if err != nil {
		return nil, writeError("create segment in", fmt.Sprint(q.dirs), err)
	}
	counter := &countingWriter{w: f}
	comp, err := compress.NewWriter(q.opts.compression, counter)
	if err != nil {
		_ = f.Close()
		return nil, writeError("open", f.Name(), err)
	}

	ws := &writeStream{
		file:    f,
		counter: counter,
		comp:    comp,
		buf:     bufio.NewWriterSize(comp, q.opts.bufferSize),
	}
	q.segment = f.Name()
	q.stream = ws
	q.opts.obs.LogInfo("segment_opened",
		ports.Field{Key: "path", Value: q.segment},
		ports.Field{Key: "compression", Value: string(q.opts.compression)})
	return ws, nil
}

// unspill decodes the next record from the segment. The first call seals the
// write stream, opens the read stream and makes the queue permanently
// read-only. ok is false once the segment is exhausted.
func (q *DiskQueue[T]) unspill() (rec T, ok bool, err error) {
	var zero T
	q.writable = false

	rs, err := q.openReader()
	if err != nil {
		return zero, false, q.fail(err)
	}

	rec, err = q.codec.Decode(rs.src)
	if errors.Is(err, io.EOF) {
		if q.onDisk != 0 {
			return zero, false, q.fail(readError("read", q.segment,
				fmt.Errorf("segment ended with %d records unread: %w", q.onDisk, io.ErrUnexpectedEOF)))
		}
		return zero, false, nil
	}
	if err != nil {
		return zero, false, q.fail(readError("read", q.segment, err))
	}
	if q.onDisk == 0 {
		return zero, false, q.fail(readError("read", q.segment, errors.New("segment holds more records than were written")))
	}

	q.onDisk--
	q.opts.obs.IncCounter(ports.MetricRecordsUnspilled, 1)
	return rec, true, nil
}

func (q *DiskQueue[T]) openReader() (*readStream, error) {
	switch s := q.stream.(type) {
	case *readStream:
		return s, nil
	case *writeStream:
		q.stream = noStream{}
		if err := s.close(); err != nil {
			return nil, writeError("seal", q.segment, err)
		}
		q.opts.obs.LogInfo("segment_sealed",
			ports.Field{Key: "path", Value: q.segment},
			ports.Field{Key: "records", Value: q.onDisk},
			ports.Field{Key: "bytes", Value: q.bytesWritten})
	}

	f, err := os.Open(q.segment)
	if err != nil {
		return nil, readError("open", q.segment, err)
	}
	src, err := compress.NewReader(q.opts.compression, bufio.NewReaderSize(f, q.opts.bufferSize))
	if err != nil {
		_ = f.Close()
		return nil, readError("open", q.segment, err)
	}

	rs := &readStream{file: f, src: src}
	q.stream = rs
	return rs, nil
}

// releaseStream closes whatever stream is open. The state is reset even when
// closing fails.
func (q *DiskQueue[T]) releaseStream() error {
	s := q.stream
	q.stream = noStream{}
	if s == nil {
		return nil
	}
	if err := s.close(); err != nil {
		return fmt.Errorf("close segment %s: %w", q.segment, err)
	}
	return nil
}

// fail marks the queue broken and releases its stream.
func (q *DiskQueue[T]) fail(err error) error {
	q.broken = err
	if cerr := q.releaseStream(); cerr != nil {
		err = errors.Join(err, cerr)
		q.broken = err
	}
	q.opts.obs.IncCounter(ports.MetricSpillErrors, 1)
	q.opts.obs.LogCritical("spill_failed", err, ports.Field{Key: "path", Value: q.segment})
	return err
}
