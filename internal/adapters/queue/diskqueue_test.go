package queue

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ghalamif/spillq/internal/adapters/codec"
	"github.com/ghalamif/spillq/internal/adapters/compress"
	"github.com/ghalamif/spillq/internal/adapters/tempfile"
	"github.com/ghalamif/spillq/internal/domain"
	"github.com/ghalamif/spillq/internal/ports"
)

func newIntQueue(t *testing.T, maxRam int, opts ...Option) *DiskQueue[int] {
	t.Helper()
	q, err := New[int](codec.NewJSONCodec[int](), maxRam, []string{t.TempDir()}, opts...)
	if err != nil {
		t.Fatalf("new queue: %v", err)
	}
	t.Cleanup(func() { _ = q.Close() })
	return q
}

func TestDiskQueueFIFOAcrossBoundary(t *testing.T) {
	for _, k := range []compress.Kind{compress.None, compress.Snappy, compress.S2} {
		for _, maxRam := range []int{1, 2, 3, 10, 1000} {
			for _, n := range []int{0, 1, 5, 57} {
				t.Run(fmt.Sprintf("%s/ram=%d/n=%d", k, maxRam, n), func(t *testing.T) {
					q := newIntQueue(t, maxRam, WithCompression(k), WithBufferSize(64))

					for i := 0; i < n; i++ {
						if err := q.Add(i); err != nil {
							t.Fatalf("add %d: %v", i, err)
						}
					}
					if q.Size() != n {
						t.Fatalf("expected size %d, got %d", n, q.Size())
					}

					for i := 0; i < n; i++ {
						got, ok, err := q.Poll()
						if err != nil {
							t.Fatalf("poll %d: %v", i, err)
						}
						if !ok || got != i {
							t.Fatalf("poll %d: got %d ok=%v", i, got, ok)
						}
					}
					if _, ok, err := q.Poll(); ok || err != nil {
						t.Fatalf("expected empty queue, ok=%v err=%v", ok, err)
					}
					if !q.IsEmpty() || q.Size() != 0 {
						t.Fatalf("expected empty queue after draining, size=%d", q.Size())
					}
				})
			}
		}
	}
}

func TestDiskQueueSizeAccounting(t *testing.T) {
	q := newIntQueue(t, 4)

	for k := 1; k <= 20; k++ {
		if err := q.Add(k); err != nil {
			t.Fatalf("add %d: %v", k, err)
		}
		if q.Size() != k {
			t.Fatalf("after %d adds expected size %d, got %d", k, k, q.Size())
		}
	}
	for j := 1; j <= 20; j++ {
		if _, err := q.Remove(); err != nil {
			t.Fatalf("remove %d: %v", j, err)
		}
		if q.Size() != 20-j {
			t.Fatalf("after %d removes expected size %d, got %d", j, 20-j, q.Size())
		}
		if q.IsEmpty() != (q.Size() == 0) {
			t.Fatalf("IsEmpty disagrees with Size at %d", j)
		}
	}
}

func TestDiskQueueSpillBoundary(t *testing.T) {
	q := newIntQueue(t, 3)

	for i := 0; i < 5; i++ {
		if err := q.Add(i); err != nil {
			t.Fatalf("add %d: %v", i, err)
		}
	}

	st := q.Stats()
	if st.DiskRecords != 2 {
		t.Fatalf("expected 2 records on disk, got %d", st.DiskRecords)
	}
	if st.RamRecords != 2 {
		t.Fatalf("expected 2 records in ram, got %d", st.RamRecords)
	}
	if st.Segment == "" || st.SegmentBytes == 0 {
		t.Fatalf("expected a non-empty segment, got %+v", st)
	}
	info, err := os.Stat(st.Segment)
	if err != nil {
		t.Fatalf("stat segment: %v", err)
	}
	// every record is flushed before Add returns
	if info.Size() != st.SegmentBytes {
		t.Fatalf("expected %d bytes on disk, got %d", st.SegmentBytes, info.Size())
	}
	base := filepath.Base(st.Segment)
	if !strings.HasPrefix(base, DefaultSegmentPrefix) || !strings.HasSuffix(base, DefaultSegmentSuffix) {
		t.Fatalf("unexpected segment name %s", base)
	}
}

func TestDiskQueueStaysOnDiskOnceSpilled(t *testing.T) {
	q := newIntQueue(t, 3)
	for i := 0; i < 4; i++ {
		if err := q.Add(i); err != nil {
			t.Fatalf("add %d: %v", i, err)
		}
	}
	// frees a ram slot, but the tail already lives on disk
	if _, err := q.Remove(); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := q.Add(4); err != nil {
		t.Fatalf("add: %v", err)
	}
	if st := q.Stats(); st.DiskRecords != 2 || st.RamRecords != 1 {
		t.Fatalf("expected 2 on disk and 1 in ram, got %+v", st)
	}

	for want := 1; want <= 4; want++ {
		got, err := q.Remove()
		if err != nil || got != want {
			t.Fatalf("expected %d, got %d err=%v", want, got, err)
		}
	}
}

func TestDiskQueueWriteLockOnRead(t *testing.T) {
	q := newIntQueue(t, 2)
	for i := 0; i < 3; i++ {
		if err := q.Add(i); err != nil {
			t.Fatalf("add %d: %v", i, err)
		}
	}

	// head <- ram
	if got, _ := q.Remove(); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
	if !q.CanAdd() {
		t.Fatalf("queue should stay writable while refilling from ram")
	}

	// head <- disk
	if got, _ := q.Remove(); got != 1 {
		t.Fatalf("expected 1, got %d", got)
	}
	if q.CanAdd() {
		t.Fatalf("queue should be read-only after the first disk read")
	}

	if err := q.Add(99); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	ok, err := q.Offer(99)
	if ok || err != nil {
		t.Fatalf("expected Offer to return false without error, got ok=%v err=%v", ok, err)
	}

	if got, _ := q.Remove(); got != 2 {
		t.Fatalf("expected 2, got %d", got)
	}
	if _, err := q.Remove(); !errors.Is(err, ErrEmptyQueue) {
		t.Fatalf("expected ErrEmptyQueue, got %v", err)
	}
	if err := q.Add(3); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("queue must stay read-only after draining, got %v", err)
	}
}

func TestDiskQueueRamOnlyPollKeepsWritable(t *testing.T) {
	q := newIntQueue(t, 10)
	for i := 0; i < 3; i++ {
		_ = q.Add(i)
	}
	for i := 0; i < 3; i++ {
		if _, err := q.Remove(); err != nil {
			t.Fatalf("remove: %v", err)
		}
	}
	if !q.CanAdd() {
		t.Fatalf("draining ram must not lock writes")
	}
	ok, err := q.Offer(7)
	if !ok || err != nil {
		t.Fatalf("expected offer to succeed, ok=%v err=%v", ok, err)
	}
	if got, ok := q.Peek(); !ok || got != 7 {
		t.Fatalf("expected head 7, got %d ok=%v", got, ok)
	}
}

func TestDiskQueueEmptySemantics(t *testing.T) {
	q := newIntQueue(t, 2)

	if !q.IsEmpty() || q.Size() != 0 {
		t.Fatalf("new queue must be empty")
	}
	if _, ok, err := q.Poll(); ok || err != nil {
		t.Fatalf("poll on empty: ok=%v err=%v", ok, err)
	}
	if _, err := q.Remove(); !errors.Is(err, ErrEmptyQueue) {
		t.Fatalf("remove on empty: %v", err)
	}
	if _, err := q.Element(); !errors.Is(err, ErrEmptyQueue) {
		t.Fatalf("element on empty: %v", err)
	}
	if _, ok := q.Peek(); ok {
		t.Fatalf("peek on empty returned a record")
	}

	_ = q.Add(5)
	if v, err := q.Element(); err != nil || v != 5 {
		t.Fatalf("element: %d %v", v, err)
	}
	if q.Size() != 1 {
		t.Fatalf("peek/element must not consume, size=%d", q.Size())
	}
}

func TestNewValidatesArguments(t *testing.T) {
	c := codec.NewJSONCodec[int]()
	dir := t.TempDir()

	tests := []struct {
		name string
		fn   func() error
	}{
		{"zero ram", func() error { _, err := New[int](c, 0, []string{dir}); return err }},
		{"negative ram", func() error { _, err := New[int](c, -3, []string{dir}); return err }},
		{"no dirs", func() error { _, err := New[int](c, 1, nil); return err }},
		{"nil codec", func() error { _, err := New[int](nil, 1, []string{dir}); return err }},
		{"negative buffer", func() error { _, err := New[int](c, 1, []string{dir}, WithBufferSize(-1)); return err }},
		{"bad compression", func() error { _, err := New[int](c, 1, []string{dir}, WithCompression("lz4")); return err }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.fn(); !errors.Is(err, ErrConfig) {
				t.Fatalf("expected ErrConfig, got %v", err)
			}
		})
	}
}

func TestDiskQueueClearResetsToWritable(t *testing.T) {
	q := newIntQueue(t, 2, WithRemoveOnClose(true))
	if err := q.AddAll(0, 1, 2, 3); err != nil {
		t.Fatalf("add all: %v", err)
	}
	segment := q.Stats().Segment

	for i := 0; i < 2; i++ {
		if _, err := q.Remove(); err != nil {
			t.Fatalf("remove: %v", err)
		}
	}
	if q.CanAdd() {
		t.Fatalf("expected read-only queue before Clear")
	}

	if err := q.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if !q.IsEmpty() || q.Size() != 0 || !q.CanAdd() {
		t.Fatalf("expected fresh writable queue, stats=%+v", q.Stats())
	}
	if _, err := os.Stat(segment); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected segment %s to be removed, stat err=%v", segment, err)
	}

	if err := q.AddAll(10, 11, 12, 13); err != nil {
		t.Fatalf("add after clear: %v", err)
	}
	if st := q.Stats(); st.Segment == "" || st.Segment == segment {
		t.Fatalf("expected a new segment after clear, got %q", st.Segment)
	}
	for want := 10; want <= 13; want++ {
		got, err := q.Remove()
		if err != nil || got != want {
			t.Fatalf("expected %d, got %d err=%v", want, got, err)
		}
	}
}

func TestDiskQueueCloseReleasesSegment(t *testing.T) {
	dir := t.TempDir()
	q, err := New[int](codec.NewJSONCodec[int](), 1, []string{dir}, WithRemoveOnClose(true))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	_ = q.AddAll(1, 2, 3)
	if _, err := q.Remove(); err != nil {
		t.Fatalf("remove: %v", err)
	}

	if err := q.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := q.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}

	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(ents) != 0 {
		t.Fatalf("expected segment removed, found %d files", len(ents))
	}
	if err := q.Add(4); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if _, _, err := q.Poll(); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed from poll, got %v", err)
	}
}

func TestDiskQueueCloseKeepsSegmentByDefault(t *testing.T) {
	q := newIntQueue(t, 1)
	_ = q.AddAll(1, 2)
	segment := q.Stats().Segment
	if err := q.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := os.Stat(segment); err != nil {
		t.Fatalf("segment should be left for the allocator's owner: %v", err)
	}
}

type failingAllocator struct{ err error }

func (f failingAllocator) Allocate([]string, string, string, int64) (*os.File, error) {
	return nil, f.err
}

// trackingAllocator hands out real segments and remembers them.
type trackingAllocator struct {
	inner ports.SegmentAllocator
	files []*os.File
}

func (a *trackingAllocator) Allocate(dirs []string, prefix, suffix string, maxBytes int64) (*os.File, error) {
	f, err := a.inner.Allocate(dirs, prefix, suffix, maxBytes)
	if err == nil {
		a.files = append(a.files, f)
	}
	return f, err
}

func TestDiskQueueClearReleasesStreamWhenCloseFails(t *testing.T) {
	alloc := &trackingAllocator{inner: tempfile.NewAllocator()}
	q := newIntQueue(t, 1, WithAllocator(alloc))

	if err := q.AddAll(1, 2, 3); err != nil {
		t.Fatalf("add: %v", err)
	}
	if len(alloc.files) != 1 {
		t.Fatalf("expected one segment, got %d", len(alloc.files))
	}
	old := q.Stats().Segment

	// closing the file underneath makes the stream's own close fail
	_ = alloc.files[0].Close()

	if err := q.Clear(); err == nil {
		t.Fatalf("expected Clear to report the close failure")
	}
	st := q.Stats()
	if st.Segment != "" || st.Size != 0 || !st.Writable {
		t.Fatalf("expected fresh queue after Clear, got %+v", st)
	}
	if _, ok := q.stream.(noStream); !ok {
		t.Fatalf("expected stream released, got %T", q.stream)
	}

	if err := q.AddAll(4, 5); err != nil {
		t.Fatalf("add after clear: %v", err)
	}
	if len(alloc.files) != 2 {
		t.Fatalf("expected a fresh segment after Clear, got %d allocations", len(alloc.files))
	}
	if seg := q.Stats().Segment; seg == "" || seg == old {
		t.Fatalf("expected new segment, got %q (old %q)", seg, old)
	}
	for _, want := range []int{4, 5} {
		got, err := q.Remove()
		if err != nil || got != want {
			t.Fatalf("expected %d, got %d err=%v", want, got, err)
		}
	}
}

func TestDiskQueueSegmentCreationFailure(t *testing.T) {
	cause := errors.New("no space left on device")
	q := newIntQueue(t, 1, WithAllocator(failingAllocator{err: cause}))

	if err := q.Add(1); err != nil {
		t.Fatalf("head add must not touch disk: %v", err)
	}
	err := q.Add(2)
	if !errors.Is(err, ErrIO) || !errors.Is(err, cause) {
		t.Fatalf("expected IOError wrapping cause, got %v", err)
	}
	var ioErr *IOError
	if !errors.As(err, &ioErr) {
		t.Fatalf("expected *IOError, got %T", err)
	}
	if !strings.Contains(ioErr.Error(), "temp directories") {
		t.Fatalf("expected scratch-space hint, got %q", ioErr.Error())
	}

	if err := q.Add(3); !errors.Is(err, ErrBroken) || !errors.Is(err, cause) {
		t.Fatalf("expected ErrBroken after failure, got %v", err)
	}
	if q.CanAdd() {
		t.Fatalf("broken queue must not accept records")
	}
}

func TestDiskQueueUnwritableDirectory(t *testing.T) {
	parent := t.TempDir()
	blocker := filepath.Join(parent, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o600); err != nil {
		t.Fatalf("write blocker: %v", err)
	}
	// a regular file where a directory is expected
	q := newIntQueue(t, 1)
	q.dirs = []string{filepath.Join(blocker, "sub")}

	_ = q.Add(1)
	if err := q.Add(2); !errors.Is(err, ErrIO) {
		t.Fatalf("expected ErrIO, got %v", err)
	}
}

type flakyCodec struct {
	codec.JSONCodec[int]
	failDecode bool
	failEncode bool
}

func (f *flakyCodec) Encode(w io.Writer, rec int) error {
	if f.failEncode {
		return errors.New("encode boom")
	}
	return f.JSONCodec.Encode(w, rec)
}

func (f *flakyCodec) Decode(r io.Reader) (int, error) {
	if f.failDecode {
		return 0, errors.New("decode boom")
	}
	return f.JSONCodec.Decode(r)
}

func TestDiskQueueEncodeFailure(t *testing.T) {
	c := &flakyCodec{failEncode: true}
	q, err := New[int](c, 1, []string{t.TempDir()})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer q.Close()

	_ = q.Add(1)
	if err := q.Add(2); !errors.Is(err, ErrIO) {
		t.Fatalf("expected ErrIO, got %v", err)
	}
	if _, _, err := q.Poll(); !errors.Is(err, ErrBroken) {
		t.Fatalf("expected ErrBroken from poll, got %v", err)
	}
}

func TestDiskQueueDecodeFailure(t *testing.T) {
	c := &flakyCodec{}
	q, err := New[int](c, 1, []string{t.TempDir()})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer q.Close()

	_ = q.AddAll(1, 2)
	c.failDecode = true

	_, _, err = q.Poll()
	var ioErr *IOError
	if !errors.As(err, &ioErr) || ioErr.Op != "read" {
		t.Fatalf("expected read IOError, got %v", err)
	}
}

func TestDiskQueueTruncatedSegment(t *testing.T) {
	q := newIntQueue(t, 1)
	_ = q.AddAll(1, 2, 3)

	if err := os.Truncate(q.Stats().Segment, 0); err != nil {
		t.Fatalf("truncate: %v", err)
	}

	_, _, err := q.Poll()
	if !errors.Is(err, ErrIO) || !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expected unexpected EOF IOError, got %v", err)
	}
}

func TestDiskQueueRecordRoundTrip(t *testing.T) {
	q, err := New[*domain.Record](codec.NewJSONCodec[*domain.Record](), 2, []string{t.TempDir()},
		WithCompression(compress.Snappy))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer q.Close()

	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	var in []*domain.Record
	for i := 0; i < 6; i++ {
		r := &domain.Record{
			Key:       fmt.Sprintf("k-%d", i),
			Seq:       uint64(i),
			Timestamp: ts.Add(time.Duration(i) * time.Second),
			Attrs:     map[string]string{"i": fmt.Sprint(i)},
			Payload:   []byte(fmt.Sprintf(`{"v":%d}`, i)),
		}
		in = append(in, r)
		if err := q.Add(r); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	for i, want := range in {
		got, err := q.Remove()
		if err != nil {
			t.Fatalf("remove %d: %v", i, err)
		}
		if got.Key != want.Key || got.Seq != want.Seq || !got.Timestamp.Equal(want.Timestamp) ||
			got.Attrs["i"] != want.Attrs["i"] || string(got.Payload) != string(want.Payload) {
			t.Fatalf("record %d mismatch: got %+v want %+v", i, got, want)
		}
	}
}

type recordingObs struct {
	ports.Nop
	counters map[string]float64
	gauges   map[string]float64
	infos    []string
	critical []string
}

func newRecordingObs() *recordingObs {
	return &recordingObs{counters: map[string]float64{}, gauges: map[string]float64{}}
}

func (r *recordingObs) IncCounter(name string, v float64) { r.counters[name] += v }
func (r *recordingObs) SetGauge(name string, v float64)   { r.gauges[name] = v }
func (r *recordingObs) LogInfo(msg string, _ ...ports.Field) {
	r.infos = append(r.infos, msg)
}
func (r *recordingObs) LogCritical(msg string, _ error, _ ...ports.Field) {
	r.critical = append(r.critical, msg)
}

func TestDiskQueueReportsObservability(t *testing.T) {
	obs := newRecordingObs()
	q := newIntQueue(t, 2, WithObservability(obs))

	_ = q.AddAll(1, 2, 3, 4, 5)
	for !q.IsEmpty() {
		if _, err := q.Remove(); err != nil {
			t.Fatalf("remove: %v", err)
		}
	}

	if got := obs.counters[ports.MetricRecordsSpilled]; got != 3 {
		t.Fatalf("expected 3 spilled, got %v", got)
	}
	if got := obs.counters[ports.MetricRecordsUnspilled]; got != 3 {
		t.Fatalf("expected 3 unspilled, got %v", got)
	}
	if obs.gauges[ports.MetricSegmentBytes] <= 0 {
		t.Fatalf("expected segment bytes gauge to be set")
	}
	want := []string{"segment_opened", "segment_sealed"}
	if len(obs.infos) < 2 || obs.infos[0] != want[0] || obs.infos[1] != want[1] {
		t.Fatalf("expected %v logged, got %v", want, obs.infos)
	}
	if len(obs.critical) != 0 {
		t.Fatalf("unexpected critical logs: %v", obs.critical)
	}
}
