package sink

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/ghalamif/spillq/internal/domain"
	"github.com/ghalamif/spillq/internal/ports"
)

// WriterSink writes each record as one JSON line and flushes per batch.
type WriterSink struct {
	name string
	w    *bufio.Writer
	enc  *json.Encoder
}

func NewWriterSink(name string, w io.Writer) *WriterSink {
	if name == "" {
		name = "writer"
	}
	bw := bufio.NewWriter(w)
	return &WriterSink{name: name, w: bw, enc: json.NewEncoder(bw)}
}

func (s *WriterSink) Name() string { return s.name }

func (s *WriterSink) WriteBatch(records []*domain.Record) error {
	for _, r := range records {
		if err := s.enc.Encode(r); err != nil {
			return fmt.Errorf("%s: encode record %s/%d: %w", s.name, r.Key, r.Seq, err)
		}
	}
	return s.w.Flush()
}

var _ ports.Sink = (*WriterSink)(nil)
