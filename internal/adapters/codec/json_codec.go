package codec

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/ghalamif/spillq/internal/ports"
)

const frameHeaderLen = 4

// MaxFrameLen bounds a single encoded record. Larger frames are treated as corruption.
const MaxFrameLen = 64 << 20

// JSONCodec frames each record as [4 bytes big-endian len][len bytes json].
type JSONCodec[T any] struct{}

func NewJSONCodec[T any]() JSONCodec[T] { return JSONCodec[T]{} }

func (JSONCodec[T]) Encode(w io.Writer, rec T) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("json encode: %w", err)
	}
	if len(b) > MaxFrameLen {
		return fmt.Errorf("json encode: frame of %d bytes exceeds %d", len(b), MaxFrameLen)
	}

	var hdr [frameHeaderLen]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(b)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

func (JSONCodec[T]) Decode(r io.Reader) (T, error) {
	var zero T

	var hdr [frameHeaderLen]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return zero, io.EOF
		}
		return zero, fmt.Errorf("json decode truncated header: %w", err)
	}
	l := binary.BigEndian.Uint32(hdr[:])
	if l > MaxFrameLen {
		return zero, fmt.Errorf("json decode: frame length %d exceeds %d", l, MaxFrameLen)
	}

	b := make([]byte, l)
	if _, err := io.ReadFull(r, b); err != nil {
		return zero, fmt.Errorf("json decode truncated body: %w", noEOF(err))
	}

	var rec T
	if err := json.Unmarshal(b, &rec); err != nil {
		return zero, fmt.Errorf("json decode: %w", err)
	}
	return rec, nil
}

// noEOF keeps a mid-record end of stream from looking like a clean one.
func noEOF(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}

var _ ports.Codec[struct{}] = JSONCodec[struct{}]{}
