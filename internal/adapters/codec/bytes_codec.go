package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/ghalamif/spillq/internal/ports"
)

// BytesCodec frames raw byte slices with a uvarint length prefix.
type BytesCodec struct{}

func (BytesCodec) Encode(w io.Writer, rec []byte) error {
	if len(rec) > MaxFrameLen {
		return fmt.Errorf("bytes encode: frame of %d bytes exceeds %d", len(rec), MaxFrameLen)
	}
	var hdr [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(hdr[:], uint64(len(rec)))
	if _, err := w.Write(hdr[:n]); err != nil {
		return err
	}
	_, err := w.Write(rec)
	return err
}

func (BytesCodec) Decode(r io.Reader) ([]byte, error) {
	l, err := binary.ReadUvarint(byteReader(r))
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("bytes decode header: %w", err)
	}
	if l > MaxFrameLen {
		return nil, fmt.Errorf("bytes decode: frame length %d exceeds %d", l, MaxFrameLen)
	}

	b := make([]byte, l)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, fmt.Errorf("bytes decode truncated body: %w", noEOF(err))
	}
	return b, nil
}

// StringCodec is BytesCodec for strings.
type StringCodec struct{}

func (StringCodec) Encode(w io.Writer, rec string) error {
	return BytesCodec{}.Encode(w, []byte(rec))
}

func (StringCodec) Decode(r io.Reader) (string, error) {
	b, err := BytesCodec{}.Decode(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// byteReader reads the varint header one byte at a time without
// over-reading past it when r is not already an io.ByteReader.
func byteReader(r io.Reader) io.ByteReader {
	if br, ok := r.(io.ByteReader); ok {
		return br
	}
	return &singleByteReader{r: r}
}

type singleByteReader struct {
	r   io.Reader
	buf [1]byte
}

func (s *singleByteReader) ReadByte() (byte, error) {
	if _, err := io.ReadFull(s.r, s.buf[:]); err != nil {
		return 0, err
	}
	return s.buf[0], nil
}

var (
	_ ports.Codec[[]byte] = BytesCodec{}
	_ ports.Codec[string] = StringCodec{}
)
