// Package compress wraps spill segment streams in an optional block
// compression layer. The wrappers never close the underlying file.
package compress

import (
	"fmt"
	"io"
	"strings"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/s2"
)

type Kind string

const (
	None   Kind = "none"
	Snappy Kind = "snappy"
	S2     Kind = "s2"
)

// Parse maps a config value onto a Kind. The empty string means None.
func Parse(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case "", None:
		return None, nil
	case Snappy, S2:
		return k, nil
	default:
		return "", fmt.Errorf("unknown compression %q", s)
	}
}

// Writer is a compressing writer that can push a complete block downstream on Flush.
type Writer interface {
	io.Writer
	Flush() error
	Close() error
}

func NewWriter(k Kind, w io.Writer) (Writer, error) {
	switch k {
	case "", None:
		return passthrough{w}, nil
	case Snappy:
		return snappy.NewBufferedWriter(w), nil
	case S2:
		return s2.NewWriter(w, s2.WriterConcurrency(1)), nil
	default:
		return nil, fmt.Errorf("unknown compression %q", k)
	}
}

func NewReader(k Kind, r io.Reader) (io.Reader, error) {
	switch k {
	case "", None:
		return r, nil
	case Snappy:
		return snappy.NewReader(r), nil
	case S2:
		return s2.NewReader(r), nil
	default:
		return nil, fmt.Errorf("unknown compression %q", k)
	}
}

type passthrough struct {
	io.Writer
}

func (passthrough) Flush() error { return nil }
func (passthrough) Close() error { return nil }
