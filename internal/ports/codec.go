package ports

import "io"

// Codec encodes one record to a stream and decodes it back.
//
// Encodings must be self-delimiting: Decode never needs length information
// from outside the stream. Decode returns io.EOF, and only io.EOF, when the
// stream ends cleanly on a record boundary.
type Codec[T any] interface {
	Encode(w io.Writer, rec T) error
	Decode(r io.Reader) (T, error)
}
