package queue

import (
	"errors"
	"fmt"
)

var (
	// ErrConfig is returned by New for invalid construction arguments.
	ErrConfig = errors.New("spillq: invalid configuration")
	// ErrInvalidState is returned by Add once a record has been read back from disk.
	ErrInvalidState = errors.New("spillq: queue is no longer writable")
	// ErrEmptyQueue is returned by Remove and Element on an empty queue.
	ErrEmptyQueue = errors.New("spillq: queue is empty")
	// ErrBroken is returned by every operation after an I/O failure.
	ErrBroken = errors.New("spillq: queue is broken by an earlier i/o failure")
	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("spillq: queue is closed")
	// ErrIO matches any *IOError via errors.Is.
	ErrIO = errors.New("spillq: i/o failure")
)

const scratchHint = "Try setting the temp directories to a file system with lots of space."

// IOError wraps a storage failure on the spill segment.
type IOError struct {
	Op   string
	Path string
	Err  error
	Hint string
}

func (e *IOError) Error() string {
	msg := fmt.Sprintf("spillq: %s %s: %v", e.Op, e.Path, e.Err)
	if e.Hint != "" {
		msg += ". " + e.Hint
	}
	return msg
}

func (e *IOError) Unwrap() error { return e.Err }

func (e *IOError) Is(target error) bool { return target == ErrIO }

func writeError(op, path string, err error) *IOError {
	return &IOError{Op: op, Path: path, Err: err, Hint: scratchHint}
}

func readError(op, path string, err error) *IOError {
	return &IOError{Op: op, Path: path, Err: err}
}
