package stream

import (
	"context"
	"errors"
	"io"
)

// ErrTransient marks provider failures worth retrying after a wait, such as
// rate limiting or a failed audio key fetch.
var ErrTransient = errors.New("transient provider failure")

// Stream is an open raw audio stream.
type Stream interface {
	io.ReadCloser

	// Size is the full byte length of the stream, or -1 if unknown.
	Size() int64
}

// Provider yields raw encoded audio for catalog ids. A Provider is one
// session; each worker opens its own.
type Provider interface {
	Open(ctx context.Context, id string) (Stream, error)
	Close() error
}

// ProviderFactory opens a new provider session for the given worker.
type ProviderFactory func(ctx context.Context, worker int) (Provider, error)

// TransientError wraps err so that it matches ErrTransient.
func TransientError(err error) error {
	return &transientError{err: err}
}

type transientError struct {
	err error
}

func (e *transientError) Error() string {
	return "transient: " + e.err.Error()
}

func (e *transientError) Unwrap() []error {
	return []error{ErrTransient, e.err}
}

// sizedStream pairs a body with its byte length.
type sizedStream struct {
	io.ReadCloser
	size int64
}

func (s *sizedStream) Size() int64 {
	return s.size
}

// NewStream wraps rc with a known size.
func NewStream(rc io.ReadCloser, size int64) Stream {
	return &sizedStream{ReadCloser: rc, size: size}
}
