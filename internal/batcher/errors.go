package batcher

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidBatchSize is returned when MaxBatchSize is not positive
	ErrInvalidBatchSize = errors.New("max batch size must be positive")
	// ErrInvalidDelay is returned when DebounceDelay is not positive
	ErrInvalidDelay = errors.New("debounce delay must be positive")
	// ErrNilTransport is returned when no transport is given
	ErrNilTransport = errors.New("transport is required")
	// ErrClosed is returned by Request after Close
	ErrClosed = errors.New("dispatcher closed")
	// ErrResponseMismatch means the transport returned a different number of items than requested
	ErrResponseMismatch = errors.New("batch response size mismatch")
)

// RemoteError is an item-level failure inside an otherwise successful batch call
type RemoteError struct {
	Code    int
	Message string
}

func (e *RemoteError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("batch request returned invalid status %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("batch request returned invalid status %d", e.Code)
}

// TransportError means the physical call as a whole failed
type TransportError struct {
	Cause error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("batch transport failed: %v", e.Cause)
}

func (e *TransportError) Unwrap() error {
	return e.Cause
}
