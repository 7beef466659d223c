package protocol

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	// ErrTimeout matches every TimeoutError with errors.Is.
	ErrTimeout = errors.New("monoprice: timeout")

	// ErrSessionClosed is returned by sessions used after Close.
	ErrSessionClosed = errors.New("monoprice: session closed")
)

// TimeoutError is returned when a response did not complete within the
// session timeout.
//
// Received holds whatever arrived before the deadline, for diagnostics.
//
// Connection handling: the port is still usable, only the call is abandoned.
// The next exchange discards any late bytes before writing.
type TimeoutError struct {
	Request  []byte
	Received []byte
	Want     Completion
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("monoprice: timeout waiting for %s after %q, received %q", e.Want, e.Request, e.Received)
}

// Is makes errors.Is(err, ErrTimeout) hold.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// Timeout implements the net.Error style timeout check.
func (e *TimeoutError) Timeout() bool {
	return true
}

// ShouldCloseConnection returns false - a timeout leaves the port usable
func (e *TimeoutError) ShouldCloseConnection() bool {
	return false
}

// ConnectionError wraps I/O failures on the underlying port.
//
// Common causes:
//   - Port unplugged
//   - Port closed underneath the session
//   - Driver errors while resetting buffers
//
// Connection handling: the port is broken, CLOSE and reopen
type ConnectionError struct {
	Op  string // Operation that failed (open, reset, write, read)
	Err error  // Underlying error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("monoprice: connection error during %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error chain inspection
func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// ShouldCloseConnection returns true - the port cannot be trusted anymore
func (e *ConnectionError) ShouldCloseConnection() bool {
	return true
}

// ErrorWithConnectionState is implemented by errors that know whether the
// port should be closed.
type ErrorWithConnectionState interface {
	error
	ShouldCloseConnection() bool
}

// ShouldCloseConnection reports whether err requires reopening the port.
//
// Returns false for nil, timeouts and context cancellation. Unknown errors
// are treated conservatively and return true.
func ShouldCloseConnection(err error) bool {
	if err == nil {
		return false
	}

	var e ErrorWithConnectionState
	if errors.As(err, &e) {
		return e.ShouldCloseConnection()
	}

	if errors.Is(err, ErrTimeout) || isContextError(err) {
		return false
	}

	return true
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
