package protocol

import (
	"errors"
	"fmt"
	"time"
)

// ErrDisconnected indicates that the channel is closed or was never opened.
var ErrDisconnected = errors.New("channel disconnected")

// RetryError is the transient notice published while a row write is being retried.
type RetryError struct {
	Row     int
	Attempt int
	Max     int
	Err     error
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("retry %d/%d for row %d: %v", e.Attempt, e.Max, e.Row, e.Err)
}

func (e *RetryError) Unwrap() error { return e.Err }

// RetryExhaustedError indicates that a row could not be written.
type RetryExhaustedError struct {
	Row      int
	Attempts int
	Err      error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("failed to send row %d after %d attempts: %v", e.Row, e.Attempts, e.Err)
}

func (e *RetryExhaustedError) Unwrap() error { return e.Err }

// UnexpectedByteError indicates that the machine answered a row with something other than ACK.
type UnexpectedByteError struct {
	Row  int
	Byte byte
}

func (e *UnexpectedByteError) Error() string {
	return fmt.Sprintf("unexpected byte from machine for row %d: 0x%02X", e.Row, e.Byte)
}

// AckTimeoutError indicates that the machine did not acknowledge a row in time.
type AckTimeoutError struct {
	Row     int
	Elapsed time.Duration
	Timeout time.Duration
}

func (e *AckTimeoutError) Error() string {
	return fmt.Sprintf("timeout waiting for ACK for row %d: %s elapsed, limit %s", e.Row, e.Elapsed, e.Timeout)
}

// ChannelError indicates that the channel failed or disconnected during a run.
type ChannelError struct {
	// Op is "read" or "write"
	Op  string
	Row int
	Err error
}

func (e *ChannelError) Error() string {
	return fmt.Sprintf("serial error during %s of row %d: %v", e.Op, e.Row, e.Err)
}

func (e *ChannelError) Unwrap() error { return e.Err }

// IsFatal reports whether err ends a run.
func IsFatal(err error) bool {
	var (
		re *RetryExhaustedError
		ue *UnexpectedByteError
		te *AckTimeoutError
		ce *ChannelError
	)
	return errors.As(err, &re) || errors.As(err, &ue) || errors.As(err, &te) || errors.As(err, &ce)
}
