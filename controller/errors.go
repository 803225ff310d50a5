package controller

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyRunning is returned by Start while a run is active.
	ErrAlreadyRunning = errors.New("controller: a pattern is already being sent")

	// ErrNotConnected is returned by Start before Connect.
	ErrNotConnected = errors.New("controller: not connected")
)

// StepPanicError reports a panic recovered inside a run step.
type StepPanicError struct {
	Row   int
	Value any
}

func (e *StepPanicError) Error() string {
	return fmt.Sprintf("panic while sending row %d: %v", e.Row, e.Value)
}
