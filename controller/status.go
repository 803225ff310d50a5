package controller

import (
	"context"
	"time"

	"github.com/moffa90/go-kh930/protocol"
)

// Status is a snapshot of the controller.
type Status struct {
	Connected bool
	Running   bool

	// Progress is the fraction of rows acknowledged, in [0, 1]
	Progress float64

	// LastError is the most recent run error, or nil
	LastError error

	State protocol.State

	// RunID identifies the current or last run
	RunID string

	// Row is the index of the row being sent
	Row int

	// Rows is the length of the current or last run
	Rows int
}

// StatusCallback is called after every status change, on the goroutine that made
// the change: Connect, Disconnect and Start call it before they return, the run
// goroutine calls it for each step. Calls from different goroutines may overlap,
// so implementations must be safe for concurrent use and should return quickly;
// the next step waits for them. A panic in the callback is recovered and logged.
type StatusCallback func(Status)

// Outcome values recorded for a run.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeStopped   = "stopped"
)

// RunRecord summarizes one finished run.
type RunRecord struct {
	ID       string
	Rows     int
	RowsSent int
	Started  time.Time
	Finished time.Time
	Outcome  string

	// Err is the run error, for OutcomeFailed
	Err error
}

// RunRecorder receives a RunRecord when a run ends.
//
// archive.Store implements it.
type RunRecorder interface {
	RecordRun(ctx context.Context, rec RunRecord) error
}
