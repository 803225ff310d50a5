package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/moffa90/go-kh930/protocol"
)

// ErrStopped is returned by Send when the run was stopped before it completed.
var ErrStopped = errors.New("controller: run stopped")

// Controller streams pattern rows to the machine, one background run at a time.
//
// Controller is safe for concurrent use. Only the run goroutine touches the
// channel while a run is active.
type Controller struct {
	open   Opener
	config Config
	logger *slog.Logger

	stop atomic.Bool

	mu      sync.Mutex
	ch      Channel
	machine protocol.Machine
	status  Status
	done    chan struct{}
	last    RunRecord
}

type run struct {
	id      string
	rows    [][]byte
	started time.Time
	outcome string
	err     error
}

// New creates a Controller that opens its channel with open on Connect.
//
// Example:
//
//	ctrl := controller.New(serialport.OpenerFor(cfg),
//	    controller.WithLogger(logger),
//	    controller.WithAckTimeout(5*time.Second),
//	)
func New(open Opener, opts ...Option) *Controller {
	if open == nil {
		panic("opener cannot be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	done := make(chan struct{})
	close(done)

	c := &Controller{
		open:    open,
		config:  cfg,
		logger:  cfg.Logger.With("component", "controller"),
		machine: protocol.NewMachine(cfg.MaxRetries, cfg.AckTimeout),
		done:    done,
	}
	c.status.State = c.machine.State
	return c
}

// Connect opens the channel. It is a no-op when already connected.
func (c *Controller) Connect() error {
	c.mu.Lock()
	if c.ch != nil {
		c.mu.Unlock()
		return nil
	}
	ch, err := c.open()
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("open channel: %w", err)
	}
	c.ch = ch
	c.status.Connected = true
	s := c.status
	c.mu.Unlock()

	c.logger.Info("connected")
	c.notify(s)
	return nil
}

// Disconnect closes the channel. A run in progress fails on its next channel
// operation.
func (c *Controller) Disconnect() error {
	c.mu.Lock()
	ch := c.ch
	c.ch = nil
	c.status.Connected = false
	s := c.status
	c.mu.Unlock()

	if ch == nil {
		return nil
	}
	c.notify(s)
	c.logger.Info("disconnected")
	if err := ch.Close(); err != nil {
		return fmt.Errorf("close channel: %w", err)
	}
	return nil
}

// Start begins sending rows in the background and returns immediately.
// Each element of rows is written to the channel as one message.
//
// The run ends when every row is acknowledged, on the first fatal error, on Stop,
// or when ctx is cancelled. Watch it with Status, WithStatusCallback or Done.
func (c *Controller) Start(ctx context.Context, rows [][]byte) error {
	c.mu.Lock()
	if c.ch == nil {
		c.mu.Unlock()
		return ErrNotConnected
	}
	select {
	case <-c.done:
	default:
		c.mu.Unlock()
		return ErrAlreadyRunning
	}

	r := &run{
		id:      uuid.NewString(),
		rows:    cloneRows(rows),
		started: c.config.Clock.Now(),
	}

	c.stop.Store(false)
	m, fx := protocol.Transition(c.machine, protocol.Event{
		Kind: protocol.EventStart,
		Rows: len(r.rows),
		At:   r.started,
	})
	c.status.RunID = r.id
	s := c.applyLocked(m, fx)

	done := make(chan struct{})
	c.done = done
	c.mu.Unlock()

	c.logger.Info("run started", "run_id", r.id, "rows", len(r.rows))
	c.notify(s)

	go c.run(ctx, r, done)
	return nil
}

// Send starts a run and waits for it to end.
//
// It returns nil when every row was acknowledged, the run error when it failed,
// and ctx.Err() or ErrStopped when it was stopped.
func (c *Controller) Send(ctx context.Context, rows [][]byte) error {
	if err := c.Start(ctx, rows); err != nil {
		return err
	}
	<-c.Done()

	last := c.LastRun()
	switch last.Outcome {
	case OutcomeCompleted:
		return nil
	case OutcomeFailed:
		return last.Err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return ErrStopped
}

// Stop asks the current run to return to IDLE. It does not wait; use Done for that.
func (c *Controller) Stop() {
	c.stop.Store(true)
}

// Done returns a channel that is closed when the current run has ended.
// Without a run it returns a closed channel.
func (c *Controller) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

// Status returns a snapshot of the controller.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// LastRun returns the record of the most recently finished run.
func (c *Controller) LastRun() RunRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

func (c *Controller) run(ctx context.Context, r *run, done chan struct{}) {
	defer close(done)

	logger := c.logger.With("run_id", r.id)
	ticker := time.NewTicker(c.config.TickInterval)
	defer ticker.Stop()

	var m protocol.Machine
	for {
		var fx protocol.Effects
		m, fx = c.step(r)
		c.observe(logger, r, m, fx)
		if m.State == protocol.StateIdle {
			break
		}

		select {
		case <-ctx.Done():
			c.stop.Store(true)
		case <-ticker.C:
		}
	}

	rec := RunRecord{
		ID:       r.id,
		Rows:     len(r.rows),
		RowsSent: m.Index,
		Started:  r.started,
		Finished: c.config.Clock.Now(),
		Outcome:  r.outcome,
		Err:      r.err,
	}

	c.mu.Lock()
	c.last = rec
	c.mu.Unlock()

	for _, rr := range c.config.RunRecorders {
		c.record(context.WithoutCancel(ctx), logger, rr, rec)
	}
}

// record hands rec to rr. A panicking recorder is logged and skipped.
func (c *Controller) record(ctx context.Context, logger *slog.Logger, rr RunRecorder, rec RunRecord) {
	defer func() {
		if v := recover(); v != nil {
			logger.Error("run recorder panicked", "panic", v)
		}
	}()
	if err := rr.RecordRun(ctx, rec); err != nil {
		logger.Warn("failed to record run", "error", err)
	}
}

// step performs at most one channel operation and applies its outcome.
func (c *Controller) step(r *run) (protocol.Machine, protocol.Effects) {
	c.mu.Lock()
	prev := c.machine
	ch := c.ch
	c.mu.Unlock()

	ev := c.nextEvent(prev, ch, r.rows)
	m, fx := protocol.Transition(prev, ev)

	c.mu.Lock()
	s := c.applyLocked(m, fx)
	c.mu.Unlock()

	if prev.State != m.State || fx.Err != nil || fx.Acked {
		c.notify(s)
	}
	return m, fx
}

func (c *Controller) nextEvent(m protocol.Machine, ch Channel, rows [][]byte) (ev protocol.Event) {
	defer func() {
		if v := recover(); v != nil {
			ev = protocol.Event{
				Kind: protocol.EventFault,
				At:   c.config.Clock.Now(),
				Err:  &StepPanicError{Row: m.Index, Value: v},
			}
		}
	}()

	if c.stop.Load() {
		return protocol.Event{Kind: protocol.EventStop, At: c.config.Clock.Now()}
	}

	switch m.Next() {
	case protocol.OpWrite:
		if ch == nil {
			return protocol.Event{Kind: protocol.EventWriteFailed, Err: protocol.ErrDisconnected}
		}
		if _, err := ch.Write(rows[m.Index]); err != nil {
			return protocol.Event{Kind: protocol.EventWriteFailed, At: c.config.Clock.Now(), Err: err}
		}
		return protocol.Event{Kind: protocol.EventWrote, At: c.config.Clock.Now()}

	case protocol.OpRead:
		if ch == nil {
			return protocol.Event{Kind: protocol.EventReadFailed, Err: protocol.ErrDisconnected}
		}
		var buf [1]byte
		n, err := ch.Read(buf[:])
		switch {
		case err != nil:
			return protocol.Event{Kind: protocol.EventReadFailed, At: c.config.Clock.Now(), Err: err}
		case n == 0:
			return protocol.Event{Kind: protocol.EventReadEmpty, At: c.config.Clock.Now()}
		default:
			return protocol.Event{Kind: protocol.EventReadByte, At: c.config.Clock.Now(), Byte: buf[0]}
		}
	}

	return protocol.Event{Kind: protocol.EventTick, At: c.config.Clock.Now()}
}

// applyLocked stores m and folds fx into the status. c.mu must be held.
func (c *Controller) applyLocked(m protocol.Machine, fx protocol.Effects) Status {
	c.machine = m
	c.status.State = m.State
	c.status.Running = m.Running()
	c.status.Progress = m.Progress
	c.status.Row = m.Index
	c.status.Rows = m.Total
	if fx.ClearErr {
		c.status.LastError = nil
	}
	if fx.Err != nil {
		c.status.LastError = fx.Err
	}
	return c.status
}

func (c *Controller) observe(logger *slog.Logger, r *run, m protocol.Machine, fx protocol.Effects) {
	switch {
	case fx.Acked:
		logger.Debug("row acknowledged", "row", m.Index-1, "progress", m.Progress)
	case m.State == protocol.StateWaitingForReady && fx.ClearErr:
		logger.Debug("row sent", "row", m.Index, "bytes", len(r.rows[m.Index]))
	case fx.Failed:
		r.outcome = OutcomeFailed
		r.err = fx.Err
		logger.Error("run failed", "row", m.Index, "error", fx.Err)
	case fx.Err != nil:
		logger.Warn("row write failed", "row", m.Index, "attempt", m.Retries, "error", fx.Err)
	case fx.Completed:
		r.outcome = OutcomeCompleted
		logger.Info("pattern complete", "rows", m.Total, "elapsed", c.config.Clock.Now().Sub(r.started).String())
	case fx.Stopped:
		if r.outcome == "" {
			r.outcome = OutcomeStopped
		}
		logger.Info("run stopped", "row", m.Index, "rows", m.Total)
	case fx.Resolved:
		logger.Debug("error state cleared")
	}
}

// notify passes s to the status callback. A panicking callback is logged and
// does not affect the run.
func (c *Controller) notify(s Status) {
	if c.config.StatusCallback == nil {
		return
	}
	defer func() {
		if v := recover(); v != nil {
			c.logger.Error("status callback panicked", "panic", v, "state", s.State.String())
		}
	}()
	c.config.StatusCallback(s)
}

func cloneRows(rows [][]byte) [][]byte {
	out := make([][]byte, len(rows))
	for i, r := range rows {
		out[i] = append([]byte(nil), r...)
	}
	return out
}
