package protocol

import (
	"errors"
	"time"
)

// Machine is the protocol state of one controller. It is a plain value; Transition
// returns an updated copy.
type Machine struct {
	State State

	// Total is the number of rows in the run
	Total int

	// Index is the row being sent; it only moves forward
	Index int

	// Retries counts failed writes of the current row
	Retries int

	// SentAt is when the current row was written
	SentAt time.Time

	// Progress is Index/Total as of the last ACK
	Progress float64

	MaxRetries int
	AckTimeout time.Duration
}

// NewMachine returns an idle machine with the given limits.
func NewMachine(maxRetries int, ackTimeout time.Duration) Machine {
	return Machine{
		State:      StateIdle,
		MaxRetries: maxRetries,
		AckTimeout: ackTimeout,
	}
}

// Running reports whether a run is in progress.
func (m Machine) Running() bool {
	return m.State == StateSendingPattern || m.State == StateWaitingForReady
}

// Next returns the channel operation the next step should perform.
func (m Machine) Next() Op {
	switch m.State {
	case StateSendingPattern:
		if m.Index < m.Total {
			return OpWrite
		}
	case StateWaitingForReady:
		return OpRead
	}
	return OpNone
}

// Transition applies ev to m.
func Transition(m Machine, ev Event) (Machine, Effects) {
	switch ev.Kind {
	case EventStart:
		m.State = StateSendingPattern
		m.Total = ev.Rows
		m.Index = 0
		m.Retries = 0
		m.Progress = 0
		m.SentAt = time.Time{}
		return m, Effects{ClearErr: true}
	case EventStop:
		m.State = StateIdle
		return m, Effects{ClearErr: true, Stopped: true}
	case EventFault:
		if m.Running() {
			return fail(m, ev.Err)
		}
	}

	switch m.State {
	case StateError:
		m.State = StateIdle
		return m, Effects{Resolved: true}
	case StateSendingPattern:
		return sending(m, ev)
	case StateWaitingForReady:
		return waiting(m, ev)
	}
	return m, Effects{}
}

func sending(m Machine, ev Event) (Machine, Effects) {
	switch ev.Kind {
	case EventTick:
		if m.Index >= m.Total {
			m.State = StateIdle
			return m, Effects{Completed: true}
		}
	case EventWrote:
		m.State = StateWaitingForReady
		m.SentAt = ev.At
		return m, Effects{ClearErr: true}
	case EventWriteFailed:
		if errors.Is(ev.Err, ErrDisconnected) {
			return fail(m, &ChannelError{Op: "write", Row: m.Index, Err: ev.Err})
		}
		m.Retries++
		if m.Retries > m.MaxRetries {
			return fail(m, &RetryExhaustedError{Row: m.Index, Attempts: m.Retries, Err: ev.Err})
		}
		return m, Effects{Err: &RetryError{Row: m.Index, Attempt: m.Retries, Max: m.MaxRetries, Err: ev.Err}}
	}
	return m, Effects{}
}

func waiting(m Machine, ev Event) (Machine, Effects) {
	switch ev.Kind {
	case EventReadByte:
		if ev.Byte != ACK {
			return fail(m, &UnexpectedByteError{Row: m.Index, Byte: ev.Byte})
		}
		m.Index++
		m.Retries = 0
		m.Progress = float64(m.Index) / float64(m.Total)
		m.State = StateSendingPattern
		return m, Effects{ClearErr: true, Acked: true}
	case EventReadEmpty:
		if elapsed := ev.At.Sub(m.SentAt); elapsed > m.AckTimeout {
			return fail(m, &AckTimeoutError{Row: m.Index, Elapsed: elapsed, Timeout: m.AckTimeout})
		}
	case EventReadFailed:
		return fail(m, &ChannelError{Op: "read", Row: m.Index, Err: ev.Err})
	}
	return m, Effects{}
}

func fail(m Machine, err error) (Machine, Effects) {
	m.State = StateError
	return m, Effects{Err: err, Failed: true}
}
