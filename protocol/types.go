package protocol

import (
	"fmt"
	"time"
)

// State is the protocol state of a run.
type State int

const (
	// StateIdle means no run is active
	StateIdle State = iota

	// StateSendingPattern means the row at Index is about to be written
	StateSendingPattern

	// StateWaitingForReady means a row was written and ACK is pending
	StateWaitingForReady

	// StateError means the run just failed; the next event returns to Idle
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateSendingPattern:
		return "SENDING_PATTERN"
	case StateWaitingForReady:
		return "WAITING_FOR_READY"
	case StateError:
		return "ERROR"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Op is the single channel operation a step should perform.
type Op int

const (
	OpNone Op = iota
	OpWrite
	OpRead
)

func (o Op) String() string {
	switch o {
	case OpNone:
		return "none"
	case OpWrite:
		return "write"
	case OpRead:
		return "read"
	default:
		return fmt.Sprintf("Op(%d)", int(o))
	}
}

// EventKind identifies an Event.
type EventKind int

const (
	// EventStart begins a run of Event.Rows rows
	EventStart EventKind = iota

	// EventStop abandons the run
	EventStop

	// EventTick is fed when a step performs no channel operation
	EventTick

	// EventWrote reports a successful row write at Event.At
	EventWrote

	// EventWriteFailed reports a failed row write with Event.Err
	EventWriteFailed

	// EventReadByte reports one byte read from the channel in Event.Byte
	EventReadByte

	// EventReadEmpty reports a read that returned no data at Event.At
	EventReadEmpty

	// EventReadFailed reports a read error with Event.Err
	EventReadFailed

	// EventFault reports that the step itself failed, with Event.Err
	EventFault
)

func (k EventKind) String() string {
	switch k {
	case EventStart:
		return "start"
	case EventStop:
		return "stop"
	case EventTick:
		return "tick"
	case EventWrote:
		return "wrote"
	case EventWriteFailed:
		return "write-failed"
	case EventReadByte:
		return "read-byte"
	case EventReadEmpty:
		return "read-empty"
	case EventReadFailed:
		return "read-failed"
	case EventFault:
		return "fault"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is one input to Transition.
type Event struct {
	Kind EventKind

	// At is the monotonic time the event was observed
	At time.Time

	// Rows is the pattern length, for EventStart
	Rows int

	// Byte is the byte read, for EventReadByte
	Byte byte

	// Err is the cause, for EventWriteFailed, EventReadFailed and EventFault
	Err error
}

// Effects describes what a transition changed for observers.
type Effects struct {
	// Err replaces the last error when non-nil
	Err error

	// ClearErr clears the last error
	ClearErr bool

	// Acked is set when a row was acknowledged
	Acked bool

	// Completed is set when every row was acknowledged
	Completed bool

	// Failed is set when the run entered StateError
	Failed bool

	// Resolved is set when StateError was observed and left
	Resolved bool

	// Stopped is set when a stop request ended the run
	Stopped bool
}
