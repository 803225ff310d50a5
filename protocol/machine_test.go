package protocol

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func started(rows int) Machine {
	m := NewMachine(DefaultMaxRetries, DefaultAckTimeout)
	m, _ = Transition(m, Event{Kind: EventStart, Rows: rows, At: t0})
	return m
}

func TestStart(t *testing.T) {
	m := NewMachine(DefaultMaxRetries, DefaultAckTimeout)
	assert.Equal(t, StateIdle, m.State)
	assert.False(t, m.Running())
	assert.Equal(t, OpNone, m.Next())

	m, fx := Transition(m, Event{Kind: EventStart, Rows: 3})
	assert.Equal(t, StateSendingPattern, m.State)
	assert.Equal(t, 0, m.Index)
	assert.Equal(t, 0, m.Retries)
	assert.True(t, m.Running())
	assert.True(t, fx.ClearErr)
	assert.Equal(t, OpWrite, m.Next())
}

func TestFullRunWithAcks(t *testing.T) {
	m := started(3)
	writes := 0

	for step := 0; step < 20 && m.Running(); step++ {
		switch m.Next() {
		case OpWrite:
			writes++
			m, _ = Transition(m, Event{Kind: EventWrote, At: t0})
			assert.Equal(t, StateWaitingForReady, m.State)
		case OpRead:
			var fx Effects
			m, fx = Transition(m, Event{Kind: EventReadByte, Byte: ACK, At: t0})
			assert.True(t, fx.Acked)
		case OpNone:
			var fx Effects
			m, fx = Transition(m, Event{Kind: EventTick, At: t0})
			assert.True(t, fx.Completed)
		}
	}

	assert.Equal(t, 3, writes)
	assert.Equal(t, StateIdle, m.State)
	assert.False(t, m.Running())
	assert.Equal(t, 1.0, m.Progress)
	assert.Equal(t, 3, m.Index)
}

func TestProgressAfterEachAck(t *testing.T) {
	m := started(4)
	for i := 1; i <= 4; i++ {
		m, _ = Transition(m, Event{Kind: EventWrote, At: t0})
		m, _ = Transition(m, Event{Kind: EventReadByte, Byte: ACK})
		assert.InDelta(t, float64(i)/4, m.Progress, 1e-9)
	}
}

func TestEmptyPatternCompletesOnFirstTick(t *testing.T) {
	m := started(0)
	assert.Equal(t, OpNone, m.Next())
	m, fx := Transition(m, Event{Kind: EventTick})
	assert.True(t, fx.Completed)
	assert.Equal(t, StateIdle, m.State)
}

func TestUnexpectedByte(t *testing.T) {
	m := started(2)
	m, _ = Transition(m, Event{Kind: EventWrote, At: t0})
	m, fx := Transition(m, Event{Kind: EventReadByte, Byte: 0x15})

	assert.Equal(t, StateError, m.State)
	assert.True(t, fx.Failed)
	assert.False(t, m.Running())

	var ue *UnexpectedByteError
	require.ErrorAs(t, fx.Err, &ue)
	assert.Equal(t, byte(0x15), ue.Byte)
	assert.Equal(t, 0, ue.Row)

	m, fx = Transition(m, Event{Kind: EventTick})
	assert.Equal(t, StateIdle, m.State)
	assert.True(t, fx.Resolved)
	assert.Nil(t, fx.Err, "resolving leaves the last error in place")
}

func TestAckTimeout(t *testing.T) {
	m := started(1)
	m, _ = Transition(m, Event{Kind: EventWrote, At: t0})

	m, fx := Transition(m, Event{Kind: EventReadEmpty, At: t0.Add(time.Second)})
	assert.Equal(t, StateWaitingForReady, m.State)
	assert.Nil(t, fx.Err)

	m, _ = Transition(m, Event{Kind: EventReadEmpty, At: t0.Add(DefaultAckTimeout)})
	assert.Equal(t, StateWaitingForReady, m.State, "exactly the timeout is still pending")

	m, fx = Transition(m, Event{Kind: EventReadEmpty, At: t0.Add(DefaultAckTimeout + time.Millisecond)})
	assert.Equal(t, StateError, m.State)

	var te *AckTimeoutError
	require.ErrorAs(t, fx.Err, &te)
	assert.Equal(t, DefaultAckTimeout, te.Timeout)
	assert.Greater(t, te.Elapsed, DefaultAckTimeout)

	m, _ = Transition(m, Event{Kind: EventTick})
	assert.Equal(t, StateIdle, m.State)
}

func TestWriteRetries(t *testing.T) {
	writeErr := errors.New("resource temporarily unavailable")
	m := started(2)

	attempts := 0
	var last Effects
	for m.State == StateSendingPattern && attempts < 10 {
		require.Equal(t, OpWrite, m.Next())
		attempts++
		m, last = Transition(m, Event{Kind: EventWriteFailed, Err: writeErr})
		if m.State == StateSendingPattern {
			var re *RetryError
			require.ErrorAs(t, last.Err, &re)
			assert.Equal(t, attempts, re.Attempt)
			assert.False(t, IsFatal(last.Err))
		}
	}

	assert.Equal(t, DefaultMaxRetries+1, attempts)
	assert.Equal(t, StateError, m.State)

	var rx *RetryExhaustedError
	require.ErrorAs(t, last.Err, &rx)
	assert.Equal(t, DefaultMaxRetries+1, rx.Attempts)
	assert.ErrorIs(t, last.Err, writeErr)
	assert.True(t, IsFatal(last.Err))
}

func TestRetriesResetOnAckOnly(t *testing.T) {
	m := started(2)
	fail := Event{Kind: EventWriteFailed, Err: errors.New("busy")}

	m, _ = Transition(m, fail)
	m, _ = Transition(m, fail)
	m, _ = Transition(m, Event{Kind: EventWrote, At: t0})
	assert.Equal(t, 2, m.Retries, "a successful write keeps the retry count")

	m, _ = Transition(m, Event{Kind: EventReadByte, Byte: ACK})
	assert.Equal(t, 0, m.Retries)
	assert.Equal(t, 1, m.Index)
}

func TestDisconnectIsImmediate(t *testing.T) {
	tests := []struct {
		name string
		prep func(Machine) Machine
		ev   Event
		op   string
	}{
		{
			name: "write",
			prep: func(m Machine) Machine { return m },
			ev:   Event{Kind: EventWriteFailed, Err: fmt.Errorf("port closed: %w", ErrDisconnected)},
			op:   "write",
		},
		{
			name: "read",
			prep: func(m Machine) Machine {
				m, _ = Transition(m, Event{Kind: EventWrote, At: t0})
				return m
			},
			ev: Event{Kind: EventReadFailed, Err: errors.New("input/output error")},
			op: "read",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := tt.prep(started(1))
			m, fx := Transition(m, tt.ev)
			assert.Equal(t, StateError, m.State)

			var ce *ChannelError
			require.ErrorAs(t, fx.Err, &ce)
			assert.Equal(t, tt.op, ce.Op)
			assert.True(t, IsFatal(fx.Err))
		})
	}
}

func TestStopFromAnyState(t *testing.T) {
	states := map[string]Machine{
		"idle":    NewMachine(DefaultMaxRetries, DefaultAckTimeout),
		"sending": started(3),
	}
	waiting, _ := Transition(started(3), Event{Kind: EventWrote, At: t0})
	states["waiting"] = waiting
	errored, _ := Transition(waiting, Event{Kind: EventReadByte, Byte: 0xFF})
	states["error"] = errored

	for name, m := range states {
		t.Run(name, func(t *testing.T) {
			m, fx := Transition(m, Event{Kind: EventStop})
			assert.Equal(t, StateIdle, m.State)
			assert.True(t, fx.Stopped)
			assert.True(t, fx.ClearErr)
			assert.Nil(t, fx.Err)
			assert.False(t, m.Running())
		})
	}
}

func TestIrrelevantEventsAreIgnored(t *testing.T) {
	m := started(2)
	next, fx := Transition(m, Event{Kind: EventReadByte, Byte: ACK})
	assert.Equal(t, m, next)
	assert.Equal(t, Effects{}, fx)

	idle := NewMachine(DefaultMaxRetries, DefaultAckTimeout)
	next, fx = Transition(idle, Event{Kind: EventTick})
	assert.Equal(t, idle, next)
	assert.Equal(t, Effects{}, fx)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "IDLE", StateIdle.String())
	assert.Equal(t, "SENDING_PATTERN", StateSendingPattern.String())
	assert.Equal(t, "WAITING_FOR_READY", StateWaitingForReady.String())
	assert.Equal(t, "ERROR", StateError.String())
	assert.Equal(t, "State(9)", State(9).String())
	assert.Equal(t, "write", OpWrite.String())
	assert.Equal(t, "read-empty", EventReadEmpty.String())
}

func TestFault(t *testing.T) {
	boom := errors.New("boom")

	m, fx := Transition(started(2), Event{Kind: EventFault, Err: boom})
	assert.Equal(t, StateError, m.State)
	assert.True(t, fx.Failed)
	assert.ErrorIs(t, fx.Err, boom)

	idle := NewMachine(DefaultMaxRetries, DefaultAckTimeout)
	m, fx = Transition(idle, Event{Kind: EventFault, Err: boom})
	assert.Equal(t, StateIdle, m.State)
	assert.Nil(t, fx.Err)
}
