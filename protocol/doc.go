// Package protocol implements the row streaming protocol of a KH930 knitting machine
// serial link as a pure state machine.
//
// # Protocol Overview
//
// The host sends one pre-encoded row (or command) buffer at a time and waits for the
// machine to acknowledge it:
//
//	host:    [ROW 0 BYTES...]
//	machine: [ACK]                  ACK = 0x06
//	host:    [ROW 1 BYTES...]
//	machine: [ACK]
//	...
//
// There is no framing or checksum. Any byte other than ACK, or silence for longer
// than the ACK timeout (5 s), ends the run with an error. A failed write is retried
// up to MaxRetries times before the run fails.
//
// # State Machine
//
// Machine holds the protocol state as a plain value. Transition applies one Event
// and returns the next Machine plus the Effects the caller must publish:
//
//	m := protocol.NewMachine(protocol.DefaultMaxRetries, protocol.DefaultAckTimeout)
//	m, _ = protocol.Transition(m, protocol.Event{Kind: protocol.EventStart, Rows: len(rows)})
//
//	for m.Running() {
//	    switch m.Next() {
//	    case protocol.OpWrite:
//	        _, err := ch.Write(rows[m.Index])
//	        // feed EventWrote or EventWriteFailed
//	    case protocol.OpRead:
//	        // read one byte, feed EventReadByte, EventReadEmpty or EventReadFailed
//	    case protocol.OpNone:
//	        // feed EventTick
//	    }
//	}
//
// Next never asks for more than one channel operation per step, so a caller that
// performs exactly the requested operation keeps at most one row in flight.
// Nothing in this package touches a channel or a clock; timestamps arrive on events.
//
// # Error Handling
//
// Run-ending conditions are reported as typed errors in Effects.Err:
//   - RetryExhaustedError: the row write failed more than MaxRetries times
//   - UnexpectedByteError: the machine answered with something other than ACK
//   - AckTimeoutError: no answer within the ACK timeout
//   - ChannelError: the channel was disconnected or a read failed
//
// The Error state is a one-shot notification: the next event moves the machine
// back to Idle.
package protocol
