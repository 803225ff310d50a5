package protocol

import "time"

// ACK is the single byte the machine returns after accepting a row.
const ACK = 0x06

// Protocol timing and retry defaults.
const (
	// DefaultAckTimeout is how long to wait for ACK after a row was written
	DefaultAckTimeout = 5 * time.Second

	// DefaultMaxRetries is the number of extra write attempts per row
	DefaultMaxRetries = 3

	// DefaultTickInterval is the idle delay between two steps of a run
	DefaultTickInterval = 10 * time.Millisecond
)
