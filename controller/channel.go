package controller

import "time"

// Channel is the byte stream to the machine.
//
// Read must not block for long: a read that finds no data returns 0, nil.
type Channel interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
}

// Opener opens the channel on Connect.
type Opener func() (Channel, error)

// Clock supplies the monotonic time used for ACK timeouts.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }
