package controller

import (
	"log/slog"
	"time"

	"github.com/moffa90/go-kh930/protocol"
)

// Config holds the controller configuration.
type Config struct {
	// Logger receives run events (optional)
	Logger *slog.Logger

	// Clock timestamps writes and reads for the ACK timeout
	Clock Clock

	// AckTimeout is how long the machine may stay silent after a row
	AckTimeout time.Duration

	// MaxRetries is the number of extra attempts for a failed row write
	MaxRetries int

	// TickInterval is the delay between two steps
	TickInterval time.Duration

	// StatusCallback is called after each status change (optional)
	StatusCallback StatusCallback

	// RunRecorders are told about every finished run, in order
	RunRecorders []RunRecorder
}

func defaultConfig() Config {
	return Config{
		Logger:       slog.New(slog.DiscardHandler),
		Clock:        systemClock{},
		AckTimeout:   protocol.DefaultAckTimeout,
		MaxRetries:   protocol.DefaultMaxRetries,
		TickInterval: protocol.DefaultTickInterval,
	}
}

// Option is a functional option for configuring the Controller.
type Option func(*Config)

// WithLogger sets the logger for run events.
//
// Example:
//
//	ctrl := controller.New(open, controller.WithLogger(slog.Default()))
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

// WithClock replaces the system clock.
func WithClock(clock Clock) Option {
	return func(c *Config) {
		if clock != nil {
			c.Clock = clock
		}
	}
}

// WithAckTimeout sets how long to wait for the machine to acknowledge a row.
//
// Example:
//
//	ctrl := controller.New(open, controller.WithAckTimeout(10*time.Second))
func WithAckTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		if timeout > 0 {
			c.AckTimeout = timeout
		}
	}
}

// WithMaxRetries sets the number of retries for a failed row write.
// A row is attempted at most retries+1 times.
func WithMaxRetries(retries int) Option {
	return func(c *Config) {
		if retries >= 0 {
			c.MaxRetries = retries
		}
	}
}

// WithTickInterval sets the delay between steps.
func WithTickInterval(interval time.Duration) Option {
	return func(c *Config) {
		if interval > 0 {
			c.TickInterval = interval
		}
	}
}

// WithStatusCallback subscribes to status changes.
//
// Example:
//
//	ctrl := controller.New(open,
//	    controller.WithStatusCallback(func(s controller.Status) {
//	        fmt.Printf("%.1f%%\n", s.Progress*100)
//	    }),
//	)
func WithStatusCallback(callback StatusCallback) Option {
	return func(c *Config) {
		c.StatusCallback = callback
	}
}

// WithRunRecorder records every finished run. It may be given more than once.
func WithRunRecorder(recorder RunRecorder) Option {
	return func(c *Config) {
		if recorder != nil {
			c.RunRecorders = append(c.RunRecorders, recorder)
		}
	}
}
