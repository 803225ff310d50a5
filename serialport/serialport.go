// Package serialport provides the controller channel over a serial device.
package serialport

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/moffa90/go-kh930/controller"
	"github.com/moffa90/go-kh930/protocol"
)

// Defaults used by the machine's serial interface.
const (
	DefaultPort        = "/dev/ttyUSB0"
	DefaultBaudRate    = 9600
	DefaultReadTimeout = 100 * time.Millisecond
)

// Config selects and configures a serial device.
type Config struct {
	Port     string
	BaudRate int

	// ReadTimeout bounds a single Read; a read that times out returns 0, nil
	ReadTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Port == "" {
		c.Port = DefaultPort
	}
	if c.BaudRate <= 0 {
		c.BaudRate = DefaultBaudRate
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	return c
}

// Port is an open serial device. It implements controller.Channel.
type Port struct {
	name string
	port serial.Port

	mu     sync.Mutex
	closed bool
}

// Open opens the device named by cfg in 8N1 mode.
func Open(cfg Config) (*Port, error) {
	cfg = cfg.withDefaults()

	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	sp, err := serial.Open(cfg.Port, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", cfg.Port, err)
	}
	if err := sp.SetReadTimeout(cfg.ReadTimeout); err != nil {
		sp.Close()
		return nil, fmt.Errorf("set read timeout on %s: %w", cfg.Port, err)
	}
	if err := sp.ResetInputBuffer(); err != nil {
		sp.Close()
		return nil, fmt.Errorf("reset input buffer on %s: %w", cfg.Port, err)
	}

	return &Port{name: cfg.Port, port: sp}, nil
}

// OpenerFor returns a controller.Opener that opens cfg.
func OpenerFor(cfg Config) controller.Opener {
	return func() (controller.Channel, error) {
		p, err := Open(cfg)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
}

// Name returns the device path.
func (p *Port) Name() string { return p.name }

func (p *Port) Read(b []byte) (int, error) {
	if p.isClosed() {
		return 0, fmt.Errorf("read %s: %w", p.name, protocol.ErrDisconnected)
	}
	n, err := p.port.Read(b)
	return n, p.wrap("read", err)
}

func (p *Port) Write(b []byte) (int, error) {
	if p.isClosed() {
		return 0, fmt.Errorf("write %s: %w", p.name, protocol.ErrDisconnected)
	}
	n, err := p.port.Write(b)
	return n, p.wrap("write", err)
}

// Close closes the device. Closing twice is a no-op.
func (p *Port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.port.Close()
}

func (p *Port) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *Port) wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsDisconnect(err) {
		return fmt.Errorf("%s %s: %v: %w", op, p.name, err, protocol.ErrDisconnected)
	}
	return fmt.Errorf("%s %s: %w", op, p.name, err)
}

// IsDisconnect reports whether err means the device went away.
func IsDisconnect(err error) bool {
	var pe *serial.PortError
	if !errors.As(err, &pe) {
		return false
	}
	switch pe.Code() {
	case serial.PortClosed, serial.PortNotFound, serial.InvalidSerialPort:
		return true
	}
	return false
}

// List returns the serial devices present on the system.
func List() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}
	return ports, nil
}
