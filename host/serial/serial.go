// Package serial opens the telemetry link to a board.
package serial

import (
	"errors"
	"io"
	"time"
)

var (
	ErrNoDevice = errors.New("serial: no device given")
	ErrBadBaud  = errors.New("serial: baud rate must be positive")
)

// Port is the byte stream carrying telemetry frames. The native
// implementation uses github.com/tarm/serial; tests and the simulator use
// any io.ReadWriteCloser.
type Port interface {
	io.ReadWriteCloser

	// Flush discards anything buffered and not yet read
	Flush() error
}

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/ttyUSB0", "COM3")
	Device string

	// Baud rate of the board's UART
	Baud int

	// ReadTimeout bounds each Read; zero blocks until data arrives
	ReadTimeout time.Duration
}

// DefaultConfig returns the settings the AVR targets use
func DefaultConfig(device string) Config {
	return Config{
		Device:      device,
		Baud:        115200,
		ReadTimeout: 100 * time.Millisecond,
	}
}

// Validate checks that the configuration can be opened
func (c Config) Validate() error {
	if c.Device == "" {
		return ErrNoDevice
	}
	if c.Baud <= 0 {
		return ErrBadBaud
	}
	return nil
}
