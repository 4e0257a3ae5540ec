// Package serial opens the UART link to the logger
package serial

import (
	"io"
	"time"
)

// Port is an open serial link. The RTC client only needs io.ReadWriter;
// Flush drops stale bytes left over from an earlier session.
type Port interface {
	io.ReadWriteCloser
	Flush() error
}

// Config holds serial port settings
type Config struct {
	Device      string        // e.g. "/dev/ttyUSB0", "COM3"
	Baud        int           // The logger UART runs at 250000
	ReadTimeout time.Duration // 0 blocks
}

const (
	DefaultBaud        = 250000
	DefaultReadTimeout = 50 * time.Millisecond
)

// DefaultConfig returns the settings the logger firmware expects
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        DefaultBaud,
		ReadTimeout: DefaultReadTimeout,
	}
}
