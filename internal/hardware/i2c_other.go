//go:build !linux

package hardware

import (
	"errors"

	"periph.io/x/conn/v3/physic"
)

// RdwrBus is not available on non-Linux platforms.
type RdwrBus struct{}

// OpenRdwr returns an error on non-Linux platforms.
func OpenRdwr(path string) (*RdwrBus, error) {
	return nil, errors.New("i2c: I2C_RDWR not supported on this platform (requires Linux)")
}

func (b *RdwrBus) String() string { return "unsupported" }

// SetSpeed is not implemented on non-Linux platforms.
func (b *RdwrBus) SetSpeed(f physic.Frequency) error { return errors.New("i2c: not supported") }

// Tx is not implemented on non-Linux platforms.
func (b *RdwrBus) Tx(addr uint16, w, r []byte) error { return errors.New("i2c: not supported") }

// Close is a no-op on non-Linux platforms.
func (b *RdwrBus) Close() error { return nil }
