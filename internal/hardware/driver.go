// Package hardware provides the hardware abstraction layer for the front panel.
// It covers the 16-line I²C GPIO expander that carries the panel keys and
// outputs, the buses it sits on, host GPIO lines and board descriptors.
package hardware

import (
	"errors"
	"fmt"
)

// Register is an I2C register address.
type Register = byte

// Programming errors. These are configuration mistakes and are reported
// before any bus traffic happens.
var (
	// ErrInvalidPin is returned for a pin index outside 0-15.
	ErrInvalidPin = errors.New("pin out of range")

	// ErrDirectionConflict is returned when a pin used as an input has its
	// direction bit set to output, or a board output sits on an input line.
	ErrDirectionConflict = errors.New("pin direction conflict")
)

// HardwareError is returned when a bus transaction fails.
type HardwareError struct {
	Op  string   // "read" or "write"
	Reg Register // register addressed by the failed transaction
	Err error    // error reported by the bus
}

func (e *HardwareError) Error() string {
	return fmt.Sprintf("expander: %s reg 0x%02x: %v", e.Op, e.Reg, e.Err)
}

func (e *HardwareError) Unwrap() error { return e.Err }

// IsHardwareFault reports whether err carries a failed bus transaction.
func IsHardwareFault(err error) bool {
	var hwErr *HardwareError
	return errors.As(err, &hwErr)
}

// ErrHardware creates a bus-level error, used by the mock bus to simulate
// failing transactions.
func ErrHardware(msg string) error { return busError{msg: msg} }

type busError struct {
	msg string
}

func (e busError) Error() string { return e.msg }
