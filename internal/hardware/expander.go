package hardware

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/time/rate"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/i2c"
)

// DefaultExpanderAddr is the 7-bit address of the expander with A0-A2 tied low.
const DefaultExpanderAddr uint16 = 0x20

// Expander is a 16-line I²C GPIO expander. It owns the device address on a
// borrowed bus; the bus must outlive the Expander.
//
// Every register transaction goes through a single mutex, so a WriteBit
// read-modify-write can never interleave with another WriteBit or ReadBit on
// the same chip. Only one Expander may exist per physical device.
type Expander struct {
	mu      sync.Mutex
	dev     i2c.Dev
	limiter *rate.Limiter
}

// ExpanderOption configures an Expander.
type ExpanderOption func(*Expander)

// WithRateLimit caps bus transactions per second. Waiting for a token honours
// the context passed to each call.
func WithRateLimit(opsPerSec float64, burst int) ExpanderOption {
	return func(e *Expander) {
		e.limiter = rate.NewLimiter(rate.Limit(opsPerSec), burst)
	}
}

// NewExpander creates an expander at addr on bus. No bus traffic happens until
// Initialize, WriteBit or ReadBit is called.
func NewExpander(bus i2c.Bus, addr uint16, opts ...ExpanderOption) *Expander {
	e := &Expander{dev: i2c.Dev{Bus: bus, Addr: addr}}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// String returns the bus and address of the device.
func (e *Expander) String() string { return e.dev.String() }

// Initialize writes the two direction registers (bit=0 input, bit=1 output).
// Every pin listed in inputs must be in range and configured as an input;
// otherwise a programming error is returned and nothing is written.
func (e *Expander) Initialize(ctx context.Context, dirA, dirB byte, inputs ...int) error {
	if err := ValidateDirection(dirA, dirB, inputs...); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.writeReg(ctx, RegConfigA, dirA); err != nil {
		return err
	}
	if err := e.writeReg(ctx, RegConfigB, dirB); err != nil {
		return err
	}
	slog.Debug("expander: direction configured",
		"dev", e.dev.String(),
		"dirA", fmt.Sprintf("0x%02x", dirA),
		"dirB", fmt.Sprintf("0x%02x", dirB))
	return nil
}

// WriteBit drives one output line. The current output register is read back
// from the chip so sibling bits written by anyone else are preserved.
func (e *Expander) WriteBit(ctx context.Context, pin int, level gpio.Level) error {
	bank, bit, err := Resolve(pin)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	cur, err := e.readReg(ctx, bank.Output())
	if err != nil {
		return err
	}
	return e.writeReg(ctx, bank.Output(), SetBit(cur, bit, bool(level)))
}

// ReadBit samples one input line. It returns true when the line is
// electrically low (pressed / asserted).
func (e *Expander) ReadBit(ctx context.Context, pin int) (bool, error) {
	bank, bit, err := Resolve(pin)
	if err != nil {
		return false, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	v, err := e.readReg(ctx, bank.Input())
	if err != nil {
		return false, err
	}
	return ActiveLow(v, bit), nil
}

// ReadBank returns the raw value of any register.
func (e *Expander) ReadBank(ctx context.Context, reg Register) (byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.readReg(ctx, reg)
}

// PinSnapshot holds both raw input banks and their decoded levels.
type PinSnapshot struct {
	PortA  byte
	PortB  byte
	Active [NumPins]bool // true = line low
}

// Snapshot reads both input banks under one lock.
func (e *Expander) Snapshot(ctx context.Context) (PinSnapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	a, err := e.readReg(ctx, RegInputA)
	if err != nil {
		return PinSnapshot{}, err
	}
	b, err := e.readReg(ctx, RegInputB)
	if err != nil {
		return PinSnapshot{}, err
	}
	s := PinSnapshot{PortA: a, PortB: b}
	for i := uint8(0); i < 8; i++ {
		s.Active[i] = ActiveLow(a, i)
		s.Active[i+8] = ActiveLow(b, i)
	}
	return s, nil
}

// readReg and writeReg must be called with e.mu held.
func (e *Expander) readReg(ctx context.Context, reg Register) (byte, error) {
	if err := e.wait(ctx); err != nil {
		return 0, err
	}
	rx := [1]byte{}
	if err := e.dev.Tx([]byte{reg}, rx[:]); err != nil {
		return 0, &HardwareError{Op: "read", Reg: reg, Err: err}
	}
	return rx[0], nil
}

func (e *Expander) writeReg(ctx context.Context, reg Register, val byte) error {
	if err := e.wait(ctx); err != nil {
		return err
	}
	if err := e.dev.Tx([]byte{reg, val}, nil); err != nil {
		return &HardwareError{Op: "write", Reg: reg, Err: err}
	}
	return nil
}

func (e *Expander) wait(ctx context.Context) error {
	if e.limiter == nil {
		return ctx.Err()
	}
	return e.limiter.Wait(ctx)
}
