package hardware

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"periph.io/x/conn/v3/physic"
)

// Mock is a thread-safe in-memory simulation of one 16-line expander sitting
// on an I²C bus. It implements i2c.BusCloser and is used for tests and for
// running the daemon without hardware.
type Mock struct {
	mu        sync.Mutex
	addr      uint16
	regs      [8]byte
	failWrite bool
	failRead  bool
	latency   time.Duration
	yield     bool
	txCount   int
	extra     map[uint16]func(w, r []byte) error
}

// NewMock creates a simulated expander at addr with power-on register values:
// direction and output registers all ones, nothing pressed.
func NewMock(addr uint16) *Mock {
	m := &Mock{addr: addr}
	m.regs[RegInputA] = 0xFF
	m.regs[RegInputB] = 0xFF
	m.regs[RegOutputA] = 0xFF
	m.regs[RegOutputB] = 0xFF
	m.regs[RegConfigA] = 0xFF
	m.regs[RegConfigB] = 0xFF
	return m
}

// SetLatency makes every transaction take d, to simulate I2C timing.
func (m *Mock) SetLatency(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latency = d
}

// SetYield makes every transaction yield the processor before touching the
// registers, shuffling goroutine interleavings in concurrency tests.
func (m *Mock) SetYield(yield bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.yield = yield
}

// SetFailWrite configures the mock to fail all write transactions.
func (m *Mock) SetFailWrite(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWrite = fail
}

// SetFailRead configures the mock to fail all read transactions.
func (m *Mock) SetFailRead(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failRead = fail
}

// SetPressed drives an input line low (pressed) or lets it float high.
func (m *Mock) SetPressed(pin int, pressed bool) {
	bank, bit, err := Resolve(pin)
	if err != nil {
		panic(err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.regs[bank.Input()] = SetBit(m.regs[bank.Input()], bit, !pressed)
}

// GetReg returns a register value for testing purposes.
func (m *Mock) GetReg(reg Register) byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.regs[reg&0x07]
}

// SetReg overwrites a register value, including the read-only input ports.
func (m *Mock) SetReg(reg Register, val byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.regs[reg&0x07] = val
}

// TxCount returns the number of transactions served so far.
func (m *Mock) TxCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.txCount
}

// Attach routes transactions for another address on the same simulated bus to
// fn, so other devices (a preamp, say) can share the bus in tests.
func (m *Mock) Attach(addr uint16, fn func(w, r []byte) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.extra == nil {
		m.extra = make(map[uint16]func(w, r []byte) error)
	}
	m.extra[addr] = fn
}

func (m *Mock) String() string { return fmt.Sprintf("mock-i2c(0x%02x)", m.addr) }

// SetSpeed is a no-op.
func (m *Mock) SetSpeed(f physic.Frequency) error { return nil }

// Close is a no-op.
func (m *Mock) Close() error { return nil }

// Tx serves one bus transaction. A one-byte write followed by a read returns
// registers starting at the written address; a longer write stores w[1:]
// starting at w[0]. Input registers ignore writes.
func (m *Mock) Tx(addr uint16, w, r []byte) error {
	m.mu.Lock()
	latency, yield := m.latency, m.yield
	fn := m.extra[addr]
	m.mu.Unlock()
	if latency > 0 {
		time.Sleep(latency)
	}
	if yield {
		runtime.Gosched()
	}
	if addr != m.addr {
		if fn != nil {
			return fn(w, r)
		}
		return ErrHardware(fmt.Sprintf("mock: no device at 0x%02x", addr))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.txCount++
	if len(w) == 0 {
		return ErrHardware("mock: missing register address")
	}
	reg := int(w[0])
	if len(r) > 0 {
		if m.failRead {
			return ErrHardware("mock: read failure configured")
		}
		for i := range r {
			if reg+i >= len(m.regs) {
				return ErrHardware(fmt.Sprintf("mock: register 0x%02x out of range", reg+i))
			}
			r[i] = m.regs[reg+i]
		}
		return nil
	}
	if len(w) == 1 {
		return nil
	}
	if m.failWrite {
		return ErrHardware("mock: write failure configured")
	}
	for i, v := range w[1:] {
		if reg+i >= len(m.regs) {
			return ErrHardware(fmt.Sprintf("mock: register 0x%02x out of range", reg+i))
		}
		if Register(reg+i) == RegInputA || Register(reg+i) == RegInputB {
			continue
		}
		m.regs[reg+i] = v
	}
	return nil
}

// MockLines simulates host GPIO lines for running without hardware.
type MockLines struct {
	mu      sync.Mutex
	pressed map[int]bool
}

// NewMockLines creates simulated host lines, all released.
func NewMockLines() *MockLines {
	return &MockLines{pressed: make(map[int]bool)}
}

// SetPressed sets the simulated level of a line.
func (l *MockLines) SetPressed(pin int, pressed bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pressed[pin] = pressed
}

// ReadBit returns the simulated level of a line.
func (l *MockLines) ReadBit(ctx context.Context, pin int) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pressed[pin], nil
}

// Close is a no-op.
func (l *MockLines) Close() error { return nil }
