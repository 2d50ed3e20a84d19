package hardware_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/i2c/i2ctest"

	"github.com/micro-nova/amplipi-panel/internal/hardware"
)

const addr uint16 = 0x20

func TestExpanderInitialize(t *testing.T) {
	scenario := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: addr, W: []byte{0x06, 0x07}},
			{Addr: addr, W: []byte{0x07, 0xFE}},
		},
	}
	e := hardware.NewExpander(scenario, addr)
	if err := e.Initialize(context.Background(), 0x07, 0xFE, 4, 3); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := scenario.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestExpanderInitializeConflictWritesNothing(t *testing.T) {
	scenario := &i2ctest.Playback{DontPanic: true}
	e := hardware.NewExpander(scenario, addr)
	err := e.Initialize(context.Background(), 0x10, 0x00, 4)
	if !errors.Is(err, hardware.ErrDirectionConflict) {
		t.Fatalf("Initialize error = %v, want ErrDirectionConflict", err)
	}
	if scenario.Count != 0 {
		t.Errorf("%d transactions issued, want 0", scenario.Count)
	}
}

func TestExpanderWriteBitPreservesSiblings(t *testing.T) {
	scenario := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: addr, W: []byte{0x02}, R: []byte{0xFB}},
			{Addr: addr, W: []byte{0x02, 0xFF}},
			{Addr: addr, W: []byte{0x03}, R: []byte{0xFF}},
			{Addr: addr, W: []byte{0x03, 0xFE}},
		},
	}
	e := hardware.NewExpander(scenario, addr)
	ctx := context.Background()
	if err := e.WriteBit(ctx, 2, gpio.High); err != nil {
		t.Fatalf("WriteBit(2): %v", err)
	}
	if err := e.WriteBit(ctx, 8, gpio.Low); err != nil {
		t.Fatalf("WriteBit(8): %v", err)
	}
	if err := scenario.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestExpanderReadBit(t *testing.T) {
	scenario := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: addr, W: []byte{0x00}, R: []byte{0xFB}},
			{Addr: addr, W: []byte{0x00}, R: []byte{0xFB}},
			{Addr: addr, W: []byte{0x01}, R: []byte{0x7F}},
		},
	}
	e := hardware.NewExpander(scenario, addr)
	ctx := context.Background()
	tests := []struct {
		pin  int
		want bool
	}{
		{2, true},
		{0, false},
		{15, true},
	}
	for _, tc := range tests {
		got, err := e.ReadBit(ctx, tc.pin)
		if err != nil {
			t.Fatalf("ReadBit(%d): %v", tc.pin, err)
		}
		if got != tc.want {
			t.Errorf("ReadBit(%d) = %v, want %v", tc.pin, got, tc.want)
		}
	}
	if err := scenario.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestExpanderInvalidPinNoTraffic(t *testing.T) {
	m := hardware.NewMock(addr)
	e := hardware.NewExpander(m, addr)
	ctx := context.Background()
	if err := e.WriteBit(ctx, 16, gpio.High); !errors.Is(err, hardware.ErrInvalidPin) {
		t.Errorf("WriteBit(16) error = %v, want ErrInvalidPin", err)
	}
	if _, err := e.ReadBit(ctx, -1); !errors.Is(err, hardware.ErrInvalidPin) {
		t.Errorf("ReadBit(-1) error = %v, want ErrInvalidPin", err)
	}
	if n := m.TxCount(); n != 0 {
		t.Errorf("TxCount = %d, want 0", n)
	}
}

func TestExpanderHardwareFault(t *testing.T) {
	m := hardware.NewMock(addr)
	e := hardware.NewExpander(m, addr)
	ctx := context.Background()

	m.SetFailRead(true)
	_, err := e.ReadBit(ctx, 4)
	if !hardware.IsHardwareFault(err) {
		t.Fatalf("ReadBit error = %v, want hardware fault", err)
	}
	var hwErr *hardware.HardwareError
	if !errors.As(err, &hwErr) || hwErr.Op != "read" || hwErr.Reg != hardware.RegInputA {
		t.Errorf("HardwareError = %+v, want read of input A", hwErr)
	}
	if err := e.WriteBit(ctx, 4, gpio.High); !hardware.IsHardwareFault(err) {
		t.Errorf("WriteBit error = %v, want hardware fault", err)
	}

	m.SetFailRead(false)
	m.SetFailWrite(true)
	if err := e.Initialize(ctx, 0x00, 0x00); !hardware.IsHardwareFault(err) {
		t.Errorf("Initialize error = %v, want hardware fault", err)
	}
}

func TestExpanderMockRoundTrip(t *testing.T) {
	m := hardware.NewMock(addr)
	e := hardware.NewExpander(m, addr)
	ctx := context.Background()
	if err := e.Initialize(ctx, 0x00, 0x00); err != nil {
		t.Fatal(err)
	}
	m.SetReg(hardware.RegOutputA, 0x5A)
	m.SetReg(hardware.RegOutputB, 0xA5)

	for pin := 0; pin < hardware.NumPins; pin++ {
		for _, level := range []gpio.Level{gpio.High, gpio.Low} {
			beforeA, beforeB := m.GetReg(hardware.RegOutputA), m.GetReg(hardware.RegOutputB)
			if err := e.WriteBit(ctx, pin, level); err != nil {
				t.Fatalf("WriteBit(%d, %s): %v", pin, level, err)
			}
			wantA, wantB := beforeA, beforeB
			bank, bit, _ := hardware.Resolve(pin)
			if bank == hardware.BankA {
				wantA = hardware.SetBit(beforeA, bit, bool(level))
			} else {
				wantB = hardware.SetBit(beforeB, bit, bool(level))
			}
			gotA, gotB := m.GetReg(hardware.RegOutputA), m.GetReg(hardware.RegOutputB)
			if gotA != wantA || gotB != wantB {
				t.Errorf("WriteBit(%d, %s): outputs = 0x%02x/0x%02x, want 0x%02x/0x%02x",
					pin, level, gotA, gotB, wantA, wantB)
			}
		}
	}

	for pin := 0; pin < hardware.NumPins; pin++ {
		m.SetPressed(pin, true)
		got, err := e.ReadBit(ctx, pin)
		if err != nil || !got {
			t.Errorf("ReadBit(%d) = %v, %v; want true", pin, got, err)
		}
		m.SetPressed(pin, false)
		got, err = e.ReadBit(ctx, pin)
		if err != nil || got {
			t.Errorf("ReadBit(%d) = %v, %v; want false", pin, got, err)
		}
	}
}

func TestExpanderConcurrentWriteBit(t *testing.T) {
	m := hardware.NewMock(addr)
	m.SetYield(true)
	m.SetReg(hardware.RegOutputA, 0x00)
	m.SetReg(hardware.RegOutputB, 0x00)
	e := hardware.NewExpander(m, addr)
	ctx := context.Background()

	var wg sync.WaitGroup
	for pin := 0; pin < hardware.NumPins; pin++ {
		wg.Add(1)
		go func(pin int) {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				if err := e.WriteBit(ctx, pin, gpio.High); err != nil {
					t.Errorf("WriteBit(%d): %v", pin, err)
					return
				}
			}
		}(pin)
	}
	wg.Wait()
	if a, b := m.GetReg(hardware.RegOutputA), m.GetReg(hardware.RegOutputB); a != 0xFF || b != 0xFF {
		t.Errorf("lost update: outputs = 0x%02x/0x%02x, want 0xFF/0xFF", a, b)
	}
}

func TestExpanderSnapshot(t *testing.T) {
	m := hardware.NewMock(addr)
	m.SetPressed(4, true)
	m.SetPressed(9, true)
	e := hardware.NewExpander(m, addr)
	s, err := e.Snapshot(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if s.PortA != 0xEF || s.PortB != 0xFD {
		t.Errorf("ports = 0x%02x/0x%02x, want 0xEF/0xFD", s.PortA, s.PortB)
	}
	for pin, active := range s.Active {
		want := pin == 4 || pin == 9
		if active != want {
			t.Errorf("Active[%d] = %v, want %v", pin, active, want)
		}
	}
}

func TestExpanderReadBank(t *testing.T) {
	m := hardware.NewMock(addr)
	e := hardware.NewExpander(m, addr)
	ctx := context.Background()
	if err := e.Initialize(ctx, 0x07, 0xFE, 3, 4); err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		reg  hardware.Register
		want byte
	}{
		{hardware.RegConfigA, 0x07},
		{hardware.RegConfigB, 0xFE},
		{hardware.RegInputA, 0xFF},
	}
	for _, tt := range tests {
		got, err := e.ReadBank(ctx, tt.reg)
		if err != nil {
			t.Fatalf("ReadBank(0x%02x): %v", tt.reg, err)
		}
		if got != tt.want {
			t.Errorf("ReadBank(0x%02x) = 0x%02x, want 0x%02x", tt.reg, got, tt.want)
		}
	}
}

func TestExpanderRateLimitHonoursContext(t *testing.T) {
	m := hardware.NewMock(addr)
	e := hardware.NewExpander(m, addr, hardware.WithRateLimit(1, 1))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.ReadBit(ctx, 0); !errors.Is(err, context.Canceled) {
		t.Errorf("ReadBit with cancelled ctx error = %v, want context.Canceled", err)
	}
	if n := m.TxCount(); n != 0 {
		t.Errorf("TxCount = %d, want 0", n)
	}
}

func TestMockAttach(t *testing.T) {
	m := hardware.NewMock(addr)
	var got []byte
	m.Attach(0x08, func(w, r []byte) error {
		got = append([]byte(nil), w...)
		return nil
	})
	if err := m.Tx(0x08, []byte{0x05, 0x10}, nil); err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != 0x05 || got[1] != 0x10 {
		t.Errorf("attached device saw %v", got)
	}
	if err := m.Tx(0x30, []byte{0x00}, make([]byte, 1)); err == nil {
		t.Error("expected error for absent device")
	}
}
