package audio

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"go.bug.st/serial"
	"periph.io/x/conn/v3/i2c"
)

// Preamp registers used by PreampSink.
const (
	RegMute     byte = 0x03 // zone mute bits, 1 = muted
	RegVolZone1 byte = 0x05 // zone 1 attenuation; zones 2-6 follow
	VolMuteReg  byte = 80   // attenuation value meaning muted
)

// DefaultPreampAddr is the 7-bit address of the first preamp after UART
// address assignment.
const DefaultPreampAddr uint16 = 0x08

// DefaultPreampUART is where the preamp listens for its address.
const DefaultPreampUART = "/dev/serial0"

// PercentToDB maps 1-100% linearly onto [-79,0] dB. 0% is -80 dB, which the
// preamp treats as mute.
func PercentToDB(percent int) int {
	if percent <= 0 {
		return -80
	}
	if percent >= 100 {
		return 0
	}
	return -79 + (percent-1)*79/99
}

// DBToVolReg converts a dB value [-80, 0] to an attenuation register byte.
func DBToVolReg(db int) byte {
	if db > 0 {
		db = 0
	}
	if db < -80 {
		db = -80
	}
	return byte(-db)
}

// PreampSink drives one zone of an I²C preamp that shares the bus with the
// expander. A 0% level also sets the zone's mute bit.
type PreampSink struct {
	mu   sync.Mutex
	dev  i2c.Dev
	zone int
}

// NewPreampSink creates a sink for zone (1-6) of the preamp at addr.
func NewPreampSink(bus i2c.Bus, addr uint16, zone int) (*PreampSink, error) {
	if zone < 1 || zone > 6 {
		return nil, fmt.Errorf("preamp: zone %d out of range 1-6", zone)
	}
	return &PreampSink{dev: i2c.Dev{Bus: bus, Addr: addr}, zone: zone}, nil
}

func (p *PreampSink) SetOutputVolume(ctx context.Context, percent int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	reg := RegVolZone1 + byte(p.zone-1)
	val := DBToVolReg(PercentToDB(percent))
	if err := p.dev.Tx([]byte{reg, val}, nil); err != nil {
		return fmt.Errorf("preamp: write vol zone %d: %w", p.zone, err)
	}

	var cur [1]byte
	if err := p.dev.Tx([]byte{RegMute}, cur[:]); err != nil {
		return fmt.Errorf("preamp: read mute: %w", err)
	}
	bit := byte(1) << (p.zone - 1)
	next := cur[0] &^ bit
	if percent <= 0 {
		next |= bit
	}
	if next != cur[0] {
		if err := p.dev.Tx([]byte{RegMute, next}, nil); err != nil {
			return fmt.Errorf("preamp: write mute: %w", err)
		}
	}
	slog.Debug("preamp: volume set", "zone", p.zone, "percent", percent, "reg", val)
	return nil
}

// AssignPreampAddress sends the address assignment sequence over the UART the
// preamp listens on at power-up. Until it receives it the preamp does not
// answer on the bus.
func AssignPreampAddress(dev string) error {
	port, err := serial.Open(dev, &serial.Mode{
		BaudRate: 9600,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return fmt.Errorf("preamp: open %s: %w", dev, err)
	}
	defer port.Close()

	// 'A', 8-bit address, newline
	if _, err := port.Write([]byte{0x41, byte(DefaultPreampAddr << 1), 0x0A}); err != nil {
		return fmt.Errorf("preamp: write %s: %w", dev, err)
	}
	slog.Debug("preamp: sent address assignment", "addr", fmt.Sprintf("0x%02x", DefaultPreampAddr), "device", dev)
	return nil
}
