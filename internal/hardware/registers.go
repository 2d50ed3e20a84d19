package hardware

import "fmt"

// Register addresses of the 16-line expander (XL9555, TCA9555, PCA9555).
// Bank A holds pins 0-7 and bank B pins 8-15.
const (
	RegInputA    Register = 0x00 // Input port A (bit=0 means the line is low)
	RegInputB    Register = 0x01 // Input port B
	RegOutputA   Register = 0x02 // Output port A (bit=1 drives high)
	RegOutputB   Register = 0x03 // Output port B
	RegPolarityA Register = 0x04 // Polarity inversion A (left at power-on default)
	RegPolarityB Register = 0x05 // Polarity inversion B
	RegConfigA   Register = 0x06 // Direction A (bit=0 input, bit=1 output)
	RegConfigB   Register = 0x07 // Direction B
)

// NumPins is the number of lines on the expander.
const NumPins = 16

// Bank identifies one 8-bit group of expander lines.
type Bank uint8

const (
	BankA Bank = iota // pins 0-7
	BankB             // pins 8-15
)

func (b Bank) String() string {
	if b == BankB {
		return "B"
	}
	return "A"
}

// Input returns the input register of the bank.
func (b Bank) Input() Register { return RegInputA + Register(b) }

// Output returns the output register of the bank.
func (b Bank) Output() Register { return RegOutputA + Register(b) }

// Config returns the direction register of the bank.
func (b Bank) Config() Register { return RegConfigA + Register(b) }

// Resolve maps a pin index to its bank and bit. The bit is always in [0,7].
func Resolve(pin int) (Bank, uint8, error) {
	if pin < 0 || pin >= NumPins {
		return 0, 0, fmt.Errorf("expander: pin %d: %w", pin, ErrInvalidPin)
	}
	if pin < 8 {
		return BankA, uint8(pin), nil
	}
	return BankB, uint8(pin - 8), nil
}

// SetBit returns v with bit set to level, leaving every other bit untouched.
func SetBit(v byte, bit uint8, level bool) byte {
	var l byte
	if level {
		l = 1
	}
	return (v &^ (1 << bit)) | l<<bit
}

// ActiveLow reports whether bit of an input register byte reads as asserted.
// A pressed key pulls its line to ground, so a 0 bit means active.
func ActiveLow(v byte, bit uint8) bool {
	return v&(1<<bit) == 0
}

// ValidateDirection checks that every pin in inputs is in range and has its
// direction bit cleared in dirA/dirB. Other pins may be configured freely.
func ValidateDirection(dirA, dirB byte, inputs ...int) error {
	for _, pin := range inputs {
		bank, bit, err := Resolve(pin)
		if err != nil {
			return err
		}
		dir := dirA
		if bank == BankB {
			dir = dirB
		}
		if dir&(1<<bit) != 0 {
			return fmt.Errorf("expander: pin %d (dir%s=0x%02x): %w", pin, bank, dir, ErrDirectionConflict)
		}
	}
	return nil
}
