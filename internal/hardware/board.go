package hardware

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"
)

// Drive modes for the key sampler.
const (
	DriveTask  = "task"  // one loop samples every key on each tick
	DriveTimer = "timer" // one recurring timer per key
)

// OutputLevel is a board output driven once at bring-up.
type OutputLevel struct {
	Pin  int  `json:"pin"`
	High bool `json:"high"`
}

// Board describes how a panel is wired: where the expander sits, which lines
// are inputs, which keys do what and how they are sampled. Boards are data,
// selected at startup by name or loaded from a JSON file.
type Board struct {
	Name         string        `json:"name"`
	ExpanderAddr uint16        `json:"expander_addr"`
	DirA         byte          `json:"dir_a"` // direction register A (bit=0 input)
	DirB         byte          `json:"dir_b"` // direction register B
	Drive        string        `json:"drive"`
	IntervalMs   int           `json:"interval_ms"`
	VolumeUpPin  int           `json:"volume_up_pin"`
	VolumeDnPin  int           `json:"volume_down_pin"`
	Outputs      []OutputLevel `json:"outputs,omitempty"`
	GPIOChip     string        `json:"gpio_chip,omitempty"`
	BootLine     int           `json:"boot_line"` // host GPIO offset of the boot key, -1 if none
}

// DefaultBoard is the board used when none is selected.
const DefaultBoard = "panel-box"

// DefaultBootLine is the host GPIO the built-in boards wire the boot key to
// (BCM 17, header pin 11 on a Raspberry Pi).
const DefaultBootLine = 17

var boards = map[string]Board{
	"panel-v1": {
		Name:         "panel-v1",
		ExpanderAddr: DefaultExpanderAddr,
		DirA:         0x03,
		DirB:         0xF0,
		Drive:        DriveTimer,
		IntervalMs:   50,
		VolumeUpPin:  5,
		VolumeDnPin:  4,
		Outputs: []OutputLevel{
			{Pin: 12, High: true}, // panel backlight enable
			{Pin: 1, High: false}, // panel reset released low
		},
		GPIOChip: "gpiochip0",
		BootLine: DefaultBootLine,
	},
	"panel-box": {
		Name:         "panel-box",
		ExpanderAddr: DefaultExpanderAddr,
		DirA:         0x07,
		DirB:         0xFE,
		Drive:        DriveTask,
		IntervalMs:   100,
		VolumeUpPin:  4,
		VolumeDnPin:  3,
		Outputs: []OutputLevel{
			{Pin: 0, High: false}, // status LED off
		},
		GPIOChip: "gpiochip0",
		BootLine: DefaultBootLine,
	},
}

// LookupBoard returns a built-in board by name.
func LookupBoard(name string) (Board, error) {
	b, ok := boards[name]
	if !ok {
		return Board{}, fmt.Errorf("unknown board %q (known: %v)", name, BoardNames())
	}
	b.Outputs = append([]OutputLevel(nil), b.Outputs...)
	return b, nil
}

// BoardNames returns the names of the built-in boards, sorted.
func BoardNames() []string {
	names := make([]string, 0, len(boards))
	for n := range boards {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// LoadBoardFile reads a board descriptor from a JSON file and validates it.
func LoadBoardFile(path string) (Board, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Board{}, fmt.Errorf("board: read %s: %w", path, err)
	}
	b := Board{BootLine: -1, ExpanderAddr: DefaultExpanderAddr, GPIOChip: "gpiochip0"}
	if err := json.Unmarshal(data, &b); err != nil {
		return Board{}, fmt.Errorf("board: parse %s: %w", path, err)
	}
	if err := b.Validate(); err != nil {
		return Board{}, err
	}
	return b, nil
}

// Interval returns the sampling interval.
func (b Board) Interval() time.Duration {
	return time.Duration(b.IntervalMs) * time.Millisecond
}

// Inputs returns the expander pins used as keys.
func (b Board) Inputs() []int {
	return []int{b.VolumeUpPin, b.VolumeDnPin}
}

// Validate checks the descriptor for programming errors: pins out of range,
// keys configured as outputs or outputs configured as inputs, an unknown
// drive or a non-positive interval.
func (b Board) Validate() error {
	if b.Name == "" {
		return fmt.Errorf("board: missing name")
	}
	if b.ExpanderAddr < 0x20 || b.ExpanderAddr > 0x27 {
		return fmt.Errorf("board %s: expander address 0x%02x outside 0x20-0x27", b.Name, b.ExpanderAddr)
	}
	if b.Drive != DriveTask && b.Drive != DriveTimer {
		return fmt.Errorf("board %s: unknown drive %q", b.Name, b.Drive)
	}
	if b.IntervalMs <= 0 {
		return fmt.Errorf("board %s: interval must be positive, got %dms", b.Name, b.IntervalMs)
	}
	if b.VolumeUpPin == b.VolumeDnPin {
		return fmt.Errorf("board %s: volume keys share pin %d", b.Name, b.VolumeUpPin)
	}
	if err := ValidateDirection(b.DirA, b.DirB, b.Inputs()...); err != nil {
		return fmt.Errorf("board %s: %w", b.Name, err)
	}
	for _, o := range b.Outputs {
		bank, bit, err := Resolve(o.Pin)
		if err != nil {
			return fmt.Errorf("board %s: output: %w", b.Name, err)
		}
		dir := b.DirA
		if bank == BankB {
			dir = b.DirB
		}
		if dir&(1<<bit) == 0 {
			return fmt.Errorf("board %s: output pin %d configured as input: %w", b.Name, o.Pin, ErrDirectionConflict)
		}
	}
	return nil
}
