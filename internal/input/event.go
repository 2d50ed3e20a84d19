package input

import "time"

// EventKind identifies a key event.
type EventKind int

const (
	PressDown EventKind = iota
	PressUp
	Click
)

func (k EventKind) String() string {
	switch k {
	case PressDown:
		return "press_down"
	case PressUp:
		return "press_up"
	case Click:
		return "click"
	default:
		return "unknown"
	}
}

// MarshalText encodes the kind by name.
func (k EventKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Event describes one fired key event.
type Event struct {
	Monitor string    `json:"monitor"`
	Channel string    `json:"channel"`
	Pin     int       `json:"pin"`
	Kind    EventKind `json:"kind"`
	At      time.Time `json:"at"`
}
