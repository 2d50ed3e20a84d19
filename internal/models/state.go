// Package models defines the data structures shared by the panel daemon, its
// HTTP API and its event feeds.
package models

import "time"

// DeviceState is the lifecycle phase of the host application as driven by
// the boot key.
type DeviceState string

const (
	DeviceStarting  DeviceState = "starting"
	DeviceIdle      DeviceState = "idle"
	DeviceListening DeviceState = "listening"
)

// Key is the observed state of one panel key.
type Key struct {
	Name    string `json:"name"`
	Pin     int    `json:"pin"`
	Pressed bool   `json:"pressed"`
	Clicks  uint64 `json:"clicks"`
}

// Volume is the output level and its bounds.
type Volume struct {
	Level int    `json:"level"`
	Min   int    `json:"min"`
	Max   int    `json:"max"`
	Step  int    `json:"step"`
	Gauge string `json:"gauge"`
}

// MonitorStats mirrors the sampler counters.
type MonitorStats struct {
	Samples uint64 `json:"samples"`
	Faults  uint64 `json:"faults"`
	Events  uint64 `json:"events"`
}

// Info is the system information response.
type Info struct {
	Version  string `json:"version"`
	Hostname string `json:"hostname"`
	Board    string `json:"board"`
	Expander string `json:"expander"`
	Drive    string `json:"drive"`
	Interval string `json:"interval"`
}

// State is the complete panel state returned by GET /api.
type State struct {
	Volume  Volume       `json:"volume"`
	Keys    []Key        `json:"keys"`
	Device  DeviceState  `json:"device_state"`
	Monitor MonitorStats `json:"monitor"`
	Info    Info         `json:"info"`
}

// Event types.
const (
	EventKey       = "key"
	EventVolume    = "volume"
	EventLifecycle = "lifecycle"
)

// Event is one thing that happened on the panel, as published to event
// subscribers and MQTT.
type Event struct {
	Type   string      `json:"type"`
	Key    string      `json:"key,omitempty"`
	Pin    *int        `json:"pin,omitempty"`
	Kind   string      `json:"kind,omitempty"`
	Volume *int        `json:"volume,omitempty"`
	Device DeviceState `json:"device_state,omitempty"`
	At     time.Time   `json:"at"`
}

// Settings is the persisted panel configuration.
type Settings struct {
	Volume     int    `json:"volume"`
	VolumeStep int    `json:"volume_step"`
	VolumeMin  int    `json:"volume_min"`
	VolumeMax  int    `json:"volume_max"`
	Board      string `json:"board,omitempty"`
}

// Pins is a decoded dump of both expander input banks.
type Pins struct {
	PortA  string `json:"port_a"`
	PortB  string `json:"port_b"`
	Active []int  `json:"active"` // pins currently pulled low
}
