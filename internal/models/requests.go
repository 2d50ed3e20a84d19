package models

// VolumeUpdate is the PATCH body for /api/volume. Exactly one of Level or
// Delta must be set.
type VolumeUpdate struct {
	Level *int `json:"level,omitempty"`
	Delta *int `json:"delta,omitempty"`
}

// DeviceUpdate is the PATCH body for /api/device, used to drive the lifecycle
// without the boot key.
type DeviceUpdate struct {
	State DeviceState `json:"device_state"`
}
