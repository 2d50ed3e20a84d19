package models

import "fmt"

// Volume defaults.
const (
	DefaultVolume     = 70
	DefaultVolumeStep = 5
	MinVolume         = 0
	MaxVolume         = 100
)

// DefaultSettings returns the settings used when no config file is found.
func DefaultSettings() Settings {
	return Settings{
		Volume:     DefaultVolume,
		VolumeStep: DefaultVolumeStep,
		VolumeMin:  MinVolume,
		VolumeMax:  MaxVolume,
	}
}

// Validate checks that the volume bounds are usable and the level lies
// within them.
func (s Settings) Validate() error {
	if s.VolumeMin < MinVolume || s.VolumeMax > MaxVolume {
		return fmt.Errorf("volume bounds [%d,%d] outside [%d,%d]", s.VolumeMin, s.VolumeMax, MinVolume, MaxVolume)
	}
	if s.VolumeMin > s.VolumeMax {
		return fmt.Errorf("volume_min %d above volume_max %d", s.VolumeMin, s.VolumeMax)
	}
	if s.VolumeStep <= 0 {
		return fmt.Errorf("volume_step must be positive, got %d", s.VolumeStep)
	}
	if s.Volume < s.VolumeMin || s.Volume > s.VolumeMax {
		return fmt.Errorf("volume %d outside [%d,%d]", s.Volume, s.VolumeMin, s.VolumeMax)
	}
	return nil
}

// ClampVolume clamps a level to [lo, hi].
func ClampVolume(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
