package config

import (
	"log/slog"

	"github.com/micro-nova/amplipi-panel/internal/models"
)

// migrateSettings fills in defaults for fields missing from older config
// files and pulls an out-of-range level back inside its bounds.
func migrateSettings(s *models.Settings) {
	def := models.DefaultSettings()

	if s.VolumeMin == 0 && s.VolumeMax == 0 {
		s.VolumeMin = def.VolumeMin
		s.VolumeMax = def.VolumeMax
	}
	if s.VolumeMin > s.VolumeMax || s.VolumeMin < models.MinVolume || s.VolumeMax > models.MaxVolume {
		slog.Warn("config: invalid volume bounds, using defaults",
			"min", s.VolumeMin, "max", s.VolumeMax)
		s.VolumeMin = def.VolumeMin
		s.VolumeMax = def.VolumeMax
	}
	if s.VolumeStep <= 0 {
		s.VolumeStep = def.VolumeStep
	}
	if v := models.ClampVolume(s.Volume, s.VolumeMin, s.VolumeMax); v != s.Volume {
		slog.Warn("config: volume out of range, clamping", "volume", s.Volume, "clamped", v)
		s.Volume = v
	}
}
