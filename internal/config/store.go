// Package config handles loading and saving the persisted panel settings.
package config

import "github.com/micro-nova/amplipi-panel/internal/models"

// Store is the interface for persisting panel settings.
type Store interface {
	// Load loads the settings. Returns DefaultSettings if no file exists.
	Load() (*models.Settings, error)

	// Save persists the settings. Implementations may debounce rapid saves.
	Save(s *models.Settings) error

	// Path returns the file path used by this store.
	Path() string

	// Flush forces an immediate write of any pending settings.
	Flush() error
}
