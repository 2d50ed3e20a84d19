// Package identity provides the hostname and version reported by the panel.
package identity

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

// DefaultVersion is the fallback version string when metadata.json is not found.
const DefaultVersion = "0.1.0"

// Info holds system identity information.
type Info struct {
	Hostname string
	Version  string
}

// Get returns the identity, reading metadata.json from configDir.
func Get(configDir string) Info {
	return Info{Hostname: GetHostname(), Version: GetVersionFromDir(configDir)}
}

// GetHostname returns the short system hostname.
func GetHostname() string {
	h, err := os.Hostname()
	if err != nil || h == "" {
		return "amplipi-panel"
	}
	if i := strings.IndexByte(h, '.'); i > 0 {
		h = h[:i]
	}
	return h
}

// GetVersionFromDir reads the version from metadata.json in dir.
// If dir is empty, uses ~/.config/amplipi-panel.
func GetVersionFromDir(dir string) string {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return DefaultVersion
		}
		dir = filepath.Join(home, ".config", "amplipi-panel")
	}

	data, err := os.ReadFile(filepath.Join(dir, "metadata.json"))
	if err != nil {
		return DefaultVersion
	}

	var meta map[string]interface{}
	if err := json.Unmarshal(data, &meta); err != nil {
		return DefaultVersion
	}

	if v, ok := meta["version"].(string); ok && v != "" {
		return v
	}
	return DefaultVersion
}
