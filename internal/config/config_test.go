package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/micro-nova/amplipi-panel/internal/config"
	"github.com/micro-nova/amplipi-panel/internal/models"
)

// --- JSONStore tests ---

func TestJSONStore_LoadMissingFile_ReturnsDefault(t *testing.T) {
	store := config.NewJSONStore(t.TempDir())

	s, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}
	if *s != models.DefaultSettings() {
		t.Errorf("Load() = %+v, want defaults", *s)
	}
}

func TestJSONStore_SaveLoadRoundTrip(t *testing.T) {
	store := config.NewJSONStore(t.TempDir())

	s := models.DefaultSettings()
	s.Volume = 35
	s.Board = "panel-v1"
	if err := store.Save(&s); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := store.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Volume != 35 || loaded.Board != "panel-v1" {
		t.Errorf("Load() = %+v", *loaded)
	}
}

func TestJSONStore_CorruptJSON_ReturnsDefault(t *testing.T) {
	dir := t.TempDir()
	store := config.NewJSONStore(dir)
	path := filepath.Join(dir, "panel.json")
	if err := os.WriteFile(path, []byte("{invalid json!!!"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	s, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}
	if *s != models.DefaultSettings() {
		t.Errorf("Load() = %+v, want defaults", *s)
	}
}

func TestJSONStore_DebouncedSave(t *testing.T) {
	dir := t.TempDir()
	store := config.NewJSONStore(dir)

	for v := 50; v <= 60; v += 5 {
		s := models.DefaultSettings()
		s.Volume = v
		store.Save(&s)
	}
	if _, err := os.Stat(store.Path()); !os.IsNotExist(err) {
		t.Fatalf("file written before debounce delay: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(store.Path()); err == nil {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}
	loaded, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Volume != 60 {
		t.Errorf("Volume = %d, want 60 (last save wins)", loaded.Volume)
	}
}

func TestJSONStore_FlushWithoutSave(t *testing.T) {
	store := config.NewJSONStore(t.TempDir())
	if err := store.Flush(); err != nil {
		t.Errorf("Flush() = %v, want nil", err)
	}
}

func TestJSONStore_Migration(t *testing.T) {
	tests := []struct {
		name string
		data string
		want models.Settings
	}{
		{
			"volume only",
			`{"volume": 40}`,
			models.Settings{Volume: 40, VolumeStep: 5, VolumeMin: 0, VolumeMax: 100},
		},
		{
			"volume above max",
			`{"volume": 140, "volume_step": 10, "volume_min": 0, "volume_max": 100}`,
			models.Settings{Volume: 100, VolumeStep: 10, VolumeMin: 0, VolumeMax: 100},
		},
		{
			"inverted bounds",
			`{"volume": 50, "volume_step": 5, "volume_min": 80, "volume_max": 20}`,
			models.Settings{Volume: 50, VolumeStep: 5, VolumeMin: 0, VolumeMax: 100},
		},
		{
			"bounds beyond percent",
			`{"volume": 150, "volume_step": 5, "volume_min": -20, "volume_max": 300}`,
			models.Settings{Volume: 100, VolumeStep: 5, VolumeMin: 0, VolumeMax: 100},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			if err := os.WriteFile(filepath.Join(dir, "panel.json"), []byte(tc.data), 0644); err != nil {
				t.Fatal(err)
			}
			got, err := config.NewJSONStore(dir).Load()
			if err != nil {
				t.Fatal(err)
			}
			if *got != tc.want {
				t.Errorf("Load() = %+v, want %+v", *got, tc.want)
			}
		})
	}
}

// --- MemStore tests ---

func TestMemStore(t *testing.T) {
	m := config.NewMemStore()
	s, _ := m.Load()
	if *s != models.DefaultSettings() {
		t.Errorf("initial Load() = %+v", *s)
	}
	s.Volume = 10
	m.Save(s)
	s.Volume = 99 // must not leak into the store

	got, _ := m.Load()
	if got.Volume != 10 {
		t.Errorf("Volume = %d, want 10", got.Volume)
	}
	if m.Saves() != 1 {
		t.Errorf("Saves = %d, want 1", m.Saves())
	}
	if m.Path() != ":memory:" {
		t.Errorf("Path = %q", m.Path())
	}
}
