// Package auth implements API-key authentication for the panel HTTP API.
// Keys live in users.json in the config directory, which is watched and
// reloaded on change. With no keys configured the API is open.
package auth

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

const usersFileName = "users.json"

// User is one entry of users.json, keyed by user name.
type User struct {
	Type      string `json:"type"`
	AccessKey string `json:"access_key"`
}

// Service checks API keys against users.json.
type Service struct {
	mu    sync.RWMutex
	path  string
	keys  map[string]string // access key -> user name
	watch *fsnotify.Watcher
}

// NewService loads users.json from configDir and watches it for changes. A
// missing file or directory leaves the API open.
func NewService(configDir string) (*Service, error) {
	s := &Service{
		path: filepath.Join(configDir, usersFileName),
		keys: make(map[string]string),
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Warn("auth: could not create fsnotify watcher", "err", err)
		return s, nil
	}
	if err := w.Add(configDir); err != nil {
		slog.Warn("auth: could not watch config dir", "dir", configDir, "err", err)
	}
	s.watch = w
	go s.watchLoop()
	return s, nil
}

// Reload re-reads users.json. A missing file clears every key.
func (s *Service) Reload() error {
	keys := make(map[string]string)
	data, err := os.ReadFile(s.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return fmt.Errorf("auth: read %s: %w", s.path, err)
	default:
		var users map[string]User
		if err := json.Unmarshal(data, &users); err != nil {
			return fmt.Errorf("auth: parse %s: %w", s.path, err)
		}
		for name, u := range users {
			if u.AccessKey != "" {
				keys[u.AccessKey] = name
			}
		}
	}

	s.mu.Lock()
	s.keys = keys
	s.mu.Unlock()
	slog.Debug("auth: keys loaded", "count", len(keys))
	return nil
}

// IsOpenMode reports whether no user has an access key.
func (s *Service) IsOpenMode() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keys) == 0
}

// Lookup returns the user owning key. Keys are compared in constant time.
func (s *Service) Lookup(key string) (string, bool) {
	if key == "" {
		return "", false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for k, name := range s.keys {
		if subtle.ConstantTimeCompare([]byte(key), []byte(k)) == 1 {
			return name, true
		}
	}
	return "", false
}

// VerifyKey reports whether key belongs to any user.
func (s *Service) VerifyKey(key string) bool {
	_, ok := s.Lookup(key)
	return ok
}

// Close stops the file watcher.
func (s *Service) Close() {
	if s.watch != nil {
		s.watch.Close()
	}
}

func (s *Service) watchLoop() {
	for {
		select {
		case event, ok := <-s.watch.Events:
			if !ok {
				return
			}
			if event.Name != s.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				if err := s.Reload(); err != nil {
					slog.Warn("auth: failed to reload users", "err", err)
				}
			}
		case err, ok := <-s.watch.Errors:
			if !ok {
				return
			}
			slog.Warn("auth: watcher error", "err", err)
		}
	}
}
