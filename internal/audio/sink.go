// Package audio provides the output-level sinks the volume controller pushes to.
package audio

import (
	"context"
	"log/slog"
	"sync"
)

// LogSink records the level and logs it. It stands in for real audio output
// when running without hardware.
type LogSink struct {
	mu    sync.Mutex
	level int
	calls int
}

// NewLogSink creates a LogSink.
func NewLogSink() *LogSink { return &LogSink{level: -1} }

func (s *LogSink) SetOutputVolume(ctx context.Context, percent int) error {
	s.mu.Lock()
	s.level = percent
	s.calls++
	s.mu.Unlock()
	slog.Info("audio: output volume", "percent", percent)
	return nil
}

// Level returns the last level pushed, or -1 if none was.
func (s *LogSink) Level() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.level
}

// Calls returns how many times the level was pushed.
func (s *LogSink) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
