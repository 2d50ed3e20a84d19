package panel

import "log/slog"

// Lifecycle receives the boot key actions meant for the host application.
type Lifecycle interface {
	StartListening()
	StopListening()
	ResetConfiguration()
}

// LogLifecycle only logs the boot key actions.
type LogLifecycle struct{}

func (LogLifecycle) StartListening()     { slog.Info("panel: start listening") }
func (LogLifecycle) StopListening()      { slog.Info("panel: stop listening") }
func (LogLifecycle) ResetConfiguration() { slog.Info("panel: reset configuration") }
