// Package input turns periodic line samples into key events.
//
// A Monitor samples a set of lines at a fixed interval and runs a two-state
// machine per line: a change from released to pressed fires PressDown, a change
// back fires PressUp and then Click. The sampling interval is the only debounce
// filter. Events are delivered synchronously to each line's Dispatch.
package input

import "sync"

// Dispatch holds the callbacks for one key. Registering a callback replaces the
// previous one for that kind; nil clears it. Callbacks run in the sampling
// goroutine and must return quickly.
type Dispatch struct {
	mu        sync.RWMutex
	pressDown func()
	pressUp   func()
	click     func()
}

// NewDispatch returns a Dispatch with no callbacks registered.
func NewDispatch() *Dispatch { return &Dispatch{} }

// OnPressDown sets the callback fired when the key goes down.
func (d *Dispatch) OnPressDown(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pressDown = fn
}

// OnPressUp sets the callback fired when the key is released.
func (d *Dispatch) OnPressUp(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pressUp = fn
}

// OnClick sets the callback fired after every completed press and release.
func (d *Dispatch) OnClick(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.click = fn
}

// Fire invokes the callback registered for kind, if any.
func (d *Dispatch) Fire(kind EventKind) {
	if d == nil {
		return
	}
	d.mu.RLock()
	var fn func()
	switch kind {
	case PressDown:
		fn = d.pressDown
	case PressUp:
		fn = d.pressUp
	case Click:
		fn = d.click
	}
	d.mu.RUnlock()
	if fn != nil {
		fn()
	}
}
