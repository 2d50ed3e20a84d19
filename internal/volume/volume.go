// Package volume keeps the output level of the panel within its bounds and
// pushes every change to an audio sink.
package volume

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// ErrInvalidConfig is returned by New for inconsistent bounds or step.
var ErrInvalidConfig = errors.New("invalid volume config")

// Sink receives the output level in percent.
type Sink interface {
	SetOutputVolume(ctx context.Context, percent int) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, percent int) error

func (f SinkFunc) SetOutputVolume(ctx context.Context, percent int) error { return f(ctx, percent) }

// Notifier shows a short text for a while, such as a gauge on the panel display.
type Notifier interface {
	ShowNotification(text string, d time.Duration)
}

// Config holds the level bounds.
type Config struct {
	Initial int `json:"initial"`
	Step    int `json:"step"`
	Min     int `json:"min"`
	Max     int `json:"max"`
}

// DefaultConfig returns 70% with steps of 5 in [0,100].
func DefaultConfig() Config {
	return Config{Initial: 70, Step: 5, Min: 0, Max: 100}
}

// Validate checks the bounds. Levels are percentages, so the bounds must lie
// in [0,100].
func (c Config) Validate() error {
	if c.Min < 0 || c.Max > 100 {
		return fmt.Errorf("%w: bounds [%d,%d] outside [0,100]", ErrInvalidConfig, c.Min, c.Max)
	}
	if c.Min > c.Max {
		return fmt.Errorf("%w: min %d above max %d", ErrInvalidConfig, c.Min, c.Max)
	}
	if c.Step <= 0 {
		return fmt.Errorf("%w: step must be positive, got %d", ErrInvalidConfig, c.Step)
	}
	if c.Initial < c.Min || c.Initial > c.Max {
		return fmt.Errorf("%w: initial %d outside [%d,%d]", ErrInvalidConfig, c.Initial, c.Min, c.Max)
	}
	return nil
}

const (
	// GaugeSegments is the default gauge width.
	GaugeSegments = 10
	// NotifyDuration is how long a level change stays on the display.
	NotifyDuration = 2 * time.Second
)

// Option configures a Controller.
type Option func(*Controller)

// WithNotifier shows a gauge after every change.
func WithNotifier(n Notifier) Option {
	return func(c *Controller) { c.notifier = n }
}

// WithOnChange registers fn to run after every push, with the new level.
// fn runs with the controller lock held and must not call back into it.
func WithOnChange(fn func(int)) Option {
	return func(c *Controller) { c.onChange = fn }
}

// Controller holds the current level. All methods are safe for concurrent use;
// every change and its sink push happen under one lock.
type Controller struct {
	mu       sync.Mutex
	cfg      Config
	v        int
	sink     Sink
	notifier Notifier
	onChange func(int)
}

// New creates a controller at cfg.Initial. The sink is not called until the
// first change.
func New(cfg Config, sink Sink, opts ...Option) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if sink == nil {
		return nil, fmt.Errorf("%w: nil sink", ErrInvalidConfig)
	}
	c := &Controller{cfg: cfg, v: cfg.Initial, sink: sink}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Config returns the current bounds.
func (c *Controller) Config() Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

// Reconfigure replaces the bounds and step and moves the level to
// cfg.Initial. The old config is kept if cfg is invalid.
func (c *Controller) Reconfigure(ctx context.Context, cfg Config) (int, error) {
	if err := cfg.Validate(); err != nil {
		return c.CurrentVolume(), err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg = cfg
	return c.apply(ctx, cfg.Initial)
}

// IncreaseVolume raises the level by one step, clamped to the maximum, and
// pushes the result to the sink even when it did not change.
func (c *Controller) IncreaseVolume(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.apply(ctx, saturate(c.v, c.cfg.Step, c.cfg.Min, c.cfg.Max))
}

// DecreaseVolume lowers the level by one step, clamped to the minimum, and
// pushes the result to the sink even when it did not change.
func (c *Controller) DecreaseVolume(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.apply(ctx, saturate(c.v, -c.cfg.Step, c.cfg.Min, c.cfg.Max))
}

// AdjustVolume moves the level by delta, saturating at the bounds.
func (c *Controller) AdjustVolume(ctx context.Context, delta int) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.apply(ctx, saturate(c.v, delta, c.cfg.Min, c.cfg.Max))
}

// SetVolume sets an absolute level, clamped to the bounds.
func (c *Controller) SetVolume(ctx context.Context, v int) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.apply(ctx, v)
}

// CurrentVolume returns the level.
func (c *Controller) CurrentVolume() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.v
}

// Announce shows the current level without a gauge, as done at boot.
func (c *Controller) Announce() {
	c.mu.Lock()
	v := c.v
	c.mu.Unlock()
	if c.notifier != nil {
		c.notifier.ShowNotification(fmt.Sprintf("Volume: %d%%", v), NotifyDuration)
	}
}

// apply must be called with c.mu held. The level is kept even if the sink
// fails; the sink error is returned to the caller.
func (c *Controller) apply(ctx context.Context, v int) (int, error) {
	c.v = clamp(v, c.cfg.Min, c.cfg.Max)
	if err := c.sink.SetOutputVolume(ctx, c.v); err != nil {
		slog.Warn("volume: sink rejected level", "volume", c.v, "err", err)
		return c.v, fmt.Errorf("volume: set output %d%%: %w", c.v, err)
	}
	slog.Debug("volume: level set", "volume", c.v)
	if c.notifier != nil {
		c.notifier.ShowNotification(NotificationText(c.v), NotifyDuration)
	}
	if c.onChange != nil {
		c.onChange(c.v)
	}
	return c.v, nil
}

// saturate returns v+d clamped to [lo,hi] without overflowing. v must already
// be within [lo,hi].
func saturate(v, d, lo, hi int) int {
	if d >= 0 {
		if d > hi-v {
			return hi
		}
	} else if d < lo-v {
		return lo
	}
	return clamp(v+d, lo, hi)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// NotificationText is the text shown after a level change.
func NotificationText(v int) string {
	return fmt.Sprintf("Volume: %d%%\n%s", v, RenderGauge(v, GaugeSegments))
}

// RenderGauge draws v (0-100) as total segments: floor(v*total/100) filled
// followed by the empty rest, in brackets. Levels outside 0-100 are clamped.
func RenderGauge(v, total int) string {
	if total <= 0 {
		return "[]"
	}
	filled := clamp(v, 0, 100) * total / 100
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(strings.Repeat("■", filled))
	b.WriteString(strings.Repeat("□", total-filled))
	b.WriteString("]")
	return b.String()
}
