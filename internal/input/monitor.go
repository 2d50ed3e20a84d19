package input

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Lifecycle errors.
var (
	ErrStopped = errors.New("monitor stopped")
	ErrRunning = errors.New("monitor already running")
)

// LineReader samples one line. It returns true when the line is asserted
// (pressed). The expander and host GPIO lines both satisfy it.
type LineReader interface {
	ReadBit(ctx context.Context, pin int) (bool, error)
}

// Drive selects how a Monitor schedules its samples.
type Drive string

const (
	// DriveTask samples every channel in order from one goroutine.
	DriveTask Drive = "task"
	// DriveTimer gives every channel its own ticker and goroutine.
	DriveTimer Drive = "timer"
)

// Config configures a Monitor.
type Config struct {
	Name     string        // used in logs and events
	Interval time.Duration // sampling period, also the only debounce filter
	Drive    Drive

	// Baseline makes the first successful sample of each channel seed its
	// level without firing events. Without it every channel starts released.
	Baseline bool

	// OnEvent, if set, sees every event before the channel's Dispatch does.
	OnEvent func(Event)
}

// Channel is one sampled line and where its events go.
type Channel struct {
	Name     string
	Pin      int
	Dispatch *Dispatch
}

// Stats counts what a Monitor has done so far.
type Stats struct {
	Samples uint64 `json:"samples"`
	Faults  uint64 `json:"faults"`
	Events  uint64 `json:"events"`
}

type monitorState int

const (
	stateIdle monitorState = iota
	stateRunning
	stateStopped
)

type channel struct {
	Channel
	mu      sync.Mutex
	pressed bool
	seeded  bool
}

// Monitor periodically samples a set of lines and fires key events on level
// changes. A Monitor is single use: once stopped it cannot be restarted.
type Monitor struct {
	reader   LineReader
	cfg      Config
	channels []*channel

	mu     sync.Mutex
	state  monitorState
	cancel context.CancelFunc
	wg     sync.WaitGroup

	samples atomic.Uint64
	faults  atomic.Uint64
	events  atomic.Uint64

	faultLog rate.Sometimes
}

// NewMonitor creates a monitor over channels. Nothing is sampled until Start
// or Poll is called.
func NewMonitor(r LineReader, cfg Config, channels []Channel) (*Monitor, error) {
	if r == nil {
		return nil, fmt.Errorf("monitor %s: nil line reader", cfg.Name)
	}
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("monitor %s: interval must be positive, got %s", cfg.Name, cfg.Interval)
	}
	switch cfg.Drive {
	case DriveTask, DriveTimer:
	case "":
		cfg.Drive = DriveTask
	default:
		return nil, fmt.Errorf("monitor %s: unknown drive %q", cfg.Name, cfg.Drive)
	}
	m := &Monitor{
		reader:   r,
		cfg:      cfg,
		faultLog: rate.Sometimes{First: 3, Interval: 10 * time.Second},
	}
	seen := make(map[int]bool, len(channels))
	for _, c := range channels {
		if seen[c.Pin] {
			return nil, fmt.Errorf("monitor %s: pin %d listed twice", cfg.Name, c.Pin)
		}
		seen[c.Pin] = true
		if c.Name == "" {
			c.Name = fmt.Sprintf("pin%d", c.Pin)
		}
		m.channels = append(m.channels, &channel{Channel: c})
	}
	return m, nil
}

// Name returns the configured monitor name.
func (m *Monitor) Name() string { return m.cfg.Name }

// Start launches the sampling goroutines.
func (m *Monitor) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch m.state {
	case stateRunning:
		return ErrRunning
	case stateStopped:
		return ErrStopped
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.state = stateRunning

	switch m.cfg.Drive {
	case DriveTimer:
		for _, ch := range m.channels {
			m.wg.Add(1)
			go m.runTimer(ctx, ch)
		}
	default:
		m.wg.Add(1)
		go m.runTask(ctx)
	}
	slog.Info("monitor: started",
		"name", m.cfg.Name,
		"drive", m.cfg.Drive,
		"interval", m.cfg.Interval,
		"channels", len(m.channels))
	return nil
}

// Stop halts sampling and waits for every in-flight sample to finish. Once
// Stop returns no callback of this monitor runs again. Stop must not be called
// from a callback of the same monitor.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if m.state == stateStopped {
		m.mu.Unlock()
		return
	}
	wasRunning := m.state == stateRunning
	m.state = stateStopped
	if m.cancel != nil {
		m.cancel()
	}
	m.mu.Unlock()

	m.wg.Wait()
	if wasRunning {
		slog.Info("monitor: stopped", "name", m.cfg.Name)
	}
}

// Poll runs one sampling pass over every channel in order, as one tick of the
// task drive does. It returns ErrStopped once the monitor has been stopped.
func (m *Monitor) Poll(ctx context.Context) error {
	m.mu.Lock()
	if m.state == stateStopped {
		m.mu.Unlock()
		return ErrStopped
	}
	m.wg.Add(1)
	m.mu.Unlock()
	defer m.wg.Done()

	for _, ch := range m.channels {
		if err := ctx.Err(); err != nil {
			return err
		}
		m.sample(ctx, ch)
	}
	return nil
}

// Stats returns a snapshot of the monitor counters.
func (m *Monitor) Stats() Stats {
	return Stats{
		Samples: m.samples.Load(),
		Faults:  m.faults.Load(),
		Events:  m.events.Load(),
	}
}

func (m *Monitor) runTask(ctx context.Context) {
	defer m.wg.Done()
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, ch := range m.channels {
				if ctx.Err() != nil {
					return
				}
				m.sample(ctx, ch)
			}
		}
	}
}

func (m *Monitor) runTimer(ctx context.Context, ch *channel) {
	defer m.wg.Done()
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.sample(ctx, ch)
		}
	}
}

// sample reads one channel and fires events for a level change. A failed read
// leaves the channel state untouched.
func (m *Monitor) sample(ctx context.Context, ch *channel) {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	pressed, err := m.reader.ReadBit(ctx, ch.Pin)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		m.faults.Add(1)
		m.faultLog.Do(func() {
			slog.Warn("monitor: sample failed",
				"name", m.cfg.Name,
				"channel", ch.Name,
				"pin", ch.Pin,
				"faults", m.faults.Load(),
				"err", err)
		})
		return
	}
	m.samples.Add(1)

	if m.cfg.Baseline && !ch.seeded {
		ch.seeded = true
		ch.pressed = pressed
		return
	}
	ch.seeded = true
	if pressed == ch.pressed {
		return
	}
	ch.pressed = pressed
	if pressed {
		m.emit(ch, PressDown)
		return
	}
	m.emit(ch, PressUp)
	m.emit(ch, Click)
}

func (m *Monitor) emit(ch *channel, kind EventKind) {
	m.events.Add(1)
	slog.Debug("monitor: event", "name", m.cfg.Name, "channel", ch.Name, "kind", kind)
	if m.cfg.OnEvent != nil {
		m.cfg.OnEvent(Event{
			Monitor: m.cfg.Name,
			Channel: ch.Name,
			Pin:     ch.Pin,
			Kind:    kind,
			At:      time.Now(),
		})
	}
	ch.Dispatch.Fire(kind)
}
