// Package panel wires the front panel together: the expander and its board
// outputs, the key samplers, the volume controller and the boot key, and keeps
// the state served over the API.
package panel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/i2c"

	"github.com/micro-nova/amplipi-panel/internal/config"
	"github.com/micro-nova/amplipi-panel/internal/events"
	"github.com/micro-nova/amplipi-panel/internal/hardware"
	"github.com/micro-nova/amplipi-panel/internal/input"
	"github.com/micro-nova/amplipi-panel/internal/models"
	"github.com/micro-nova/amplipi-panel/internal/volume"
)

// Key names.
const (
	KeyVolumeUp   = "volume_up"
	KeyVolumeDown = "volume_down"
	KeyBoot       = "boot"
)

// Options are the collaborators a Panel is built from. Bus, Board, Sink and
// Store are required.
type Options struct {
	Board hardware.Board
	Bus   i2c.Bus
	Sink  volume.Sink
	Store config.Store

	Events    *events.Bus      // optional
	Notifier  volume.Notifier  // optional gauge display
	Frame     FrameSource      // optional, serves /api/display.png
	BootLines input.LineReader // optional host lines carrying the boot key
	Lifecycle Lifecycle        // optional, defaults to LogLifecycle
	RateLimit float64          // expander transactions per second, 0 = unlimited
	Version   string
	Hostname  string
}

// FrameSource renders the current display frame as PNG.
type FrameSource interface {
	PNG() ([]byte, error)
}

// Panel owns the expander and everything sampling it. Close stops the
// samplers before anything they use goes away.
type Panel struct {
	opts Options
	exp  *hardware.Expander
	vol  *volume.Controller
	keys *input.Monitor
	boot *input.Monitor

	mu       sync.RWMutex
	keyState map[string]*models.Key
	keyOrder []string
	device   models.DeviceState
	settings models.Settings

	closeOnce sync.Once
}

// New initializes the expander direction registers and board outputs, restores
// the stored volume and builds the samplers. Nothing is sampled until Start.
func New(ctx context.Context, opts Options) (*Panel, error) {
	if opts.Bus == nil || opts.Sink == nil || opts.Store == nil {
		return nil, errors.New("panel: bus, sink and store are required")
	}
	if err := opts.Board.Validate(); err != nil {
		return nil, err
	}
	if opts.Lifecycle == nil {
		opts.Lifecycle = LogLifecycle{}
	}
	b := opts.Board

	settings, err := opts.Store.Load()
	if err != nil {
		return nil, fmt.Errorf("panel: load settings: %w", err)
	}
	if err := settings.Validate(); err != nil {
		slog.Warn("panel: stored settings invalid, using defaults", "err", err)
		def := models.DefaultSettings()
		settings = &def
	}
	settings.Board = b.Name

	var expOpts []hardware.ExpanderOption
	if opts.RateLimit > 0 {
		expOpts = append(expOpts, hardware.WithRateLimit(opts.RateLimit, 4))
	}
	p := &Panel{
		opts:     opts,
		exp:      hardware.NewExpander(opts.Bus, b.ExpanderAddr, expOpts...),
		keyState: make(map[string]*models.Key),
		device:   models.DeviceStarting,
		settings: *settings,
	}

	if err := p.exp.Initialize(ctx, b.DirA, b.DirB, b.Inputs()...); err != nil {
		return nil, fmt.Errorf("panel: initialize expander: %w", err)
	}
	for _, o := range b.Outputs {
		if err := p.exp.WriteBit(ctx, o.Pin, gpio.Level(o.High)); err != nil {
			return nil, fmt.Errorf("panel: drive output %d: %w", o.Pin, err)
		}
	}

	volOpts := []volume.Option{volume.WithOnChange(p.onVolume)}
	if opts.Notifier != nil {
		volOpts = append(volOpts, volume.WithNotifier(opts.Notifier))
	}
	p.vol, err = volume.New(volumeConfig(*settings), opts.Sink, volOpts...)
	if err != nil {
		return nil, fmt.Errorf("panel: %w", err)
	}

	up := input.NewDispatch()
	up.OnClick(func() { p.stepFromKey(true) })
	down := input.NewDispatch()
	down.OnClick(func() { p.stepFromKey(false) })

	p.keys, err = input.NewMonitor(p.exp, input.Config{
		Name:     "keys",
		Interval: b.Interval(),
		Drive:    input.Drive(b.Drive),
		OnEvent:  p.onKeyEvent,
	}, []input.Channel{
		{Name: KeyVolumeUp, Pin: b.VolumeUpPin, Dispatch: up},
		{Name: KeyVolumeDown, Pin: b.VolumeDnPin, Dispatch: down},
	})
	if err != nil {
		return nil, err
	}
	p.addKey(KeyVolumeUp, b.VolumeUpPin)
	p.addKey(KeyVolumeDown, b.VolumeDnPin)

	if opts.BootLines != nil && b.BootLine >= 0 {
		p.boot, err = input.NewMonitor(opts.BootLines, input.Config{
			Name:     "boot",
			Interval: b.Interval(),
			Drive:    input.DriveTask,
			OnEvent:  p.onKeyEvent,
		}, []input.Channel{{Name: KeyBoot, Pin: b.BootLine, Dispatch: p.bootDispatch()}})
		if err != nil {
			return nil, err
		}
		p.addKey(KeyBoot, b.BootLine)
	}

	slog.Info("panel: initialized",
		"board", b.Name,
		"expander", p.exp.String(),
		"volume", settings.Volume,
		"boot_key", p.boot != nil)
	return p, nil
}

// Start launches the samplers and shows the boot volume announcement.
func (p *Panel) Start() error {
	if err := p.keys.Start(); err != nil {
		return err
	}
	if p.boot != nil {
		if err := p.boot.Start(); err != nil {
			p.keys.Stop()
			return err
		}
	}
	p.vol.Announce()
	return nil
}

// MarkReady moves the device out of the starting phase. From then on the
// boot key drives listening instead of configuration reset.
func (p *Panel) MarkReady() {
	p.setDevice(models.DeviceIdle, models.DeviceStarting)
}

// Close stops the samplers, waiting for in-flight samples, then flushes the
// stored settings. The bus is left to its owner.
func (p *Panel) Close() error {
	var err error
	p.closeOnce.Do(func() {
		if p.boot != nil {
			p.boot.Stop()
		}
		p.keys.Stop()
		err = p.opts.Store.Flush()
	})
	return err
}

// Expander returns the panel's expander.
func (p *Panel) Expander() *hardware.Expander { return p.exp }

// Volume returns the volume controller.
func (p *Panel) Volume() *volume.Controller { return p.vol }

// Device returns the current lifecycle phase.
func (p *Panel) Device() models.DeviceState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.device
}

// Stats returns the combined sampler counters.
func (p *Panel) Stats() models.MonitorStats {
	s := p.keys.Stats()
	out := models.MonitorStats{Samples: s.Samples, Faults: s.Faults, Events: s.Events}
	if p.boot != nil {
		b := p.boot.Stats()
		out.Samples += b.Samples
		out.Faults += b.Faults
		out.Events += b.Events
	}
	return out
}

func (p *Panel) addKey(name string, pin int) {
	p.keyState[name] = &models.Key{Name: name, Pin: pin}
	p.keyOrder = append(p.keyOrder, name)
}

func (p *Panel) bootDispatch() *input.Dispatch {
	d := input.NewDispatch()
	d.OnPressDown(func() {
		if p.setDevice(models.DeviceListening, models.DeviceIdle) {
			p.opts.Lifecycle.StartListening()
		}
	})
	d.OnPressUp(func() {
		if p.setDevice(models.DeviceIdle, models.DeviceListening) {
			p.opts.Lifecycle.StopListening()
		}
	})
	d.OnClick(func() {
		if p.Device() == models.DeviceStarting {
			p.resetConfiguration()
		}
	})
	return d
}

// setDevice moves to next if the current phase is from.
func (p *Panel) setDevice(next, from models.DeviceState) bool {
	p.mu.Lock()
	if p.device != from {
		p.mu.Unlock()
		return false
	}
	p.device = next
	p.mu.Unlock()
	slog.Info("panel: device state", "from", from, "to", next)
	p.publish(models.Event{Type: models.EventLifecycle, Device: next})
	return true
}

func (p *Panel) resetConfiguration() {
	def := models.DefaultSettings()
	def.Board = p.opts.Board.Name
	p.mu.Lock()
	p.settings = def
	p.mu.Unlock()
	if err := p.opts.Store.Save(&def); err != nil {
		slog.Error("panel: failed to reset settings", "err", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := p.vol.Reconfigure(ctx, volumeConfig(def)); err != nil {
		slog.Warn("panel: failed to restore default volume", "err", err)
	}
	p.opts.Lifecycle.ResetConfiguration()
}

func volumeConfig(s models.Settings) volume.Config {
	return volume.Config{
		Initial: s.Volume,
		Step:    s.VolumeStep,
		Min:     s.VolumeMin,
		Max:     s.VolumeMax,
	}
}

func (p *Panel) stepFromKey(up bool) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	var err error
	if up {
		_, err = p.vol.IncreaseVolume(ctx)
	} else {
		_, err = p.vol.DecreaseVolume(ctx)
	}
	if err != nil {
		slog.Warn("panel: volume key failed", "up", up, "err", err)
	}
}

// onVolume runs under the volume controller lock.
func (p *Panel) onVolume(v int) {
	p.mu.Lock()
	p.settings.Volume = v
	s := p.settings
	p.mu.Unlock()
	if err := p.opts.Store.Save(&s); err != nil {
		slog.Warn("panel: failed to save settings", "err", err)
	}
	p.publish(models.Event{Type: models.EventVolume, Volume: &v})
}

func (p *Panel) onKeyEvent(e input.Event) {
	p.mu.Lock()
	if k, ok := p.keyState[e.Channel]; ok {
		switch e.Kind {
		case input.PressDown:
			k.Pressed = true
		case input.PressUp:
			k.Pressed = false
		case input.Click:
			k.Clicks++
		}
	}
	p.mu.Unlock()
	pin := e.Pin
	p.publish(models.Event{Type: models.EventKey, Key: e.Channel, Pin: &pin, Kind: e.Kind.String(), At: e.At})
}

func (p *Panel) publish(e models.Event) {
	if p.opts.Events == nil {
		return
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}
	p.opts.Events.Publish(e)
}
