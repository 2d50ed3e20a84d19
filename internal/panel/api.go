package panel

import (
	"context"
	"errors"
	"fmt"

	"github.com/micro-nova/amplipi-panel/internal/hardware"
	"github.com/micro-nova/amplipi-panel/internal/models"
	"github.com/micro-nova/amplipi-panel/internal/volume"
)

// State returns a snapshot of the panel for the API.
func (p *Panel) State() models.State {
	cfg := p.vol.Config()
	level := p.vol.CurrentVolume()

	p.mu.RLock()
	keys := make([]models.Key, 0, len(p.keyOrder))
	for _, name := range p.keyOrder {
		keys = append(keys, *p.keyState[name])
	}
	device := p.device
	p.mu.RUnlock()

	return models.State{
		Volume: models.Volume{
			Level: level,
			Min:   cfg.Min,
			Max:   cfg.Max,
			Step:  cfg.Step,
			Gauge: volume.RenderGauge(level, volume.GaugeSegments),
		},
		Keys:    keys,
		Device:  device,
		Monitor: p.Stats(),
		Info:    p.Info(),
	}
}

// Info returns the static system information.
func (p *Panel) Info() models.Info {
	b := p.opts.Board
	return models.Info{
		Version:  p.opts.Version,
		Hostname: p.opts.Hostname,
		Board:    b.Name,
		Expander: p.exp.String(),
		Drive:    b.Drive,
		Interval: b.Interval().String(),
	}
}

// Pins reads both expander input banks.
func (p *Panel) Pins(ctx context.Context) (models.Pins, *models.AppError) {
	s, err := p.exp.Snapshot(ctx)
	if err != nil {
		return models.Pins{}, hardwareError(err)
	}
	out := models.Pins{
		PortA:  fmt.Sprintf("0x%02x", s.PortA),
		PortB:  fmt.Sprintf("0x%02x", s.PortB),
		Active: []int{},
	}
	for pin, active := range s.Active {
		if active {
			out.Active = append(out.Active, pin)
		}
	}
	return out, nil
}

// StepVolume raises or lowers the volume by one step, as the keys do.
func (p *Panel) StepVolume(ctx context.Context, up bool) (models.State, *models.AppError) {
	var err error
	if up {
		_, err = p.vol.IncreaseVolume(ctx)
	} else {
		_, err = p.vol.DecreaseVolume(ctx)
	}
	if err != nil {
		return models.State{}, models.ErrInternal(err.Error())
	}
	return p.State(), nil
}

// UpdateVolume applies an absolute level or a relative delta.
func (p *Panel) UpdateVolume(ctx context.Context, upd models.VolumeUpdate) (models.State, *models.AppError) {
	var err error
	switch {
	case upd.Level != nil && upd.Delta != nil:
		return models.State{}, models.ErrBadRequest("set either level or delta, not both")
	case upd.Level != nil:
		_, err = p.vol.SetVolume(ctx, *upd.Level)
	case upd.Delta != nil:
		_, err = p.vol.AdjustVolume(ctx, *upd.Delta)
	default:
		return models.State{}, models.ErrBadRequest("level or delta required")
	}
	if err != nil {
		return models.State{}, models.ErrInternal(err.Error())
	}
	return p.State(), nil
}

// SetDeviceState drives the lifecycle as the boot key would: "idle" ends
// the starting phase or stops listening, "listening" starts listening.
func (p *Panel) SetDeviceState(ctx context.Context, s models.DeviceState) (models.State, *models.AppError) {
	switch s {
	case models.DeviceIdle:
		if !p.setDevice(models.DeviceIdle, models.DeviceStarting) &&
			p.setDevice(models.DeviceIdle, models.DeviceListening) {
			p.opts.Lifecycle.StopListening()
		}
	case models.DeviceListening:
		if p.Device() == models.DeviceStarting {
			return models.State{}, models.ErrConflict("device is still starting")
		}
		if p.setDevice(models.DeviceListening, models.DeviceIdle) {
			p.opts.Lifecycle.StartListening()
		}
	default:
		return models.State{}, models.ErrBadRequest(fmt.Sprintf("unsupported device_state %q", s))
	}
	return p.State(), nil
}

// DisplayPNG returns the current display frame.
func (p *Panel) DisplayPNG() ([]byte, *models.AppError) {
	if p.opts.Frame == nil {
		return nil, models.ErrNotFound("no display frame configured")
	}
	data, err := p.opts.Frame.PNG()
	if err != nil {
		return nil, models.ErrInternal(err.Error())
	}
	return data, nil
}

func hardwareError(err error) *models.AppError {
	if hardware.IsHardwareFault(err) || errors.Is(err, context.DeadlineExceeded) {
		return models.ErrHardwareFault(err.Error())
	}
	return models.ErrInternal(err.Error())
}
