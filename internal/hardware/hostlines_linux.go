//go:build linux

package hardware

import (
	"context"
	"fmt"
	"sync"

	"github.com/warthog618/go-gpiocdev"
)

// HostLines reads host GPIO lines (outside the expander) through the Linux
// GPIO character device. Lines are requested as inputs with pull-ups, so a
// key shorting the line to ground reads as active.
type HostLines struct {
	mu    sync.Mutex
	chip  *gpiocdev.Chip
	lines map[int]*gpiocdev.Line
}

// OpenHostLines requests the given line offsets on chip (e.g. "gpiochip0").
func OpenHostLines(chip string, offsets ...int) (*HostLines, error) {
	c, err := gpiocdev.NewChip(chip, gpiocdev.WithConsumer("amplipi-panel"))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", chip, err)
	}
	h := &HostLines{chip: c, lines: make(map[int]*gpiocdev.Line)}
	for _, off := range offsets {
		l, err := c.RequestLine(off, gpiocdev.AsInput, gpiocdev.WithPullUp)
		if err != nil {
			h.Close()
			return nil, fmt.Errorf("request line %d: %w", off, err)
		}
		h.lines[off] = l
	}
	return h, nil
}

// ReadBit returns true when the line is electrically low.
func (h *HostLines) ReadBit(ctx context.Context, pin int) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	l, ok := h.lines[pin]
	if !ok {
		return false, fmt.Errorf("gpio: line %d: %w", pin, ErrInvalidPin)
	}
	v, err := l.Value()
	if err != nil {
		return false, fmt.Errorf("gpio: read line %d: %w", pin, err)
	}
	return v == 0, nil
}

// Close releases all requested lines and the chip.
func (h *HostLines) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	var errs []error
	for off, l := range h.lines {
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close line %d: %w", off, err))
		}
	}
	h.lines = map[int]*gpiocdev.Line{}
	if h.chip != nil {
		if err := h.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
		h.chip = nil
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
