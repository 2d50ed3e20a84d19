//go:build !linux

package hardware

import (
	"context"
	"errors"
)

// HostLines is not available on non-Linux platforms.
type HostLines struct{}

// OpenHostLines returns an error on non-Linux platforms.
func OpenHostLines(chip string, offsets ...int) (*HostLines, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// ReadBit is not implemented on non-Linux platforms.
func (h *HostLines) ReadBit(ctx context.Context, pin int) (bool, error) {
	return false, errors.New("gpio: not supported")
}

// Close is a no-op on non-Linux platforms.
func (h *HostLines) Close() error { return nil }
