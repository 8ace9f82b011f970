//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

var _ Driver = (*RealDriver)(nil)

// RealDriver drives relay outputs on actual hardware using the Linux GPIO
// character device.
type RealDriver struct {
	chip      *gpiocdev.Chip
	lines     [NumChannels]*gpiocdev.Line
	activeLow bool
}

// NewRealDriver requests the two relay pins as outputs, both driven to the
// electrical OFF level. With activeLow set, logical ON drives the pin LOW —
// the usual convention for opto-isolated relay boards.
func NewRealDriver(pinR1, pinR2 int, activeLow bool) (*RealDriver, error) {
	chip, err := gpiocdev.NewChip("gpiochip0")
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	d := &RealDriver{chip: chip, activeLow: activeLow}
	off := d.level(false)

	for i, pin := range []int{pinR1, pinR2} {
		line, err := chip.RequestLine(pin, gpiocdev.AsOutput(off))
		if err != nil {
			for _, l := range d.lines[:i] {
				l.Close()
			}
			chip.Close()
			return nil, fmt.Errorf("request relay %d pin %d: %w", i+1, pin, err)
		}
		d.lines[i] = line
	}

	return d, nil
}

// Set drives the output for channel to the level implied by on and the
// configured polarity.
func (d *RealDriver) Set(channel int, on bool) error {
	if channel < 0 || channel >= NumChannels {
		return fmt.Errorf("channel %d out of range", channel)
	}
	if err := d.lines[channel].SetValue(d.level(on)); err != nil {
		return fmt.Errorf("set relay %d: %w", channel+1, err)
	}
	return nil
}

// Close drives both channels to the OFF level before releasing, so the
// relays are never left energized by a restart or shutdown. The pins stay
// configured as outputs; reverting to input would float active-low boards
// into an undefined (possibly ON) state.
func (d *RealDriver) Close() error {
	var errs []error

	off := d.level(false)
	for i, line := range d.lines {
		if line == nil {
			continue
		}
		if err := line.SetValue(off); err != nil {
			errs = append(errs, fmt.Errorf("park relay %d: %w", i+1, err))
		}
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close relay %d pin: %w", i+1, err))
		}
	}
	if d.chip != nil {
		if err := d.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// level maps a logical state to an electrical level (XOR with polarity).
func (d *RealDriver) level(on bool) int {
	if on != d.activeLow {
		return 1
	}
	return 0
}
