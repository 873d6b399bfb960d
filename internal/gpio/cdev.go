//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// Chip is an open GPIO character device from which lines are requested.
// One chip handle serves every sensor line on that controller.
type Chip struct {
	chip *gpiocdev.Chip
}

// OpenChip opens the named GPIO character device, e.g. "gpiochip0".
func OpenChip(name string) (*Chip, error) {
	c, err := gpiocdev.NewChip(name)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", name, err)
	}
	return &Chip{chip: c}, nil
}

// Line requests the line at the given offset, initially configured as
// input with the bus pull-up so the sensor sees an idle bus.
func (c *Chip) Line(pin int) (*CdevLine, error) {
	l, err := c.chip.RequestLine(pin, gpiocdev.AsInput, gpiocdev.WithPullUp)
	if err != nil {
		return nil, fmt.Errorf("request line %d: %w", pin, err)
	}
	return &CdevLine{line: l}, nil
}

// Close releases the chip handle. Lines already requested from it stay
// valid and are closed individually.
func (c *Chip) Close() error {
	return c.chip.Close()
}

// CdevLine drives one GPIO line through the Linux character device.
// Every mode switch and read crosses a syscall, which leaves less timing
// margin than the periph backend; prefer periph on Raspberry Pi hardware.
type CdevLine struct {
	line *gpiocdev.Line
}

// SetInput reconfigures the line as input with the given bias.
func (l *CdevLine) SetInput(pull Pull) error {
	switch pull {
	case PullUp:
		return l.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullUp)
	case PullDown:
		return l.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown)
	default:
		return l.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithBiasDisabled)
	}
}

// SetOutput reconfigures the line as output driving level.
func (l *CdevLine) SetOutput(level Level) error {
	v := 0
	if level == High {
		v = 1
	}
	return l.line.Reconfigure(gpiocdev.AsOutput(v))
}

// Read samples the line. A device error reads as Low; the protocol's
// timeouts report it as a failed phase.
func (l *CdevLine) Read() Level {
	v, err := l.line.Value()
	if err != nil {
		return Low
	}
	return v != 0
}

// Close releases the line, reconfiguring it as input with the pull-up
// first so the bus idles high for the next requester.
func (l *CdevLine) Close() error {
	if err := l.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullUp); err != nil {
		l.line.Close()
		return fmt.Errorf("release line: %w", err)
	}
	return l.line.Close()
}
