//go:build !linux

package gpio

import "errors"

// Chip is not available on non-Linux platforms.
type Chip struct{}

// OpenChip returns an error on non-Linux platforms.
func OpenChip(name string) (*Chip, error) {
	return nil, errors.New("gpio: character device not supported on this platform (requires Linux)")
}

// Line is not implemented on non-Linux platforms.
func (c *Chip) Line(pin int) (*CdevLine, error) {
	return nil, errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (c *Chip) Close() error {
	return nil
}

// CdevLine is not available on non-Linux platforms.
type CdevLine struct{}

// SetInput is not implemented on non-Linux platforms.
func (l *CdevLine) SetInput(pull Pull) error {
	return errors.New("gpio: not supported")
}

// SetOutput is not implemented on non-Linux platforms.
func (l *CdevLine) SetOutput(level Level) error {
	return errors.New("gpio: not supported")
}

// Read is not implemented on non-Linux platforms.
func (l *CdevLine) Read() Level {
	return Low
}

// Close is not implemented on non-Linux platforms.
func (l *CdevLine) Close() error {
	return nil
}
