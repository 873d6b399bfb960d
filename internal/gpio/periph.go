package gpio

import (
	"fmt"

	pgpio "periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// HostInit loads the periph.io host drivers. Call it once before opening
// lines with the periph backend; the cdev backend needs no initialization.
func HostInit() error {
	_, err := host.Init()
	return err
}

// PeriphLine drives one GPIO line through periph.io. On Raspberry Pi the
// bcm283x driver memory-maps the pin, so a read costs around 0.2µs and
// leaves the most margin for the protocol's microsecond polling.
type PeriphLine struct {
	pin pgpio.PinIO
}

// NewPeriphLine resolves a BCM pin number through the periph registry and
// configures it as input with the bus pull-up.
func NewPeriphLine(pin int) (*PeriphLine, error) {
	p := gpioreg.ByName(fmt.Sprintf("GPIO%d", pin))
	if p == nil {
		return nil, fmt.Errorf("no pin GPIO%d in periph registry", pin)
	}
	l := &PeriphLine{pin: p}
	if err := l.SetInput(PullUp); err != nil {
		return nil, fmt.Errorf("configure GPIO%d: %w", pin, err)
	}
	return l, nil
}

// SetInput configures the pin as input with the given bias.
func (l *PeriphLine) SetInput(pull Pull) error {
	return l.pin.In(periphPull(pull), pgpio.NoEdge)
}

// SetOutput configures the pin as output driving level.
func (l *PeriphLine) SetOutput(level Level) error {
	return l.pin.Out(pgpio.Level(level == High))
}

// Read samples the pin.
func (l *PeriphLine) Read() Level {
	return Level(l.pin.Read() == pgpio.High)
}

// Close halts the pin, returning it to the host's idle state.
func (l *PeriphLine) Close() error {
	return l.pin.Halt()
}

func periphPull(pull Pull) pgpio.Pull {
	switch pull {
	case PullUp:
		return pgpio.PullUp
	case PullDown:
		return pgpio.PullDown
	default:
		return pgpio.Float
	}
}
