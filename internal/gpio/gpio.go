// Package gpio provides single-wire GPIO access with hardware abstraction.
// The cdev backend uses the Linux GPIO character device and works on any
// board the kernel supports. The periph backend resolves pins through
// periph.io, which memory-maps them on Raspberry Pi class hardware and
// keeps a single read well under the microsecond budget the DHT bit
// protocol polls at. The fake backend plays a scripted waveform against a
// virtual clock for tests.
package gpio

// Level is the logical state of a line.
type Level bool

// Line levels. The DHT bus idles high through its pull-up.
const (
	Low  Level = false
	High Level = true
)

// Pull selects the bias applied to an input line.
type Pull int

// Pull modes.
const (
	PullNone Pull = iota
	PullUp
	PullDown
)

// Line is a single GPIO line used as a bidirectional single-wire bus.
// Read never blocks and carries no error: a backend read failure reports
// Low and surfaces through the protocol's own timeout handling.
type Line interface {
	// SetInput releases the line and configures it as input with the
	// given bias.
	SetInput(pull Pull) error

	// SetOutput configures the line as output driving the given level.
	SetOutput(level Level) error

	// Read samples the current line level.
	Read() Level

	// Close releases the line.
	Close() error
}

// DefaultChip is the GPIO character device most boards expose.
const DefaultChip = "gpiochip0"

// DefaultPin is the BCM line a DHT data wire is conventionally wired to.
const DefaultPin = 4
