// Package dht reads DHT11, DHT21/AM2301, DHT22/AM2302 and SI7021
// temperature and humidity sensors over their single wire protocol.
//
// The protocol is timing critical: after the host's start signal the
// sensor answers with 40 bits encoded in pulse widths of tens of
// microseconds. The driver busy-polls the line for the whole frame and
// suspends the two schedulers that could stall the polling loop mid
// frame, the garbage collector and the goroutine scheduler's thread
// migration.
package dht

import (
	"fmt"
	"math"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/sweeney/dht-sensor/internal/gpio"
)

// MinReadInterval is the shortest spacing between bus transactions the
// sensors tolerate. Reads inside the window are answered from the
// previous result.
const MinReadInterval = 2 * time.Second

// Protocol timing. The bus settles for 10ms before a start signal, the
// sensor acknowledges with roughly 80µs low then 80µs high, and every
// bit is a ~50µs low lead-in followed by 26-70µs of high.
const (
	settleDelay  = 10 * time.Millisecond
	releaseDelay = 40 * time.Microsecond
	ackTimeout   = 90 * time.Microsecond
	slotTimeout  = 500 * time.Microsecond
)

// Stats are cumulative counters for one sensor handle. They start at
// zero when the handle is created and are never reset.
type Stats struct {
	// Reads counts every read attempt, cached ones included.
	Reads int
	// Successes counts reads that produced a valid frame.
	Successes int
	// CacheHits counts reads answered from the previous result because
	// they arrived within MinReadInterval of the last bus transaction.
	CacheHits int
	// SuccessTime is the total wall clock time spent in successful bus
	// transactions.
	SuccessTime time.Duration
	// LastAttempt is when the most recent bus transaction started.
	LastAttempt time.Time
}

// Sensor is a handle to one sensor on one GPIO line. It is not safe for
// concurrent use; callers serialize reads per handle. Handles on
// distinct lines are independent.
type Sensor struct {
	line  gpio.Line
	model Model

	data       [frameBytes]byte
	lastResult bool
	stats      Stats

	// now and sleep are the handle's clock; tests inject virtual time.
	now   func() time.Time
	sleep func(time.Duration)
}

// New creates a handle for a sensor of the given model wired to line.
// The line is left configured as an input with its pull-up engaged, the
// bus idle state.
func New(line gpio.Line, model Model) (*Sensor, error) {
	return NewWithClock(line, model, time.Now, time.Sleep)
}

// NewWithClock is New with an injected time source and sleeper. Tests
// pair it with gpio.FakeLine so the protocol runs on the fake's virtual
// clock.
func NewWithClock(line gpio.Line, model Model, now func() time.Time, sleep func(time.Duration)) (*Sensor, error) {
	s := &Sensor{
		line:  line,
		model: model,
		now:   now,
		sleep: sleep,
	}
	if err := line.SetInput(gpio.PullUp); err != nil {
		return nil, fmt.Errorf("dht: configuring %v line: %w", model, err)
	}
	return s, nil
}

// Close releases the GPIO line. The handle must not be used afterwards.
func (s *Sensor) Close() error {
	return s.line.Close()
}

// Model reports the sensor model the handle was created with.
func (s *Sensor) Model() Model {
	return s.model
}

// Temperature triggers a read and reports degrees Celsius, or NaN when
// no valid frame is available.
func (s *Sensor) Temperature() float64 {
	if !s.read() {
		return math.NaN()
	}
	return s.model.temperature(s.data)
}

// Humidity triggers a read and reports percent relative humidity, or
// NaN when no valid frame is available.
func (s *Sensor) Humidity() float64 {
	if !s.read() {
		return math.NaN()
	}
	return s.model.humidity(s.data)
}

// Stats copies the handle's counters into out and reports whether the
// copy happened. A nil handle or nil out leaves out untouched.
func (s *Sensor) Stats(out *Stats) bool {
	if s == nil || out == nil {
		return false
	}
	*out = s.stats
	return true
}

// read performs at most one bus transaction per rate limit window and
// reports whether data holds a valid frame. Attempts inside the window
// are answered from the previous result.
func (s *Sensor) read() bool {
	if s == nil {
		return false
	}
	start := s.now()
	s.stats.Reads++

	if start.Sub(s.stats.LastAttempt) < MinReadInterval {
		s.stats.CacheHits++
		return s.lastResult
	}

	s.stats.LastAttempt = start
	s.lastResult = false
	s.data = [frameBytes]byte{}

	var cycles [cycleSlots]time.Duration
	if !s.capture(&cycles) {
		return false
	}

	data, err := decodeCycles(&cycles)
	if err != nil {
		return false
	}
	if err := checkFrame(data); err != nil {
		return false
	}

	s.data = data
	s.lastResult = true
	s.stats.Successes++
	s.stats.SuccessTime += s.now().Sub(start)
	return true
}

// capture runs one bus transaction: start signal, acknowledgement, then
// the 80 timed slots into cycles. It reports whether the handshake
// completed; slot timeouts are left as zero durations for decoding to
// reject.
func (s *Sensor) capture(cycles *[cycleSlots]time.Duration) bool {
	if err := s.line.SetInput(gpio.PullUp); err != nil {
		return false
	}
	s.sleep(settleDelay)

	// Start signal: hold the bus low long enough for the sensor to
	// notice, then hand the line back to its pull-up.
	if err := s.line.SetOutput(gpio.Low); err != nil {
		return false
	}
	s.sleep(s.model.startPulse())

	restore := enterCritical()
	defer restore()

	if err := s.line.SetInput(gpio.PullUp); err != nil {
		return false
	}
	s.sleep(releaseDelay)

	// The sensor acknowledges with ~80µs low then ~80µs high before the
	// first bit's lead-in pulls the bus low again.
	if s.waitLevel(gpio.High, ackTimeout) == 0 || s.waitLevel(gpio.Low, ackTimeout) == 0 {
		return false
	}

	for i := 0; i < cycleSlots; i += 2 {
		cycles[i] = s.waitLevel(gpio.High, slotTimeout)
		cycles[i+1] = s.waitLevel(gpio.Low, slotTimeout)
	}
	return true
}

// waitLevel busy-polls the line until it reads lvl, returning the
// elapsed time, or 0 once timeout passes without a match. The loop never
// sleeps: bit phases are tens of microseconds and the runtime cannot
// schedule sleeps that short, so the line is polled as fast as the
// backend allows.
func (s *Sensor) waitLevel(lvl gpio.Level, timeout time.Duration) time.Duration {
	start := s.now()
	for s.line.Read() != lvl {
		if s.now().Sub(start) >= timeout {
			return 0
		}
	}
	elapsed := s.now().Sub(start)
	if elapsed <= 0 {
		// Clock granularity can hide a single poll; 0 means timeout.
		elapsed = time.Nanosecond
	}
	return elapsed
}

// enterCritical pins the goroutine to its OS thread and turns the
// garbage collector off for the duration of a frame. A GC pause or a
// thread migration in the middle of the frame stalls the polling loop
// past whole bit phases. The returned func restores both.
func enterCritical() func() {
	runtime.LockOSThread()
	gcPercent := debug.SetGCPercent(-1)
	return func() {
		debug.SetGCPercent(gcPercent)
		runtime.UnlockOSThread()
	}
}
