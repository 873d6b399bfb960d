package gpio

import "time"

// Segment is one step of a scripted waveform: the line holds Level for
// Duration.
type Segment struct {
	Level    Level
	Duration time.Duration
}

// FakeLine is a test double that plays a scripted sensor waveform against
// a virtual clock. The waveform anchors at the moment the start signal is
// released (a SetInput call while the line is driven low), which is how
// the bus hands over to the sensor. Read samples the scripted level and
// advances the clock by Step, simulating the polling cadence; Sleep and
// Now expose the same clock so a driver under test sees consistent time.
type FakeLine struct {
	// Waveform is the scripted sensor response, played from each release
	// of the start signal. After the last segment the line idles high on
	// its pull-up.
	Waveform []Segment

	// Step is how far the clock advances per Read. Defaults to 1µs, one
	// poll per microsecond.
	Step time.Duration

	// SetInputErr and SetOutputErr, if set, are returned by the
	// corresponding configuration calls.
	SetInputErr  error
	SetOutputErr error

	// Closed tracks if Close was called.
	Closed bool

	// StartPulse records how long the line was held low as an output
	// before the most recent release.
	StartPulse time.Duration

	// Releases counts start-signal releases, one per waveform replay.
	Releases int

	clock    time.Time
	output   bool
	driven   Level
	lowSince time.Time
	origin   time.Time
	armed    bool
}

// NewFakeLine creates a FakeLine that plays waveform on every release of
// the start signal.
func NewFakeLine(waveform []Segment) *FakeLine {
	return &FakeLine{
		Waveform: waveform,
		Step:     time.Microsecond,
		clock:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// Now returns the virtual clock.
func (f *FakeLine) Now() time.Time {
	return f.clock
}

// Sleep advances the virtual clock by d. Negative durations are a no-op,
// mirroring time.Sleep.
func (f *FakeLine) Sleep(d time.Duration) {
	if d > 0 {
		f.clock = f.clock.Add(d)
	}
}

// SetInput releases the line. A release that ends an output-low start
// signal arms the waveform at the current instant.
func (f *FakeLine) SetInput(pull Pull) error {
	if f.SetInputErr != nil {
		return f.SetInputErr
	}
	if f.output && f.driven == Low {
		f.StartPulse = f.clock.Sub(f.lowSince)
		f.origin = f.clock
		f.armed = true
		f.Releases++
	}
	f.output = false
	return nil
}

// SetOutput drives the line.
func (f *FakeLine) SetOutput(level Level) error {
	if f.SetOutputErr != nil {
		return f.SetOutputErr
	}
	if level == Low && (!f.output || f.driven != Low) {
		f.lowSince = f.clock
	}
	f.output = true
	f.driven = level
	return nil
}

// Read samples the scripted level at the current instant, then advances
// the clock by one poll step.
func (f *FakeLine) Read() Level {
	l := f.levelAt(f.clock)
	f.clock = f.clock.Add(f.Step)
	return l
}

// Close marks the line closed.
func (f *FakeLine) Close() error {
	f.Closed = true
	return nil
}

// levelAt walks the waveform. While the line is driven it reads back the
// driven level; before arming and past the last segment it idles high.
func (f *FakeLine) levelAt(t time.Time) Level {
	if f.output {
		return f.driven
	}
	if !f.armed {
		return High
	}
	off := t.Sub(f.origin)
	if off < 0 {
		return High
	}
	for _, seg := range f.Waveform {
		if off < seg.Duration {
			return seg.Level
		}
		off -= seg.Duration
	}
	return High
}
