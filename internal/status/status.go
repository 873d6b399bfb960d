// Package status provides a thread-safe status tracker for the dht-sensor
// daemon. It is read by HTTP handlers and rendered into MQTT system events.
package status

import (
	"math"
	"sync"
	"time"

	"github.com/sweeney/dht-sensor/internal/dht"
)

// Config contains daemon configuration for display.
type Config struct {
	PollMs      int64
	HeartbeatMs int64
	Broker      string
	HTTPAddr    string
	Backend     string
	Chip        string
}

// SensorInfo identifies one configured sensor.
type SensorInfo struct {
	Name  string
	Pin   int
	Model string
}

// SensorStatus is the tracked state of one sensor. Temperature and
// Humidity are NaN and LastSuccess is zero until the first valid reading.
type SensorStatus struct {
	Name        string
	Pin         int
	Model       string
	Temperature float64
	Humidity    float64
	LastSuccess time.Time
	Stats       dht.Stats
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type — safe to use after the lock is released.
type Snapshot struct {
	Sensors       []SensorStatus
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu    sync.RWMutex
	snap  Snapshot
	index map[string]int
}

// NewTracker creates a Tracker with the given start time, sensor roster,
// and config. Every sensor begins with NaN readings.
func NewTracker(startTime time.Time, sensors []SensorInfo, cfg Config) *Tracker {
	t := &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
		index: make(map[string]int, len(sensors)),
	}
	for i, s := range sensors {
		t.snap.Sensors = append(t.snap.Sensors, SensorStatus{
			Name:        s.Name,
			Pin:         s.Pin,
			Model:       s.Model,
			Temperature: math.NaN(),
			Humidity:    math.NaN(),
		})
		t.index[s.Name] = i
	}
	return t
}

// UpdateSensor records the outcome of one poll of the named sensor.
// Counters are refreshed unconditionally; the displayed reading and its
// timestamp move only when the values are valid, so a failed poll keeps
// the last good reading on show with its age growing. Unknown names are
// ignored.
func (t *Tracker) UpdateSensor(name string, temp, hum float64, at time.Time, stats dht.Stats) {
	t.mu.Lock()
	defer t.mu.Unlock()

	i, ok := t.index[name]
	if !ok {
		return
	}
	s := &t.snap.Sensors[i]
	s.Stats = stats
	if !math.IsNaN(temp) {
		s.Temperature = temp
		s.LastSuccess = at
	}
	if !math.IsNaN(hum) {
		s.Humidity = hum
		s.LastSuccess = at
	}
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state. The sensor
// slice is copied so the caller's view cannot race later updates. The Now
// field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	s.Sensors = append([]SensorStatus(nil), t.snap.Sensors...)
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
