package status

import (
	"encoding/json"
	"math"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Sensors       []SensorJSON `json:"sensors"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Config        ConfigJSON   `json:"config"`
}

// SensorJSON is the JSON representation of one sensor. Readings are
// pointers so that NaN, which has no JSON encoding, is omitted rather
// than breaking the whole document.
type SensorJSON struct {
	Name         string    `json:"name"`
	Pin          int       `json:"pin"`
	Model        string    `json:"model"`
	TemperatureC *float64  `json:"temperature_c,omitempty"`
	HumidityRH   *float64  `json:"humidity_rh,omitempty"`
	LastSuccess  string    `json:"last_success,omitempty"`
	AgeSeconds   *int64    `json:"age_seconds,omitempty"`
	Stats        StatsJSON `json:"stats"`
}

// StatsJSON is the JSON representation of a sensor's counters.
type StatsJSON struct {
	Reads         int   `json:"reads"`
	Successes     int   `json:"successes"`
	CacheHits     int   `json:"cache_hits"`
	SuccessTimeUs int64 `json:"success_time_us"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs      int64  `json:"poll_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Broker      string `json:"broker"`
	HTTPAddr    string `json:"http_addr"`
	Backend     string `json:"backend"`
	Chip        string `json:"chip,omitempty"`
}

func sensorJSON(s SensorStatus, now time.Time) SensorJSON {
	j := SensorJSON{
		Name:  s.Name,
		Pin:   s.Pin,
		Model: s.Model,
		Stats: StatsJSON{
			Reads:         s.Stats.Reads,
			Successes:     s.Stats.Successes,
			CacheHits:     s.Stats.CacheHits,
			SuccessTimeUs: s.Stats.SuccessTime.Microseconds(),
		},
	}
	if !math.IsNaN(s.Temperature) {
		v := s.Temperature
		j.TemperatureC = &v
	}
	if !math.IsNaN(s.Humidity) {
		v := s.Humidity
		j.HumidityRH = &v
	}
	if !s.LastSuccess.IsZero() {
		j.LastSuccess = s.LastSuccess.UTC().Format(time.RFC3339)
		age := int64(now.Sub(s.LastSuccess).Truncate(time.Second).Seconds())
		j.AgeSeconds = &age
	}
	return j
}

func buildInner(snap Snapshot) StatusInner {
	sensors := make([]SensorJSON, 0, len(snap.Sensors))
	for _, s := range snap.Sensors {
		sensors = append(sensors, sensorJSON(s, snap.Now))
	}

	return StatusInner{
		Sensors:       sensors,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Config: ConfigJSON{
			PollMs:      snap.Config.PollMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			HTTPAddr:    snap.Config.HTTPAddr,
			Backend:     snap.Config.Backend,
			Chip:        snap.Config.Chip,
		},
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
