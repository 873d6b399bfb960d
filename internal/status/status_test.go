package status

import (
	"encoding/json"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/sweeney/dht-sensor/internal/dht"
)

func testSensors() []SensorInfo {
	return []SensorInfo{
		{Name: "attic", Pin: 4, Model: "DHT22"},
		{Name: "cellar", Pin: 17, Model: "DHT11"},
	}
}

func TestNewTracker(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := Config{PollMs: 30000, Broker: "tcp://localhost:1883", HTTPAddr: ":8080", Backend: "cdev", Chip: "gpiochip0"}
	tr := NewTracker(start, testSensors(), cfg)

	snap := tr.Snapshot()
	if !snap.StartTime.Equal(start) {
		t.Errorf("StartTime: got %v, want %v", snap.StartTime, start)
	}
	if snap.Config.PollMs != 30000 {
		t.Errorf("Config.PollMs: got %d, want 30000", snap.Config.PollMs)
	}
	if len(snap.Sensors) != 2 {
		t.Fatalf("Sensors: got %d, want 2", len(snap.Sensors))
	}
	if snap.Sensors[0].Name != "attic" || snap.Sensors[0].Pin != 4 {
		t.Errorf("Sensors[0]: got %+v, want attic on pin 4", snap.Sensors[0])
	}
	if !math.IsNaN(snap.Sensors[0].Temperature) || !math.IsNaN(snap.Sensors[0].Humidity) {
		t.Error("expected NaN readings before the first poll")
	}
	if !snap.Sensors[0].LastSuccess.IsZero() {
		t.Error("expected zero LastSuccess before the first valid reading")
	}
	if snap.MQTTConnected {
		t.Error("expected MQTTConnected=false initially")
	}
}

func TestUpdateSensorAndSnapshot(t *testing.T) {
	at := time.Date(2026, 1, 1, 0, 5, 0, 0, time.UTC)
	tr := NewTracker(time.Now(), testSensors(), Config{})

	tr.UpdateSensor("attic", 21.5, 48.2, at, dht.Stats{Reads: 2, Successes: 1, CacheHits: 1})

	snap := tr.Snapshot()
	s := snap.Sensors[0]
	if s.Temperature != 21.5 {
		t.Errorf("Temperature: got %v, want 21.5", s.Temperature)
	}
	if s.Humidity != 48.2 {
		t.Errorf("Humidity: got %v, want 48.2", s.Humidity)
	}
	if !s.LastSuccess.Equal(at) {
		t.Errorf("LastSuccess: got %v, want %v", s.LastSuccess, at)
	}
	if s.Stats.Reads != 2 || s.Stats.Successes != 1 || s.Stats.CacheHits != 1 {
		t.Errorf("Stats: got %+v", s.Stats)
	}
	if !math.IsNaN(snap.Sensors[1].Temperature) {
		t.Error("other sensor should be untouched")
	}
}

func TestUpdateSensorKeepsLastGoodReading(t *testing.T) {
	at := time.Date(2026, 1, 1, 0, 5, 0, 0, time.UTC)
	tr := NewTracker(time.Now(), testSensors(), Config{})

	tr.UpdateSensor("attic", 21.5, 48.2, at, dht.Stats{Reads: 1, Successes: 1})
	tr.UpdateSensor("attic", math.NaN(), math.NaN(), at.Add(time.Minute), dht.Stats{Reads: 2, Successes: 1})

	s := tr.Snapshot().Sensors[0]
	if s.Temperature != 21.5 || s.Humidity != 48.2 {
		t.Errorf("readings: got %v/%v, want last good 21.5/48.2", s.Temperature, s.Humidity)
	}
	if !s.LastSuccess.Equal(at) {
		t.Errorf("LastSuccess: got %v, want %v", s.LastSuccess, at)
	}
	if s.Stats.Reads != 2 {
		t.Errorf("Stats.Reads: got %d, want 2 (counters always refresh)", s.Stats.Reads)
	}
}

func TestUpdateSensorUnknownName(t *testing.T) {
	tr := NewTracker(time.Now(), testSensors(), Config{})

	tr.UpdateSensor("greenhouse", 20, 50, time.Now(), dht.Stats{Reads: 1})

	snap := tr.Snapshot()
	for _, s := range snap.Sensors {
		if s.Stats.Reads != 0 {
			t.Errorf("%s: got %+v, want untouched", s.Name, s.Stats)
		}
	}
}

func TestSetMQTTConnected(t *testing.T) {
	tr := NewTracker(time.Now(), testSensors(), Config{})

	tr.SetMQTTConnected(true)
	if !tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=true")
	}

	tr.SetMQTTConnected(false)
	if tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=false")
	}
}

func TestSnapshotUptime(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		StartTime: start,
		Now:       start.Add(15 * time.Minute),
	}

	if snap.Uptime() != 15*time.Minute {
		t.Errorf("Uptime: got %v, want 15m", snap.Uptime())
	}
}

func TestSnapshotNowIsSet(t *testing.T) {
	tr := NewTracker(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), testSensors(), Config{})

	before := time.Now()
	snap := tr.Snapshot()
	after := time.Now()

	if snap.Now.Before(before) || snap.Now.After(after) {
		t.Errorf("Now (%v) not between %v and %v", snap.Now, before, after)
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	tr := NewTracker(time.Now(), testSensors(), Config{})
	tr.UpdateSensor("attic", 21.5, 48.2, time.Now(), dht.Stats{Reads: 1, Successes: 1})

	snap1 := tr.Snapshot()

	tr.UpdateSensor("attic", 30.0, 60.0, time.Now(), dht.Stats{Reads: 2, Successes: 2})

	// snap1 should still reflect old state
	if snap1.Sensors[0].Temperature != 21.5 {
		t.Error("snapshot should be a copy; Temperature was modified")
	}
	if snap1.Sensors[0].Stats.Reads != 1 {
		t.Error("snapshot should be a copy; Stats were modified")
	}
}

func statusSnapshot() Snapshot {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return Snapshot{
		Sensors: []SensorStatus{
			{
				Name:        "attic",
				Pin:         4,
				Model:       "DHT22",
				Temperature: -2.5,
				Humidity:    65.2,
				LastSuccess: start.Add(14 * time.Minute),
				Stats:       dht.Stats{Reads: 30, Successes: 28, CacheHits: 1, SuccessTime: 240 * time.Millisecond},
			},
			{
				Name:        "cellar",
				Pin:         17,
				Model:       "DHT11",
				Temperature: math.NaN(),
				Humidity:    math.NaN(),
			},
		},
		StartTime:     start,
		Now:           start.Add(15 * time.Minute),
		MQTTConnected: true,
		Config:        Config{PollMs: 30000, HeartbeatMs: 900000, Broker: "tcp://localhost:1883", HTTPAddr: ":8080", Backend: "cdev", Chip: "gpiochip0"},
	}
}

func TestFormatJSON(t *testing.T) {
	data := FormatJSON(statusSnapshot())

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if len(parsed.Status.Sensors) != 2 {
		t.Fatalf("sensors: got %d, want 2", len(parsed.Status.Sensors))
	}
	attic := parsed.Status.Sensors[0]
	if attic.TemperatureC == nil || *attic.TemperatureC != -2.5 {
		t.Errorf("TemperatureC: got %v, want -2.5", attic.TemperatureC)
	}
	if attic.HumidityRH == nil || *attic.HumidityRH != 65.2 {
		t.Errorf("HumidityRH: got %v, want 65.2", attic.HumidityRH)
	}
	if attic.AgeSeconds == nil || *attic.AgeSeconds != 60 {
		t.Errorf("AgeSeconds: got %v, want 60", attic.AgeSeconds)
	}
	if attic.Stats.SuccessTimeUs != 240000 {
		t.Errorf("Stats.SuccessTimeUs: got %d, want 240000", attic.Stats.SuccessTimeUs)
	}
	if parsed.Status.UptimeSeconds != 900 {
		t.Errorf("UptimeSeconds: got %d, want 900", parsed.Status.UptimeSeconds)
	}
	if !parsed.Status.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if parsed.Status.Config.Backend != "cdev" {
		t.Errorf("Config.Backend: got %q, want cdev", parsed.Status.Config.Backend)
	}
	// Event and Reason should be omitted
	if parsed.Status.Event != "" {
		t.Errorf("expected empty Event for web format, got %q", parsed.Status.Event)
	}
	if parsed.Status.Reason != "" {
		t.Errorf("expected empty Reason for web format, got %q", parsed.Status.Reason)
	}
}

func TestFormatJSONOmitsInvalidReadings(t *testing.T) {
	data := FormatJSON(statusSnapshot())

	// The cellar sensor has never produced a reading; its value keys
	// must be absent rather than rendered as NaN.
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	sensors := raw["status"].(map[string]interface{})["sensors"].([]interface{})
	cellar := sensors[1].(map[string]interface{})
	if _, exists := cellar["temperature_c"]; exists {
		t.Error("temperature_c should be omitted for a sensor with no reading")
	}
	if _, exists := cellar["humidity_rh"]; exists {
		t.Error("humidity_rh should be omitted for a sensor with no reading")
	}
	if _, exists := cellar["last_success"]; exists {
		t.Error("last_success should be omitted for a sensor with no reading")
	}
}

func TestFormatStatusEvent(t *testing.T) {
	data := FormatStatusEvent(statusSnapshot(), "HEARTBEAT", "")

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Status.Event != "HEARTBEAT" {
		t.Errorf("Event: got %q, want HEARTBEAT", parsed.Status.Event)
	}
	if parsed.Status.Reason != "" {
		t.Errorf("Reason: got %q, want empty", parsed.Status.Reason)
	}
	if len(parsed.Status.Sensors) != 2 {
		t.Errorf("sensors: got %d, want 2", len(parsed.Status.Sensors))
	}
	if parsed.Status.UptimeSeconds != 900 {
		t.Errorf("UptimeSeconds: got %d, want 900", parsed.Status.UptimeSeconds)
	}
}

func TestFormatStatusEventShutdown(t *testing.T) {
	data := FormatStatusEvent(statusSnapshot(), "SHUTDOWN", "SIGTERM")

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Status.Event != "SHUTDOWN" {
		t.Errorf("Event: got %q, want SHUTDOWN", parsed.Status.Event)
	}
	if parsed.Status.Reason != "SIGTERM" {
		t.Errorf("Reason: got %q, want SIGTERM", parsed.Status.Reason)
	}
}

func TestFormatStatusEventOmitsReasonWhenEmpty(t *testing.T) {
	data := FormatStatusEvent(statusSnapshot(), "STARTUP", "")

	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	status := raw["status"].(map[string]interface{})
	if _, exists := status["reason"]; exists {
		t.Error("reason should be omitted when empty")
	}
	if status["event"] != "STARTUP" {
		t.Errorf("event: got %v, want STARTUP", status["event"])
	}
}

func TestConcurrentAccess(t *testing.T) {
	tr := NewTracker(time.Now(), testSensors(), Config{})
	var wg sync.WaitGroup

	// Writer
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			tr.UpdateSensor("attic", 20.0, 50.0, time.Now(), dht.Stats{Reads: i})
			tr.SetMQTTConnected(i%2 == 0)
		}
	}()

	// Reader
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			snap := tr.Snapshot()
			_ = snap.Uptime()
		}
	}()

	wg.Wait()
}
