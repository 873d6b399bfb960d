// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"errors"
	"math"
	"time"
)

// Topic is the MQTT topic for sensor readings.
const Topic = "climate/dht/sensor/readings"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "climate/dht/sensor/system"

// errInvalidReading reports a reading with no publishable values. NaN has
// no JSON encoding, so such readings never reach a payload.
var errInvalidReading = errors.New("mqtt: reading has no valid values")

// Publisher publishes sensor readings to MQTT.
type Publisher interface {
	// Publish sends a sensor reading to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(r Reading) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// Reading is one validated sensor reading.
type Reading struct {
	Sensor      string
	Model       string
	Pin         int
	Temperature float64
	Humidity    float64
	Timestamp   time.Time
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Reading ReadingPayload `json:"reading"`
}

// ReadingPayload contains the reading details.
type ReadingPayload struct {
	Sensor       string  `json:"sensor"`
	Model        string  `json:"model"`
	Pin          int     `json:"pin"`
	TemperatureC float64 `json:"temperature_c"`
	HumidityRH   float64 `json:"humidity_rh"`
	Timestamp    string  `json:"timestamp"`
}

// FormatPayload creates the JSON payload for a sensor reading. Readings
// carrying NaN are rejected rather than marshalled.
func FormatPayload(r Reading) ([]byte, error) {
	if math.IsNaN(r.Temperature) || math.IsNaN(r.Humidity) {
		return nil, errInvalidReading
	}
	payload := Payload{
		Reading: ReadingPayload{
			Sensor:       r.Sensor,
			Model:        r.Model,
			Pin:          r.Pin,
			TemperatureC: r.Temperature,
			HumidityRH:   r.Humidity,
			Timestamp:    r.Timestamp.UTC().Format(time.RFC3339),
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, OFFLINE) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
