// Package config assembles the daemon configuration from built-in
// defaults, an optional JSON file and command line flags. Flags win
// over file values, file values win over defaults.
package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/sweeney/dht-sensor/internal/dht"
	"github.com/sweeney/dht-sensor/internal/gpio"
)

// SensorConfig names one sensor and the line its data wire is on.
type SensorConfig struct {
	Name  string `json:"name"`
	Pin   int    `json:"pin"`
	Model string `json:"model"`
}

// Config is the full daemon configuration. Intervals are stored in
// milliseconds so the JSON file stays plain numbers; Poll and Heartbeat
// return them as durations.
type Config struct {
	Sensors     []SensorConfig `json:"sensors"`
	Backend     string         `json:"backend"`
	Chip        string         `json:"chip"`
	PollMs      int64          `json:"poll_ms"`
	HeartbeatMs int64          `json:"heartbeat_ms"`
	Broker      string         `json:"broker"`
	HTTPAddr    string         `json:"http_addr"`
}

// Default returns the configuration used when nothing else is given:
// a single DHT22 on the conventional data pin.
func Default() Config {
	return Config{
		Sensors:     []SensorConfig{{Name: "dht", Pin: gpio.DefaultPin, Model: "DHT22"}},
		Backend:     "cdev",
		Chip:        gpio.DefaultChip,
		PollMs:      30_000,
		HeartbeatMs: 900_000,
		Broker:      "tcp://192.168.1.200:1883",
		HTTPAddr:    ":80",
	}
}

// Poll returns the sensor polling interval.
func (c Config) Poll() time.Duration { return time.Duration(c.PollMs) * time.Millisecond }

// Heartbeat returns the heartbeat interval, zero when disabled.
func (c Config) Heartbeat() time.Duration { return time.Duration(c.HeartbeatMs) * time.Millisecond }

// Load registers the daemon's flags on fs, parses args and returns the
// resulting configuration. A -config file is read first and individual
// flags override its values. The sensor flags (-sensor-name, -pin,
// -model) describe a single sensor and replace the whole sensor list;
// multi-sensor setups use the file's sensors array.
func Load(fs *flag.FlagSet, args []string) (Config, error) {
	def := Default()

	cfgPath := fs.String("config", "", "Path to JSON config file")
	name := fs.String("sensor-name", def.Sensors[0].Name, "Sensor name used in payloads and status")
	pin := fs.Int("pin", def.Sensors[0].Pin, "BCM pin number of the sensor data wire")
	model := fs.String("model", def.Sensors[0].Model, "Sensor model: DHT11, DHT21, AM2301, DHT22, AM2302 or SI7021")
	backend := fs.String("backend", def.Backend, "GPIO backend: cdev or periph")
	chip := fs.String("chip", def.Chip, "GPIO character device (cdev backend only)")
	poll := fs.Duration("poll", def.Poll(), "Sensor polling interval")
	heartbeat := fs.Duration("heartbeat", def.Heartbeat(), "Heartbeat interval (0 to disable)")
	broker := fs.String("broker", def.Broker, "MQTT broker address (empty to disable)")
	httpAddr := fs.String("http", def.HTTPAddr, "HTTP status address (empty to disable)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg := def
	if *cfgPath != "" {
		b, err := os.ReadFile(*cfgPath)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if set["backend"] {
		cfg.Backend = *backend
	}
	if set["chip"] {
		cfg.Chip = *chip
	}
	if set["poll"] {
		cfg.PollMs = poll.Milliseconds()
	}
	if set["heartbeat"] {
		cfg.HeartbeatMs = heartbeat.Milliseconds()
	}
	if set["broker"] {
		cfg.Broker = *broker
	}
	if set["http"] {
		cfg.HTTPAddr = *httpAddr
	}
	if set["sensor-name"] || set["pin"] || set["model"] {
		cfg.Sensors = []SensorConfig{{Name: *name, Pin: *pin, Model: *model}}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first problem that would stop the daemon from
// running with this configuration.
func (c Config) Validate() error {
	switch c.Backend {
	case "cdev", "periph":
	default:
		return fmt.Errorf("unknown gpio backend %q (want cdev or periph)", c.Backend)
	}
	if c.Backend == "cdev" && c.Chip == "" {
		return fmt.Errorf("cdev backend needs a gpio chip")
	}
	if len(c.Sensors) == 0 {
		return fmt.Errorf("no sensors configured")
	}
	names := make(map[string]bool, len(c.Sensors))
	pins := make(map[int]bool, len(c.Sensors))
	for _, s := range c.Sensors {
		if s.Name == "" {
			return fmt.Errorf("sensor on pin %d has no name", s.Pin)
		}
		if names[s.Name] {
			return fmt.Errorf("duplicate sensor name %q", s.Name)
		}
		names[s.Name] = true
		if s.Pin < 0 {
			return fmt.Errorf("sensor %q: negative pin %d", s.Name, s.Pin)
		}
		if pins[s.Pin] {
			return fmt.Errorf("sensor %q: pin %d already in use", s.Name, s.Pin)
		}
		pins[s.Pin] = true
		if _, err := dht.ParseModel(s.Model); err != nil {
			return fmt.Errorf("sensor %q: %w", s.Name, err)
		}
	}
	if c.Poll() < dht.MinReadInterval {
		return fmt.Errorf("poll interval %v below the %v sensor minimum", c.Poll(), dht.MinReadInterval)
	}
	if c.HeartbeatMs < 0 {
		return fmt.Errorf("negative heartbeat interval")
	}
	return nil
}
