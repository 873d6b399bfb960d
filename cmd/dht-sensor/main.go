// Command dht-sensor polls DHT-class temperature and humidity sensors
// over GPIO and publishes the readings to MQTT.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/dht-sensor/internal/config"
	"github.com/sweeney/dht-sensor/internal/dht"
	"github.com/sweeney/dht-sensor/internal/gpio"
	"github.com/sweeney/dht-sensor/internal/mqtt"
	"github.com/sweeney/dht-sensor/internal/status"
	"github.com/sweeney/dht-sensor/internal/web"
)

func main() {
	readOnce := flag.Bool("read-once", false, "Read each sensor once, print the readings and exit")

	cfg, err := config.Load(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}

	if err := run(cfg, *readOnce); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

// sensorReader is the surface of dht.Sensor the polling loop uses.
type sensorReader interface {
	Temperature() float64
	Humidity() float64
	Stats(out *dht.Stats) bool
	Model() dht.Model
}

// unit is one configured sensor wired to its open driver.
type unit struct {
	name   string
	pin    int
	sensor sensorReader
}

func run(cfg config.Config, readOnce bool) error {
	units, cleanup, err := openSensors(cfg)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer cleanup()

	// Read-once mode
	if readOnce {
		return printReadings(units)
	}

	// Initialize MQTT (empty broker disables it)
	var publisher mqtt.Publisher
	var mqttStatus mqtt.ConnectionStatus
	if cfg.Broker != "" {
		rp, err := mqtt.NewRealPublisher(cfg.Broker)
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		defer rp.Close()
		publisher = rp
		mqttStatus = rp
	}

	// Initialize status tracker (before STARTUP so snapshot is available)
	infos := make([]status.SensorInfo, 0, len(units))
	for _, u := range units {
		infos = append(infos, status.SensorInfo{Name: u.name, Pin: u.pin, Model: u.sensor.Model().String()})
	}
	tracker := status.NewTracker(time.Now(), infos, status.Config{
		PollMs:      cfg.PollMs,
		HeartbeatMs: cfg.HeartbeatMs,
		Broker:      cfg.Broker,
		HTTPAddr:    cfg.HTTPAddr,
		Backend:     cfg.Backend,
		Chip:        cfg.Chip,
	})

	// Publish startup event with full status snapshot
	if publisher != nil {
		tracker.SetMQTTConnected(mqttStatus.IsConnected())
		snap := tracker.Snapshot()
		startupEvent := mqtt.SystemEvent{
			Timestamp:  snap.Now,
			Event:      "STARTUP",
			Retained:   true,
			RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
		}
		if err := publisher.PublishSystem(startupEvent); err != nil {
			log.Printf("failed to publish startup event: %v", err)
		} else {
			log.Printf("published startup event")
		}
	}

	// Start HTTP status server
	if cfg.HTTPAddr != "" {
		srv := web.New(cfg.HTTPAddr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTPAddr)
	}

	log.Printf("started: sensors=%d backend=%s poll=%v broker=%s heartbeat=%v",
		len(units), cfg.Backend, cfg.Poll(), cfg.Broker, cfg.Heartbeat())

	ticker := time.NewTicker(cfg.Poll())
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(units, publisher, mqttStatus, tracker, cfg.Heartbeat(), time.Now, ticker.C, sigCh)
}

// openSensors opens the configured GPIO backend and a driver per sensor.
// The returned cleanup closes everything in reverse order; on error the
// partially opened resources are already released.
func openSensors(cfg config.Config) ([]unit, func(), error) {
	var closers []func() error
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				log.Printf("close: %v", err)
			}
		}
	}

	var chip *gpio.Chip
	switch cfg.Backend {
	case "cdev":
		c, err := gpio.OpenChip(cfg.Chip)
		if err != nil {
			return nil, nil, err
		}
		chip = c
		closers = append(closers, chip.Close)
	case "periph":
		if err := gpio.HostInit(); err != nil {
			return nil, nil, fmt.Errorf("init periph host: %w", err)
		}
	default:
		return nil, nil, fmt.Errorf("unknown gpio backend %q", cfg.Backend)
	}

	units := make([]unit, 0, len(cfg.Sensors))
	for _, sc := range cfg.Sensors {
		model, err := dht.ParseModel(sc.Model)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("sensor %s: %w", sc.Name, err)
		}

		var line gpio.Line
		if chip != nil {
			line, err = chip.Line(sc.Pin)
		} else {
			line, err = gpio.NewPeriphLine(sc.Pin)
		}
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("sensor %s: %w", sc.Name, err)
		}

		sensor, err := dht.New(line, model)
		if err != nil {
			line.Close()
			cleanup()
			return nil, nil, fmt.Errorf("sensor %s: %w", sc.Name, err)
		}
		closers = append(closers, sensor.Close)
		units = append(units, unit{name: sc.Name, pin: sc.Pin, sensor: sensor})
	}

	return units, cleanup, nil
}

// printReadings performs one poll per sensor and writes the values to
// stdout.
func printReadings(units []unit) error {
	for _, u := range units {
		temp := u.sensor.Temperature()
		hum := u.sensor.Humidity()
		if math.IsNaN(temp) || math.IsNaN(hum) {
			return fmt.Errorf("sensor %s: read failed", u.name)
		}
		fmt.Printf("%s: %.1f°C %.1f%% RH\n", u.name, temp, hum)
	}
	return nil
}

func runLoop(units []unit, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, heartbeat time.Duration, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	startTime := now()
	lastHeartbeat := startTime

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			if publisher == nil {
				return nil
			}
			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if tracker != nil {
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
				snap := tracker.Snapshot()
				event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", signalName)
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			return nil

		case <-tick:
			t := now()
			for _, u := range units {
				temp := u.sensor.Temperature()
				hum := u.sensor.Humidity()

				var st dht.Stats
				u.sensor.Stats(&st)
				if tracker != nil {
					tracker.UpdateSensor(u.name, temp, hum, t, st)
				}

				if math.IsNaN(temp) || math.IsNaN(hum) {
					log.Printf("sensor %s: read failed", u.name)
					continue
				}
				log.Printf("sensor %s: %.1f°C %.1f%% RH", u.name, temp, hum)

				if publisher == nil {
					continue
				}
				reading := mqtt.Reading{
					Sensor:      u.name,
					Model:       u.sensor.Model().String(),
					Pin:         u.pin,
					Temperature: temp,
					Humidity:    hum,
					Timestamp:   t,
				}
				if err := publisher.Publish(reading); err != nil {
					log.Printf("publish error: %v", err)
					// Don't crash on publish failure
				}
			}

			if tracker != nil && mqttStatus != nil {
				tracker.SetMQTTConnected(mqttStatus.IsConnected())
			}

			// Check for heartbeat
			if publisher != nil && heartbeat > 0 && t.Sub(lastHeartbeat) >= heartbeat {
				lastHeartbeat = t
				log.Printf("heartbeat: uptime=%v", t.Sub(startTime))

				hbEvent := mqtt.SystemEvent{
					Timestamp: t,
					Event:     "HEARTBEAT",
				}
				if tracker != nil {
					snap := tracker.Snapshot()
					hbEvent.RawPayload = status.FormatStatusEvent(snap, "HEARTBEAT", "")
				}
				if err := publisher.PublishSystem(hbEvent); err != nil {
					log.Printf("heartbeat publish error: %v", err)
				}
			}
		}
	}
}
