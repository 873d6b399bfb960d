package dht

import (
	"fmt"
	"strings"
	"time"
)

// Model identifies the sensor variant on the line. The variants share one
// wire protocol and differ only in the length of the start signal and in
// how the frame bytes convert to physical units.
type Model int

// Supported sensor models. DHT21/AM2301 and DHT22/AM2302 are the same
// parts under different branding and share values.
const (
	DHT11  Model = 11
	DHT21  Model = 21
	AM2301 Model = 21
	DHT22  Model = 22
	AM2302 Model = 22
	SI7021 Model = 99
)

func (m Model) String() string {
	switch m {
	case DHT11:
		return "DHT11"
	case DHT21:
		return "DHT21"
	case DHT22:
		return "DHT22"
	case SI7021:
		return "SI7021"
	}
	return fmt.Sprintf("Model(%d)", int(m))
}

// ParseModel maps a configuration name to a Model.
func ParseModel(s string) (Model, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DHT11":
		return DHT11, nil
	case "DHT21":
		return DHT21, nil
	case "AM2301":
		return AM2301, nil
	case "DHT22":
		return DHT22, nil
	case "AM2302":
		return AM2302, nil
	case "SI7021":
		return SI7021, nil
	}
	return 0, fmt.Errorf("unknown sensor model %q", s)
}

// startPulse is how long the start signal holds the line low. The SI7021
// wakes on a short pulse; the DHT family needs the full 18ms.
func (m Model) startPulse() time.Duration {
	if m == SI7021 {
		return 500 * time.Microsecond
	}
	return 18 * time.Millisecond
}

// temperature converts a frame to degrees Celsius. The DHT11 reports
// whole degrees in a single byte; the other models report tenths of a
// degree as a 15-bit magnitude with a sign bit.
func (m Model) temperature(data [5]byte) float64 {
	if m == DHT11 {
		return float64(data[2])
	}
	t := float64(uint16(data[2]&0x7f)<<8|uint16(data[3])) * 0.1
	if data[2]&0x80 != 0 {
		t = -t
	}
	return t
}

// humidity converts a frame to percent relative humidity. The DHT11
// reports whole percent in a single byte; the other models report tenths
// of a percent in 16 bits.
func (m Model) humidity(data [5]byte) float64 {
	if m == DHT11 {
		return float64(data[0])
	}
	return float64(uint16(data[0])<<8|uint16(data[1])) * 0.1
}
