package dht

import (
	"math"
	"testing"
	"time"
)

func TestParseModel(t *testing.T) {
	tests := []struct {
		in      string
		want    Model
		wantErr bool
	}{
		{"DHT11", DHT11, false},
		{"dht22", DHT22, false},
		{" AM2302 ", DHT22, false},
		{"AM2301", DHT21, false},
		{"dht21", DHT21, false},
		{"SI7021", SI7021, false},
		{"BME280", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseModel(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseModel(%q) = %v, want error", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseModel(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseModel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestModelString(t *testing.T) {
	tests := []struct {
		m    Model
		want string
	}{
		{DHT11, "DHT11"},
		{DHT21, "DHT21"},
		{AM2301, "DHT21"},
		{DHT22, "DHT22"},
		{SI7021, "SI7021"},
		{Model(5), "Model(5)"},
	}
	for _, tt := range tests {
		if got := tt.m.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", int(tt.m), got, tt.want)
		}
	}
}

func TestModelStartPulse(t *testing.T) {
	for _, m := range []Model{DHT11, DHT21, DHT22} {
		if got := m.startPulse(); got != 18*time.Millisecond {
			t.Errorf("%v startPulse = %v, want 18ms", m, got)
		}
	}
	if got := SI7021.startPulse(); got != 500*time.Microsecond {
		t.Errorf("SI7021 startPulse = %v, want 500µs", got)
	}
}

func TestModelConversions(t *testing.T) {
	tests := []struct {
		name     string
		m        Model
		data     [5]byte
		wantTemp float64
		wantHum  float64
	}{
		{
			name:     "dht11 whole degrees",
			m:        DHT11,
			data:     [5]byte{0x32, 0x00, 0x19, 0x00, 0x4b},
			wantTemp: 25.0,
			wantHum:  50.0,
		},
		{
			name:     "dht22 negative tenths",
			m:        DHT22,
			data:     [5]byte{0x02, 0x8c, 0x80, 0x19, 0x27},
			wantTemp: -2.5,
			wantHum:  65.2,
		},
		{
			name:     "dht22 positive tenths",
			m:        DHT22,
			data:     [5]byte{0x02, 0x8c, 0x01, 0x19, 0xa8},
			wantTemp: 28.1,
			wantHum:  65.2,
		},
		{
			name:     "dht21 shares the tenths path",
			m:        DHT21,
			data:     [5]byte{0x01, 0xf4, 0x00, 0xfa, 0xef},
			wantTemp: 25.0,
			wantHum:  50.0,
		},
		{
			name:     "si7021 shares the tenths path",
			m:        SI7021,
			data:     [5]byte{0x01, 0xf4, 0x80, 0xfa, 0x6f},
			wantTemp: -25.0,
			wantHum:  50.0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.m.temperature(tt.data); !closeTo(got, tt.wantTemp) {
				t.Errorf("temperature = %v, want %v", got, tt.wantTemp)
			}
			if got := tt.m.humidity(tt.data); !closeTo(got, tt.wantHum) {
				t.Errorf("humidity = %v, want %v", got, tt.wantHum)
			}
		})
	}
}

// closeTo compares floats with enough slack for the 0.1 scale factor.
func closeTo(got, want float64) bool {
	return math.Abs(got-want) <= 1e-9
}
