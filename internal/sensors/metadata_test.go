package sensors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDerive(t *testing.T) {
	tests := []struct {
		key         string
		unit        string
		deviceClass string
	}{
		{"pv_power", "W", "power"},
		{"load_power", "W", "power"},
		{"day_energy", "kWh", "energy"},
		{"battery_charge", "kWh", "energy"},
		{"battery_discharge", "kWh", "energy"},
		{"battery_voltage", "V", "voltage"},
		{"battery_current", "A", "current"},
		{"grid_frequency", "Hz", "frequency"},
		{"inverter_temperature", "°C", "temperature"},
		{"heatsink_temp", "°C", "temperature"},
		{"battery_soc", "%", "battery"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			meta := Derive(tt.key)
			assert.Equal(t, tt.unit, meta.Unit)
			assert.Equal(t, tt.deviceClass, meta.DeviceClass)
		})
	}
}

func TestDeriveUnknownKey(t *testing.T) {
	for _, key := range []string{"serial_number", "mode", "power", ""} {
		meta := Derive(key)
		assert.Empty(t, meta.Unit, "key %q", key)
		assert.Empty(t, meta.DeviceClass, "key %q", key)
	}
}
