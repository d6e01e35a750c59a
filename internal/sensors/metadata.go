package sensors

import "strings"

// Metadata is the Home Assistant presentation metadata derived from a sensor
// key name. Both fields are empty for keys that match no known suffix.
type Metadata struct {
	Unit        string
	DeviceClass string
}

// suffixTable maps sensor key suffixes to their unit and device class.
// Checked in order, first match wins.
var suffixTable = []struct {
	suffixes []string
	meta     Metadata
}{
	{[]string{"_power"}, Metadata{Unit: "W", DeviceClass: "power"}},
	{[]string{"_energy", "_charge", "_discharge"}, Metadata{Unit: "kWh", DeviceClass: "energy"}},
	{[]string{"_voltage"}, Metadata{Unit: "V", DeviceClass: "voltage"}},
	{[]string{"_current"}, Metadata{Unit: "A", DeviceClass: "current"}},
	{[]string{"_frequency"}, Metadata{Unit: "Hz", DeviceClass: "frequency"}},
	{[]string{"_temperature", "_temp"}, Metadata{Unit: "°C", DeviceClass: "temperature"}},
	{[]string{"_soc"}, Metadata{Unit: "%", DeviceClass: "battery"}},
}

// Derive returns the metadata for a sensor key, or the zero Metadata when no
// suffix matches.
func Derive(key string) Metadata {
	for _, row := range suffixTable {
		for _, suffix := range row.suffixes {
			if strings.HasSuffix(key, suffix) {
				return row.meta
			}
		}
	}
	return Metadata{}
}
