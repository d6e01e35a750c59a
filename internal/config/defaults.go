package config

import "time"

// Central place for all application-wide timing constants and other defaults.
// Changing a value here immediately affects all components that import
// github.com/sunsync/sunsync-hass/internal/config.

const (
	// Operation time-outs
	ReachabilityTimeout  = 3 * time.Second // HEAD-style reachability probe
	InverterTimeout      = 8 * time.Second // Inverter monitoring API call
	GatewayLookupTimeout = 3 * time.Second // `ip route` default gateway lookup

	// Home Assistant supervisor networking
	SupervisorHost     = "http://supervisor"
	SupervisorProxyURL = SupervisorHost + "/core/api"
)
