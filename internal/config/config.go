package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the SunSync-HASS application
type Config struct {
	// Home Assistant connection
	SupervisorToken string `yaml:"supervisor_token"`      // Supervisor-issued token; presence selects supervisor auth mode
	Token           string `yaml:"ha_token"`              // Long-lived access token, used when no supervisor token is set
	Host            string `yaml:"ha_ip"`                 // Home Assistant host or IP
	Port            string `yaml:"ha_port"`               // Home Assistant port
	Scheme          string `yaml:"http_connect_type"`     // http or https
	OverrideURL     string `yaml:"api_base_url_override"` // Explicit API base URL, wins over everything else

	// Device Configuration
	DeviceID string `yaml:"device_id"` // Identifier embedded in every entity id

	// Inverter monitoring endpoint
	InverterURL string `yaml:"inverter_url"` // URL returning the key/value sensor readings

	// Application Configuration
	Verbose     bool `yaml:"verbose"`       // Enable verbose logging
	SyncSeconds int  `yaml:"sync_interval"` // Seconds between sync cycles (default: 30)
	APITimeout  int  `yaml:"api_timeout"`   // API request timeout in seconds (default: 10)
}

// GetDefaultConfig returns a configuration with sensible defaults
func GetDefaultConfig() *Config {
	return &Config{
		Host:        "homeassistant.local",
		Port:        "8123",
		Scheme:      "http",
		DeviceID:    "inverter",
		Verbose:     false,
		SyncSeconds: 30,
		APITimeout:  10,
	}
}

// LoadFile merges a YAML configuration file over the current values
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.SupervisorToken == "" && c.Token == "" {
		return fmt.Errorf("either a supervisor token or a long-lived token is required")
	}

	if c.Scheme != "http" && c.Scheme != "https" {
		return fmt.Errorf("connect type must be http or https, got %q", c.Scheme)
	}

	// Without a supervisor token the direct host/port is the only path in.
	if c.SupervisorToken == "" {
		if c.Host == "" {
			return fmt.Errorf("Home Assistant host is required")
		}
		if c.Port == "" {
			return fmt.Errorf("Home Assistant port is required")
		}
	}

	if c.DeviceID == "" {
		return fmt.Errorf("device ID is required")
	}

	// Set defaults for invalid values
	if c.APITimeout <= 0 {
		c.APITimeout = 10
	}
	if c.SyncSeconds <= 0 {
		c.SyncSeconds = 30
	}

	return nil
}

// HasSupervisor returns true if a supervisor token is configured
func (c *Config) HasSupervisor() bool {
	return c.SupervisorToken != ""
}

// GetAPITimeout returns the API timeout as a duration
func (c *Config) GetAPITimeout() time.Duration {
	return time.Duration(c.APITimeout) * time.Second
}

// GetSyncInterval returns the sync cycle interval as a duration
func (c *Config) GetSyncInterval() time.Duration {
	return time.Duration(c.SyncSeconds) * time.Second
}
