package connection

import (
	"fmt"

	"github.com/sunsync/sunsync-hass/internal/config"
)

// AuthMode selects how requests authenticate against Home Assistant.
type AuthMode int

const (
	// AuthSupervisor uses the supervisor-issued token and proxy URL.
	AuthSupervisor AuthMode = iota
	// AuthLongLivedToken uses a user-provisioned long-lived access token.
	AuthLongLivedToken
)

func (m AuthMode) String() string {
	if m == AuthSupervisor {
		return "supervisor"
	}
	return "long_lived_token"
}

// Registry endpoint paths, relative to the API base URL. Home Assistant
// renamed the registration path with the 2023.x releases.
const (
	RegistryEndpointModern = "config/entity_registry/entity"
	RegistryEndpointLegacy = "config/entity_registry/registry"
)

// Settings is the process-wide connection record. It is created once from
// configuration and mutated at runtime only by the Resolver and the version
// negotiation, always from the sync cycle's own goroutine.
type Settings struct {
	SupervisorToken string
	Token           string
	Scheme          string
	Host            string
	Port            string

	// OverrideURL, when set, wins over the mode-derived base URL.
	OverrideURL string

	// APIVersion is filled in by version negotiation, best effort.
	APIVersion string

	// RegistryEndpoint is the registration path selected for the detected
	// API version. Defaults to the legacy path until negotiation says
	// otherwise.
	RegistryEndpoint string
}

// NewSettings seeds the connection record from loaded configuration
func NewSettings(cfg *config.Config) *Settings {
	return &Settings{
		SupervisorToken:  cfg.SupervisorToken,
		Token:            cfg.Token,
		Scheme:           cfg.Scheme,
		Host:             cfg.Host,
		Port:             cfg.Port,
		OverrideURL:      cfg.OverrideURL,
		RegistryEndpoint: RegistryEndpointLegacy,
	}
}

// Mode returns the active authentication mode. Exactly one mode is active at
// a time, selected by presence of the supervisor token.
func (s *Settings) Mode() AuthMode {
	if s.SupervisorToken != "" {
		return AuthSupervisor
	}
	return AuthLongLivedToken
}

// AuthHeader returns the Authorization header value for the active mode
func (s *Settings) AuthHeader() string {
	if s.SupervisorToken != "" {
		return "Bearer " + s.SupervisorToken
	}
	return "Bearer " + s.Token
}

// APIBaseURL resolves the effective API base URL: explicit override first,
// then the supervisor proxy, then the configured scheme/host/port.
func (s *Settings) APIBaseURL() string {
	if s.OverrideURL != "" {
		return s.OverrideURL
	}
	if s.Mode() == AuthSupervisor {
		return config.SupervisorProxyURL
	}
	return s.DirectAPIURL()
}

// DirectAPIURL returns the API URL built from the configured host and port
func (s *Settings) DirectAPIURL() string {
	return fmt.Sprintf("%s://%s:%s/api", s.Scheme, s.Host, s.Port)
}
