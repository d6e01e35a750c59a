package statesync

import (
	"github.com/sirupsen/logrus"
	"github.com/sunsync/sunsync-hass/internal/connection"
)

// Reporter dumps the resolved connection state for operator troubleshooting.
// Read-only; it never influences any decision.
type Reporter struct {
	settings *connection.Settings
	logger   *logrus.Logger
}

// NewReporter creates a diagnostics reporter over the shared settings record
func NewReporter(settings *connection.Settings, logger *logrus.Logger) *Reporter {
	return &Reporter{settings: settings, logger: logger}
}

// Report logs the effective connection configuration
func (r *Reporter) Report() {
	s := r.settings
	r.logger.WithFields(logrus.Fields{
		"auth_mode":         s.Mode().String(),
		"base_url":          s.APIBaseURL(),
		"override_url":      s.OverrideURL,
		"direct_url":        s.DirectAPIURL(),
		"api_version":       s.APIVersion,
		"registry_endpoint": s.RegistryEndpoint,
	}).Info("Connection diagnostics")
}
