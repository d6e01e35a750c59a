package connection

import (
	"context"
	"encoding/json"
	"regexp"

	"github.com/sirupsen/logrus"
	"github.com/sunsync/sunsync-hass/internal/hass"
)

// Home Assistant moved to year-based versioning; 2023.x and later expose the
// modern entity registry path.
var modernVersionPattern = regexp.MustCompile(`^202[3-9]\.`)

// versionFieldPattern recovers the version field from bodies that are not
// clean JSON, preserving the documented "version": "<value>" shape.
var versionFieldPattern = regexp.MustCompile(`"version"\s*:\s*"([^"]+)"`)

// NegotiateVersion queries the API root for the platform version and selects
// the matching registry endpoint. Best effort: an undeterminable version
// leaves the previously selected endpoint in place and never fails the
// caller.
func (r *Resolver) NegotiateVersion(ctx context.Context) {
	resp, err := r.client.Get(ctx, "")
	if err != nil {
		r.logger.WithError(err).Warn("Version probe failed, keeping current registry endpoint")
		return
	}
	if !hass.IsOKStatus(resp.StatusCode) {
		r.logger.WithField("status_code", resp.StatusCode).Warn("Version probe rejected, keeping current registry endpoint")
		return
	}

	version := extractVersion(resp.Body)
	if version == "" {
		r.logger.Warn("Could not determine API version, keeping current registry endpoint")
		return
	}

	r.settings.APIVersion = version
	if modernVersionPattern.MatchString(version) {
		r.settings.RegistryEndpoint = RegistryEndpointModern
	} else {
		r.settings.RegistryEndpoint = RegistryEndpointLegacy
	}

	r.logger.WithFields(logrus.Fields{
		"api_version":       version,
		"registry_endpoint": r.settings.RegistryEndpoint,
	}).Info("Negotiated API version")
}

// extractVersion prefers a structured decode and falls back to the raw
// version field pattern for non-JSON bodies.
func extractVersion(body []byte) string {
	var root struct {
		Version string `json:"version"`
	}
	if err := json.Unmarshal(body, &root); err == nil && root.Version != "" {
		return root.Version
	}

	if m := versionFieldPattern.FindSubmatch(body); m != nil {
		return string(m[1])
	}
	return ""
}
