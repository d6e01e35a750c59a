package connection

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/sunsync/sunsync-hass/internal/config"
	"github.com/sunsync/sunsync-hass/internal/hass"
)

// ErrConnectivity signals that every fallback strategy was exhausted without
// reaching the Home Assistant API. Fatal to the current cycle, not to the
// process; the caller retries on its next cycle.
var ErrConnectivity = errors.New("home assistant API unreachable")

// Resolver probes the possible paths to the Home Assistant API and rewrites
// the connection settings when a working one is found.
type Resolver struct {
	settings *Settings
	client   *hass.Client
	logger   *logrus.Logger

	// supervisorHost is overridable for tests; production always talks to
	// the well-known supervisor address.
	supervisorHost string

	// hostCandidates supplies the Docker host candidates in probe order.
	// Defaults to dockerHostCandidates; overridable for tests.
	hostCandidates func(ctx context.Context) []string
}

// NewResolver creates a resolver operating on the shared settings record
func NewResolver(settings *Settings, client *hass.Client, logger *logrus.Logger) *Resolver {
	r := &Resolver{
		settings:       settings,
		client:         client,
		logger:         logger,
		supervisorHost: config.SupervisorHost,
	}
	r.hostCandidates = r.dockerHostCandidates
	return r
}

// EnsureConnectivity finds a working path to the API, in priority order:
// the mode-derived base URL, the supervisor endpoint alternates, and finally
// the directly configured host. The first strategy that answers 200/201 wins
// and triggers version negotiation. All strategies exhausted returns
// ErrConnectivity.
func (r *Resolver) EnsureConnectivity(ctx context.Context) error {
	if r.settings.Mode() == AuthLongLivedToken {
		r.detectDockerHost(ctx)
	}

	if r.probe(ctx, r.primaryProbeURL()) {
		r.logger.WithField("base_url", r.settings.APIBaseURL()).Info("Home Assistant API reachable")
		r.NegotiateVersion(ctx)
		return nil
	}

	if r.settings.Mode() == AuthSupervisor {
		if r.trySupervisorAlternates(ctx) {
			return nil
		}
		if r.tryDirectFallback(ctx) {
			return nil
		}
	}

	r.logger.Error("All connectivity strategies exhausted")
	return fmt.Errorf("ensure connectivity: %w", ErrConnectivity)
}

// primaryProbeURL picks the liveness endpoint for the active mode. Under the
// supervisor proxy /config answers more reliably than /states; elsewhere the
// API root is enough.
func (r *Resolver) primaryProbeURL() string {
	base := r.settings.APIBaseURL()
	if r.settings.Mode() == AuthSupervisor {
		return base + "/config"
	}
	return base + "/"
}

// trySupervisorAlternates walks the known supervisor endpoint variants in
// order. The first one answering 200/201 becomes the override base URL,
// with the endpoint's last path segment stripped.
func (r *Resolver) trySupervisorAlternates(ctx context.Context) bool {
	candidates := []string{
		r.supervisorHost + "/core/api/states",
		r.supervisorHost + "/core/api/config",
		r.supervisorHost + "/core/api",
	}

	for _, candidate := range candidates {
		if !r.probe(ctx, candidate) {
			continue
		}
		override := parentPath(candidate)
		r.settings.OverrideURL = override
		r.logger.WithFields(logrus.Fields{
			"endpoint": candidate,
			"base_url": override,
		}).Info("Supervisor alternate endpoint reachable, overriding base URL")
		r.NegotiateVersion(ctx)
		return true
	}

	return false
}

// tryDirectFallback probes the directly configured host as a last resort for
// a broken supervisor proxy. On success the supervisor credential is dropped
// so all further requests use the long-lived token against the direct URL.
func (r *Resolver) tryDirectFallback(ctx context.Context) bool {
	if r.settings.Host == "" || r.settings.Port == "" {
		return false
	}

	direct := r.settings.DirectAPIURL()
	if !r.probe(ctx, direct) {
		return false
	}

	r.settings.SupervisorToken = ""
	r.settings.OverrideURL = direct
	r.logger.WithField("base_url", direct).Warn("Supervisor proxy unusable, switched to direct long-lived-token access")
	r.NegotiateVersion(ctx)
	return true
}

// probe is the uniform attempt-and-test step for every candidate endpoint
func (r *Resolver) probe(ctx context.Context, url string) bool {
	resp, err := r.client.Probe(ctx, url)
	if err != nil {
		r.logger.WithError(err).WithField("url", url).Debug("Probe failed")
		return false
	}
	r.logger.WithFields(logrus.Fields{
		"url":         url,
		"status_code": resp.StatusCode,
	}).Debug("Probe answered")
	return hass.IsOKStatus(resp.StatusCode)
}

// parentPath strips the last /-delimited segment from an endpoint URL
func parentPath(endpoint string) string {
	if i := strings.LastIndex(endpoint, "/"); i > 0 {
		return endpoint[:i]
	}
	return endpoint
}
