package connection

import (
	"context"
	"fmt"
	"net"
	"os/exec"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/sunsync/sunsync-hass/internal/config"
)

const dockerInternalHost = "host.docker.internal"

// dockerFallbackHosts are well-known addresses where the container host's
// Home Assistant tends to live when the configured hostname does not resolve
// from inside a container.
var dockerFallbackHosts = []string{
	"172.17.0.1",
	"192.168.1.1",
	dockerInternalHost,
}

// detectDockerHost works around Docker networking where the configured host
// is unreachable from inside the container. Only runs in long-lived-token
// mode. Tries the default gateway, the fixed fallback list, and finally DNS
// resolution of host.docker.internal; the first candidate whose API port
// answers replaces the configured host. Never fails the caller: with no
// winner the configuration stays as it was.
func (r *Resolver) detectDockerHost(ctx context.Context) {
	if r.client.Reachable(r.apiURLFor(r.settings.Host)) {
		return
	}

	r.logger.WithField("host", r.settings.Host).Warn("Configured host unreachable, trying Docker host candidates")

	for _, candidate := range r.hostCandidates(ctx) {
		if !r.client.Reachable(r.apiURLFor(candidate)) {
			continue
		}
		r.logger.WithFields(logrus.Fields{
			"old_host": r.settings.Host,
			"new_host": candidate,
		}).Info("Docker host candidate reachable, rewriting configured host")
		r.settings.Host = candidate
		return
	}

	r.logger.Warn("No Docker host candidate reachable, leaving configuration unchanged")
}

// dockerHostCandidates gathers the candidate hosts in probe order. Installed
// as the default hostCandidates source on every resolver.
func (r *Resolver) dockerHostCandidates(ctx context.Context) []string {
	gateway, err := defaultGateway(ctx)
	if err != nil {
		r.logger.WithError(err).Debug("Default gateway lookup failed")
		gateway = ""
	}

	var dnsAddrs []string
	if addrs, err := net.DefaultResolver.LookupHost(ctx, dockerInternalHost); err == nil {
		dnsAddrs = addrs
	}

	return assembleCandidates(gateway, dnsAddrs)
}

// assembleCandidates fixes the probe order: default gateway first, then the
// fixed fallback list, then the resolved host.docker.internal address.
func assembleCandidates(gateway string, dnsAddrs []string) []string {
	var candidates []string
	if gateway != "" {
		candidates = append(candidates, gateway)
	}
	candidates = append(candidates, dockerFallbackHosts...)
	if len(dnsAddrs) > 0 {
		candidates = append(candidates, dnsAddrs[0])
	}
	return candidates
}

func (r *Resolver) apiURLFor(host string) string {
	return fmt.Sprintf("%s://%s:%s/api", r.settings.Scheme, host, r.settings.Port)
}

// defaultGateway asks the routing table for the default gateway address
func defaultGateway(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, config.GatewayLookupTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, "ip", "route", "show", "default").Output()
	if err != nil {
		return "", fmt.Errorf("ip route lookup failed: %w", err)
	}

	gw := parseGateway(string(out))
	if gw == "" {
		return "", fmt.Errorf("no default gateway in route table")
	}
	return gw, nil
}

// parseGateway extracts the address following "via" from `ip route` output,
// e.g. "default via 172.17.0.1 dev eth0".
func parseGateway(out string) string {
	fields := strings.Fields(out)
	for i, f := range fields {
		if f == "via" && i+1 < len(fields) {
			return fields[i+1]
		}
	}
	return ""
}
