package connection

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/sunsync/sunsync-hass/internal/hass"
)

func negotiateAgainstBody(t *testing.T, body string, status int, startEndpoint string) *Settings {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	defer srv.Close()

	settings := &Settings{
		Token:            "llt",
		OverrideURL:      srv.URL,
		RegistryEndpoint: startEndpoint,
	}
	logger := quietLogger()
	client := hass.NewClient(settings, 2*time.Second, logger)
	r := NewResolver(settings, client, logger)
	r.NegotiateVersion(context.Background())
	return settings
}

func TestNegotiateVersionModern(t *testing.T) {
	s := negotiateAgainstBody(t, `{"message":"API running.","version":"2023.5.1"}`, http.StatusOK, RegistryEndpointLegacy)
	assert.Equal(t, "2023.5.1", s.APIVersion)
	assert.Equal(t, RegistryEndpointModern, s.RegistryEndpoint)
}

func TestNegotiateVersionLegacy(t *testing.T) {
	s := negotiateAgainstBody(t, `{"version":"2022.12.0"}`, http.StatusOK, RegistryEndpointModern)
	assert.Equal(t, "2022.12.0", s.APIVersion)
	assert.Equal(t, RegistryEndpointLegacy, s.RegistryEndpoint)
}

func TestNegotiateVersionRawFallback(t *testing.T) {
	// Not valid JSON, but the version field shape is still there.
	s := negotiateAgainstBody(t, `<html>"version": "2024.1.0"</html>`, http.StatusOK, RegistryEndpointLegacy)
	assert.Equal(t, "2024.1.0", s.APIVersion)
	assert.Equal(t, RegistryEndpointModern, s.RegistryEndpoint)
}

func TestNegotiateVersionUndeterminable(t *testing.T) {
	s := negotiateAgainstBody(t, `{"message":"API running."}`, http.StatusOK, RegistryEndpointModern)
	assert.Empty(t, s.APIVersion)
	// Previously selected endpoint stays in place.
	assert.Equal(t, RegistryEndpointModern, s.RegistryEndpoint)
}

func TestNegotiateVersionRejected(t *testing.T) {
	s := negotiateAgainstBody(t, `{"version":"2023.5.1"}`, http.StatusUnauthorized, RegistryEndpointLegacy)
	assert.Empty(t, s.APIVersion)
	assert.Equal(t, RegistryEndpointLegacy, s.RegistryEndpoint)
}

func TestExtractVersion(t *testing.T) {
	assert.Equal(t, "2023.7.0", extractVersion([]byte(`{"version":"2023.7.0"}`)))
	assert.Equal(t, "0.117.4", extractVersion([]byte(`junk "version" : "0.117.4" junk`)))
	assert.Empty(t, extractVersion([]byte(`{}`)))
	assert.Empty(t, extractVersion([]byte(`not json at all`)))
}
