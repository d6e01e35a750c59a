package statesync

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sunsync/sunsync-hass/internal/connection"
	"github.com/sunsync/sunsync-hass/internal/hass"
)

// registryServer mocks the sentinel, bulk-states and registry endpoints.
type registryServer struct {
	mu             sync.Mutex
	sentinelStatus int
	modernStatus   int
	legacyStatus   int
	modernCalls    int
	legacyCalls    int
	sweepCalls     int
	lastEntry      map[string]string
}

func (s *registryServer) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		switch r.URL.Path {
		case "/api/states/sensor.sunsync_dev1_battery_soc":
			w.WriteHeader(s.sentinelStatus)
		case "/api/states":
			s.sweepCalls++
			w.Write([]byte(`[{"entity_id":"sun.sun"},{"entity_id":"sensor.sunsync_dev1_pv_power"},{"entity_id":"sensor.other"}]`))
		case "/api/" + connection.RegistryEndpointModern:
			s.modernCalls++
			json.NewDecoder(r.Body).Decode(&s.lastEntry)
			w.WriteHeader(s.modernStatus)
		case "/api/" + connection.RegistryEndpointLegacy:
			s.legacyCalls++
			json.NewDecoder(r.Body).Decode(&s.lastEntry)
			w.WriteHeader(s.legacyStatus)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func newTestVerifier(t *testing.T, srvURL, endpoint string) (*Verifier, *connection.Settings) {
	t.Helper()
	settings := &connection.Settings{
		Token:            "llt",
		OverrideURL:      srvURL + "/api",
		RegistryEndpoint: endpoint,
	}
	logger := quietLogger()
	client := hass.NewClient(settings, 2*time.Second, logger)
	return NewVerifier(client, settings, logger), settings
}

func TestVerifySentinelVisible(t *testing.T) {
	srv := &registryServer{sentinelStatus: http.StatusOK}
	ts := httptest.NewServer(srv.handler())
	defer ts.Close()

	v, _ := newTestVerifier(t, ts.URL, connection.RegistryEndpointLegacy)
	assert.NoError(t, v.Verify(context.Background(), "dev1"))

	// No diagnostics and no registration on a clean pass.
	assert.Zero(t, srv.sweepCalls)
	assert.Zero(t, srv.modernCalls)
	assert.Zero(t, srv.legacyCalls)
}

func TestVerifyMissRegistersOnce(t *testing.T) {
	srv := &registryServer{
		sentinelStatus: http.StatusNotFound,
		legacyStatus:   http.StatusOK,
	}
	ts := httptest.NewServer(srv.handler())
	defer ts.Close()

	v, _ := newTestVerifier(t, ts.URL, connection.RegistryEndpointLegacy)
	err := v.Verify(context.Background(), "dev1")

	var ve *VerificationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "sensor.sunsync_dev1_battery_soc", ve.EntityID)

	assert.Equal(t, 1, srv.sweepCalls)
	assert.Equal(t, 1, srv.legacyCalls)
	assert.Zero(t, srv.modernCalls)
	assert.Equal(t, map[string]string{
		"entity_id":    "sensor.sunsync_dev1_battery_soc",
		"name":         "SunSync dev1 battery_soc",
		"device_class": "battery",
	}, srv.lastEntry)
}

func TestVerifyModernFailureRetriesLegacyOnce(t *testing.T) {
	srv := &registryServer{
		sentinelStatus: http.StatusNotFound,
		modernStatus:   http.StatusBadRequest,
		legacyStatus:   http.StatusOK,
	}
	ts := httptest.NewServer(srv.handler())
	defer ts.Close()

	v, settings := newTestVerifier(t, ts.URL, connection.RegistryEndpointModern)
	err := v.Verify(context.Background(), "dev1")

	var ve *VerificationError
	require.ErrorAs(t, err, &ve)

	assert.Equal(t, 1, srv.modernCalls)
	assert.Equal(t, 1, srv.legacyCalls)
	// The working legacy endpoint becomes the new default.
	assert.Equal(t, connection.RegistryEndpointLegacy, settings.RegistryEndpoint)
}

func TestVerifyLegacyFailureDoesNotRetry(t *testing.T) {
	srv := &registryServer{
		sentinelStatus: http.StatusNotFound,
		legacyStatus:   http.StatusBadRequest,
	}
	ts := httptest.NewServer(srv.handler())
	defer ts.Close()

	v, settings := newTestVerifier(t, ts.URL, connection.RegistryEndpointLegacy)
	err := v.Verify(context.Background(), "dev1")

	var ve *VerificationError
	require.ErrorAs(t, err, &ve)

	assert.Equal(t, 1, srv.legacyCalls)
	assert.Zero(t, srv.modernCalls)
	assert.Equal(t, connection.RegistryEndpointLegacy, settings.RegistryEndpoint)
}

func TestVerifyRegistrationFailureStillReportsVerificationError(t *testing.T) {
	srv := &registryServer{
		sentinelStatus: http.StatusNotFound,
		modernStatus:   http.StatusBadRequest,
		legacyStatus:   http.StatusBadRequest,
	}
	ts := httptest.NewServer(srv.handler())
	defer ts.Close()

	v, settings := newTestVerifier(t, ts.URL, connection.RegistryEndpointModern)
	err := v.Verify(context.Background(), "dev1")

	var ve *VerificationError
	require.ErrorAs(t, err, &ve)
	// Both endpoints failed; modern stays the default.
	assert.Equal(t, connection.RegistryEndpointModern, settings.RegistryEndpoint)
}
