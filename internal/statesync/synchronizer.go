package statesync

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/sunsync/sunsync-hass/internal/hass"
	"github.com/sunsync/sunsync-hass/internal/sensors"
)

// stateUpdate is the body of a POST /states/<entity_id> request
type stateUpdate struct {
	State      string     `json:"state"`
	Attributes attributes `json:"attributes"`
}

type attributes struct {
	FriendlyName      string `json:"friendly_name"`
	UnitOfMeasurement string `json:"unit_of_measurement,omitempty"`
	DeviceClass       string `json:"device_class,omitempty"`
}

// Synchronizer pushes one state record per sensor reading into the Home
// Assistant state store.
type Synchronizer struct {
	client   *hass.Client
	verifier *Verifier
	logger   *logrus.Logger
}

// NewSynchronizer creates a synchronizer that runs the verifier once after
// every batch.
func NewSynchronizer(client *hass.Client, verifier *Verifier, logger *logrus.Logger) *Synchronizer {
	return &Synchronizer{
		client:   client,
		verifier: verifier,
		logger:   logger,
	}
}

// Sync creates or updates one entity per reading. A failed reading is logged
// and never aborts the rest of the batch; the returned error is the
// aggregate PartialFailureError when at least one reading failed. Readings
// are processed in sorted key order so identical input produces an identical
// request sequence.
func (s *Synchronizer) Sync(ctx context.Context, deviceID string, readings map[string]string) error {
	keys := make([]string, 0, len(readings))
	for key := range readings {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	failed := 0
	for _, key := range keys {
		if err := s.syncOne(ctx, deviceID, key, readings[key]); err != nil {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"device_id": deviceID,
				"key":       key,
			}).Warn("Failed to sync reading")
			failed++
		}
	}

	if err := s.verifier.Verify(ctx, deviceID); err != nil {
		s.logger.WithError(err).Warn("Post-sync verification failed")
	}

	if failed > 0 {
		return &PartialFailureError{Failed: failed, Total: len(readings)}
	}

	s.logger.WithFields(logrus.Fields{
		"device_id": deviceID,
		"entities":  len(readings),
	}).Debug("All readings synced")
	return nil
}

func (s *Synchronizer) syncOne(ctx context.Context, deviceID, key, value string) error {
	meta := sensors.Derive(key)
	entityID := EntityID(deviceID, key)

	update := stateUpdate{
		State: value,
		Attributes: attributes{
			FriendlyName:      fmt.Sprintf("SunSync %s %s", deviceID, key),
			UnitOfMeasurement: meta.Unit,
			DeviceClass:       meta.DeviceClass,
		},
	}

	resp, err := s.client.Post(ctx, "states/"+entityID, update)
	if err != nil {
		return fmt.Errorf("state update for %s: %w", entityID, err)
	}
	if !hass.IsOKStatus(resp.StatusCode) {
		return &hass.APIError{StatusCode: resp.StatusCode, Body: string(resp.Body)}
	}
	// A 2xx answer can still carry an error payload. The marker is the
	// quote-delimited JSON value, so entity ids built from keys like
	// error_code never trip it.
	if strings.Contains(string(resp.Body), `"error"`) {
		return &hass.APIError{StatusCode: resp.StatusCode, Body: string(resp.Body)}
	}

	return nil
}

// EntityID builds the entity id for a device's sensor key
func EntityID(deviceID, key string) string {
	return fmt.Sprintf("sensor.sunsync_%s_%s", deviceID, key)
}
