package statesync

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/sunsync/sunsync-hass/internal/connection"
	"github.com/sunsync/sunsync-hass/internal/hass"
)

// registryEntry is the body of an explicit entity registry registration
type registryEntry struct {
	EntityID    string `json:"entity_id"`
	Name        string `json:"name"`
	DeviceClass string `json:"device_class"`
}

// Verifier confirms after a sync batch that entities actually landed in the
// state store, and attempts an explicit registry registration when they did
// not.
type Verifier struct {
	client   *hass.Client
	settings *connection.Settings
	logger   *logrus.Logger
}

// NewVerifier creates a verifier operating on the shared settings record
func NewVerifier(client *hass.Client, settings *connection.Settings, logger *logrus.Logger) *Verifier {
	return &Verifier{
		client:   client,
		settings: settings,
		logger:   logger,
	}
}

// Verify probes the device's battery_soc entity as a cheap representative of
// the whole batch. When it is missing, a diagnostic sweep of the state store
// is logged and a registration is attempted, falling back from the modern to
// the legacy registry endpoint. Registration is remediation only: the
// sentinel miss is reported as a VerificationError regardless of how the
// registration went.
func (v *Verifier) Verify(ctx context.Context, deviceID string) error {
	sentinel := EntityID(deviceID, "battery_soc")

	resp, err := v.client.Get(ctx, "states/"+sentinel)
	if err == nil && hass.IsOKStatus(resp.StatusCode) {
		v.logger.WithField("entity_id", sentinel).Debug("Sentinel entity visible")
		return nil
	}
	if err != nil {
		v.logger.WithError(err).Warn("Sentinel probe failed")
	} else {
		v.logger.WithFields(logrus.Fields{
			"entity_id":   sentinel,
			"status_code": resp.StatusCode,
		}).Warn("Sentinel entity not found")
	}

	v.reportStateStore(ctx)
	v.register(ctx, sentinel, deviceID)

	return &VerificationError{EntityID: sentinel}
}

// reportStateStore counts how many entities the state store holds in total
// and how many of them are ours. Informational only.
func (v *Verifier) reportStateStore(ctx context.Context) {
	resp, err := v.client.Get(ctx, "states")
	if err != nil {
		v.logger.WithError(err).Warn("State store diagnostic sweep failed")
		return
	}

	body := string(resp.Body)
	v.logger.WithFields(logrus.Fields{
		"total_entities":   strings.Count(body, "entity_id"),
		"sunsync_entities": strings.Count(body, "sunsync"),
	}).Info("State store diagnostics")
}

// register attempts an explicit entity registry registration, retrying once
// against the legacy endpoint when the modern one rejects. A legacy success
// persists legacy as the default for future calls.
func (v *Verifier) register(ctx context.Context, entityID, deviceID string) {
	entry := registryEntry{
		EntityID:    entityID,
		Name:        fmt.Sprintf("SunSync %s battery_soc", deviceID),
		DeviceClass: "battery",
	}

	endpoint := v.settings.RegistryEndpoint
	if v.postRegistration(ctx, endpoint, entry) {
		v.logger.WithField("endpoint", endpoint).Info("Entity registered")
		return
	}

	if endpoint != connection.RegistryEndpointModern {
		v.logger.WithField("endpoint", endpoint).Warn("Entity registration failed")
		return
	}

	if v.postRegistration(ctx, connection.RegistryEndpointLegacy, entry) {
		v.settings.RegistryEndpoint = connection.RegistryEndpointLegacy
		v.logger.WithField("endpoint", connection.RegistryEndpointLegacy).Info("Legacy registry endpoint accepted, persisting as default")
		return
	}

	v.logger.Warn("Entity registration failed on both registry endpoints")
}

func (v *Verifier) postRegistration(ctx context.Context, endpoint string, entry registryEntry) bool {
	resp, err := v.client.Post(ctx, endpoint, entry)
	if err != nil {
		v.logger.WithError(err).WithField("endpoint", endpoint).Debug("Registration request failed")
		return false
	}
	return hass.IsOKStatus(resp.StatusCode)
}
