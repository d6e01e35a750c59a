package inverter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/sunsync/sunsync-hass/internal/config"
	"github.com/sunsync/sunsync-hass/internal/netutil"
)

// Client polls the local inverter monitoring endpoint for sensor readings
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewClient creates a new inverter monitoring client
func NewClient(baseURL string, logger *logrus.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: netutil.NewHTTPClient(config.InverterTimeout, logger),
		logger:     logger,
	}
}

// Poll fetches the current readings as a flat key/value mapping. The
// monitoring endpoint answers a single JSON object; every value is rendered
// to the string form Home Assistant stores as entity state.
func (c *Client) Poll(ctx context.Context) (map[string]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create inverter request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("inverter request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("inverter API returned status %d: %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read inverter response: %w", err)
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse inverter response: %w", err)
	}

	readings := make(map[string]string, len(raw))
	for key, value := range raw {
		rendered, ok := renderValue(value)
		if !ok {
			c.logger.WithField("key", key).Warn("Unsupported reading value, skipping")
			continue
		}
		readings[key] = rendered
	}

	c.logger.WithField("readings", len(readings)).Debug("Polled inverter readings")
	return readings, nil
}

// renderValue turns a decoded JSON value into its entity state string.
// Numbers keep their shortest representation so repeated polls of an
// unchanged inverter produce identical states.
func renderValue(value interface{}) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(v), true
	default:
		// Nested objects and nulls have no state representation.
		return "", false
	}
}
