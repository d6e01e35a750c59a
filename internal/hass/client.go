package hass

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sunsync/sunsync-hass/internal/config"
	"github.com/sunsync/sunsync-hass/internal/netutil"
)

// Session supplies the resolved credential and API base URL for each request.
// It is implemented by connection.Settings so that runtime rewrites of the
// base URL are picked up immediately.
type Session interface {
	AuthHeader() string
	APIBaseURL() string
}

// Client is a thin wrapper over the Home Assistant REST API. It only issues
// requests and reports status + body; classification of outcomes belongs to
// the callers.
type Client struct {
	session     Session
	httpClient  *http.Client
	probeClient *http.Client
	logger      *logrus.Logger
}

// Response is the raw outcome of a single API request.
type Response struct {
	StatusCode int
	Body       []byte
}

// NewClient creates a new Home Assistant API client
func NewClient(session Session, timeout time.Duration, logger *logrus.Logger) *Client {
	return &Client{
		session:     session,
		httpClient:  netutil.NewHTTPClient(timeout, logger),
		probeClient: netutil.NewHTTPClient(config.ReachabilityTimeout, logger),
		logger:      logger,
	}
}

// IsOKStatus reports whether a status code counts as success (200 or 201).
func IsOKStatus(code int) bool {
	return code == http.StatusOK || code == http.StatusCreated
}

// Get issues a GET against a path below the resolved API base URL.
// An empty path addresses the base URL root.
func (c *Client) Get(ctx context.Context, path string) (*Response, error) {
	return c.do(ctx, http.MethodGet, c.url(path), nil)
}

// Post marshals the payload to JSON and POSTs it to a path below the
// resolved API base URL.
func (c *Client) Post(ctx context.Context, path string, payload interface{}) (*Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request payload: %w", err)
	}
	return c.do(ctx, http.MethodPost, c.url(path), body)
}

// Probe issues an authenticated GET against an absolute URL. Used by the
// connectivity resolver to test candidate endpoints outside the current base.
func (c *Client) Probe(ctx context.Context, url string) (*Response, error) {
	return c.do(ctx, http.MethodGet, url, nil)
}

// Reachable reports whether the URL answers any HTTP response at all within
// the short reachability timeout. A failed or timed-out request means
// unreachable; the status code is irrelevant.
func (c *Client) Reachable(url string) bool {
	req, err := http.NewRequest(http.MethodHead, url, nil)
	if err != nil {
		return false
	}

	resp, err := c.probeClient.Do(req)
	if err != nil {
		c.logger.WithError(err).WithField("url", url).Debug("Host not reachable")
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return true
}

func (c *Client) url(path string) string {
	base := c.session.APIBaseURL()
	if path == "" {
		return base + "/"
	}
	return base + "/" + strings.TrimPrefix(path, "/")
}

func (c *Client) do(ctx context.Context, method, url string, payload []byte) (*Response, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	req.Header.Set("Authorization", c.session.AuthHeader())
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	c.logger.WithFields(logrus.Fields{
		"method":        method,
		"url":           url,
		"status_code":   resp.StatusCode,
		"response_size": len(body),
	}).Debug("Received API response")

	return &Response{StatusCode: resp.StatusCode, Body: body}, nil
}
