// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-dkg.
//
// go-dkg is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package client is an HTTP client for the dkg-server REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jeremyhahn/go-dkg/pkg/audit"
	"github.com/jeremyhahn/go-dkg/pkg/correlation"
	"github.com/jeremyhahn/go-dkg/pkg/dkg"
	"github.com/jeremyhahn/go-dkg/pkg/health"
	"github.com/jeremyhahn/go-dkg/pkg/threshold/shamir"
)

var (
	// ErrInvalidAddress is returned for an empty or unparsable server address
	ErrInvalidAddress = errors.New("invalid server address")
	// ErrConnectionFailed is returned when the server cannot be reached
	ErrConnectionFailed = errors.New("connection failed")
)

// Config configures a Client.
type Config struct {
	// Address is the server base URL. A missing scheme defaults to http.
	Address string

	// Timeout bounds each request (default: 30s)
	Timeout time.Duration

	// Headers are added to every request
	Headers map[string]string

	// HTTPClient overrides the transport, mainly for tests
	HTTPClient *http.Client
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Err        string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server error (%d): %s: %s", e.StatusCode, e.Err, e.Message)
	}
	return fmt.Sprintf("server error (%d): %s", e.StatusCode, e.Err)
}

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}

// CreateRequest describes a new session.
type CreateRequest struct {
	Threshold        int        `json:"threshold"`
	Participants     []string   `json:"participants"`
	Polynomials      [][]string `json:"polynomials,omitempty"`
	EnforceThreshold *bool      `json:"enforce_threshold,omitempty"`
	Convention       string     `json:"convention,omitempty"`
}

// Session is a session held by the server.
type Session struct {
	ID        string         `json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	Session   *dkg.Snapshot  `json:"session"`
	Escrow    *shamir.Escrow `json:"escrow,omitempty"`
}

// Summary is one entry of ListSessions.
type Summary struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	State        string    `json:"state"`
	Threshold    int       `json:"threshold"`
	Participants int       `json:"participants"`
	Active       int       `json:"active"`
}

// Health is the /health response.
type Health struct {
	Status   health.Status        `json:"status"`
	Version  string               `json:"version"`
	Sessions int                  `json:"sessions"`
	Uptime   string               `json:"uptime"`
	Checks   []health.CheckResult `json:"checks"`
}

// Client talks to a dkg-server.
type Client struct {
	baseURL    string
	headers    map[string]string
	httpClient *http.Client
}

// New creates a client. It does not contact the server.
func New(cfg *Config) (*Client, error) {
	if cfg == nil || strings.TrimSpace(cfg.Address) == "" {
		return nil, ErrInvalidAddress
	}

	baseURL := strings.TrimSpace(cfg.Address)
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}
	baseURL = strings.TrimSuffix(baseURL, "/")
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL:    baseURL,
		headers:    cfg.Headers,
		httpClient: httpClient,
	}, nil
}

// BaseURL returns the normalized server URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// Health queries /health. An unhealthy server answers 503 with a body,
// which is returned together with the APIError.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var resp Health
	err := c.do(ctx, http.MethodGet, "/health", nil, &resp)
	if err != nil && !IsStatus(err, http.StatusServiceUnavailable) {
		return nil, err
	}
	return &resp, err
}

// CreateSession creates and distributes a new session.
func (c *Client) CreateSession(ctx context.Context, req *CreateRequest) (*Session, error) {
	var resp Session
	if err := c.do(ctx, http.MethodPost, "/api/v1/sessions", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListSessions lists held sessions, oldest first.
func (c *Client) ListSessions(ctx context.Context) ([]Summary, error) {
	var resp struct {
		Sessions []Summary `json:"sessions"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/sessions", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Sessions, nil
}

// GetSession returns one session.
func (c *Client) GetSession(ctx context.Context, id string) (*Session, error) {
	var resp Session
	if err := c.do(ctx, http.MethodGet, sessionPath(id, ""), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Submit sends one line of removal input: a participant name, or the
// finish token to finalize.
func (c *Client) Submit(ctx context.Context, id, input string) (*dkg.Outcome, error) {
	var resp dkg.Outcome
	body := map[string]string{"name": input}
	if err := c.do(ctx, http.MethodPost, sessionPath(id, "removals"), body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Finalize finalizes a session.
func (c *Client) Finalize(ctx context.Context, id string) (*dkg.FinalReport, error) {
	var resp dkg.FinalReport
	if err := c.do(ctx, http.MethodPost, sessionPath(id, "finalize"), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Escrow splits a finalized session's joint secret among its survivors.
func (c *Client) Escrow(ctx context.Context, id string) (*shamir.Escrow, error) {
	var resp shamir.Escrow
	if err := c.do(ctx, http.MethodPost, sessionPath(id, "escrow"), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Events returns a session's audit trail, oldest first.
func (c *Client) Events(ctx context.Context, id string) ([]*audit.Event, error) {
	var resp struct {
		Events []*audit.Event `json:"events"`
	}
	if err := c.do(ctx, http.MethodGet, sessionPath(id, "events"), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Events, nil
}

// DeleteSession discards a session.
func (c *Client) DeleteSession(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, sessionPath(id, ""), nil, nil)
}

func sessionPath(id, action string) string {
	p := "/api/v1/sessions/" + url.PathEscape(id)
	if action != "" {
		p += "/" + action
	}
	return p
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if id := correlation.GetCorrelationID(ctx); id != "" {
		req.Header.Set(correlation.CorrelationIDHeader, id)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			log.Printf("failed to close response body: %v", closeErr)
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	var apiErr error
	if resp.StatusCode >= 400 {
		var errResp struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		_ = json.Unmarshal(respBody, &errResp)
		if errResp.Error == "" {
			errResp.Error = http.StatusText(resp.StatusCode)
		}
		apiErr = &APIError{StatusCode: resp.StatusCode, Err: errResp.Error, Message: errResp.Message}
		if resp.StatusCode != http.StatusServiceUnavailable {
			return apiErr
		}
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil && apiErr == nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return apiErr
}
