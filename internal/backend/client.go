// Package backend talks to the remote sync backend: the connectivity probe,
// the chat-model catalog, and the server-side model preference.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Client is the backend surface the controller depends on. Implementations
// must be safe for concurrent use; the reconciler issues fetches in parallel.
type Client interface {
	// Probe checks connectivity with the configured URL and API key.
	Probe(ctx context.Context) (Connection, error)
	// ListModels fetches the currently available chat models.
	ListModels(ctx context.Context) ([]ModelOption, error)
	// GetPreference fetches the server's remembered model preference.
	GetPreference(ctx context.Context) (Preference, error)
	// PutPreference pushes a new model preference; nil selects the backend
	// default.
	PutPreference(ctx context.Context, id *string) error
}

const defaultTimeout = 15 * time.Second

// Config holds HTTP client construction options.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	// HTTPClient overrides the underlying client, mainly for tests.
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// HTTPClient implements Client over the backend's JSON API.
type HTTPClient struct {
	baseURL string
	apiKey  string
	hc      *http.Client
	logger  *slog.Logger
}

// NewHTTPClient creates a backend client for the given base URL and API key.
func NewHTTPClient(cfg Config) *HTTPClient {
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = defaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		hc:      hc,
		logger:  logger,
	}
}

// Probe implements Client.
func (c *HTTPClient) Probe(ctx context.Context) (Connection, error) {
	var conn Connection
	if err := c.doJSON(ctx, http.MethodGet, "/api/status", nil, &conn); err != nil {
		c.logger.Debug("connectivity probe failed", "error", err)
		return Connection{Connected: false, StatusMessage: "Not connected"}, err
	}
	return conn, nil
}

// ListModels implements Client.
func (c *HTTPClient) ListModels(ctx context.Context) ([]ModelOption, error) {
	var models []ModelOption
	if err := c.doJSON(ctx, http.MethodGet, "/api/models", nil, &models); err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	return models, nil
}

// GetPreference implements Client.
func (c *HTTPClient) GetPreference(ctx context.Context) (Preference, error) {
	var pref Preference
	if err := c.doJSON(ctx, http.MethodGet, "/api/preferences/chat-model", nil, &pref); err != nil {
		return Preference{}, fmt.Errorf("get preference: %w", err)
	}
	return pref, nil
}

// PutPreference implements Client.
func (c *HTTPClient) PutPreference(ctx context.Context, id *string) error {
	body := Preference{SelectedModelID: id}
	if err := c.doJSON(ctx, http.MethodPut, "/api/preferences/chat-model", body, nil); err != nil {
		return fmt.Errorf("put preference: %w", err)
	}
	return nil
}

// doJSON performs one request against the backend. A non-2xx response maps
// to *StatusError with the response body attached.
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, in, out any) error {
	var reqBody io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
