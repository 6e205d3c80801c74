package testevents

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

var ErrUnexpectedStatus = errors.New("unexpected status")

// HTTPClient wraps http.Client with timeout
type HTTPClient struct {
	client  *http.Client
	baseURL string
}

// newHTTPClient creates a new HTTP client with timeout
func newHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// Get performs a GET request
func (c *HTTPClient) Get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with a JSON body
func (c *HTTPClient) Post(ctx context.Context, path string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// decode reads resp into v when its status is one of want.
func decode(resp *http.Response, v any, want ...int) error {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	for _, code := range want {
		if resp.StatusCode == code {
			return json.Unmarshal(body, v)
		}
	}
	return fmt.Errorf("%w: %d: %s", ErrUnexpectedStatus, resp.StatusCode, bytes.TrimSpace(body))
}

// checkHealth verifies the service is running.
func (c *HTTPClient) checkHealth(ctx context.Context) error {
	resp, err := c.Get(ctx, "/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	var health struct {
		Status string `json:"status"`
	}
	if err := decode(resp, &health, http.StatusOK); err != nil {
		return err
	}
	if health.Status != "ok" {
		return fmt.Errorf("%w: health status %q", ErrUnexpectedStatus, health.Status)
	}
	return nil
}

// upload posts a raw log and returns the stored dataset.
func (c *HTTPClient) upload(ctx context.Context, name string, data []byte) (DatasetInfo, error) {
	resp, err := c.Post(ctx, "/datasets?name="+url.QueryEscape(name), data)
	if err != nil {
		return DatasetInfo{}, fmt.Errorf("upload failed: %w", err)
	}
	var info DatasetInfo
	if err := decode(resp, &info, http.StatusCreated, http.StatusOK); err != nil {
		return DatasetInfo{}, err
	}
	return info, nil
}

// snapshot fetches the default view snapshot of a dataset.
func (c *HTTPClient) snapshot(ctx context.Context, id string) (Snapshot, error) {
	resp, err := c.Get(ctx, "/datasets/"+url.PathEscape(id)+"/snapshot")
	if err != nil {
		return Snapshot{}, fmt.Errorf("snapshot failed: %w", err)
	}
	var snap Snapshot
	if err := decode(resp, &snap, http.StatusOK); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// node fetches inspector info for one capability.
func (c *HTTPClient) node(ctx context.Context, id, name string) (NodeInfo, error) {
	resp, err := c.Get(ctx, "/datasets/"+url.PathEscape(id)+"/nodes/"+url.PathEscape(name))
	if err != nil {
		return NodeInfo{}, fmt.Errorf("node failed: %w", err)
	}
	var info NodeInfo
	if err := decode(resp, &info, http.StatusOK); err != nil {
		return NodeInfo{}, err
	}
	return info, nil
}
