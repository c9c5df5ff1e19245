package control

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/zulandar/switchboard/internal/autopilot"
)

// Client talks to a running control server.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a Client for baseURL (e.g. http://127.0.0.1:7420).
// A nil httpClient uses a client with a 10 second timeout.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// Ping checks that the server is up.
func (c *Client) Ping(ctx context.Context) (autopilot.Reply, error) {
	return c.do(ctx, http.MethodGet, "/api/ping", nil)
}

// Status returns the engine status.
func (c *Client) Status(ctx context.Context) (autopilot.Reply, error) {
	return c.do(ctx, http.MethodGet, "/api/status", nil)
}

// Start begins a session of n conversations per batch. cfg may be nil.
func (c *Client) Start(ctx context.Context, n int, cfg *autopilot.StartConfig) (autopilot.Reply, error) {
	return c.do(ctx, http.MethodPost, "/api/start", startBody{N: n, Config: cfg})
}

// Stop ends the session.
func (c *Client) Stop(ctx context.Context) (autopilot.Reply, error) {
	return c.do(ctx, http.MethodPost, "/api/stop", nil)
}

// CheckUnread asks the engine to read the unread badge.
func (c *Client) CheckUnread(ctx context.Context) (autopilot.Reply, error) {
	return c.do(ctx, http.MethodPost, "/api/check-unread", nil)
}

// Command sends a typed command envelope.
func (c *Client) Command(ctx context.Context, cmd autopilot.Command) (autopilot.Reply, error) {
	return c.do(ctx, http.MethodPost, "/api/command", cmd)
}

// do sends the request and decodes the reply. An error reply from the engine
// is returned as both the Reply and a non-nil error.
func (c *Client) do(ctx context.Context, method, path string, body any) (autopilot.Reply, error) {
	var reply autopilot.Reply
	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return reply, fmt.Errorf("control: marshal request: %w", err)
		}
		rdr = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return reply, fmt.Errorf("control: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return reply, fmt.Errorf("control: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return reply, fmt.Errorf("control: decode %s (HTTP %d): %w", path, resp.StatusCode, err)
	}
	if reply.Status == autopilot.StatusError {
		return reply, fmt.Errorf("control: %s", reply.Error)
	}
	return reply, nil
}
