// Package nanocldclient is the CLI-facing typed HTTP client for nanocld: it
// wraps a base URL (unix socket or TCP) with JSON request/response helpers
// and NDJSON streaming, with no automatic retries so callers see failures
// immediately.
package nanocldclient

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

// Client talks to one nanocld instance.
type Client struct {
	http    *http.Client
	baseURL string
}

// New builds a Client against addr, which may be "unix:///path/to.sock" or
// "tcp://host:port" (or a bare "host:port", treated as tcp).
func New(addr string) *Client {
	switch {
	case strings.HasPrefix(addr, "unix://"):
		socket := strings.TrimPrefix(addr, "unix://")
		return &Client{
			baseURL: "http://unix",
			http: &http.Client{
				Transport: &http.Transport{
					DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
						var d net.Dialer
						return d.DialContext(ctx, "unix", socket)
					},
				},
			},
		}
	case strings.HasPrefix(addr, "tcp://"):
		return &Client{baseURL: "http://" + strings.TrimPrefix(addr, "tcp://"), http: &http.Client{}}
	default:
		return &Client{baseURL: "http://" + addr, http: &http.Client{}}
	}
}

// WithTimeout returns a copy of c whose requests (other than streams) time
// out after d.
func (c *Client) WithTimeout(d time.Duration) *Client {
	clone := *c
	httpClone := *c.http
	httpClone.Timeout = d
	clone.http = &httpClone
	return &clone
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
			Code  string `json:"code"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Error == "" {
			apiErr.Error = resp.Status
		}
		return &APIError{Status: resp.StatusCode, Code: apiErr.Code, Message: apiErr.Error}
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// APIError wraps a non-2xx nanocld response.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("nanocld: %s (status %d, code %s)", e.Message, e.Status, e.Code)
}

// ListNamespaces returns every namespace.
func (c *Client) ListNamespaces(ctx context.Context) ([]Namespace, error) {
	var out []Namespace
	return out, c.do(ctx, http.MethodGet, "/v1/namespaces/", nil, &out)
}

// CreateNamespace creates a namespace.
func (c *Client) CreateNamespace(ctx context.Context, name string) (Namespace, error) {
	var out Namespace
	return out, c.do(ctx, http.MethodPost, "/v1/namespaces/", map[string]string{"Name": name}, &out)
}

// ListCargoes returns cargoes, optionally filtered by namespace.
func (c *Client) ListCargoes(ctx context.Context, namespace string) ([]Cargo, error) {
	path := "/v1/cargoes/"
	if namespace != "" {
		path += "?namespace=" + namespace
	}
	var out []Cargo
	return out, c.do(ctx, http.MethodGet, path, nil, &out)
}

// CreateCargo creates a cargo from payload.
func (c *Client) CreateCargo(ctx context.Context, payload CargoCreate) (Cargo, error) {
	var out Cargo
	return out, c.do(ctx, http.MethodPost, "/v1/cargoes/", payload, &out)
}

// PatchCargo merges payload into the cargo identified by key.
func (c *Client) PatchCargo(ctx context.Context, key string, payload CargoPatch) (Cargo, error) {
	var out Cargo
	return out, c.do(ctx, http.MethodPatch, "/v1/cargoes/"+key, payload, &out)
}

// DeleteCargo removes a cargo.
func (c *Client) DeleteCargo(ctx context.Context, key string) error {
	return c.do(ctx, http.MethodDelete, "/v1/cargoes/"+key, nil, nil)
}

// StartCargo / StopCargo / RestartCargo drive a cargo's lifecycle verbs.
func (c *Client) StartCargo(ctx context.Context, key string) error {
	return c.do(ctx, http.MethodPost, "/v1/cargoes/"+key+"/start", nil, nil)
}

func (c *Client) StopCargo(ctx context.Context, key string) error {
	return c.do(ctx, http.MethodPost, "/v1/cargoes/"+key+"/stop", nil, nil)
}

func (c *Client) RestartCargo(ctx context.Context, key string) error {
	return c.do(ctx, http.MethodPost, "/v1/cargoes/"+key+"/restart", nil, nil)
}

// KillCargo sends signal (empty for the runtime's default) to every
// process backing the cargo.
func (c *Client) KillCargo(ctx context.Context, key, signal string) error {
	return c.do(ctx, http.MethodPost, "/v1/cargoes/"+key+"/kill", map[string]string{"Signal": signal}, nil)
}

// ListCargoHistories returns the cargo's Spec revisions, oldest first.
func (c *Client) ListCargoHistories(ctx context.Context, key string) ([]SpecHistory, error) {
	var out []SpecHistory
	return out, c.do(ctx, http.MethodGet, "/v1/cargoes/"+key+"/histories", nil, &out)
}

// ResetCargoHistory restores the cargo to historyID's exact spec shape.
func (c *Client) ResetCargoHistory(ctx context.Context, key, historyID string) (Cargo, error) {
	var out Cargo
	return out, c.do(ctx, http.MethodPost, "/v1/cargoes/"+key+"/histories/"+historyID+"/reset", nil, &out)
}

// ProgressMessage mirrors internal/state's streamed apply/revert line.
type ProgressMessage struct {
	Msg   string `json:"Msg"`
	Error string `json:"Error,omitempty"`
}

// ApplyState streams a state deployment apply, invoking onMessage for every
// NDJSON line as it arrives.
func (c *Client) ApplyState(ctx context.Context, deployment any, onMessage func(ProgressMessage)) error {
	return c.streamState(ctx, "/v1/state/apply", deployment, onMessage)
}

// RevertState streams a state deployment revert.
func (c *Client) RevertState(ctx context.Context, deployment any, onMessage func(ProgressMessage)) error {
	return c.streamState(ctx, "/v1/state/revert", deployment, onMessage)
}

func (c *Client) streamState(ctx context.Context, path string, deployment any, onMessage func(ProgressMessage)) error {
	buf, err := json.Marshal(deployment)
	if err != nil {
		return fmt.Errorf("encode deployment: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var msg ProgressMessage
		if err := json.Unmarshal(line, &msg); err != nil {
			continue
		}
		onMessage(msg)
	}
	return scanner.Err()
}

// StreamEvents connects to /v1/events and invokes onEvent for every NDJSON
// line until ctx is cancelled or the connection drops.
func (c *Client) StreamEvents(ctx context.Context, onEvent func(json.RawMessage)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/events", nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		cp := make(json.RawMessage, len(line))
		copy(cp, line)
		onEvent(cp)
	}
	return scanner.Err()
}
