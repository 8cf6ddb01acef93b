// Package controllerclient is the daemon's outbound side: idempotent HTTP
// clients the Resource reconciler drives to push DNS and proxy rules to
// the cluster's DNS and proxy controllers. No automatic retries; callers
// decide whether and how to retry a failed push.
package controllerclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Client pushes named rules to one controller's HTTP API.
type Client struct {
	http    *http.Client
	baseURL string
}

// New builds a Client against a controller reachable at baseURL (e.g.
// "http://ndns-controller:8080").
func New(baseURL string) *Client {
	return &Client{http: &http.Client{}, baseURL: baseURL}
}

// PutRule idempotently creates or replaces the rule named name with data.
func (c *Client) PutRule(ctx context.Context, name string, data any) error {
	buf, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode rule: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/rules/"+name, bytes.NewReader(buf))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("put rule %s: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("put rule %s: controller returned %s", name, resp.Status)
	}
	return nil
}

// DeleteRule idempotently removes the rule named name; a 404 from the
// controller is treated as success.
func (c *Client) DeleteRule(ctx context.Context, name string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/rules/"+name, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("delete rule %s: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("delete rule %s: controller returned %s", name, resp.Status)
	}
	return nil
}

// DNSRule is the payload pushed to the cluster's DNS controller for one
// Resource of kind "DnsRule".
type DNSRule struct {
	Network string   `json:"Network"`
	Domains []string `json:"Domains"`
	IP      string   `json:"Ip"`
}

// ProxyRule is the payload pushed to the cluster's proxy controller for one
// Resource of kind "ProxyRule".
type ProxyRule struct {
	Network  string `json:"Network"`
	Domain   string `json:"Domain"`
	Target   string `json:"Target"`
	Protocol string `json:"Protocol"`
}
