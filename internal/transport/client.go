// Package transport is the HTTP client used for package index lookups.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/agentstation/fleetsync/pkg/constants"
	"github.com/agentstation/fleetsync/pkg/errors"
)

// DefaultHTTPTimeout is the default timeout for HTTP requests.
var DefaultHTTPTimeout = constants.PackageIndexTimeout

// UserAgent is sent with every request.
const UserAgent = "fleetsync"

// Client performs JSON GET requests.
type Client struct {
	http *http.Client
}

// New creates a client with the default timeout.
func New() *Client {
	return &Client{http: &http.Client{Timeout: DefaultHTTPTimeout}}
}

// NewWithHTTPClient wraps an existing http.Client.
func NewWithHTTPClient(c *http.Client) *Client {
	return &Client{http: c}
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request GET %s: %w", url, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", UserAgent)
	return c.http.Do(req)
}

// GetJSON fetches url and decodes the JSON body into v. A 404 yields
// *errors.NotFoundError; any other non-2xx status is an error carrying the
// status line.
func (c *Client) GetJSON(ctx context.Context, url string, v any) error {
	resp, err := c.Get(ctx, url)
	if err != nil {
		return fmt.Errorf("GET %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		_, _ = io.Copy(io.Discard, resp.Body)
		return errors.NewNotFoundError("url", url)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("GET %s: unexpected status %s", url, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return errors.WrapParse("json", url, err)
	}
	return nil
}
