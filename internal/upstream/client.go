// Package upstream provides the HTTP client for the product/identity API.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Error is a non-2xx upstream response, carried back to the caller so
// proxy handlers can re-surface the upstream status and body.
type Error struct {
	Status int
	Body   json.RawMessage
}

func (e *Error) Error() string {
	return fmt.Sprintf("upstream returned %d", e.Status)
}

// Message extracts the upstream error body's "message" field, falling back
// to the raw body text.
func (e *Error) Message() string {
	var parsed struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(e.Body, &parsed); err == nil && parsed.Message != "" {
		return parsed.Message
	}
	return string(e.Body)
}

// Client is a thin JSON client bound to the upstream base URL.
type Client struct {
	base string
	http *http.Client
}

// New creates a client for the given base URL (no trailing slash).
func New(base string, timeout time.Duration) *Client {
	return &Client{
		base: base,
		http: &http.Client{Timeout: timeout},
	}
}

// URL joins a path and optional query onto the base URL.
func (c *Client) URL(path string, query url.Values) string {
	u := c.base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// Get issues a GET and decodes the JSON response into v.
func (c *Client) Get(ctx context.Context, path string, query url.Values, v interface{}) error {
	return c.Do(ctx, http.MethodGet, path, query, "", nil, v)
}

// Do issues a request with an optional bearer token and JSON body, decoding
// a 2xx response into v (v may be nil to discard the body). A non-2xx
// response is returned as *Error with the upstream status and body.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, token string, body, v interface{}) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.URL(path, query), reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{Status: resp.StatusCode, Body: normalizeBody(data)}
	}

	if v == nil {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// normalizeBody guarantees the error body is valid JSON so proxy handlers
// can embed it verbatim.
func normalizeBody(data []byte) json.RawMessage {
	if json.Valid(data) && len(bytes.TrimSpace(data)) > 0 {
		return data
	}
	wrapped, _ := json.Marshal(map[string]string{"message": string(data)})
	return wrapped
}
