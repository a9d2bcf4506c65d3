// Package http is the shared outbound transport for the image host, render service and
// relationship system clients.
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// maxErrorBody caps how much of a failed response body ends up in an error message.
const maxErrorBody = 512

// StatusError is returned when the remote side answers with a non-2xx status.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s failed (status %d): %s", e.Method, e.URL, e.StatusCode, e.Body)
}

type Client struct {
	httpClient *http.Client
	headers    http.Header
}

func NewClient(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		headers: make(http.Header),
	}
}

// WithHeader returns a copy of the client that sends the header on every request.
func (c *Client) WithHeader(key, value string) *Client {
	headers := c.headers.Clone()
	headers.Set(key, value)
	return &Client{httpClient: c.httpClient, headers: headers}
}

func (c *Client) Do(req *http.Request) (*http.Response, error) {
	for key, values := range c.headers {
		if req.Header.Get(key) == "" {
			for _, v := range values {
				req.Header.Add(key, v)
			}
		}
	}
	return c.httpClient.Do(req)
}

// DoJSON sends body (if non-nil) as JSON and decodes a 2xx response into out (if non-nil).
func (c *Client) DoJSON(ctx context.Context, method, rawURL string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.send(req, out)
}

// PostForm sends form as application/x-www-form-urlencoded and decodes the response into out.
// Non-2xx responses are still decoded into out before the StatusError is returned, since some
// services describe the failure in the body.
func (c *Client) PostForm(ctx context.Context, rawURL string, form url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out interface{}) error {
	resp, err := c.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	var decodeErr error
	if out != nil && len(bytes.TrimSpace(data)) > 0 {
		decodeErr = json.Unmarshal(data, out)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{
			Method:     req.Method,
			URL:        redact(req.URL),
			StatusCode: resp.StatusCode,
			Body:       truncate(string(data), maxErrorBody),
		}
	}
	if decodeErr != nil {
		return fmt.Errorf("failed to decode response: %w", decodeErr)
	}
	return nil
}

func redact(u *url.URL) string {
	clean := *u
	clean.RawQuery = ""
	clean.User = nil
	return clean.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
