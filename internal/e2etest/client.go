package e2etest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client talks JSON to a running server.
type Client struct {
	client *http.Client
	url    string
}

// NewClient creates a JSON API client for the server at url.
func NewClient(url string) *Client {
	return &Client{
		client: &http.Client{Timeout: 5 * time.Second}, //nolint:mnd // generous for tests.
		url:    url,
	}
}

// WaitForReady calls the specified endpoint until it gets a HTTP 200 Success
// response or until the context is cancelled or the 1-second timeout is reached.
func (c *Client) WaitForReady(ctx context.Context, urlPath string) error {
	timeout := 1 * time.Second
	startTime := time.Now()
	var (
		err  error
		req  *http.Request
		resp *http.Response
	)
	for {
		if req, err = http.NewRequestWithContext(
			ctx,
			http.MethodGet,
			c.url+urlPath,
			nil,
		); err != nil {
			return fmt.Errorf("create request: %w", err)
		}

		if resp, err = c.client.Do(req); err == nil {
			if resp.StatusCode == http.StatusOK {
				if err = resp.Body.Close(); err != nil {
					return fmt.Errorf("close response body: %w", err)
				}
				return nil
			}
			if err = resp.Body.Close(); err != nil {
				return fmt.Errorf("close response body: %w", err)
			}
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled: %w", ctx.Err())
		default:
			if time.Since(startTime) >= timeout {
				return errors.New("timeout waiting for endpoint to be ready")
			}
			time.Sleep(100 * time.Millisecond) //nolint:mnd // 100ms
		}
	}
}

// Do sends a request with an optional JSON body. The caller closes the response body.
func (c *Client) Do(ctx context.Context, method string, urlPath string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.url+urlPath, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	return resp, nil
}

// Get fetches a URL and returns the response.
func (c *Client) Get(ctx context.Context, urlPath string) (*http.Response, error) {
	return c.Do(ctx, http.MethodGet, urlPath, nil)
}

// GetJSON fetches urlPath and decodes the body into dst. It returns the status code.
func (c *Client) GetJSON(ctx context.Context, urlPath string, dst any) (int, error) {
	return c.JSON(ctx, http.MethodGet, urlPath, nil, dst)
}

// PostJSON posts body to urlPath and decodes the response into dst. It returns the status code.
func (c *Client) PostJSON(ctx context.Context, urlPath string, body any, dst any) (int, error) {
	return c.JSON(ctx, http.MethodPost, urlPath, body, dst)
}

// Delete sends a DELETE request and returns the status code.
func (c *Client) Delete(ctx context.Context, urlPath string) (int, error) {
	return c.JSON(ctx, http.MethodDelete, urlPath, nil, nil)
}

// JSON sends a request and decodes a JSON response into dst. A nil dst discards the body. Non-2xx responses are
// not errors so that tests can assert on them, but their body is only decoded when dst is an *ErrorBody.
func (c *Client) JSON(ctx context.Context, method string, urlPath string, body any, dst any) (int, error) {
	resp, err := c.Do(ctx, method, urlPath, body)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	_, wantsError := dst.(*ErrorBody)
	success := resp.StatusCode >= 200 && resp.StatusCode < 300
	if dst == nil || (!success && !wantsError) || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil
	}
	if err = json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return resp.StatusCode, fmt.Errorf("decode %s %s response: %w", method, urlPath, err)
	}
	return resp.StatusCode, nil
}

// ErrorBody is the JSON error envelope of the API.
type ErrorBody struct {
	Error string `json:"error"`
}
