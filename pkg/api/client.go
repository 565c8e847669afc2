package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"
)

// ErrUnauthorized is matched by every error produced from a 401 response.
var ErrUnauthorized = errors.New("unauthorized")

// Client communicates with the platform backend.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Token      string
	// RequestID, when set, is sent as X-Request-ID on every request.
	RequestID string
}

// NewClient creates a new API client.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// WithToken returns a copy of c that sends token as bearer credential.
// The copy shares the underlying http.Client.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.Token = token
	return &cp
}

// Response is a successful (2xx) backend response.
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// IsJSON reports whether the response declared a JSON content type.
func (r *Response) IsJSON() bool {
	mt, _, err := mime.ParseMediaType(r.ContentType)
	if err != nil {
		return false
	}
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}

// Decode unmarshals a JSON body into v.
func (r *Response) Decode(v any) error {
	if !r.IsJSON() {
		return fmt.Errorf("decode response: unexpected content type %q", r.ContentType)
	}
	if len(bytes.TrimSpace(r.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Text returns the raw body.
func (r *Response) Text() string {
	return string(r.Body)
}

// url resolves path against BaseURL. Absolute URLs pass through unchanged.
func (c *Client) url(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.BaseURL + path
}

// Do sends a request to the backend. body is JSON-encoded when non-nil.
// Non-2xx responses are returned as *APIError.
func (c *Client) Do(ctx context.Context, method, path string, body any) (*Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	if c.RequestID != "" {
		req.Header.Set("X-Request-ID", c.RequestID)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, parseAPIError(resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return &Response{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        data,
	}, nil
}

// Get sends a GET request.
func (c *Client) Get(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, http.MethodGet, path, nil)
}

// Post sends a POST request.
func (c *Client) Post(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, http.MethodPost, path, body)
}

// Put sends a PUT request.
func (c *Client) Put(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, http.MethodPut, path, body)
}

// Patch sends a PATCH request.
func (c *Client) Patch(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, http.MethodPatch, path, body)
}

// Delete sends a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, http.MethodDelete, path, nil)
}

// GetJSON fetches path and decodes the JSON body into v.
func (c *Client) GetJSON(ctx context.Context, path string, v any) error {
	resp, err := c.Get(ctx, path)
	if err != nil {
		return err
	}
	return resp.Decode(v)
}

// APIError represents an error response from the backend.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Message)
}

// Unwrap lets errors.Is(err, ErrUnauthorized) match 401 responses.
func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return nil
}

// IsUnauthorized reports whether err stems from a 401 response.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// StatusText returns the HTTP reason phrase for a status code, falling back
// to the numeric code for unknown statuses.
func StatusText(code int) string {
	if t := http.StatusText(code); t != "" {
		return t
	}
	return fmt.Sprintf("HTTP %d", code)
}

func parseAPIError(resp *http.Response) *APIError {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	msg := ""
	if err := json.Unmarshal(data, &body); err == nil {
		msg = body.Message
		if msg == "" {
			msg = body.Error
		}
	}
	if msg == "" {
		msg = StatusText(resp.StatusCode)
	}
	return &APIError{StatusCode: resp.StatusCode, Message: msg}
}
