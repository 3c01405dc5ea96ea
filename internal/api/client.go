// Package api is the HTTP transport of the ReCiclo client. It issues authenticated REST calls
// with the "Authorization: Token <value>" header, encodes and decodes JSON bodies, normalizes
// list responses into a single shape, uploads multipart forms, streams binary downloads and
// converts error answers into *APIError values carrying the server's message.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"reciclo/internal/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultTimeout = 10 * time.Second
	maxErrorBody   = 1 << 20
)

// Client is a REST client bound to one API base URL. It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	log     *logger.Logger

	mu    sync.RWMutex
	token string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout bounds every request. Non-positive values keep the default.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// NewClient creates a Client for baseURL. Outgoing requests are logged through l.
func NewClient(baseURL string, l *logger.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: defaultTimeout,
		log:     l,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = &http.Client{Transport: l.NewTransport(nil)}
	}
	return c
}

// SetToken installs the token attached to authenticated requests. An empty token logs out.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Token returns the current token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// HasToken reports whether authenticated requests can be issued.
func (c *Client) HasToken() bool {
	return c.Token() != ""
}

type requestConfig struct {
	anonymous bool
	header    http.Header
}

// RequestOption adjusts a single request.
type RequestOption func(*requestConfig)

// Anonymous allows the request without a token; the token is still attached when present.
func Anonymous() RequestOption {
	return func(rc *requestConfig) { rc.anonymous = true }
}

// WithToken authenticates the request with an explicit token instead of the installed one.
func WithToken(token string) RequestOption {
	return func(rc *requestConfig) {
		rc.header.Set("Authorization", "Token "+token)
	}
}

// Get issues a GET and decodes the JSON answer into out, when out is not nil.
func (c *Client) Get(ctx context.Context, path string, out any, opts ...RequestOption) error {
	return c.Do(ctx, http.MethodGet, path, nil, out, opts...)
}

// Post issues a POST with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body, out any, opts ...RequestOption) error {
	return c.Do(ctx, http.MethodPost, path, body, out, opts...)
}

// Patch issues a PATCH with a JSON body.
func (c *Client) Patch(ctx context.Context, path string, body, out any, opts ...RequestOption) error {
	return c.Do(ctx, http.MethodPatch, path, body, out, opts...)
}

// Delete issues a DELETE.
func (c *Client) Delete(ctx context.Context, path string, opts ...RequestOption) error {
	return c.Do(ctx, http.MethodDelete, path, nil, nil, opts...)
}

// Do issues a JSON request. A nil body sends no payload; a nil out discards the answer.
func (c *Client) Do(ctx context.Context, method, path string, body, out any, opts ...RequestOption) error {
	var payload io.Reader
	contentType := ""
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("api: encode %s %s: %w", method, path, err)
		}
		payload = bytes.NewReader(data)
		contentType = "application/json"
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.send(ctx, method, path, payload, contentType, opts)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("api: read %s %s: %w", method, path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("api: decode %s %s: %w", method, path, err)
	}
	return nil
}

// GetRaw issues a GET and returns the undecoded JSON answer.
func (c *Client) GetRaw(ctx context.Context, path string, opts ...RequestOption) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.Get(ctx, path, &raw, opts...); err != nil {
		return nil, err
	}
	return raw, nil
}

// send builds and executes the request. Non-2xx answers are returned as *APIError with the body consumed.
func (c *Client) send(ctx context.Context, method, path string, body io.Reader, contentType string, opts []RequestOption) (*http.Response, error) {
	rc := &requestConfig{header: http.Header{}}
	for _, opt := range opts {
		opt(rc)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("api: build %s %s: %w", method, path, err)
	}
	for k, v := range rc.header {
		req.Header[k] = v
	}
	if req.Header.Get("Authorization") == "" {
		token := c.Token()
		if token == "" && !rc.anonymous {
			return nil, ErrNotLoggedIn
		}
		if token != "" {
			req.Header.Set("Authorization", "Token "+token)
		}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(logger.RequestIDHeader, uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			c.log.Warn("request timed out", zap.String("method", method), zap.String("path", path))
		}
		return nil, fmt.Errorf("api: %s %s: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &APIError{StatusCode: resp.StatusCode, Message: ErrorMessage(data), Body: data}
	}
	return resp, nil
}
