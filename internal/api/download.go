package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
)

var filenamePattern = regexp.MustCompile(`filename="?([^";]+)"?`)

// ErrStalled is returned when a download produces no data for the client timeout.
var ErrStalled = errors.New("api: download stalled")

// Download is a streamed binary answer. Body must be closed by the caller.
type Download struct {
	Body        io.ReadCloser
	Filename    string
	ContentType string
	Size        int64
}

// Download issues a GET for a binary payload. The suggested filename is taken from the
// Content-Disposition header, or fallback when absent. Error answers are decoded as JSON when
// possible, using their "error" field; otherwise the returned *APIError has an empty Message.
//
// The client timeout bounds the wait for the response headers and then every gap between two
// reads of the body, so a slow transfer that keeps making progress is never cut short.
func (c *Client) Download(ctx context.Context, path, fallback string, opts ...RequestOption) (*Download, error) {
	ctx, cancel := context.WithCancelCause(ctx)
	timer := time.AfterFunc(c.timeout, func() { cancel(ErrStalled) })

	resp, err := c.send(ctx, http.MethodGet, path, nil, "", opts)
	if err != nil {
		timer.Stop()
		cancel(nil)
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			apiErr.Message = downloadErrorMessage(apiErr.Body)
		}
		if errors.Is(context.Cause(ctx), ErrStalled) {
			return nil, fmt.Errorf("%w: %w", ErrStalled, err)
		}
		return nil, err
	}
	timer.Reset(c.timeout)

	return &Download{
		Body: &idleReader{
			ReadCloser: resp.Body,
			ctx:        ctx,
			cancel:     cancel,
			timer:      timer,
			idle:       c.timeout,
		},
		Filename:    FilenameFromDisposition(resp.Header.Get("Content-Disposition"), fallback),
		ContentType: resp.Header.Get("Content-Type"),
		Size:        resp.ContentLength,
	}, nil
}

// FilenameFromDisposition extracts the filename hint of a Content-Disposition header.
func FilenameFromDisposition(header, fallback string) string {
	if m := filenamePattern.FindStringSubmatch(header); len(m) == 2 {
		if name := strings.TrimSpace(m[1]); name != "" {
			return name
		}
	}
	return fallback
}

// downloadErrorMessage reads an error payload that may be a binary blob containing JSON.
func downloadErrorMessage(body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return payload.Error
}

// idleReader rearms the stall timer on every read that makes progress and releases the
// request context on Close.
type idleReader struct {
	io.ReadCloser
	ctx    context.Context
	cancel context.CancelCauseFunc
	timer  *time.Timer
	idle   time.Duration
}

func (r *idleReader) Read(p []byte) (int, error) {
	n, err := r.ReadCloser.Read(p)
	if n > 0 {
		r.timer.Reset(r.idle)
	}
	if err != nil && err != io.EOF && errors.Is(context.Cause(r.ctx), ErrStalled) {
		return n, fmt.Errorf("%w: %w", ErrStalled, err)
	}
	return n, err
}

func (r *idleReader) Close() error {
	r.timer.Stop()
	defer r.cancel(nil)
	return r.ReadCloser.Close()
}
