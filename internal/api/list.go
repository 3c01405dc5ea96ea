package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

// NormalizeList accepts a bare JSON array or an envelope with a "results" array and returns the array.
// JSON null is treated as an empty array.
func NormalizeList(raw json.RawMessage) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	switch {
	case len(trimmed) == 0, bytes.Equal(trimmed, []byte("null")):
		return json.RawMessage("[]"), nil
	case trimmed[0] == '[':
		return trimmed, nil
	case trimmed[0] == '{':
		var envelope struct {
			Results json.RawMessage `json:"results"`
		}
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnexpectedShape, err)
		}
		results := bytes.TrimSpace(envelope.Results)
		if len(results) == 0 || results[0] != '[' {
			return nil, ErrUnexpectedShape
		}
		return results, nil
	}
	return nil, ErrUnexpectedShape
}

// ListRaw fetches a list endpoint and returns its normalized array.
func (c *Client) ListRaw(ctx context.Context, path string, opts ...RequestOption) (json.RawMessage, error) {
	raw, err := c.GetRaw(ctx, path, opts...)
	if err != nil {
		return nil, err
	}
	return NormalizeList(raw)
}

// List fetches a list endpoint and decodes its records, whichever shape the server answered with.
func List[T any](ctx context.Context, c *Client, path string, opts ...RequestOption) ([]T, error) {
	raw, err := c.ListRaw(ctx, path, opts...)
	if err != nil {
		return nil, err
	}
	items := make([]T, 0)
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("api: decode list %s: %w", path, err)
	}
	return items, nil
}
