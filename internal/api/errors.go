package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrNotLoggedIn is returned without any network call when a protected request has no token.
	ErrNotLoggedIn = errors.New("api: not logged in")
	// ErrUnexpectedShape indicates a list endpoint answered with neither an array nor a results envelope.
	ErrUnexpectedShape = errors.New("api: unexpected response shape")
)

// APIError is a non-2xx answer from the API. Message is the decoded user-facing message, possibly empty.
type APIError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api: status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api: status %d", e.StatusCode)
}

// IsUnauthorized reports whether err is a 401/403 answer or a missing token.
func IsUnauthorized(err error) bool {
	if errors.Is(err, ErrNotLoggedIn) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden
	}
	return false
}

// IsNotFound reports whether err is a 404 answer.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// FormatError returns the message to show for err: the server's message when it sent one, else defaultMessage.
func FormatError(err error, defaultMessage string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return defaultMessage
}

// ErrorMessage extracts a message from an error body, checking a top-level "error" field,
// then "detail", then the first field-specific list of strings in document order.
// It returns "" when none is present or the body is not a JSON object.
func ErrorMessage(body []byte) string {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		var list []string
		if json.Unmarshal(body, &list) == nil && len(list) > 0 {
			return list[0]
		}
		return ""
	}

	for _, key := range []string{"error", "detail"} {
		if raw, ok := fields[key]; ok {
			var s string
			if json.Unmarshal(raw, &s) == nil && s != "" {
				return s
			}
		}
	}

	return firstFieldError(body)
}

// StringField returns the string value of a top-level key, or "".
func StringField(body []byte, key string) string {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return ""
	}
	var s string
	if raw, ok := fields[key]; ok && json.Unmarshal(raw, &s) == nil {
		return s
	}
	return ""
}

// firstFieldError decodes only the first key of the object, in document order, and returns the
// first message of its list. Go maps would lose the order.
func firstFieldError(body []byte) string {
	dec := json.NewDecoder(bytes.NewReader(body))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return ""
	}
	if !dec.More() {
		return ""
	}
	if _, err := dec.Token(); err != nil {
		return ""
	}

	var list []string
	if err := dec.Decode(&list); err != nil || len(list) == 0 {
		return ""
	}
	return strings.TrimSpace(list[0])
}
