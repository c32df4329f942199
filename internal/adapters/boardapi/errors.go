package boardapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error is a non-2xx response from the board API.
type Error struct {
	Method    string
	Path      string
	Status    int
	Detail    string
	RequestID string
}

// Error prefers the server-provided detail.
func (e *Error) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, http.StatusText(e.Status))
}

// APIDetail returns the server detail, empty when the body carried none.
func (e *Error) APIDetail() string {
	return e.Detail
}

// StatusCode returns the HTTP status.
func (e *Error) StatusCode() int {
	return e.Status
}

// detailOf returns the server detail carried by err, if any.
func detailOf(err error) (string, bool) {
	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Detail == "" {
		return "", false
	}
	return apiErr.Detail, true
}

// IsNotFound reports whether err is a 404 from the board API.
func IsNotFound(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// decodeDetail extracts {"detail": "..."} or the first message of a validation error list.
func decodeDetail(payload []byte) string {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil || len(envelope.Detail) == 0 {
		return ""
	}
	var text string
	if err := json.Unmarshal(envelope.Detail, &text); err == nil {
		return strings.TrimSpace(text)
	}
	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(envelope.Detail, &items); err == nil && len(items) > 0 {
		return strings.TrimSpace(items[0].Msg)
	}
	return ""
}
