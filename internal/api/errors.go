package api

import (
	"fmt"
	"net/http"
	"strings"
)

// HTTPError is the base error for failed REST requests. It carries the
// status code and the parsed error text from the response body.
type HTTPError struct {
	Status int
	Text   string
}

func (e *HTTPError) Error() string {
	if e.Text == "" {
		return fmt.Sprintf("%d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("%d %s: %s", e.Status, http.StatusText(e.Status), e.Text)
}

// Forbidden is returned for status 403.
type Forbidden struct {
	HTTPError
}

// NotFound is returned for status 404.
type NotFound struct {
	HTTPError
}

// ServerError is returned for 5xx responses, including a retryable 5xx that
// exhausted all attempts.
type ServerError struct {
	HTTPError
}

// LoginError is returned when static login fails with improper credentials.
// It does not tear down an already-authenticated session.
type LoginError struct {
	HTTPError
}

func newStatusError(status int, data any) error {
	text := errorText(data)
	he := HTTPError{Status: status, Text: text}

	switch {
	case status == http.StatusForbidden:
		return &Forbidden{he}
	case status == http.StatusNotFound:
		return &NotFound{he}
	case status >= 500:
		return &ServerError{he}
	default:
		return &he
	}
}

// errorText extracts a human-readable message from a decoded error body.
// Delta errors are JSON objects with a "type" discriminator and sometimes a
// nested validation report; anything else is used verbatim.
func errorText(data any) string {
	switch v := data.(type) {
	case string:
		return v
	case map[string]any:
		var parts []string
		if msg, ok := v["message"].(string); ok && msg != "" {
			parts = append(parts, msg)
		} else if typ, ok := v["type"].(string); ok && typ != "" {
			parts = append(parts, typ)
		}
		if errs, ok := v["errors"]; ok {
			parts = append(parts, fmt.Sprint(errs))
		}
		return strings.Join(parts, ": ")
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
