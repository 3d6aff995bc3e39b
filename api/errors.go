package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrInvalidConfig is returned by [New] for unusable configuration.
var ErrInvalidConfig = errors.New("invalid api client configuration")

// StatusError reports a non-2xx response.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	// Message is the backend's "message" field when the body carried one.
	Message string
	Body    []byte
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api: %s %s: %d %s: %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode), e.Message)
	}
	return fmt.Sprintf("api: %s %s: %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
}

// IsStatus reports whether err is a *StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	if !errors.As(err, &se) {
		return false
	}
	return se.StatusCode == code
}

func newStatusError(method, path string, code int, body []byte) *StatusError {
	se := &StatusError{
		Method:     method,
		Path:       path,
		StatusCode: code,
		Body:       body,
	}

	var payload struct {
		Message string `json:"message"`
	}
	if len(body) > 0 && json.Unmarshal(body, &payload) == nil {
		se.Message = payload.Message
	}
	return se
}
