package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// HTTPError is a structured failure carrying the response status code.
type HTTPError struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("code=%d, message=%s", e.Code, e.Message)
}

// NewHTTPError returns an HTTPError with the status text as default message.
func NewHTTPError(code int, message string) *HTTPError {
	if message == "" {
		message = http.StatusText(code)
	}
	return &HTTPError{Code: code, Message: message}
}

func newHTTPError(code int, body []byte, requestID string) *HTTPError {
	e := NewHTTPError(code, extractMessage(body))
	e.RequestID = requestID
	return e
}

// extractMessage pulls a human readable message out of an error body. The
// services answer with {"code":..,"message":..}; the gateway with
// {"error":{"message":..}} or {"message":..}.
func extractMessage(body []byte) string {
	var payload struct {
		Message any `json:"message"`
		Error   *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		s := strings.TrimSpace(string(body))
		if len(s) > 200 {
			s = s[:200]
		}
		return s
	}
	if payload.Error != nil && payload.Error.Message != "" {
		return payload.Error.Message
	}
	switch m := payload.Message.(type) {
	case string:
		return m
	case nil:
		return ""
	default:
		b, _ := json.Marshal(m)
		return string(b)
	}
}

// AsHTTPError reports whether err is or wraps an *HTTPError.
func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	if errors.As(err, &he) {
		return he, true
	}
	return nil, false
}

// IsStatus reports whether err is an *HTTPError with the given code.
func IsStatus(err error, code int) bool {
	he, ok := AsHTTPError(err)
	return ok && he.Code == code
}

// Describe maps a status to a short user-facing hint.
func Describe(err error) string {
	he, ok := AsHTTPError(err)
	if !ok {
		return ""
	}
	switch he.Code {
	case http.StatusBadRequest:
		return "the request was rejected as invalid"
	case http.StatusUnauthorized, http.StatusForbidden:
		return "not signed in or session expired"
	case http.StatusNotFound:
		return "not found"
	case http.StatusConflict:
		return "already exists"
	}
	if he.Code >= 500 {
		return "server error, try again later"
	}
	return ""
}
