package directory

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies an API failure.
type ErrorKind string

const (
	KindAuth       ErrorKind = "AUTH_ERROR"
	KindPermission ErrorKind = "PERMISSION_ERROR"
	KindValidation ErrorKind = "VALIDATION_ERROR"
	KindAPI        ErrorKind = "API_ERROR"
	KindNetwork    ErrorKind = "NETWORK_ERROR"
)

// APIError is returned for any failed Directory API call.
type APIError struct {
	Kind       ErrorKind
	StatusCode int
	Message    string

	// Details is the "errors" member of the response body, or the whole body
	// when there is none.
	Details json.RawMessage

	// Err is the transport error for KindNetwork.
	Err error
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (status %d): %s", e.Kind, e.StatusCode, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Retryable reports whether repeating the request may succeed.
func (e *APIError) Retryable() bool {
	return e.Kind == KindNetwork || e.StatusCode >= 500
}

// KindOf returns the kind of an APIError anywhere in err's chain, or "".
func KindOf(err error) ErrorKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return ""
}

func IsAuthError(err error) bool       { return KindOf(err) == KindAuth }
func IsPermissionError(err error) bool { return KindOf(err) == KindPermission }
func IsValidationError(err error) bool { return KindOf(err) == KindValidation }
func IsNetworkError(err error) bool    { return KindOf(err) == KindNetwork }

func kindForStatus(code int) ErrorKind {
	switch code {
	case http.StatusUnauthorized:
		return KindAuth
	case http.StatusForbidden:
		return KindPermission
	case http.StatusBadRequest:
		return KindValidation
	default:
		return KindAPI
	}
}

// newStatusError builds an APIError from a non-2xx response.
func newStatusError(code int, body []byte) *APIError {
	apiErr := &APIError{
		Kind:       kindForStatus(code),
		StatusCode: code,
		Message:    fmt.Sprintf("API Error: %d", code),
	}

	var parsed struct {
		Message string          `json:"message"`
		Error   string          `json:"error"`
		Errors  json.RawMessage `json:"errors"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		if len(body) > 0 {
			apiErr.Details = mustJSONString(string(body))
		}
		return apiErr
	}

	switch {
	case parsed.Message != "":
		apiErr.Message = parsed.Message
	case parsed.Error != "":
		apiErr.Message = parsed.Error
	}
	if len(parsed.Errors) > 0 && string(parsed.Errors) != "null" {
		apiErr.Details = parsed.Errors
	} else {
		apiErr.Details = body
	}
	return apiErr
}

func mustJSONString(s string) json.RawMessage {
	b, _ := json.Marshal(s)
	return b
}
