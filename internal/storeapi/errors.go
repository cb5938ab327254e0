package storeapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrInvalidClientConfig is returned when the client cannot be constructed.
var ErrInvalidClientConfig = errors.New("invalid client config")

// APIError is a non-2xx response from the commerce API.
type APIError struct {
	Status  int
	Code    string
	Message string
}

// Error returns the formatted error message.
func (apiError *APIError) Error() string {
	if apiError.Code == "" {
		return fmt.Sprintf("storeapi: status %d: %s", apiError.Status, apiError.Message)
	}
	return fmt.Sprintf("storeapi: status %d: %s: %s", apiError.Status, apiError.Code, apiError.Message)
}

// ErrorCode returns the server's string error code.
func (apiError *APIError) ErrorCode() string {
	return apiError.Code
}

// IsStatus reports whether err is an APIError with the given HTTP status.
func IsStatus(err error, status int) bool {
	var apiError *APIError
	if errors.As(err, &apiError) {
		return apiError.Status == status
	}
	return false
}

// IsUnauthorized reports whether the API refused the bearer token.
func IsUnauthorized(err error) bool {
	return IsStatus(err, http.StatusUnauthorized)
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorEnvelope struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Error   json.RawMessage `json:"error"`
}

// decodeAPIError accepts {"error":{"code","message"}}, {"error":"code","message":...}
// and {"code","message"} bodies.
func decodeAPIError(status int, body []byte) *APIError {
	apiError := &APIError{Status: status}
	var envelope errorEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		apiError.Message = strings.TrimSpace(string(body))
		if apiError.Message == "" {
			apiError.Message = http.StatusText(status)
		}
		return apiError
	}
	apiError.Code = envelope.Code
	apiError.Message = envelope.Message
	if len(envelope.Error) > 0 {
		var nested errorBody
		var plain string
		switch {
		case json.Unmarshal(envelope.Error, &nested) == nil:
			if nested.Code != "" {
				apiError.Code = nested.Code
			}
			if nested.Message != "" {
				apiError.Message = nested.Message
			}
		case json.Unmarshal(envelope.Error, &plain) == nil:
			if apiError.Code == "" {
				apiError.Code = plain
			} else if apiError.Message == "" {
				apiError.Message = plain
			}
		}
	}
	if apiError.Message == "" {
		apiError.Message = http.StatusText(status)
	}
	return apiError
}
