// errors.go - Structured error handling for proxy responses
package api

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// snippetLimit caps how much of an upstream body is echoed back to the
// browser, so a large HTML error page never leaks into the client UI.
const snippetLimit = 200

// APIError is the structured error shape the browser receives. The wire
// format is {error, body?}; Code exists for logs only.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"-"`
	Message string `json:"error"`
	Body    string `json:"body,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewConfigError creates a 500 error for a missing backend configuration.
func NewConfigError(message string) *APIError {
	return &APIError{
		Status:  http.StatusInternalServerError,
		Code:    "CONFIG_ERROR",
		Message: message,
	}
}

// NewGatewayError creates a 502 error for a network-level failure to reach
// the backend.
func NewGatewayError(message string) *APIError {
	return &APIError{
		Status:  http.StatusBadGateway,
		Code:    "BAD_GATEWAY",
		Message: message,
	}
}

// NewUpstreamError sanitizes an upstream response that was not structured
// data: the status code is preserved and the body reduced to a snippet.
func NewUpstreamError(status int, body string) *APIError {
	if len(body) > snippetLimit {
		body = body[:snippetLimit]
	}
	return &APIError{
		Status:  status,
		Code:    "UPSTREAM_ERROR",
		Message: fmt.Sprintf("Backend error %d", status),
		Body:    body,
	}
}

// NewBadRequestError creates a 400 error.
func NewBadRequestError(message string) *APIError {
	return &APIError{
		Status:  http.StatusBadRequest,
		Code:    "BAD_REQUEST",
		Message: message,
	}
}

// ErrorHandler converts every error into the {error, body?} wire shape.
// Usage: e.HTTPErrorHandler = api.ErrorHandler
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var apiErr *APIError

	switch e := err.(type) {
	case *APIError:
		apiErr = e
	case *echo.HTTPError:
		apiErr = &APIError{
			Status:  e.Code,
			Code:    "HTTP_ERROR",
			Message: fmt.Sprintf("%v", e.Message),
		}
	default:
		apiErr = &APIError{
			Status:  http.StatusInternalServerError,
			Code:    "UNKNOWN_ERROR",
			Message: "An unexpected error occurred",
		}
	}

	c.JSON(apiErr.Status, apiErr)
}
