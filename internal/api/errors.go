// errors.go - Structured error handling for API responses
package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/geoimport/backend/internal/ingest"
	"github.com/geoimport/backend/internal/kml"
	"github.com/geoimport/backend/internal/store"
)

// APIError represents a structured API error response
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewBadRequestError creates a 400 Bad Request error
func NewBadRequestError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusBadRequest,
		Code:    "BAD_REQUEST",
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// NewValidationError creates a 400 validation error for a specific field
func NewValidationError(field string) *APIError {
	return &APIError{
		Status:  http.StatusBadRequest,
		Code:    "VALIDATION_ERROR",
		Message: fmt.Sprintf("validation failed for field: %s", field),
	}
}

// NewNotFoundError creates a 404 Not Found error
func NewNotFoundError(resource string, id string) *APIError {
	return &APIError{
		Status:  http.StatusNotFound,
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s not found: %s", resource, id),
	}
}

// NewConflictError creates a 409 Conflict error
func NewConflictError(message string) *APIError {
	return &APIError{
		Status:  http.StatusConflict,
		Code:    "CONFLICT",
		Message: message,
	}
}

// NewInternalError creates a 500 Internal Server Error
func NewInternalError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusInternalServerError,
		Code:    "INTERNAL_ERROR",
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// NewServiceUnavailableError creates a 503 Service Unavailable error
func NewServiceUnavailableError(message string) *APIError {
	return &APIError{
		Status:  http.StatusServiceUnavailable,
		Code:    "SERVICE_UNAVAILABLE",
		Message: message,
	}
}

// FromDomainError maps ingest and store errors to API responses. Errors
// without a mapping come back as 500.
func FromDomainError(err error) *APIError {
	var (
		validationErr *ingest.ValidationError
		innerDocErr   *ingest.MissingInnerDocumentError
		parseErr      *kml.ParseError
		noFeaturesErr *kml.NoFeaturesError
		emptySelErr   *store.EmptySelectionError
		notLineErr    *store.NotLineStringError
	)

	switch {
	case errors.As(err, &validationErr):
		return &APIError{
			Status:  http.StatusBadRequest,
			Code:    "VALIDATION_ERROR",
			Message: validationErr.Error(),
		}
	case errors.As(err, &innerDocErr):
		return &APIError{
			Status:  http.StatusUnprocessableEntity,
			Code:    "MISSING_INNER_DOCUMENT",
			Message: innerDocErr.Error(),
		}
	case errors.As(err, &parseErr):
		return &APIError{
			Status:  http.StatusUnprocessableEntity,
			Code:    "PARSE_ERROR",
			Message: parseErr.Error(),
		}
	case errors.As(err, &noFeaturesErr):
		return &APIError{
			Status:  http.StatusUnprocessableEntity,
			Code:    "NO_FEATURES",
			Message: noFeaturesErr.Error(),
		}
	case errors.As(err, &emptySelErr):
		return &APIError{
			Status:  http.StatusBadRequest,
			Code:    "EMPTY_SELECTION",
			Message: emptySelErr.Error(),
		}
	case errors.As(err, &notLineErr):
		return &APIError{
			Status:  http.StatusBadRequest,
			Code:    "NOT_LINESTRING",
			Message: notLineErr.Error(),
		}
	default:
		return NewInternalError("An unexpected error occurred", err)
	}
}

// ErrorHandler middleware for Echo
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
		apiErr = FromDomainError(err)
	}

	if !c.Response().Committed {
		c.JSON(apiErr.Status, apiErr)
	}
}

// RespondWithError is a helper to respond with an APIError
func RespondWithError(c echo.Context, err *APIError) error {
	return c.JSON(err.Status, err)
}
