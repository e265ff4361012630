package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"github.com/KaramelBytes/tallyloom/internal/logging"
)

// APIError represents a structured API error response
type APIError struct {
	StatusCode int    `json:"status_code"`
	ErrorCode  string `json:"error_code"`
	Message    string `json:"message"`
	Details    any    `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return e.Message
}

// NewAPIError creates a new APIError with the given parameters
func NewAPIError(statusCode int, errorCode, message string) *APIError {
	return &APIError{StatusCode: statusCode, ErrorCode: errorCode, Message: message}
}

// WithDetails returns a copy of e carrying details.
func (e *APIError) WithDetails(details any) *APIError {
	cp := *e
	cp.Details = details
	return &cp
}

var (
	ErrInvalidRequest   = NewAPIError(http.StatusBadRequest, "INVALID_REQUEST", "Invalid request format")
	ErrValidationFailed = NewAPIError(http.StatusBadRequest, "VALIDATION_FAILED", "Request validation failed")
	ErrInvalidType      = NewAPIError(http.StatusBadRequest, "INVALID_TYPE", "Tipo inválido")
	ErrNoData           = NewAPIError(http.StatusBadRequest, "NO_DATA", "Nenhum dado fornecido")
	ErrNotFound         = NewAPIError(http.StatusNotFound, "NOT_FOUND", "Resource not found")
	ErrPayloadTooLarge  = NewAPIError(http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Request body exceeds maximum allowed size")
	ErrInvalidInput     = NewAPIError(http.StatusUnprocessableEntity, "INVALID_INPUT", "Input is not a valid document for the selected format")
	ErrRateLimited      = NewAPIError(http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED", "Rate limit exceeded")
	ErrInternal         = NewAPIError(http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "Internal server error")
	ErrUnavailable      = NewAPIError(http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Service temporarily unavailable")
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Success bool      `json:"success"`
	Error   *APIError `json:"error"`
}

// Render implements render.Renderer.
func (e *ErrorResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.Error.StatusCode)
	return nil
}

// FieldError describes one failed validation rule.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Param string `json:"param,omitempty"`
}

// validationError converts validator errors into a VALIDATION_FAILED error.
func validationError(err error) *APIError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return ErrValidationFailed.WithDetails(err.Error())
	}
	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, FieldError{Field: fe.Field(), Rule: fe.Tag(), Param: fe.Param()})
	}
	return ErrValidationFailed.WithDetails(fields)
}

// respondError logs err with the request id and renders the API error.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		apiErr = ErrInternal
	}
	log := logging.FromContext(r.Context())
	if apiErr.StatusCode >= http.StatusInternalServerError {
		log.Error("request failed", "path", r.URL.Path, "status", apiErr.StatusCode, "code", apiErr.ErrorCode, "error", err)
	} else {
		log.Debug("request rejected", "path", r.URL.Path, "status", apiErr.StatusCode, "code", apiErr.ErrorCode, "error", err)
	}
	if rerr := render.Render(w, r, &ErrorResponse{Success: false, Error: apiErr}); rerr != nil {
		http.Error(w, fmt.Sprintf("%s (%s)", apiErr.Message, apiErr.ErrorCode), apiErr.StatusCode)
	}
}
