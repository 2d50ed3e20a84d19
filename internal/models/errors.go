package models

import "net/http"

// AppError is an error returned by the API with its HTTP status.
type AppError struct {
	Code    string `json:"error"`
	Message string `json:"message"`
	Status  int    `json:"-"`
}

func (e *AppError) Error() string { return e.Message }

func newAppError(status int, code, msg string) *AppError {
	return &AppError{Code: code, Message: msg, Status: status}
}

// Error constructors.
var (
	ErrNotFound = func(msg string) *AppError {
		return newAppError(http.StatusNotFound, "NOT_FOUND", msg)
	}
	ErrBadRequest = func(msg string) *AppError {
		return newAppError(http.StatusBadRequest, "BAD_REQUEST", msg)
	}
	ErrConflict = func(msg string) *AppError {
		return newAppError(http.StatusConflict, "CONFLICT", msg)
	}
	ErrInternal = func(msg string) *AppError {
		return newAppError(http.StatusInternalServerError, "INTERNAL", msg)
	}
	// ErrHardwareFault reports a failed expander transaction.
	ErrHardwareFault = func(msg string) *AppError {
		return newAppError(http.StatusServiceUnavailable, "HARDWARE_FAULT", msg)
	}
	ErrUnauthorized = newAppError(http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
)
