package core

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds. Match with errors.Is.
var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrNotFound        = errors.New("not found")
	ErrProviderFailure = errors.New("provider failure")
	ErrStateConflict   = errors.New("state conflict")
)

// AppError carries a kind, an HTTP status and a message safe to show callers.
type AppError struct {
	Kind    error
	Status  int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) Is(target error) bool {
	return target == e.Kind
}

func InvalidInput(format string, args ...any) error {
	return &AppError{
		Kind:    ErrInvalidInput,
		Status:  http.StatusBadRequest,
		Message: fmt.Sprintf(format, args...),
	}
}

func NotFound(what, id string) error {
	return &AppError{
		Kind:    ErrNotFound,
		Status:  http.StatusNotFound,
		Message: fmt.Sprintf("%s %q not found", what, id),
	}
}

func ProviderFailure(op string, err error) error {
	return &AppError{
		Kind:    ErrProviderFailure,
		Status:  http.StatusBadGateway,
		Message: op + " failed",
		Err:     err,
	}
}

func StateConflict(err error) error {
	return &AppError{
		Kind:    ErrStateConflict,
		Status:  http.StatusConflict,
		Message: "concurrent state change",
		Err:     err,
	}
}

// HTTPStatus maps any error onto the status an API boundary should return.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	return http.StatusInternalServerError
}

// PublicMessage is the caller-safe text for err.
func PublicMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "internal error"
}
