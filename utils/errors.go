package utils

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// ErrorKind is the machine-readable classification surfaced to callers.
type ErrorKind string

const (
	KindValidation    ErrorKind = "validation"
	KindAuthorization ErrorKind = "authorization"
	KindNotFound      ErrorKind = "not_found"
	KindConflict      ErrorKind = "conflict"
	KindInternal      ErrorKind = "internal"
)

// AppError carries a kind and a human message through the handler stack.
type AppError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

func NewValidationError(msg string) *AppError {
	return &AppError{Kind: KindValidation, Message: msg}
}

func NewAuthorizationError(msg string) *AppError {
	return &AppError{Kind: KindAuthorization, Message: msg}
}

func NewNotFoundError(msg string) *AppError {
	return &AppError{Kind: KindNotFound, Message: msg}
}

func NewConflictError(msg string) *AppError {
	return &AppError{Kind: KindConflict, Message: msg}
}

func NewInternalError(msg string, err error) *AppError {
	return &AppError{Kind: KindInternal, Message: msg, Err: err}
}

func statusForKind(kind ErrorKind) int {
	switch kind {
	case KindValidation:
		return fiber.StatusBadRequest
	case KindAuthorization:
		return fiber.StatusForbidden
	case KindNotFound:
		return fiber.StatusNotFound
	case KindConflict:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// ErrorResponse writes a structured error body. Internal errors are also
// reported through LogError; everything else is the caller's fault and only
// echoed back.
func ErrorResponse(c *fiber.Ctx, err error) error {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		appErr = NewInternalError("Unexpected error", err)
	}

	response := fiber.Map{
		"success": false,
		"kind":    appErr.Kind,
		"error":   appErr.Message,
	}
	if appErr.Kind == KindInternal {
		LogError(string(appErr.Kind), err, map[string]interface{}{
			"path": c.Path(),
		})
	} else if appErr.Err != nil {
		response["details"] = appErr.Err.Error()
	}

	return c.Status(statusForKind(appErr.Kind)).JSON(response)
}

// SuccessResponse creates a standardized success response
func SuccessResponse(data interface{}) fiber.Map {
	return fiber.Map{
		"success": true,
		"data":    data,
	}
}
