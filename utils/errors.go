package utils

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// ErrorKind enumerates the failure taxonomy returned to API callers.
type ErrorKind string

const (
	KindUnauthorized       ErrorKind = "Unauthorized"
	KindUnauthenticated    ErrorKind = "Unauthenticated"
	KindInvalidInput       ErrorKind = "InvalidInput"
	KindInvalidCredentials ErrorKind = "InvalidCredentials"
	KindInvalidSection     ErrorKind = "InvalidSection"
	KindInvalidYtID        ErrorKind = "InvalidYtId"
	KindAlreadyExists      ErrorKind = "AlreadyExists"
	KindNotFound           ErrorKind = "NotFound"
	KindClientError        ErrorKind = "ClientError"
	KindServerError        ErrorKind = "ServerError"
)

// AppError carries a taxonomy kind plus an optional human-readable message.
type AppError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message,omitempty"`
}

func (e *AppError) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Message
}

func NewError(kind ErrorKind) *AppError { return &AppError{Kind: kind} }

func NewErrorMsg(kind ErrorKind, msg string) *AppError {
	return &AppError{Kind: kind, Message: msg}
}

// ServerError wraps an internal failure (typically a database error) with a
// short caller-facing message. Validation failures are returned verbatim.
func ServerError(msg string) *AppError { return NewErrorMsg(KindServerError, msg) }

func statusFor(kind ErrorKind) int {
	switch kind {
	case KindUnauthorized:
		return fiber.StatusForbidden
	case KindUnauthenticated, KindInvalidCredentials:
		return fiber.StatusUnauthorized
	case KindInvalidInput, KindInvalidSection, KindInvalidYtID, KindClientError:
		return fiber.StatusBadRequest
	case KindAlreadyExists:
		return fiber.StatusConflict
	case KindNotFound:
		return fiber.StatusNotFound
	default:
		return fiber.StatusInternalServerError
	}
}

// RespondError writes the JSON error body for any error. Errors outside the
// taxonomy are reported as ServerError without leaking internals.
func RespondError(c *fiber.Ctx, err error) error {
	var app *AppError
	if !errors.As(err, &app) {
		app = NewErrorMsg(KindServerError, "internal error")
	}
	return c.Status(statusFor(app.Kind)).JSON(app)
}
