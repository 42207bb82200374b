// Package api holds the HTTP error representation shared by the public and
// the admin API.
package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"

	"github.com/go-oidfed/certledger/storage/model"
)

// Error codes
const (
	ErrorCodeInvalidRequest = "invalid_request"
	ErrorCodeUnauthorized   = "invalid_client"
	ErrorCodeForbidden      = "forbidden"
	ErrorCodeNotFound       = "not_found"
	ErrorCodeConflict       = "conflict"
	ErrorCodeServerError    = "server_error"
)

// Error is the JSON body of an error response
type Error struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// ErrorInvalidRequest returns an invalid_request Error
func ErrorInvalidRequest(description string) Error {
	return Error{
		Error:            ErrorCodeInvalidRequest,
		ErrorDescription: description,
	}
}

// ErrorUnauthorized returns an invalid_client Error
func ErrorUnauthorized(description string) Error {
	return Error{
		Error:            ErrorCodeUnauthorized,
		ErrorDescription: description,
	}
}

// ErrorNotFound returns a not_found Error
func ErrorNotFound(description string) Error {
	return Error{
		Error:            ErrorCodeNotFound,
		ErrorDescription: description,
	}
}

// ErrorServerError returns a server_error Error
func ErrorServerError(description string) Error {
	return Error{
		Error:            ErrorCodeServerError,
		ErrorDescription: description,
	}
}

// StatusForError maps an error to the HTTP status and Error body it is
// reported with.
func StatusForError(err error) (int, Error) {
	var (
		authorizationError model.AuthorizationError
		alreadyExistsError model.AlreadyExistsError
		collisionError     model.CollisionError
		idempotencyError   model.IdempotencyError
		notFoundError      model.NotFoundError
		validationError    model.ValidationError
		fiberError         *fiber.Error
	)
	switch {
	case errors.As(err, &authorizationError):
		return fiber.StatusForbidden, Error{
			Error:            ErrorCodeForbidden,
			ErrorDescription: err.Error(),
		}
	case errors.As(err, &alreadyExistsError),
		errors.As(err, &collisionError),
		errors.As(err, &idempotencyError):
		return fiber.StatusConflict, Error{
			Error:            ErrorCodeConflict,
			ErrorDescription: err.Error(),
		}
	case errors.As(err, &notFoundError):
		return fiber.StatusNotFound, ErrorNotFound(err.Error())
	case errors.As(err, &validationError):
		return fiber.StatusBadRequest, ErrorInvalidRequest(err.Error())
	case errors.As(err, &fiberError):
		code := ErrorCodeServerError
		switch {
		case fiberError.Code == fiber.StatusNotFound:
			code = ErrorCodeNotFound
		case fiberError.Code < fiber.StatusInternalServerError:
			code = ErrorCodeInvalidRequest
		}
		return fiberError.Code, Error{
			Error:            code,
			ErrorDescription: fiberError.Message,
		}
	default:
		return fiber.StatusInternalServerError, ErrorServerError(err.Error())
	}
}

// SendError writes err as JSON error response
func SendError(c *fiber.Ctx, err error) error {
	status, body := StatusForError(err)
	return c.Status(status).JSON(body)
}
