package model

import (
	"fmt"
)

// NotFoundError is an error signaling that something was not found, e.g. an
// issuer that is not a member of the issuer registry
type NotFoundError string

// Error implements the error interface
func (e NotFoundError) Error() string {
	return string(e)
}

// NotFoundErrorFmt returns a NotFoundError from the passed format string and parameters
func NotFoundErrorFmt(format string, params ...any) NotFoundError {
	return NotFoundError(fmt.Sprintf(format, params...))
}

// AlreadyExistsError signals that something that should be unique is already
// present, e.g. adding an issuer that is already authorized
type AlreadyExistsError string

// Error implements the error interface
func (e AlreadyExistsError) Error() string {
	return string(e)
}

// AlreadyExistsErrorFmt returns an AlreadyExistsError from the passed format string and parameters
func AlreadyExistsErrorFmt(format string, params ...any) AlreadyExistsError {
	return AlreadyExistsError(fmt.Sprintf(format, params...))
}

// AuthorizationError signals that the caller does not hold the role an
// operation requires (owner, authorized issuer, or recorded certificate issuer)
type AuthorizationError string

// Error implements the error interface
func (e AuthorizationError) Error() string {
	return string(e)
}

// AuthorizationErrorFmt returns an AuthorizationError from the passed format string and parameters
func AuthorizationErrorFmt(format string, params ...any) AuthorizationError {
	return AuthorizationError(fmt.Sprintf(format, params...))
}

// ValidationError signals malformed input
type ValidationError string

// Error implements the error interface
func (e ValidationError) Error() string {
	return string(e)
}

// ValidationErrorFmt returns a ValidationError from the passed format string and parameters
func ValidationErrorFmt(format string, params ...any) ValidationError {
	return ValidationError(fmt.Sprintf(format, params...))
}

// CollisionError signals that a certificate identifier is already occupied
// for a holder
type CollisionError string

// Error implements the error interface
func (e CollisionError) Error() string {
	return string(e)
}

// CollisionErrorFmt returns a CollisionError from the passed format string and parameters
func CollisionErrorFmt(format string, params ...any) CollisionError {
	return CollisionError(fmt.Sprintf(format, params...))
}

// IdempotencyError signals a repeated state transition that already happened,
// e.g. revoking a certificate twice
type IdempotencyError string

// Error implements the error interface
func (e IdempotencyError) Error() string {
	return string(e)
}

// IdempotencyErrorFmt returns an IdempotencyError from the passed format string and parameters
func IdempotencyErrorFmt(format string, params ...any) IdempotencyError {
	return IdempotencyError(fmt.Sprintf(format, params...))
}
