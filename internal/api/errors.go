package api

import (
	"errors"
	"net/http"
)

// Error represents a non-success response from the service, carrying the
// server-provided message when one was present.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// ValidationError reports a required field that was missing before any
// request was issued.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return e.Field + " is required"
}

// IsAuth reports whether the server rejected the credentials or token.
func IsAuth(err error) bool {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden
}

// IsValidation reports a preflight required-field failure.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsServer reports a non-success response other than a credential rejection.
func IsServer(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && !IsAuth(err)
}

// IsNetwork reports a transport-level failure: the request never produced a
// response carrying a status.
func IsNetwork(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *Error
	return !errors.As(err, &apiErr) && !IsValidation(err)
}
