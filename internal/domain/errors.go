package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures surfaced to callers. Every kind maps
// to a stable machine-readable string and an HTTP status in the
// transport layer.
type ErrorKind string

const (
	ErrInvalidState     ErrorKind = "invalid_state"
	ErrUpstreamRejected ErrorKind = "upstream_rejected"
	ErrUpstreamError    ErrorKind = "upstream_error"
	ErrReauthRequired   ErrorKind = "reauth_required"
	ErrUnknownStore     ErrorKind = "unknown_store"
	ErrSignatureInvalid ErrorKind = "signature_invalid"
	ErrBadRequest       ErrorKind = "bad_request"
	ErrUnauthorized     ErrorKind = "unauthorized"
	ErrNotFound         ErrorKind = "not_found"
)

// Error carries a classification plus the next action the caller
// should take. Wraps the underlying cause when there is one.
type Error struct {
	Kind    ErrorKind
	Message string
	Advice  string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// NewError builds a classified error.
func NewError(kind ErrorKind, message, advice string) *Error {
	return &Error{Kind: kind, Message: message, Advice: advice}
}

// WrapError builds a classified error around a cause.
func WrapError(kind ErrorKind, message, advice string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Advice: advice, Cause: cause}
}

// KindOf extracts the classification from err, or empty if err is not
// a domain error.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// IsKind reports whether err carries the given classification.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
