// Package aura provides the shared types for the aura trust layer: the
// structured error taxonomy used by every public operation, DID syntax
// parsing, and the DID document model exchanged between the resolver and
// its drivers.
package aura

import (
	"errors"
	"fmt"
)

// ErrorCode identifies the failure class of a trust-layer operation.
type ErrorCode string

const (
	// CodeAuthenticationFailed indicates token signing failed or the
	// issuer's key material was unusable.
	CodeAuthenticationFailed ErrorCode = "AUTHENTICATION_FAILED"
	// CodeInvalidDID indicates malformed DID input; never retried.
	CodeInvalidDID ErrorCode = "INVALID_DID"
	// CodeChallengeExpired is reserved for challenge/response flows built
	// on top of this core.
	CodeChallengeExpired ErrorCode = "CHALLENGE_EXPIRED"
	// CodeInvalidSignature covers every token verification failure: bad
	// signature, expired, not yet valid, malformed claims.
	CodeInvalidSignature ErrorCode = "INVALID_SIGNATURE"
	// CodeResolverError covers resolution failures: no driver registered,
	// circuit open, retries exhausted, caller deadline exceeded.
	CodeResolverError ErrorCode = "RESOLVER_ERROR"
	// CodeKeyNotFound indicates the key provider has no pair for a DID.
	CodeKeyNotFound ErrorCode = "KEY_NOT_FOUND"
	// CodePermissionDenied indicates a delegation or attenuation policy
	// violation; never retried.
	CodePermissionDenied ErrorCode = "PERMISSION_DENIED"
)

// Error is the single structured error value returned by all public
// operations in this module. DID carries the offending identifier when one
// is known.
type Error struct {
	Code    ErrorCode
	Message string
	DID     string
	cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.DID != "" {
		return fmt.Sprintf("%s: %s (did: %s)", e.Code, e.Message, e.DID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *Error) Unwrap() error {
	return e.cause
}

// ForDID returns a copy of the error annotated with the offending DID.
func (e *Error) ForDID(did string) *Error {
	return &Error{Code: e.Code, Message: e.Message, DID: did, cause: e.cause}
}

// NewError builds an Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// NewErrorf builds an Error with a formatted message.
func NewErrorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WrapError builds an Error that records err as its cause.
func WrapError(code ErrorCode, err error, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

// IsCode reports whether err (or anything it wraps) is an *Error carrying
// the given code.
func IsCode(err error, code ErrorCode) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code == code
	}
	return false
}

// CodeOf extracts the error code from err, or the empty string when err is
// not a trust-layer error.
func CodeOf(err error) ErrorCode {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}
