package apperrors

import (
	"errors"
	"fmt"
	"strings"
)

// Type classifies an application error.
type Type string

const (
	// TypeNotAuthenticated means no credential is on file for the user.
	// Permanent until the user completes the consent flow.
	TypeNotAuthenticated Type = "not_authenticated"
	// TypeReauthRequired means the stored credential has no refresh token
	// (or the provider revoked it). Permanent until interactive re-consent.
	TypeReauthRequired Type = "reauth_required"
	// TypeRefreshFailed means the refresh exchange failed for a transient
	// network or provider reason. The caller may retry after a fresh login.
	TypeRefreshFailed Type = "refresh_failed"
	// TypeProviderCallFailed means a remote API call failed for a reason
	// unrelated to authentication (not-found, quota, transport).
	TypeProviderCallFailed Type = "provider_call_failed"
	// TypeValidation represents invalid caller-supplied parameters.
	TypeValidation Type = "validation"
	// TypeNotFound represents a missing local resource.
	TypeNotFound Type = "not_found"
)

// Error is a structured application error carrying its classification,
// the operation that produced it, and the affected user.
type Error struct {
	Type    Type
	Message string
	Op      string
	UserID  string
	Cause   error
}

// Error implements the error interface.
// Token values never appear in messages; causes are provider error strings.
func (e *Error) Error() string {
	parts := []string{string(e.Type), e.Message}
	if e.Op != "" {
		parts = append(parts, fmt.Sprintf("op=%s", e.Op))
	}
	if e.UserID != "" {
		parts = append(parts, fmt.Sprintf("user=%s", e.UserID))
	}
	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("cause=%v", e.Cause))
	}
	return strings.Join(parts, ": ")
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithOp records the operation name on the error.
func (e *Error) WithOp(op string) *Error {
	e.Op = op
	return e
}

// NotAuthenticated creates an error for a user with no credential on file.
func NotAuthenticated(userID string) *Error {
	return &Error{
		Type:    TypeNotAuthenticated,
		Message: "no credential on file, connect your Google account",
		UserID:  userID,
	}
}

// ReauthRequired creates an error for a credential without a usable refresh token.
func ReauthRequired(userID string) *Error {
	return &Error{
		Type:    TypeReauthRequired,
		Message: "refresh token missing or revoked, reconnect your Google account",
		UserID:  userID,
	}
}

// RefreshFailed creates an error for a failed refresh exchange.
func RefreshFailed(userID string, cause error) *Error {
	return &Error{
		Type:    TypeRefreshFailed,
		Message: "token refresh failed",
		UserID:  userID,
		Cause:   cause,
	}
}

// ProviderCallFailed creates an error for a failed remote API call.
func ProviderCallFailed(op, userID string, cause error) *Error {
	return &Error{
		Type:    TypeProviderCallFailed,
		Message: "provider call failed",
		Op:      op,
		UserID:  userID,
		Cause:   cause,
	}
}

// Validation creates an error for invalid caller-supplied parameters.
func Validation(msg string) *Error {
	return &Error{
		Type:    TypeValidation,
		Message: msg,
	}
}

// NotFound creates an error for a missing resource.
func NotFound(resource string) *Error {
	return &Error{
		Type:    TypeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
	}
}

// IsType checks if an error is of a specific type anywhere in its chain.
func IsType(err error, t Type) bool {
	var appErr *Error
	if !errors.As(err, &appErr) {
		return false
	}
	return appErr.Type == t
}

// TypeOf returns the error type if err wraps an *Error; otherwise an empty Type.
func TypeOf(err error) Type {
	var appErr *Error
	if !errors.As(err, &appErr) {
		return ""
	}
	return appErr.Type
}

// IsAuthFailure reports whether the error requires the user to go back
// through the consent flow (any of the three auth error types).
func IsAuthFailure(err error) bool {
	switch TypeOf(err) {
	case TypeNotAuthenticated, TypeReauthRequired, TypeRefreshFailed:
		return true
	}
	return false
}
