package service

import (
	"errors"
	"fmt"
)

// Sentinel errors for the auth service; handlers map them to HTTP statuses.
var (
	ErrDuplicateRegistration = errors.New("email already registered")
	ErrChallengeNotFound     = errors.New("no pending challenge")
	ErrChallengeExpired      = errors.New("challenge expired")
	ErrChallengeExhausted    = errors.New("challenge attempts exhausted")
	ErrInvalidMagicLink      = errors.New("invalid magic link")
	ErrMagicLinkExpired      = errors.New("magic link expired")
	ErrInvalidRefreshToken   = errors.New("invalid or expired refresh token")
	ErrRefreshTokenReuse     = errors.New("refresh token reuse detected; all sessions revoked")
	ErrSessionNotFound       = errors.New("session not found")
	ErrUserNotFound          = errors.New("user not found")
)

// ValidationError reports a malformed request field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// CodeMismatchError reports a wrong code presentation and how many attempts remain.
type CodeMismatchError struct {
	Remaining int
}

func (e *CodeMismatchError) Error() string {
	return fmt.Sprintf("incorrect code, %d attempts remaining", e.Remaining)
}
