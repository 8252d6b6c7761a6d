package domain

import (
	"errors"
	"fmt"
)

// Credential errors
var (
	ErrInvalidInput    = errors.New("all fields are required")                // 400
	ErrPasswordsDiffer = errors.New("passwords do not match")                 // 400
	ErrWeakPassword    = errors.New("password must be at least 8 characters") // 400
	ErrInvalidEmail    = errors.New("invalid email address")                  // 400
	ErrDuplicateEmail  = errors.New("email is already registered")            // 409
	ErrUserNotFound    = errors.New("user not found")                         // 404
	ErrBadCredentials  = errors.New("invalid email or password")              // 400
)

// Token errors
var (
	ErrInvalidToken = errors.New("invalid token") // 401
	ErrExpiredToken = errors.New("token expired") // 401
)

// Chat errors
var (
	ErrInvalidQuery        = errors.New("query must be a non-empty string") // 400
	ErrUpstreamUnavailable = errors.New("upstream provider unavailable")    // 500
)

// UpstreamError is a structured failure from the generative-text provider.
// The HTTP status and body are mirrored back to the caller.
type UpstreamError struct {
	StatusCode int
	Body       []byte
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream returned status %d", e.StatusCode)
}
