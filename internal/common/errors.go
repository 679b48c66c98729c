package common

import (
	"errors"
	"fmt"
)

// Error families. Every error that leaves a service is one of these or wraps
// one of them, so boundary layers only need errors.Is against this list.
var (
	// ErrValidation marks missing or malformed input. Never retried.
	ErrValidation = errors.New("validation error")

	// ErrUnauthenticated marks a bad, missing, expired or mismatched credential.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrConflict marks a duplicate (email, session row) or a lost update.
	ErrConflict = errors.New("conflict")

	// ErrNotFound is returned by repositories when a row is absent.
	ErrNotFound = errors.New("not found")

	// ErrUnavailable marks a storage timeout; safe for the caller to retry.
	ErrUnavailable = errors.New("storage unavailable")

	// ErrInternal marks hashing/signing/driver failures. Logged, not retried.
	ErrInternal = errors.New("internal error")
)

// Specific errors, each wrapping one family.
var (
	ErrInvalidCredentials  = fmt.Errorf("%w: invalid credentials", ErrUnauthenticated)
	ErrInvalidAccessToken  = fmt.Errorf("%w: invalid access token", ErrUnauthenticated)
	ErrInvalidRefreshToken = fmt.Errorf("%w: invalid refresh token", ErrUnauthenticated)
	ErrNoSession           = fmt.Errorf("%w: no active session", ErrUnauthenticated)

	ErrEmailTaken   = fmt.Errorf("%w: email already exists", ErrConflict)
	ErrStaleSession = fmt.Errorf("%w: session changed concurrently", ErrConflict)

	ErrEmailRequired    = fmt.Errorf("%w: email is required", ErrValidation)
	ErrPasswordRequired = fmt.Errorf("%w: password is required", ErrValidation)
)

// Token codec errors.
var (
	ErrInvalidSignature = fmt.Errorf("%w: invalid token signature", ErrUnauthenticated)
	ErrTokenExpired     = fmt.Errorf("%w: token expired", ErrUnauthenticated)
)
