package platform

import (
	"errors"
	"fmt"
)

// AuthConfigError means credentials are missing or unusable. It is fatal for
// the whole sync attempt against that platform, never retried per call.
type AuthConfigError struct {
	Platform string
	Reason   string
}

func (e *AuthConfigError) Error() string {
	return fmt.Sprintf("%s: auth configuration error: %s", e.Platform, e.Reason)
}

// AuthError means an authenticated request was rejected (expired or revoked
// token). The sync engine re-authenticates once and retries before giving up.
type AuthError struct {
	Platform string
	Err      error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: authentication rejected: %v", e.Platform, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// TransientError is a retryable vendor failure (429, 5xx, network)
type TransientError struct {
	Platform   string
	StatusCode int
	Err        error
}

func (e *TransientError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: transient vendor error (status %d): %v", e.Platform, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: transient vendor error: %v", e.Platform, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// NotFoundError means the vendor has no such resource (e.g. no transcript
// yet). Terminal per call, never retried.
type NotFoundError struct {
	Platform string
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: %s %s not found", e.Platform, e.Resource, e.ID)
}

// IsAuthConfig reports whether err is an AuthConfigError
func IsAuthConfig(err error) bool {
	var target *AuthConfigError
	return errors.As(err, &target)
}

// IsAuth reports whether err is an AuthError
func IsAuth(err error) bool {
	var target *AuthError
	return errors.As(err, &target)
}

// IsTransient reports whether err is a TransientError
func IsTransient(err error) bool {
	var target *TransientError
	return errors.As(err, &target)
}

// IsNotFound reports whether err is a NotFoundError
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}
