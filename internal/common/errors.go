// Package common defines shared constants and sentinel errors used across
// the session service, its transports and the CLI client. Callers should use
// errors.Is to match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")
	ErrStorage    = errors.New("storage failure")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")
	ErrValidation = errors.New("validation error")

	// ErrConfiguration marks a fatal startup problem (missing signing key,
	// bad lifetimes). It is never produced while serving requests.
	ErrConfiguration = errors.New("configuration error")

	// ErrInvalidCredential is the only refresh/login failure surfaced to
	// clients. The finer-grained errors below wrap it.
	ErrInvalidCredential = errors.New("invalid credential")

	// Refresh token lifecycle errors.
	ErrTokenExpired      = fmt.Errorf("%w: token expired", ErrInvalidCredential)
	ErrTokenRevoked      = fmt.Errorf("%w: token revoked", ErrInvalidCredential)
	ErrRotationRaceLost  = fmt.Errorf("%w: rotation lost to a concurrent request", ErrInvalidCredential)
	ErrTokenNotFound     = fmt.Errorf("%w: token not found", ErrInvalidCredential)
	ErrEmailNotConfirmed = errors.New("email not confirmed")

	// Access token errors.
	ErrInvalidToken       = errors.New("invalid token")
	ErrAccessTokenExpired = fmt.Errorf("%w: access token expired", ErrInvalidToken)
	ErrTokenDenied        = fmt.Errorf("%w: token denylisted", ErrInvalidToken)
)
