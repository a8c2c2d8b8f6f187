package client

import "errors"

var (
	ErrUnavailable       = errors.New("server unavailable")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrEmailNotConfirmed = errors.New("email is not confirmed")
	ErrInvalidInput      = errors.New("invalid input")
	ErrNotLoggedIn       = errors.New("not logged in")
)
