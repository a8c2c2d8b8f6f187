// Package client is the gRPC side of the demoauth CLI.
//
// GRPCClient keeps the current token pair in memory, sends the access token
// as call metadata and, when the server reports that the access token has
// expired, rotates the refresh token once and retries the call.
//
// Server status codes are mapped to the sentinel errors in errors.go:
// ErrUnauthorized, ErrUnavailable, ErrEmailNotConfirmed, ErrInvalidInput and
// ErrNotLoggedIn.
package client
