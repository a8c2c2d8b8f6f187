// Package cli provides the interactive demoauth command-line client.
//
// It wires configuration and the gRPC session client into a small REPL:
//
//   - login   prompt for email and password (no echo) and open a session
//   - refresh rotate the refresh token explicitly
//   - whoami  show the principal behind the current access token
//   - logout  revoke the session and forget local tokens
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
