// Package cli provides the interactive authkeeper command-line client.
//
// It wires configuration, the local session database and the gRPC client
// into a REPL covering the whole account lifecycle: register, verify,
// resend, login, refresh, profile, change-password, forgot, reset and
// logout. A saved session is restored on start; an expired access token is
// refreshed transparently by the client.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
