// Package client contains the CLI's transport to the authkeeper server.
//
// GRPCClient wraps the AuthService RPCs. It injects the access token via a
// unary interceptor, transparently refreshes an expired access token once
// using the stored refresh token, and persists the token pair through a
// TokenStore so that a session survives CLI restarts.
//
// Common conditions are exposed as sentinel errors that callers can match
// with errors.Is: ErrUnavailable, ErrUnauthorized, ErrNotLoggedIn. Other
// server failures are returned as *ServerError carrying the server message.
package client
