// Package config loads runtime configuration for the authkeeper CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected via -c or -config.
//  3. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-a string     address:port of the authkeeper gRPC endpoint
//	-s string     path of the local session database
//	-timeout dur  per-request timeout, e.g. "10s"
package config
