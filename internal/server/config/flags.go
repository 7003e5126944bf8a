package config

import (
	"flag"
	"io"

	"github.com/dmitrijs2005/authkeeper/internal/flagx"
)

// parseFlags overlays command-line flags. Unknown flags are ignored so the
// binary can share argv with -c/-config.
//
//	-a string     gRPC bind address (e.g. ":50051")
//	-d string     PostgreSQL DSN
//	-access-secret, -refresh-secret string
//	-t duration   access token validity
//	-r duration   refresh token validity
//	-env string   development | production
//	-log-level, -log-format string
//	-mail string  log | ses
//	-frontend string  base URL used in password reset links
//	-revoke-family-on-reuse bool
func parseFlags(config *Config, args []string) error {
	fs := flag.NewFlagSet("authkeeper-server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.AccessSecret, "access-secret", config.AccessSecret, "access token HMAC secret")
	fs.StringVar(&config.RefreshSecret, "refresh-secret", config.RefreshSecret, "refresh token HMAC secret")
	fs.DurationVar(&config.AccessTokenValidityDuration, "t", config.AccessTokenValidityDuration, "access token validity")
	fs.DurationVar(&config.RefreshTokenValidityDuration, "r", config.RefreshTokenValidityDuration, "refresh token validity")
	fs.StringVar(&config.Environment, "env", config.Environment, "runtime environment")
	fs.StringVar(&config.LogLevel, "log-level", config.LogLevel, "log level")
	fs.StringVar(&config.LogFormat, "log-format", config.LogFormat, "log format (json|text)")
	fs.StringVar(&config.MailSender, "mail", config.MailSender, "mail sender (log|ses)")
	fs.StringVar(&config.FrontendURL, "frontend", config.FrontendURL, "frontend base URL")
	fs.BoolVar(&config.RevokeFamilyOnReuse, "revoke-family-on-reuse", config.RevokeFamilyOnReuse, "revoke all refresh tokens when reuse is detected")

	return flagx.ParseKnown(fs, args)
}
