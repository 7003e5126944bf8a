package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

const envPrefix = "AUTHKEEPER_"

// parseEnv overlays AUTHKEEPER_* variables. Unset variables leave fields
// untouched. A nil environ reads the process environment.
func parseEnv(cfg *Config, environ map[string]string) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: envPrefix, Environment: environ}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
