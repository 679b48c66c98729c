package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix prefixes every environment variable read by parseEnv.
const EnvPrefix = "AUTHKEEPER"

// parseEnv overrides fields whose AUTHKEEPER_* variable is set. Unset
// variables leave the current value alone.
func parseEnv(config *Config) error {
	if err := envconfig.Process(EnvPrefix, config); err != nil {
		return fmt.Errorf("reading environment: %w", err)
	}
	return nil
}
