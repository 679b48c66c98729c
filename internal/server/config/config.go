// Package config loads the server configuration.
//
// Sources, later ones override earlier ones:
//
//  1. Built-in defaults (LoadDefaults).
//  2. Optional JSON file selected with -c or -config.
//  3. Environment variables prefixed with AUTHKEEPER_ (e.g. AUTHKEEPER_DATABASE_DSN).
//  4. Command-line flags.
//
// An empty DatabaseDSN selects in-memory storage. A non-empty RedisAddress
// moves sessions to Redis.
package config

import (
	"errors"
	"os"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/flagx"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/services"
)

// Config holds runtime settings for the server.
type Config struct {
	HTTPAddress         string        `envconfig:"HTTP_ADDRESS"`
	GRPCAddress         string        `envconfig:"GRPC_ADDRESS"`
	DatabaseDSN         string        `envconfig:"DATABASE_DSN"`
	RedisAddress        string        `envconfig:"REDIS_ADDRESS"`
	AccessSecret        string        `envconfig:"ACCESS_SECRET"`
	RefreshSecret       string        `envconfig:"REFRESH_SECRET"`
	AccessTokenTTL      time.Duration `envconfig:"ACCESS_TOKEN_TTL"`
	RefreshTokenTTL     time.Duration `envconfig:"REFRESH_TOKEN_TTL"`
	StoreTimeout        time.Duration `envconfig:"STORE_TIMEOUT"`
	HealthCheckInterval time.Duration `envconfig:"HEALTH_CHECK_INTERVAL"`
	LogFormat           string        `envconfig:"LOG_FORMAT"`
	LoginRateLimit      int           `envconfig:"LOGIN_RATE_LIMIT"`
}

// LoadDefaults populates Config with development defaults.
// NOTE: the secrets are insecure and must be overridden in production.
func (c *Config) LoadDefaults() {
	c.HTTPAddress = ":8080"
	c.GRPCAddress = ":50051"
	c.DatabaseDSN = ""
	c.RedisAddress = ""
	c.AccessSecret = "dev-access-secret"
	c.RefreshSecret = "dev-refresh-secret"
	c.AccessTokenTTL = auth.DefaultAccessTTL
	c.RefreshTokenTTL = auth.DefaultRefreshTTL
	c.StoreTimeout = services.DefaultStoreTimeout
	c.HealthCheckInterval = 5 * time.Second
	c.LogFormat = logging.FormatJSON
	c.LoginRateLimit = 10
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if c.AccessSecret == "" {
		errs = append(errs, errors.New("access secret must be provided"))
	}
	if c.RefreshSecret == "" {
		errs = append(errs, errors.New("refresh secret must be provided"))
	}
	if c.AccessSecret != "" && c.AccessSecret == c.RefreshSecret {
		errs = append(errs, errors.New("access and refresh secrets must differ"))
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		errs = append(errs, errors.New("token lifetimes must be positive"))
	}
	if c.RefreshTokenTTL < c.AccessTokenTTL {
		errs = append(errs, errors.New("refresh token lifetime must not be shorter than access token lifetime"))
	}
	if c.StoreTimeout <= 0 {
		errs = append(errs, errors.New("store timeout must be positive"))
	}
	if c.LoginRateLimit < 0 {
		errs = append(errs, errors.New("login rate limit must not be negative"))
	}
	switch c.LogFormat {
	case logging.FormatJSON, logging.FormatText, logging.FormatZerolog:
	default:
		errs = append(errs, errors.New("log format must be json, text or zerolog"))
	}

	return errors.Join(errs...)
}

// Load builds a Config from defaults, the JSON file, the environment and
// args (without the program name), then validates it.
func Load(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseJson(cfg, flagx.ConfigPath(args)); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig is Load applied to os.Args.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}
