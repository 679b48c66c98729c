package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/timex"
)

// JsonConfig is the on-disk shape of the config file. Durations accept
// strings like "15m" or integer nanoseconds.
type JsonConfig struct {
	HTTPAddress         string         `json:"http_address"`
	GRPCAddress         string         `json:"grpc_address"`
	DatabaseDSN         string         `json:"database_dsn"`
	RedisAddress        string         `json:"redis_address"`
	AccessSecret        string         `json:"access_secret"`
	RefreshSecret       string         `json:"refresh_secret"`
	AccessTokenTTL      timex.Duration `json:"access_token_ttl"`
	RefreshTokenTTL     timex.Duration `json:"refresh_token_ttl"`
	StoreTimeout        timex.Duration `json:"store_timeout"`
	HealthCheckInterval timex.Duration `json:"health_check_interval"`
	LogFormat           string         `json:"log_format"`
	LoginRateLimit      *int           `json:"login_rate_limit"`
}

// parseJson overlays the fields present in the file at path. An empty path
// loads nothing.
func parseJson(config *Config, path string) error {
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	setString(&config.HTTPAddress, c.HTTPAddress)
	setString(&config.GRPCAddress, c.GRPCAddress)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.RedisAddress, c.RedisAddress)
	setString(&config.AccessSecret, c.AccessSecret)
	setString(&config.RefreshSecret, c.RefreshSecret)
	setString(&config.LogFormat, c.LogFormat)

	setDuration(&config.AccessTokenTTL, c.AccessTokenTTL)
	setDuration(&config.RefreshTokenTTL, c.RefreshTokenTTL)
	setDuration(&config.StoreTimeout, c.StoreTimeout)
	setDuration(&config.HealthCheckInterval, c.HealthCheckInterval)

	if c.LoginRateLimit != nil {
		config.LoginRateLimit = *c.LoginRateLimit
	}

	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}
