package config

import (
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/flagx"
)

var serverFlags = []string{"-a", "-g", "-d", "-redis", "-s", "-rs", "-t", "-r", "-st", "-l", "-rl"}

// parseFlags populates Config fields from command-line flags.
//
//	-a string      HTTP bind address (e.g. ":8080")
//	-g string      gRPC health bind address (e.g. ":50051")
//	-d string      PostgreSQL DSN; empty selects in-memory storage
//	-redis string  Redis address for sessions
//	-s string      access token secret
//	-rs string     refresh token secret
//	-t int         access token lifetime, minutes
//	-r int         refresh token lifetime, minutes
//	-st duration   session store call timeout
//	-l string      log format: json, text or zerolog
//	-rl int        register/login requests per IP per minute, 0 disables
//
// Only these flags are looked at, so -c/-config and unknown flags are ignored.
func parseFlags(config *Config, args []string) error {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.HTTPAddress, "a", config.HTTPAddress, "HTTP address")
	fs.StringVar(&config.GRPCAddress, "g", config.GRPCAddress, "gRPC health address")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.RedisAddress, "redis", config.RedisAddress, "Redis address")
	fs.StringVar(&config.AccessSecret, "s", config.AccessSecret, "access token secret")
	fs.StringVar(&config.RefreshSecret, "rs", config.RefreshSecret, "refresh token secret")

	accessTTL := fs.Int("t", int(config.AccessTokenTTL.Minutes()), "access token lifetime (in minutes)")
	refreshTTL := fs.Int("r", int(config.RefreshTokenTTL.Minutes()), "refresh token lifetime (in minutes)")

	fs.DurationVar(&config.StoreTimeout, "st", config.StoreTimeout, "session store timeout")
	fs.StringVar(&config.LogFormat, "l", config.LogFormat, "log format")
	fs.IntVar(&config.LoginRateLimit, "rl", config.LoginRateLimit, "login rate limit per minute")

	if err := fs.Parse(flagx.FilterArgs(args, serverFlags)); err != nil {
		return fmt.Errorf("parsing flags: %w", err)
	}

	// Minute flags only replace the lifetime when given, so sub-minute values
	// from JSON or the environment survive.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			config.AccessTokenTTL = time.Duration(*accessTTL) * time.Minute
		case "r":
			config.RefreshTokenTTL = time.Duration(*refreshTTL) * time.Minute
		}
	})

	return nil
}
