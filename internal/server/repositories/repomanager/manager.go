// Package repomanager wires repository implementations to a storage backend
// and exposes its lifecycle: migrations, health pings and shutdown.
package repomanager

import (
	"context"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/users"
	"github.com/redis/go-redis/v9"
)

// RepositoryManager vends the repositories used by the services.
type RepositoryManager interface {
	Users() users.Repository
	Sessions() sessions.Repository

	// RunMigrations brings the schema up to date. No-op for memory.
	RunMigrations(ctx context.Context) error

	// Ping reports whether every backing store answers.
	Ping(ctx context.Context) error

	Close() error
}

type options struct {
	redis      redis.UniversalClient
	sessionTTL time.Duration
}

// Option customizes a manager.
type Option func(*options)

// WithRedisSessions keeps sessions in Redis instead of the primary backend.
// Keys expire after ttl, which should equal the refresh token lifetime.
func WithRedisSessions(client redis.UniversalClient, ttl time.Duration) Option {
	return func(o *options) {
		o.redis = client
		o.sessionTTL = ttl
	}
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) redisSessions() sessions.Repository {
	if o.redis == nil {
		return nil
	}
	return sessions.NewRedisRepository(o.redis, o.sessionTTL)
}

func (o options) pingRedis(ctx context.Context) error {
	if o.redis == nil {
		return nil
	}
	return o.redis.Ping(ctx).Err()
}

func (o options) closeRedis() error {
	if o.redis == nil {
		return nil
	}
	return o.redis.Close()
}
