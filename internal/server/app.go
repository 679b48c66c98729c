// Package server wires the configuration, storage, session manager and
// transports together and runs the HTTP API next to the gRPC health service.
package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/config"
	"github.com/dmitrijs2005/authkeeper/internal/server/httpapi"
	"github.com/dmitrijs2005/authkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/authkeeper/internal/server/services"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	gs "github.com/dmitrijs2005/authkeeper/internal/server/grpc"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	repos    repomanager.RepositoryManager
	sessions *services.SessionManager
	users    *services.UserService
	metrics  *metrics.Metrics
}

// NewApp opens storage, runs migrations and builds the services.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger, err := logging.New(c.LogFormat, os.Stdout)
	if err != nil {
		return nil, err
	}

	repos, err := openRepositories(ctx, c, logger)
	if err != nil {
		return nil, err
	}

	codec := auth.NewCodec([]byte(c.AccessSecret), []byte(c.RefreshSecret), c.AccessTokenTTL, c.RefreshTokenTTL)
	m := metrics.New()

	sm := services.NewSessionManager(codec, repos.Sessions(), c.StoreTimeout, logger, m)
	us := services.NewUserService(repos.Users(), sm, logger)

	return &App{config: c, logger: logger, repos: repos, sessions: sm, users: us, metrics: m}, nil
}

var newRedisClient = func(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr})
}

func openRepositories(ctx context.Context, c *config.Config, logger logging.Logger) (repomanager.RepositoryManager, error) {
	var opts []repomanager.Option
	var client *redis.Client
	if c.RedisAddress != "" {
		client = newRedisClient(c.RedisAddress)
		opts = append(opts, repomanager.WithRedisSessions(client, c.RefreshTokenTTL))
		logger.Info(ctx, "Sessions stored in Redis", "address", c.RedisAddress)
	}

	if c.DatabaseDSN == "" {
		logger.Warn(ctx, "No database DSN configured, using in-memory storage")
		return repomanager.NewMemoryRepositoryManager(opts...), nil
	}

	db, err := repomanager.OpenPostgres(c.DatabaseDSN)
	if err != nil {
		err = fmt.Errorf("db init error: %w", err)
		if client != nil {
			err = errors.Join(err, client.Close())
		}
		return nil, err
	}

	repos := repomanager.NewPostgresRepositoryManager(db, opts...)
	if err := repos.RunMigrations(ctx); err != nil {
		return nil, errors.Join(err, repos.Close())
	}

	return repos, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves until a signal arrives or one of the servers fails, then
// closes storage.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	router := httpapi.NewRouter(httpapi.RouterConfig{
		Users:          app.users,
		Sessions:       app.sessions,
		Logger:         app.logger,
		Metrics:        app.metrics,
		LoginRateLimit: app.config.LoginRateLimit,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return httpapi.NewServer(app.config.HTTPAddress, router, app.logger).Run(gctx)
	})
	g.Go(func() error {
		return gs.NewHealthServer(app.config.GRPCAddress, app.repos, app.config.HealthCheckInterval, app.logger).Run(gctx)
	})

	err := g.Wait()

	if cerr := app.repos.Close(); cerr != nil {
		app.logger.Error(ctx, "storage close error", "error", cerr)
	}

	app.logger.Info(ctx, "App stopped")
	return err
}
