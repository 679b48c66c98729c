package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/users"
	"github.com/pressly/goose/v3"
	"github.com/redis/go-redis/v9"
)

var (
	_ RepositoryManager = (*PostgresRepositoryManager)(nil)
	_ RepositoryManager = (*MemoryRepositoryManager)(nil)
)

func newDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

func newRedis(t *testing.T) (redis.UniversalClient, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()}), mr
}

func TestPostgresManager_DefaultRepositories(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	m := NewPostgresRepositoryManager(db)

	if _, ok := m.Users().(*users.PostgresRepository); !ok {
		t.Fatalf("Users() = %T, want *users.PostgresRepository", m.Users())
	}
	if _, ok := m.Sessions().(*sessions.PostgresRepository); !ok {
		t.Fatalf("Sessions() = %T, want *sessions.PostgresRepository", m.Sessions())
	}
}

func TestPostgresManager_RedisSessions(t *testing.T) {
	db, mock := newDB(t)
	client, _ := newRedis(t)

	m := NewPostgresRepositoryManager(db, WithRedisSessions(client, time.Hour))
	if _, ok := m.Sessions().(*sessions.RedisRepository); !ok {
		t.Fatalf("Sessions() = %T, want *sessions.RedisRepository", m.Sessions())
	}

	mock.ExpectPing()
	if err := m.Ping(context.Background()); err != nil {
		t.Fatalf("Ping error: %v", err)
	}

	mock.ExpectClose()
	if err := m.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresManager_PingFailures(t *testing.T) {
	db, mock := newDB(t)
	defer db.Close()

	mock.ExpectPing().WillReturnError(errors.New("down"))
	if err := NewPostgresRepositoryManager(db).Ping(context.Background()); err == nil {
		t.Fatalf("expected db ping error")
	}

	client, mr := newRedis(t)
	mr.Close()

	mock.ExpectPing()
	m := NewPostgresRepositoryManager(db, WithRedisSessions(client, time.Hour))
	if err := m.Ping(context.Background()); err == nil {
		t.Fatalf("expected redis ping error")
	}
}

func TestRunMigrations_Success(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	orig := gooseUpContext
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		if dir != "." {
			return errors.New("unexpected dir")
		}
		if len(opts) != 0 {
			return errors.New("unexpected opts")
		}
		return nil
	}
	defer func() { gooseUpContext = orig }()

	if err := NewPostgresRepositoryManager(db).RunMigrations(context.Background()); err != nil {
		t.Fatalf("RunMigrations error: %v", err)
	}
}

func TestRunMigrations_Error(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	boom := errors.New("boom")
	orig := gooseUpContext
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return boom
	}
	defer func() { gooseUpContext = orig }()

	err := NewPostgresRepositoryManager(db).RunMigrations(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestMemoryManager(t *testing.T) {
	m := NewMemoryRepositoryManager()

	if _, ok := m.Users().(*users.MemoryRepository); !ok {
		t.Fatalf("Users() = %T", m.Users())
	}
	if _, ok := m.Sessions().(*sessions.MemoryRepository); !ok {
		t.Fatalf("Sessions() = %T", m.Sessions())
	}
	if err := m.RunMigrations(context.Background()); err != nil {
		t.Fatalf("RunMigrations error: %v", err)
	}
	if err := m.Ping(context.Background()); err != nil {
		t.Fatalf("Ping error: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
}

func TestMemoryManager_RedisSessions(t *testing.T) {
	client, _ := newRedis(t)

	m := NewMemoryRepositoryManager(WithRedisSessions(client, time.Minute))
	if _, ok := m.Sessions().(*sessions.RedisRepository); !ok {
		t.Fatalf("Sessions() = %T", m.Sessions())
	}
	if err := m.Ping(context.Background()); err != nil {
		t.Fatalf("Ping error: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
}
