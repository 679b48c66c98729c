package repomanager

import (
	"context"

	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/users"
)

// MemoryRepositoryManager keeps everything in process memory. It backs
// development runs without a DSN and the service tests.
type MemoryRepositoryManager struct {
	opts     options
	users    users.Repository
	sessions sessions.Repository
}

func NewMemoryRepositoryManager(opts ...Option) *MemoryRepositoryManager {
	o := buildOptions(opts)

	s := o.redisSessions()
	if s == nil {
		s = sessions.NewMemoryRepository()
	}

	return &MemoryRepositoryManager{
		opts:     o,
		users:    users.NewMemoryRepository(),
		sessions: s,
	}
}

func (m *MemoryRepositoryManager) Users() users.Repository {
	return m.users
}

func (m *MemoryRepositoryManager) Sessions() sessions.Repository {
	return m.sessions
}

func (m *MemoryRepositoryManager) RunMigrations(ctx context.Context) error {
	return nil
}

func (m *MemoryRepositoryManager) Ping(ctx context.Context) error {
	return m.opts.pingRedis(ctx)
}

func (m *MemoryRepositoryManager) Close() error {
	return m.opts.closeRedis()
}
