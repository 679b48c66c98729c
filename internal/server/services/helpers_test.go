package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/sessions"
)

func discardLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func newCodec() *auth.Codec {
	return auth.NewCodec([]byte("access-secret"), []byte("refresh-secret"), time.Hour, 24*time.Hour)
}

func newManager(t *testing.T, store sessions.Repository) *SessionManager {
	t.Helper()
	return NewSessionManager(newCodec(), store, time.Second, discardLogger(), metrics.New())
}

// fakeStore wraps the memory store and lets tests override single calls.
type fakeStore struct {
	*sessions.MemoryRepository

	mu        sync.Mutex
	getFn     func(ctx context.Context, userID string) (models.TokenPair, error)
	casFn     func(ctx context.Context, userID string, expected, next models.TokenPair) (models.TokenPair, error)
	deleteFn  func(ctx context.Context, userID string) error
	deletes   int
	deleteCtx []error
}

func newFakeStore() *fakeStore {
	return &fakeStore{MemoryRepository: sessions.NewMemoryRepository()}
}

func (f *fakeStore) Get(ctx context.Context, userID string) (models.TokenPair, error) {
	if f.getFn != nil {
		return f.getFn(ctx, userID)
	}
	return f.MemoryRepository.Get(ctx, userID)
}

func (f *fakeStore) CompareAndSwap(ctx context.Context, userID string, expected, next models.TokenPair) (models.TokenPair, error) {
	if f.casFn != nil {
		return f.casFn(ctx, userID, expected, next)
	}
	return f.MemoryRepository.CompareAndSwap(ctx, userID, expected, next)
}

func (f *fakeStore) Delete(ctx context.Context, userID string) error {
	f.mu.Lock()
	f.deletes++
	f.deleteCtx = append(f.deleteCtx, ctx.Err())
	f.mu.Unlock()

	if f.deleteFn != nil {
		return f.deleteFn(ctx, userID)
	}
	return f.MemoryRepository.Delete(context.WithoutCancel(ctx), userID)
}

func (f *fakeStore) deleteCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deletes
}

// blockUntilDone simulates a store that never answers.
func blockUntilDone(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}
