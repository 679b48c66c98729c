package sessions

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

// MemoryRepository keeps token pairs in a map guarded by a single mutex.
type MemoryRepository struct {
	mu    sync.Mutex
	pairs map[string]models.TokenPair
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{pairs: make(map[string]models.TokenPair)}
}

func (r *MemoryRepository) Get(ctx context.Context, userID string) (models.TokenPair, error) {
	if err := ctx.Err(); err != nil {
		return models.TokenPair{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	pair, ok := r.pairs[userID]
	if !ok {
		return models.TokenPair{}, common.ErrNotFound
	}
	return pair, nil
}

func (r *MemoryRepository) Insert(ctx context.Context, userID string, pair models.TokenPair) (models.TokenPair, error) {
	if err := ctx.Err(); err != nil {
		return models.TokenPair{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.pairs[userID]; ok {
		return models.TokenPair{}, common.ErrConflict
	}
	r.pairs[userID] = pair
	return pair, nil
}

func (r *MemoryRepository) Update(ctx context.Context, userID string, pair models.TokenPair) (models.TokenPair, error) {
	if err := ctx.Err(); err != nil {
		return models.TokenPair{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.pairs[userID]; !ok {
		return models.TokenPair{}, common.ErrNotFound
	}
	r.pairs[userID] = pair
	return pair, nil
}

func (r *MemoryRepository) Delete(ctx context.Context, userID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.pairs, userID)
	return nil
}

func (r *MemoryRepository) CompareAndSwap(ctx context.Context, userID string, expected, next models.TokenPair) (models.TokenPair, error) {
	if err := ctx.Err(); err != nil {
		return models.TokenPair{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.pairs[userID]
	if !ok {
		return models.TokenPair{}, common.ErrNotFound
	}
	if !current.Equal(expected) {
		return models.TokenPair{}, common.ErrConflict
	}
	r.pairs[userID] = next
	return next, nil
}
