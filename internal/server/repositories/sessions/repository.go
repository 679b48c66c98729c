// Package sessions declares the session store: persistence of the single
// current token pair per user, with PostgreSQL, Redis and in-memory backends.
package sessions

import (
	"context"

	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

// Repository stores at most one TokenPair per user id. Implementations must
// serialize writes for the same user id.
type Repository interface {
	// Get returns the stored pair or common.ErrNotFound.
	Get(ctx context.Context, userID string) (models.TokenPair, error)

	// Insert stores a pair for a user that has none, otherwise common.ErrConflict.
	Insert(ctx context.Context, userID string, pair models.TokenPair) (models.TokenPair, error)

	// Update overwrites an existing pair, otherwise common.ErrNotFound.
	Update(ctx context.Context, userID string, pair models.TokenPair) (models.TokenPair, error)

	// Delete removes the pair. Deleting a missing pair is not an error.
	Delete(ctx context.Context, userID string) error

	// CompareAndSwap replaces the stored pair with next only if it still
	// equals expected. A changed pair yields common.ErrConflict, a missing
	// one common.ErrNotFound.
	CompareAndSwap(ctx context.Context, userID string, expected, next models.TokenPair) (models.TokenPair, error)
}
