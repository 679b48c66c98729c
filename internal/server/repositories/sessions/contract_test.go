package sessions

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runStoreContract checks behaviour every Repository backend must share.
func runStoreContract(t *testing.T, newRepo func(t *testing.T) Repository) {
	t.Helper()

	p1 := models.TokenPair{AccessToken: "a1", RefreshToken: "r1"}
	p2 := models.TokenPair{AccessToken: "a2", RefreshToken: "r2"}
	p3 := models.TokenPair{AccessToken: "a3", RefreshToken: "r3"}

	t.Run("get missing", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Get(context.Background(), "u1")
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("insert then get", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		_, err := repo.Insert(ctx, "u1", p1)
		require.NoError(t, err)

		got, err := repo.Get(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, p1, got)
	})

	t.Run("insert twice conflicts", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		_, err := repo.Insert(ctx, "u1", p1)
		require.NoError(t, err)
		_, err = repo.Insert(ctx, "u1", p2)
		assert.ErrorIs(t, err, common.ErrConflict)

		got, err := repo.Get(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, p1, got, "losing insert must not overwrite")
	})

	t.Run("update missing", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Update(context.Background(), "u1", p1)
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("update replaces pair", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		_, err := repo.Insert(ctx, "u1", p1)
		require.NoError(t, err)
		_, err = repo.Update(ctx, "u1", p2)
		require.NoError(t, err)

		got, err := repo.Get(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, p2, got)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		_, err := repo.Insert(ctx, "u1", p1)
		require.NoError(t, err)

		require.NoError(t, repo.Delete(ctx, "u1"))
		require.NoError(t, repo.Delete(ctx, "u1"))

		_, err = repo.Get(ctx, "u1")
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("users are independent", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		_, err := repo.Insert(ctx, "u1", p1)
		require.NoError(t, err)
		_, err = repo.Insert(ctx, "u2", p2)
		require.NoError(t, err)
		require.NoError(t, repo.Delete(ctx, "u1"))

		got, err := repo.Get(ctx, "u2")
		require.NoError(t, err)
		assert.Equal(t, p2, got)
	})

	t.Run("cas success", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		_, err := repo.Insert(ctx, "u1", p1)
		require.NoError(t, err)

		got, err := repo.CompareAndSwap(ctx, "u1", p1, p2)
		require.NoError(t, err)
		assert.Equal(t, p2, got)

		stored, err := repo.Get(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, p2, stored)
	})

	t.Run("cas stale expected", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		_, err := repo.Insert(ctx, "u1", p2)
		require.NoError(t, err)

		_, err = repo.CompareAndSwap(ctx, "u1", p1, p3)
		assert.ErrorIs(t, err, common.ErrConflict)

		stored, err := repo.Get(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, p2, stored)
	})

	t.Run("cas missing", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.CompareAndSwap(context.Background(), "u1", p1, p2)
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("concurrent cas has one winner", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		_, err := repo.Insert(ctx, "u1", p1)
		require.NoError(t, err)

		const n = 8
		var wins atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				next := models.TokenPair{AccessToken: "a-" + string(rune('a'+i)), RefreshToken: "r"}
				_, err := repo.CompareAndSwap(ctx, "u1", p1, next)
				switch {
				case err == nil:
					wins.Add(1)
				case errors.Is(err, common.ErrConflict):
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}(i)
		}
		wg.Wait()

		assert.Equal(t, int32(1), wins.Load())
	})
}
