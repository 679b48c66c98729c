package users

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	u, err := repo.Create(ctx, &models.User{Email: "a@x.com", PasswordHash: "h"})
	require.NoError(t, err)
	require.NotEmpty(t, u.ID)
	assert.False(t, u.CreatedAt.IsZero())

	byID, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", byID.Email)

	byEmail, err := repo.GetByEmail(ctx, "A@X.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)
}

func TestMemoryRepository_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	_, err := repo.Create(ctx, &models.User{Email: "a@x.com"})
	require.NoError(t, err)

	_, err = repo.Create(ctx, &models.User{Email: "a@x.com"})
	assert.ErrorIs(t, err, common.ErrConflict)
}

func TestMemoryRepository_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	_, err := repo.GetByID(ctx, "nope")
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = repo.GetByEmail(ctx, "nope@x.com")
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = repo.UpdateProfile(ctx, "nope", models.Profile{})
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestMemoryRepository_UpdateProfile(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	u, err := repo.Create(ctx, &models.User{Email: "a@x.com"})
	require.NoError(t, err)

	dob := time.Date(1990, 5, 17, 0, 0, 0, 0, time.UTC)
	updated, err := repo.UpdateProfile(ctx, u.ID, models.Profile{FullName: "Alice", DateOfBirth: &dob})
	require.NoError(t, err)
	assert.Equal(t, "Alice", updated.FullName)

	dob = dob.AddDate(1, 0, 0)

	got, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, got.DateOfBirth)
	assert.Equal(t, 1990, got.DateOfBirth.Year(), "stored profile must not alias caller memory")
}
