// Package users declares the user repository contract and its PostgreSQL and
// in-memory implementations.
package users

import (
	"context"

	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

// Repository persists user accounts.
type Repository interface {
	// Create stores a new user and fills in ID and CreatedAt.
	// A duplicate email yields common.ErrConflict.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// GetByID returns common.ErrNotFound when absent.
	GetByID(ctx context.Context, id string) (*models.User, error)

	// GetByEmail returns common.ErrNotFound when absent.
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// UpdateProfile overwrites the profile fields and returns the updated user.
	UpdateProfile(ctx context.Context, id string, p models.Profile) (*models.User, error)
}
