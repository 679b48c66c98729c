package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/dbx"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

// PostgresRepository keeps token pairs in the tokens table, keyed by user_id
// (primary key, so Insert races resolve to a unique violation).
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository constructs a repository bound to db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Get loads the pair stored for userID.
func (r *PostgresRepository) Get(ctx context.Context, userID string) (models.TokenPair, error) {
	query := `
		SELECT auth_token, refresh_token
		FROM tokens
		WHERE user_id = $1
	`
	return scanPair(r.db.QueryRowContext(ctx, query, userID))
}

// Insert creates the row for userID.
func (r *PostgresRepository) Insert(ctx context.Context, userID string, pair models.TokenPair) (models.TokenPair, error) {
	query := `
		INSERT INTO tokens (user_id, auth_token, refresh_token)
		VALUES ($1, $2, $3)
		RETURNING auth_token, refresh_token
	`
	stored, err := scanPair(r.db.QueryRowContext(ctx, query, userID, pair.AccessToken, pair.RefreshToken))
	if err != nil && dbx.IsUniqueViolation(err) {
		return models.TokenPair{}, common.ErrConflict
	}
	return stored, err
}

// Update overwrites the row for userID.
func (r *PostgresRepository) Update(ctx context.Context, userID string, pair models.TokenPair) (models.TokenPair, error) {
	query := `
		UPDATE tokens
		SET auth_token = $2, refresh_token = $3, updated_at = now()
		WHERE user_id = $1
		RETURNING auth_token, refresh_token
	`
	return scanPair(r.db.QueryRowContext(ctx, query, userID, pair.AccessToken, pair.RefreshToken))
}

// Delete removes the row for userID, if any.
func (r *PostgresRepository) Delete(ctx context.Context, userID string) error {
	query := `
		DELETE FROM tokens
		WHERE user_id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// CompareAndSwap locks the row, compares it with expected and writes next
// inside one transaction.
func (r *PostgresRepository) CompareAndSwap(ctx context.Context, userID string, expected, next models.TokenPair) (models.TokenPair, error) {
	var stored models.TokenPair

	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		current, err := scanPair(tx.QueryRowContext(ctx, `
			SELECT auth_token, refresh_token
			FROM tokens
			WHERE user_id = $1
			FOR UPDATE
		`, userID))
		if err != nil {
			return err
		}

		if !current.Equal(expected) {
			return common.ErrConflict
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE tokens
			SET auth_token = $2, refresh_token = $3, updated_at = now()
			WHERE user_id = $1
		`, userID, next.AccessToken, next.RefreshToken)
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}

		stored = next
		return nil
	})
	if err != nil {
		return models.TokenPair{}, err
	}

	return stored, nil
}

func scanPair(row *sql.Row) (models.TokenPair, error) {
	var pair models.TokenPair
	if err := row.Scan(&pair.AccessToken, &pair.RefreshToken); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.TokenPair{}, common.ErrNotFound
		}
		return models.TokenPair{}, fmt.Errorf("db error: %w", err)
	}
	return pair, nil
}
