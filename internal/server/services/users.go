// Package services contains the server business logic: the session lifecycle
// (SessionManager) and the account operations built on top of it
// (UserService).
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/cryptox"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/users"
)

// UserService implements registration, login, refresh and profile access.
type UserService struct {
	users    users.Repository
	sessions *SessionManager
	logger   logging.Logger
}

func NewUserService(repo users.Repository, sm *SessionManager, logger logging.Logger) *UserService {
	return &UserService{users: repo, sessions: sm, logger: logger}
}

// Register creates an account. Emails are stored lowercased.
func (s *UserService) Register(ctx context.Context, email, password string) (*models.User, error) {
	email, err := normalizeCredentials(email, password)
	if err != nil {
		return nil, err
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return nil, err
	}

	u, err := s.users.Create(ctx, &models.User{Email: email, PasswordHash: hash})
	if err != nil {
		if errors.Is(err, common.ErrConflict) {
			return nil, common.ErrEmailTaken
		}
		return nil, s.internal(ctx, "error creating user", err)
	}

	s.logger.Info(ctx, "user registered", "user_id", u.ID)
	return u, nil
}

// Login checks the password and issues a new session, replacing any
// previous one. Unknown email and wrong password fail identically.
func (s *UserService) Login(ctx context.Context, email, password string) (*models.User, models.TokenPair, error) {
	email, err := normalizeCredentials(email, password)
	if err != nil {
		return nil, models.TokenPair{}, err
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, models.TokenPair{}, common.ErrInvalidCredentials
		}
		return nil, models.TokenPair{}, s.internal(ctx, "error loading user", err)
	}

	ok, err := cryptox.VerifyPassword(password, u.PasswordHash)
	if err != nil {
		return nil, models.TokenPair{}, s.internal(ctx, "error verifying password", err)
	}
	if !ok {
		return nil, models.TokenPair{}, common.ErrInvalidCredentials
	}

	pair, err := s.sessions.Issue(ctx, u.ID)
	if err != nil {
		return nil, models.TokenPair{}, err
	}

	return u, pair, nil
}

// Refresh rotates the caller's session.
func (s *UserService) Refresh(ctx context.Context, headerAccess, bodyAccess, bodyRefresh string) (models.TokenPair, error) {
	if bodyAccess == "" || bodyRefresh == "" {
		return models.TokenPair{}, fmt.Errorf("%w: auth_token and refresh_token are required", common.ErrValidation)
	}
	return s.sessions.Rotate(ctx, headerAccess, bodyAccess, bodyRefresh)
}

// Authenticate resolves an access token to its user id.
func (s *UserService) Authenticate(ctx context.Context, accessToken string) (string, error) {
	userID, _, err := s.sessions.Authenticate(ctx, accessToken)
	return userID, err
}

// Logout revokes the session of userID.
func (s *UserService) Logout(ctx context.Context, userID string) error {
	return s.sessions.Revoke(ctx, userID)
}

func (s *UserService) GetProfile(ctx context.Context, userID string) (*models.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, err
		}
		return nil, s.internal(ctx, "error loading user", err)
	}
	return u, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID string, p models.Profile) (*models.User, error) {
	p.FullName = strings.TrimSpace(p.FullName)

	u, err := s.users.UpdateProfile(ctx, userID, p)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, err
		}
		return nil, s.internal(ctx, "error updating user", err)
	}
	return u, nil
}

// internal logs err and returns it as a common.ErrInternal, keeping errors
// that already belong to a family.
func (s *UserService) internal(ctx context.Context, msg string, err error) error {
	for _, family := range []error{common.ErrValidation, common.ErrUnavailable, common.ErrInternal} {
		if errors.Is(err, family) {
			return err
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", common.ErrUnavailable, msg)
	}
	s.logger.Error(ctx, msg, "error", err)
	return fmt.Errorf("%w: %s", common.ErrInternal, msg)
}

func normalizeCredentials(email, password string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", common.ErrEmailRequired
	}
	if password == "" {
		return "", common.ErrPasswordRequired
	}
	return email, nil
}
