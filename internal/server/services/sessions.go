package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/sessions"
)

// DefaultStoreTimeout bounds every single session store call.
const DefaultStoreTimeout = 3 * time.Second

// Failure reasons reported to metrics.
const (
	reasonInvalidToken   = "invalid_token"
	reasonExpired        = "expired"
	reasonNoSession      = "no_session"
	reasonAccessMismatch = "access_mismatch"
	reasonRefreshBad     = "refresh_mismatch"
	reasonStale          = "stale_session"
)

// SessionManager owns the per-user session lifecycle:
//
//	NoSession -> Issue -> Active -> Rotate -> Active
//	                        |
//	                        +-> Revoke (or mismatch on Rotate) -> NoSession
//
// A token is accepted only when its signature verifies, it has not expired
// and it equals the pair currently stored for its user.
type SessionManager struct {
	codec   *auth.Codec
	store   sessions.Repository
	timeout time.Duration
	logger  logging.Logger
	metrics *metrics.Metrics
}

// NewSessionManager wires a manager. A non-positive timeout selects
// DefaultStoreTimeout; m may be nil.
func NewSessionManager(codec *auth.Codec, store sessions.Repository, timeout time.Duration, logger logging.Logger, m *metrics.Metrics) *SessionManager {
	if timeout <= 0 {
		timeout = DefaultStoreTimeout
	}
	return &SessionManager{
		codec:   codec,
		store:   store,
		timeout: timeout,
		logger:  logger,
		metrics: m,
	}
}

// Issue mints a fresh pair for userID and makes it the only valid one.
// Tokens issued earlier stop authenticating as soon as Issue returns.
func (s *SessionManager) Issue(ctx context.Context, userID string) (models.TokenPair, error) {
	pair, err := s.mint(userID)
	if err != nil {
		return models.TokenPair{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err = s.store.Get(ctx, userID)
	switch {
	case err == nil:
		err = s.overwrite(ctx, userID, pair)
	case errors.Is(err, common.ErrNotFound):
		err = s.create(ctx, userID, pair)
	}
	if err != nil {
		return models.TokenPair{}, s.storeError(ctx, "issue", err)
	}

	s.metrics.SessionEvent(metrics.EventIssued)
	return pair, nil
}

// create inserts the pair, falling back to an update when a concurrent login
// inserted first.
func (s *SessionManager) create(ctx context.Context, userID string, pair models.TokenPair) error {
	_, err := s.store.Insert(ctx, userID, pair)
	if errors.Is(err, common.ErrConflict) {
		_, err = s.store.Update(ctx, userID, pair)
	}
	return err
}

// overwrite updates the pair, falling back to an insert when the row vanished
// after Get (concurrent revoke).
func (s *SessionManager) overwrite(ctx context.Context, userID string, pair models.TokenPair) error {
	_, err := s.store.Update(ctx, userID, pair)
	if errors.Is(err, common.ErrNotFound) {
		_, err = s.store.Insert(ctx, userID, pair)
	}
	return err
}

// Authenticate validates an access token presented on a protected call and
// returns its user id together with the stored pair. A mismatch is a plain
// authentication failure and never revokes.
func (s *SessionManager) Authenticate(ctx context.Context, accessToken string) (string, models.TokenPair, error) {
	claims, err := s.codec.Verify(accessToken, auth.KindAccess)
	if err != nil {
		s.metrics.AuthFailure(verifyReason(err))
		return "", models.TokenPair{}, err
	}

	stored, err := s.load(ctx, claims.UserID)
	if err != nil {
		return "", models.TokenPair{}, err
	}

	if !models.TokensEqual(stored.AccessToken, accessToken) {
		s.metrics.AuthFailure(reasonAccessMismatch)
		return "", models.TokenPair{}, common.ErrInvalidAccessToken
	}

	return claims.UserID, stored, nil
}

// Rotate exchanges the current pair for a new one.
//
// headerAccess authorizes the call and names the user; bodyAccess and
// bodyRefresh must equal the stored pair. The access half is compared first.
// Either mismatch, or a refresh token that no longer verifies, deletes the
// stored pair before the error is returned. Losing a race against another
// Rotate yields common.ErrStaleSession and leaves the winner's pair intact.
func (s *SessionManager) Rotate(ctx context.Context, headerAccess, bodyAccess, bodyRefresh string) (models.TokenPair, error) {
	claims, err := s.codec.Verify(headerAccess, auth.KindAccess)
	if err != nil {
		s.metrics.AuthFailure(verifyReason(err))
		return models.TokenPair{}, err
	}
	userID := claims.UserID

	stored, err := s.load(ctx, userID)
	if err != nil {
		return models.TokenPair{}, err
	}

	if !models.TokensEqual(stored.AccessToken, bodyAccess) {
		s.metrics.AuthFailure(reasonAccessMismatch)
		return models.TokenPair{}, s.revokeWith(ctx, userID, reasonAccessMismatch, common.ErrInvalidAccessToken)
	}

	if !models.TokensEqual(stored.RefreshToken, bodyRefresh) {
		s.metrics.AuthFailure(reasonRefreshBad)
		return models.TokenPair{}, s.revokeWith(ctx, userID, reasonRefreshBad, common.ErrInvalidRefreshToken)
	}

	if rc, err := s.codec.Verify(bodyRefresh, auth.KindRefresh); err != nil || rc.UserID != userID {
		reason := reasonInvalidToken
		if err != nil {
			reason = verifyReason(err)
		}
		s.metrics.AuthFailure(reason)
		return models.TokenPair{}, s.revokeWith(ctx, userID, reason, common.ErrInvalidRefreshToken)
	}

	next, err := s.mint(userID)
	if err != nil {
		return models.TokenPair{}, err
	}

	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.store.CompareAndSwap(cctx, userID, stored, next); err != nil {
		switch {
		case errors.Is(err, common.ErrConflict):
			s.metrics.AuthFailure(reasonStale)
			return models.TokenPair{}, common.ErrStaleSession
		case errors.Is(err, common.ErrNotFound):
			s.metrics.AuthFailure(reasonNoSession)
			return models.TokenPair{}, common.ErrNoSession
		default:
			return models.TokenPair{}, s.storeError(cctx, "rotate", err)
		}
	}

	s.metrics.SessionEvent(metrics.EventRotated)
	return next, nil
}

// Revoke deletes the session of userID. Revoking a missing session succeeds.
func (s *SessionManager) Revoke(ctx context.Context, userID string) error {
	return s.revoke(ctx, userID)
}

// revokeWith deletes the session and returns cause, or the store error if the
// delete itself failed.
func (s *SessionManager) revokeWith(ctx context.Context, userID, reason string, cause error) error {
	s.logger.Warn(ctx, "revoking session", "user_id", userID, "reason", reason)
	if err := s.revoke(ctx, userID); err != nil {
		return err
	}
	return cause
}

// revoke runs on a context detached from the caller's cancellation so that
// a client hanging up cannot leave a compromised session in place.
func (s *SessionManager) revoke(ctx context.Context, userID string) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	if err := s.store.Delete(ctx, userID); err != nil {
		s.logger.Error(ctx, "session revoke failed", "user_id", userID, "error", err)
		return s.storeError(ctx, "revoke", err)
	}

	s.metrics.SessionEvent(metrics.EventRevoked)
	return nil
}

func (s *SessionManager) load(ctx context.Context, userID string) (models.TokenPair, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	stored, err := s.store.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			s.metrics.AuthFailure(reasonNoSession)
			return models.TokenPair{}, common.ErrNoSession
		}
		return models.TokenPair{}, s.storeError(ctx, "load", err)
	}
	return stored, nil
}

func (s *SessionManager) mint(userID string) (models.TokenPair, error) {
	access, err := s.codec.IssueAccess(userID)
	if err != nil {
		return models.TokenPair{}, err
	}
	refresh, err := s.codec.IssueRefresh(userID)
	if err != nil {
		return models.TokenPair{}, err
	}
	return models.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// storeError classifies a store failure. Errors already in a family pass
// through; deadlines, cancellations and driver failures become
// common.ErrUnavailable.
func (s *SessionManager) storeError(ctx context.Context, op string, err error) error {
	if errors.Is(err, common.ErrInternal) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		s.logger.Warn(ctx, "session store timeout", "op", op)
		return fmt.Errorf("%w: session %s timed out", common.ErrUnavailable, op)
	}
	s.logger.Error(ctx, "session store error", "op", op, "error", err)
	return fmt.Errorf("%w: session %s: %v", common.ErrUnavailable, op, err)
}

func verifyReason(err error) string {
	if errors.Is(err, common.ErrTokenExpired) {
		return reasonExpired
	}
	return reasonInvalidToken
}
