// Package auth implements the token codec: signing and verifying the
// self-contained access and refresh tokens handed out to clients.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
)

// Kind tells access tokens and refresh tokens apart.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// Default lifetimes.
const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

// Claims is the payload of both token kinds: standard registered claims plus
// the owning user id and the token kind.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"uid"`
	Kind   Kind   `json:"knd"`
}

// Codec signs and verifies tokens. Access and refresh tokens use distinct
// secrets, so a leaked key of one kind cannot forge the other.
type Codec struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration

	// now is overridable in tests.
	now func() time.Time
}

// NewCodec builds a Codec. Zero TTLs fall back to the defaults.
func NewCodec(accessSecret, refreshSecret []byte, accessTTL, refreshTTL time.Duration) *Codec {
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTTL
	}
	return &Codec{
		accessSecret:  accessSecret,
		refreshSecret: refreshSecret,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}
}

// IssueAccess mints an access token for userID.
func (c *Codec) IssueAccess(userID string) (string, error) {
	return c.issue(userID, KindAccess, c.accessSecret, c.accessTTL)
}

// IssueRefresh mints a refresh token for userID.
func (c *Codec) IssueRefresh(userID string) (string, error) {
	return c.issue(userID, KindRefresh, c.refreshSecret, c.refreshTTL)
}

// SetClock replaces the time source used for issuing and verifying.
func (c *Codec) SetClock(now func() time.Time) {
	c.now = now
}

// AccessTTL returns the access token lifetime.
func (c *Codec) AccessTTL() time.Duration { return c.accessTTL }

// RefreshTTL returns the refresh token lifetime.
func (c *Codec) RefreshTTL() time.Duration { return c.refreshTTL }

// Verify checks signature, expiry and kind of token in one pass.
//
// It returns common.ErrTokenExpired for an expired token with a valid
// signature and common.ErrInvalidSignature for everything else.
func (c *Codec) Verify(token string, kind Kind) (*Claims, error) {
	secret, err := c.secretFor(kind)
	if err != nil {
		return nil, err
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidSignature, err)
	}

	if !parsed.Valid || claims.Kind != kind || claims.UserID == "" {
		return nil, common.ErrInvalidSignature
	}

	return claims, nil
}

func (c *Codec) secretFor(kind Kind) ([]byte, error) {
	switch kind {
	case KindAccess:
		return c.accessSecret, nil
	case KindRefresh:
		return c.refreshSecret, nil
	default:
		return nil, fmt.Errorf("%w: unknown token kind %q", common.ErrInternal, kind)
	}
}

func (c *Codec) issue(userID string, kind Kind, secret []byte, ttl time.Duration) (string, error) {
	now := c.now()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        ulid.Make().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID: userID,
		Kind:   kind,
	})

	tokenString, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("%w: signing %s token: %v", common.ErrInternal, kind, err)
	}

	return tokenString, nil
}
