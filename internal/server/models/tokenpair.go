package models

import "crypto/subtle"

// TokenPair is the single current session of a user: a short-lived access
// token and a long-lived refresh token. It is always replaced as a whole.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// IsZero reports whether the pair carries no tokens.
func (p TokenPair) IsZero() bool {
	return p.AccessToken == "" && p.RefreshToken == ""
}

// Equal compares both halves in constant time.
func (p TokenPair) Equal(o TokenPair) bool {
	return TokensEqual(p.AccessToken, o.AccessToken) && TokensEqual(p.RefreshToken, o.RefreshToken)
}

// TokensEqual is a constant-time string comparison for presented vs stored tokens.
func TokensEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
