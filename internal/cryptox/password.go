// Package cryptox holds the password hashing used for stored credentials.
package cryptox

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"golang.org/x/crypto/bcrypt"
)

// HashPassword returns the bcrypt hash of plain at the default cost.
// Passwords bcrypt cannot represent (over 72 bytes) are a validation error.
func HashPassword(plain string) (string, error) {
	b := []byte(plain)
	defer Wipe(b)

	hash, err := bcrypt.GenerateFromPassword(b, bcrypt.DefaultCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", fmt.Errorf("%w: password is too long", common.ErrValidation)
		}
		return "", fmt.Errorf("%w: hashing password: %v", common.ErrInternal, err)
	}
	return string(hash), nil
}

// VerifyPassword reports whether plain matches hash. A mismatch is
// (false, nil); a malformed hash is an error.
func VerifyPassword(plain, hash string) (bool, error) {
	b := []byte(plain)
	defer Wipe(b)

	err := bcrypt.CompareHashAndPassword([]byte(hash), b)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("%w: verifying password: %v", common.ErrInternal, err)
	}
}

// Wipe overwrites b with zeros. A nil slice is a no-op.
func Wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
