package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Verifier checks a submitted password against either a bcrypt hash or a
// plaintext shared secret. The hash wins when both are configured.
type Verifier struct {
	password []byte
	hash     []byte
}

// NewVerifier returns a Verifier. At least one of password and hash must be
// non-empty.
func NewVerifier(password, hash string) (*Verifier, error) {
	if password == "" && hash == "" {
		return nil, errors.New("auth: a password or password hash is required")
	}
	if hash != "" {
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return nil, fmt.Errorf("auth: invalid password hash: %w", err)
		}
	}
	return &Verifier{password: []byte(password), hash: []byte(hash)}, nil
}

// Verify reports whether candidate is the shared password.
func (v *Verifier) Verify(candidate string) bool {
	if len(v.hash) > 0 {
		return bcrypt.CompareHashAndPassword(v.hash, []byte(candidate)) == nil
	}
	return subtle.ConstantTimeCompare(v.password, []byte(candidate)) == 1
}

// HashPassword returns a bcrypt hash suitable for auth.password_hash.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("auth: empty password")
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("auth: hash password: %w", err)
	}
	return string(h), nil
}
