package auth

import (
	"crypto/subtle"

	"golang.org/x/crypto/bcrypt"
)

// Bcrypt hashes and verifies student passwords.
type Bcrypt struct {
	Cost int
}

// NewBcrypt returns a hasher, clamping cost into bcrypt's accepted range.
func NewBcrypt(cost int) Bcrypt {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return Bcrypt{Cost: cost}
}

// Hash returns a salted one-way digest of plain.
func (b Bcrypt) Hash(plain string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plain), b.Cost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// Verify reports whether plain matches digest. An empty digest never matches.
func (b Bcrypt) Verify(plain, digest string) bool {
	if digest == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plain)) == nil
}

// Admins is the static administrator allow-list, username to password.
type Admins map[string]string

// Verify checks a username/password pair against the allow-list.
func (a Admins) Verify(username, password string) bool {
	want, ok := a[username]
	match := subtle.ConstantTimeCompare([]byte(password), []byte(want)) == 1
	return ok && match
}
