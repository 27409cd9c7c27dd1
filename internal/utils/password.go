package utils

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrPasswordTooLong is returned for passwords above bcrypt's 72 byte input limit.
var ErrPasswordTooLong = errors.New("password must be at most 72 bytes")

// Hasher hashes and verifies passwords with bcrypt at a fixed cost.
type Hasher struct {
	Cost int
}

func NewHasher(cost int) Hasher { return Hasher{Cost: cost} }

// Hash returns a bcrypt hash with a fresh salt.
func (h Hasher) Hash(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), h.Cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", ErrPasswordTooLong
		}
		return "", err
	}
	return string(b), nil
}

// Verify safely compares bcrypt hash and plain password. Malformed hashes
// report false.
func (h Hasher) Verify(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
