// Package password wraps bcrypt behind the two operations the auth flow
// needs: hash on register, verify on login.
package password

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Cost is the bcrypt work factor. 12 keeps a single hash in the low
// hundreds of milliseconds on current server hardware.
const Cost = 12

type (
	Hasher struct {
		cost int
	}
)

func NewHasher() Hasher {
	return Hasher{cost: Cost}
}

func (h Hasher) Hash(plaintext string) (string, error) {
	buf, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("unable to hash password, cause %v", err)
	}
	return string(buf), nil
}

// Verify reports whether plaintext matches the stored hash. A mismatch is
// not an error, the comparison itself is constant-time inside bcrypt.
func (h Hasher) Verify(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
