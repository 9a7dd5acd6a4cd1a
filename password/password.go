// Package password checks the panel password against its stored bcrypt hash.
package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt work factor used for the panel password. It is kept
// low so logins stay fast on the machines the panel runs on.
const DefaultCost = 4

// MaxLength is the longest password bcrypt can tell apart. Longer inputs are
// never accepted.
const MaxLength = 72

// ErrMalformedHash is returned when the stored hash cannot be used for comparison.
var ErrMalformedHash = errors.New("password: malformed hash")

// Verify reports whether plaintext matches hash. A wrong password is (false, nil);
// an unusable hash is (false, ErrMalformedHash).
func Verify(plaintext, hash string) (bool, error) {
	// bcrypt only compares the first 72 bytes.
	if len(plaintext) > MaxLength {
		return false, nil
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("%w: %v", ErrMalformedHash, err)
	}
}

// Hash returns the bcrypt hash of plaintext. Costs outside bcrypt's range fall
// back to DefaultCost.
func Hash(plaintext string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plaintext), cost)
	if err != nil {
		return "", fmt.Errorf("password: hash: %w", err)
	}
	return string(b), nil
}
