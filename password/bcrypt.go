package password

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultCost is the fixed work factor applied to new hashes.
	DefaultCost = 12

	// bcrypt silently truncates beyond 72 bytes; reject instead.
	maxPasswordBytes = 72
)

var (
	// ErrEmptyPassword is returned by Hash for empty input.
	ErrEmptyPassword = errors.New("password must not be empty")
	// ErrPasswordTooLong is returned by Hash for input past the bcrypt limit.
	ErrPasswordTooLong = errors.New("password exceeds 72 bytes")
	// ErrInvalidCost is returned by NewHasher for an out-of-range cost.
	ErrInvalidCost = errors.New("bcrypt cost out of range")
)

// Hasher hashes and verifies passwords at a fixed bcrypt cost.
//
// Hasher instances are configured once and safe for concurrent use.
type Hasher struct {
	cost int
}

// NewHasher creates a Hasher with the given cost. Cost zero selects
// [DefaultCost].
func NewHasher(cost int) (*Hasher, error) {
	if cost == 0 {
		cost = DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, ErrInvalidCost
	}
	return &Hasher{cost: cost}, nil
}

// Cost reports the configured work factor.
func (h *Hasher) Cost() int {
	return h.cost
}

// Hash derives a salted bcrypt hash from plaintext. The salt is generated
// internally; two calls on the same input produce different hashes.
func (h *Hasher) Hash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", ErrEmptyPassword
	}
	if len(plaintext) > maxPasswordBytes {
		return "", ErrPasswordTooLong
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Verify reports whether plaintext matches the stored hash. A malformed or
// empty hash fails closed: the result is false, never an error. Comparison
// timing does not depend on where the inputs diverge.
func (h *Hasher) Verify(plaintext, encodedHash string) bool {
	if plaintext == "" || encodedHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(plaintext)) == nil
}

// NeedsRehash reports whether the stored hash was produced with a lower cost
// than configured. Verification still succeeds against old hashes; migrating
// them is an explicit caller decision.
func (h *Hasher) NeedsRehash(encodedHash string) bool {
	cost, err := bcrypt.Cost([]byte(encodedHash))
	if err != nil {
		return false
	}
	return cost < h.cost
}
