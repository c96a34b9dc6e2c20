package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
)

// Purpose identifies the state transition a token gates.
type Purpose uint8

const (
	// PurposeEmailVerification gates pending → active account promotion.
	PurposeEmailVerification Purpose = iota + 1
	// PurposePasswordReset gates a credential password overwrite.
	PurposePasswordReset
)

// String returns the storage identifier for the purpose.
func (p Purpose) String() string {
	switch p {
	case PurposeEmailVerification:
		return "email_verification"
	case PurposePasswordReset:
		return "password_reset"
	default:
		return "unknown"
	}
}

// DefaultTTL returns the issue-time lifetime for a purpose: 24h for
// registration verification, 1h for password reset.
func (p Purpose) DefaultTTL() time.Duration {
	if p == PurposePasswordReset {
		return time.Hour
	}
	return 24 * time.Hour
}

const secretSize = 32

// Record is the persisted token row. The raw secret never appears here.
type Record struct {
	ID         uuid.UUID
	AccountID  string
	SecretHash [32]byte
	Purpose    Purpose
	IssuedAt   time.Time
	ExpiresAt  time.Time
	Consumed   bool
}

var (
	// ErrNotFound is returned for unknown token ids and secret mismatches.
	// The two are deliberately indistinguishable to the caller.
	ErrNotFound = errors.New("token not found")
	// ErrExpired is returned for tokens past their expiry.
	ErrExpired = errors.New("token expired")
	// ErrAlreadyUsed is returned when a consumed token is validated or
	// consumed again. Terminal states never re-validate.
	ErrAlreadyUsed = errors.New("token already used")
	// ErrMalformed is returned for wire tokens that do not decode.
	ErrMalformed = errors.New("malformed token")
	// ErrStoreUnavailable wraps backend failures.
	ErrStoreUnavailable = errors.New("token store unavailable")
)

func newSecret() ([secretSize]byte, error) {
	var secret [secretSize]byte
	_, err := io.ReadFull(rand.Reader, secret[:])
	return secret, err
}

func hashSecret(secret []byte) [32]byte {
	return sha256.Sum256(secret)
}

// encodeWire packs id ‖ secret into the user-facing token string.
func encodeWire(id uuid.UUID, secret [secretSize]byte) string {
	raw := make([]byte, 0, len(id)+secretSize)
	raw = append(raw, id[:]...)
	raw = append(raw, secret[:]...)
	return base64.RawURLEncoding.EncodeToString(raw)
}

// decodeWire splits a wire token back into id and secret.
func decodeWire(wire string) (uuid.UUID, [secretSize]byte, error) {
	var (
		id     uuid.UUID
		secret [secretSize]byte
	)

	raw, err := base64.RawURLEncoding.DecodeString(wire)
	if err != nil {
		return id, secret, ErrMalformed
	}
	if len(raw) != len(id)+secretSize {
		return id, secret, ErrMalformed
	}

	copy(id[:], raw[:len(id)])
	copy(secret[:], raw[len(id):])
	return id, secret, nil
}
