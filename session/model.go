package session

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
)

// Session is one authenticated request context. CreatedAt and ExpiresAt are
// unix seconds; ExpiresAt is the current inactivity deadline and moves
// forward on each successful Get.
type Session struct {
	ID        string `json:"-"`
	AccountID string `json:"account_id"`
	Role      string `json:"role"`
	CreatedAt int64  `json:"created_at"`
	ExpiresAt int64  `json:"-"`
}

const idBytes = 16

// NewID returns an unguessable session id: 16 random bytes, base64url
// without padding.
func NewID() (string, error) {
	var raw [idBytes]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

var (
	// ErrNotFound is returned for unknown or timed-out session ids. The two
	// are rejected uniformly; Redis TTL expiry removes timed-out records.
	ErrNotFound = errors.New("session not found")
	// ErrExpired is returned when a record still exists but is past the
	// absolute lifetime cap.
	ErrExpired = errors.New("session expired")
	// ErrStoreUnavailable wraps Redis failures.
	ErrStoreUnavailable = errors.New("session store unavailable")
)
