package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store is a Redis-backed session table with per-id linearizable
// create/extend/invalidate semantics. Redis executes commands for one key
// serially, so a Delete racing a Get resolves deterministically: either the
// Get lands first and succeeds, or the key is gone and the Get fails.
type Store struct {
	redis    redis.UniversalClient
	prefix   string
	window   time.Duration
	absolute time.Duration
	now      func() time.Time
}

// NewStore creates a Store. window is the sliding inactivity ceiling applied
// to every access; absolute optionally caps total session lifetime
// regardless of activity (zero disables the cap). now is overridable for
// tests; nil selects time.Now.
func NewStore(client redis.UniversalClient, prefix string, window, absolute time.Duration, now func() time.Time) *Store {
	if prefix == "" {
		prefix = "sess"
	}
	if now == nil {
		now = time.Now
	}
	return &Store{redis: client, prefix: prefix, window: window, absolute: absolute, now: now}
}

func (s *Store) key(sessionID string) string {
	return s.prefix + ":" + sessionID
}

// Window reports the configured inactivity window.
func (s *Store) Window() time.Duration {
	return s.window
}

// Create issues a fresh session for the account and persists it with the
// full inactivity window.
func (s *Store) Create(ctx context.Context, accountID, role string) (*Session, error) {
	id, err := NewID()
	if err != nil {
		return nil, err
	}

	now := s.now()
	sess := &Session{
		ID:        id,
		AccountID: accountID,
		Role:      role,
		CreatedAt: now.Unix(),
		ExpiresAt: now.Add(s.window).Unix(),
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return nil, err
	}
	if err := s.redis.Set(ctx, s.key(id), data, s.window).Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return sess, nil
}

// Get resolves a session id and extends its inactivity window. Unknown and
// timed-out ids both return ErrNotFound; a record past the absolute cap is
// deleted and returns ErrExpired.
//
// The extension is TTL-only (EXPIRE). The record is never rewritten here, so
// a concurrent Delete always wins: EXPIRE after DEL touches nothing.
func (s *Store) Get(ctx context.Context, sessionID string) (*Session, error) {
	key := s.key(sessionID)

	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("%w: corrupt session record: %v", ErrStoreUnavailable, err)
	}
	sess.ID = sessionID

	now := s.now()
	if s.absolute > 0 && !now.Before(time.Unix(sess.CreatedAt, 0).Add(s.absolute)) {
		if err := s.Delete(ctx, sessionID); err != nil {
			return nil, err
		}
		return nil, ErrExpired
	}

	extended, err := s.redis.Expire(ctx, key, s.window).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if !extended {
		// Deleted between GET and EXPIRE; the logout wins.
		return nil, ErrNotFound
	}

	sess.ExpiresAt = now.Add(s.window).Unix()
	return &sess, nil
}

// Peek resolves a session without extending its window. Authorization checks
// use this so that probing an endpoint does not keep a session alive.
func (s *Store) Peek(ctx context.Context, sessionID string) (*Session, error) {
	data, err := s.redis.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("%w: corrupt session record: %v", ErrStoreUnavailable, err)
	}
	sess.ID = sessionID

	if s.absolute > 0 && !s.now().Before(time.Unix(sess.CreatedAt, 0).Add(s.absolute)) {
		return nil, ErrExpired
	}
	return &sess, nil
}

// Delete invalidates a session immediately. Deleting a missing session is
// not an error; logging out twice is fine.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if err := s.redis.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
