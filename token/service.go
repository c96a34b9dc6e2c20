package token

import (
	"context"
	"crypto/subtle"
	"time"

	"github.com/google/uuid"
)

// Store is the external persistence boundary for token records. The rows are
// owned by the caller's storage; this package only enforces the lifecycle
// invariants on values passing through it.
//
// ConsumeByID must be atomic: of N concurrent calls for the same valid
// record, exactly one returns nil and the rest return ErrAlreadyUsed.
type Store interface {
	Insert(ctx context.Context, rec *Record) error
	Get(ctx context.Context, id uuid.UUID) (*Record, error)
	ConsumeByID(ctx context.Context, id uuid.UUID, now time.Time) error
	DeleteForAccount(ctx context.Context, accountID string, purpose Purpose) error
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// Service implements issuance, validation, consumption, and expiry sweeping
// on top of a Store.
type Service struct {
	store Store
	now   func() time.Time
}

// NewService wraps a Store. now is overridable for tests; nil selects
// time.Now.
func NewService(store Store, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, now: now}
}

// Issue creates a token for accountID and purpose and returns the wire form
// for out-of-band delivery. ttl zero selects the purpose default. Any prior
// live token for the same accountID+purpose is replaced, so a single valid
// token gates each transition.
func (s *Service) Issue(ctx context.Context, accountID string, purpose Purpose, ttl time.Duration) (string, *Record, error) {
	if ttl <= 0 {
		ttl = purpose.DefaultTTL()
	}

	secret, err := newSecret()
	if err != nil {
		return "", nil, err
	}

	now := s.now()
	rec := &Record{
		ID:         uuid.New(),
		AccountID:  accountID,
		SecretHash: hashSecret(secret[:]),
		Purpose:    purpose,
		IssuedAt:   now,
		ExpiresAt:  now.Add(ttl),
	}

	if err := s.store.DeleteForAccount(ctx, accountID, purpose); err != nil {
		return "", nil, err
	}
	if err := s.store.Insert(ctx, rec); err != nil {
		return "", nil, err
	}

	return encodeWire(rec.ID, secret), rec, nil
}

// Validate resolves a wire token without mutating anything. It distinguishes
// not found, expired, and already consumed from valid; callers that want to
// burn the token must call Consume explicitly.
func (s *Service) Validate(ctx context.Context, wire string) (*Record, error) {
	rec, err := s.resolve(ctx, wire)
	if err != nil {
		return nil, err
	}
	if rec.Consumed {
		return nil, ErrAlreadyUsed
	}
	if !s.now().Before(rec.ExpiresAt) {
		return nil, ErrExpired
	}
	return rec, nil
}

// Consume atomically transitions a valid token to consumed and returns its
// record. Consuming an already-consumed or expired token is an error, never
// a silent no-op; that property is what blocks replay.
func (s *Service) Consume(ctx context.Context, wire string) (*Record, error) {
	rec, err := s.resolve(ctx, wire)
	if err != nil {
		return nil, err
	}
	if err := s.store.ConsumeByID(ctx, rec.ID, s.now()); err != nil {
		return nil, err
	}
	rec.Consumed = true
	return rec, nil
}

// SweepExpired removes records past their expiry and reports how many went.
// Safe to run on a schedule or opportunistically, concurrently with
// validate/consume traffic; sweeping twice is harmless.
func (s *Service) SweepExpired(ctx context.Context) (int, error) {
	return s.store.DeleteExpired(ctx, s.now())
}

// resolve decodes the wire token, loads the record, and checks the secret.
// A wrong secret reports ErrNotFound — indistinguishable from an unknown id.
func (s *Service) resolve(ctx context.Context, wire string) (*Record, error) {
	id, secret, err := decodeWire(wire)
	if err != nil {
		return nil, err
	}

	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	providedHash := hashSecret(secret[:])
	if subtle.ConstantTimeCompare(providedHash[:], rec.SecretHash[:]) != 1 {
		return nil, ErrNotFound
	}
	return rec, nil
}
