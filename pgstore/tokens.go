package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bookvault/authkit/token"
)

// expiredRetention keeps consumed and expired rows queryable long enough to
// distinguish a replayed token from an unknown one before the sweeper
// removes them.
const expiredRetention = 24 * time.Hour

// TokenRepository implements token.Store on Postgres.
type TokenRepository struct {
	db DBTX
}

func NewTokenRepository(db DBTX) *TokenRepository {
	return &TokenRepository{db: db}
}

func (r *TokenRepository) Insert(ctx context.Context, rec *token.Record) error {
	query := `INSERT INTO verification_tokens
	          (id, account_id, secret_hash, purpose, issued_at, expires_at, consumed)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.ExecContext(ctx, query,
		rec.ID.String(), rec.AccountID, rec.SecretHash[:], rec.Purpose.String(),
		rec.IssuedAt, rec.ExpiresAt, rec.Consumed)
	if err != nil {
		return fmt.Errorf("%w: %v", token.ErrStoreUnavailable, err)
	}
	return nil
}

func (r *TokenRepository) Get(ctx context.Context, id uuid.UUID) (*token.Record, error) {
	query := `SELECT id, account_id, secret_hash, purpose, issued_at, expires_at, consumed
	          FROM verification_tokens WHERE id = $1`

	var (
		rec     token.Record
		rawID   string
		hash    []byte
		purpose string
	)
	err := r.db.QueryRowContext(ctx, query, id.String()).Scan(
		&rawID, &rec.AccountID, &hash, &purpose, &rec.IssuedAt, &rec.ExpiresAt, &rec.Consumed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, token.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", token.ErrStoreUnavailable, err)
	}

	rec.ID, err = uuid.Parse(rawID)
	if err != nil {
		return nil, fmt.Errorf("%w: corrupt token id: %v", token.ErrStoreUnavailable, err)
	}
	copy(rec.SecretHash[:], hash)
	rec.Purpose = parsePurpose(purpose)
	return &rec, nil
}

// ConsumeByID flips consumed on a live row. The guarded UPDATE is the
// atomicity point: of N concurrent calls exactly one changes the row, and
// the losers resolve their precise failure from a follow-up read.
func (r *TokenRepository) ConsumeByID(ctx context.Context, id uuid.UUID, now time.Time) error {
	update := `UPDATE verification_tokens SET consumed = TRUE
	           WHERE id = $1 AND consumed = FALSE AND expires_at > $2`

	res, err := r.db.ExecContext(ctx, update, id.String(), now)
	if err != nil {
		return fmt.Errorf("%w: %v", token.ErrStoreUnavailable, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %v", token.ErrStoreUnavailable, err)
	}
	if affected == 1 {
		return nil
	}

	var (
		consumed  bool
		expiresAt time.Time
	)
	query := `SELECT consumed, expires_at FROM verification_tokens WHERE id = $1`
	err = r.db.QueryRowContext(ctx, query, id.String()).Scan(&consumed, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return token.ErrNotFound
		}
		return fmt.Errorf("%w: %v", token.ErrStoreUnavailable, err)
	}
	if consumed {
		return token.ErrAlreadyUsed
	}
	return token.ErrExpired
}

// DeleteForAccount removes the live token for accountID+purpose, making room
// for a replacement. Consumed rows stay so replays keep reporting as such.
func (r *TokenRepository) DeleteForAccount(ctx context.Context, accountID string, purpose token.Purpose) error {
	query := `DELETE FROM verification_tokens
	          WHERE account_id = $1 AND purpose = $2 AND consumed = FALSE`

	if _, err := r.db.ExecContext(ctx, query, accountID, purpose.String()); err != nil {
		return fmt.Errorf("%w: %v", token.ErrStoreUnavailable, err)
	}
	return nil
}

// DeleteExpired removes rows whose retention has lapsed and reports the count.
func (r *TokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	query := `DELETE FROM verification_tokens WHERE expires_at < $1`

	res, err := r.db.ExecContext(ctx, query, now.Add(-expiredRetention))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", token.ErrStoreUnavailable, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", token.ErrStoreUnavailable, err)
	}
	return int(affected), nil
}

func parsePurpose(s string) token.Purpose {
	if s == token.PurposePasswordReset.String() {
		return token.PurposePasswordReset
	}
	return token.PurposeEmailVerification
}
