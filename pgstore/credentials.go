package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/bookvault/authkit"
)

// pgUniqueViolation is the Postgres error code for a unique constraint hit.
const pgUniqueViolation = "23505"

// CredentialRepository implements authkit.CredentialStore on Postgres.
// Account ids are the decimal form of the bigserial primary key, so they
// satisfy the all-digit shape the direct-id login mode expects.
type CredentialRepository struct {
	db DBTX
}

func NewCredentialRepository(db DBTX) *CredentialRepository {
	return &CredentialRepository{db: db}
}

func (r *CredentialRepository) FindByID(ctx context.Context, accountID string) (*authkit.Credential, error) {
	query := `SELECT id::text, email, password_hash, status, role
	          FROM credentials WHERE id::text = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, accountID))
}

func (r *CredentialRepository) FindByEmail(ctx context.Context, email string) (*authkit.Credential, error) {
	query := `SELECT id::text, email, password_hash, status, role
	          FROM credentials WHERE email = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, email))
}

func (r *CredentialRepository) Insert(ctx context.Context, cred *authkit.Credential) error {
	query := `INSERT INTO credentials (email, password_hash, status, role)
	          VALUES ($1, $2, $3, $4) RETURNING id::text`

	err := r.db.QueryRowContext(ctx, query,
		cred.Email, cred.PasswordHash, int16(cred.Status), string(cred.Role),
	).Scan(&cred.AccountID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return authkit.ErrAccountExists
		}
		return fmt.Errorf("%w: %v", authkit.ErrStoreUnavailable, err)
	}
	return nil
}

func (r *CredentialRepository) Update(ctx context.Context, cred *authkit.Credential) error {
	query := `UPDATE credentials SET email = $2, password_hash = $3, status = $4, role = $5
	          WHERE id::text = $1`

	res, err := r.db.ExecContext(ctx, query,
		cred.AccountID, cred.Email, cred.PasswordHash, int16(cred.Status), string(cred.Role))
	if err != nil {
		return fmt.Errorf("%w: %v", authkit.ErrStoreUnavailable, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %v", authkit.ErrStoreUnavailable, err)
	}
	if affected == 0 {
		return authkit.ErrAccountNotFound
	}
	return nil
}

func (r *CredentialRepository) scanOne(row *sql.Row) (*authkit.Credential, error) {
	var (
		cred   authkit.Credential
		status int16
		role   string
	)
	err := row.Scan(&cred.AccountID, &cred.Email, &cred.PasswordHash, &status, &role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, authkit.ErrAccountNotFound
		}
		return nil, fmt.Errorf("%w: %v", authkit.ErrStoreUnavailable, err)
	}
	cred.Status = authkit.AccountStatus(status)
	cred.Role = authkit.Role(role)
	return &cred, nil
}
