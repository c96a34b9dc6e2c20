package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"

	"github.com/bookvault/authkit/token"
)

func newTokenRepoWithMock(t *testing.T) (*TokenRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	return NewTokenRepository(db), mock, db
}

func TestTokenInsertAndGet(t *testing.T) {
	repo, mock, db := newTokenRepoWithMock(t)
	defer db.Close()

	id := uuid.New()
	now := time.Now().UTC().Truncate(time.Second)
	rec := &token.Record{
		ID:        id,
		AccountID: "42",
		Purpose:   token.PurposePasswordReset,
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Hour),
	}
	copy(rec.SecretHash[:], []byte("0123456789abcdef0123456789abcdef"))

	mock.ExpectExec(`INSERT INTO verification_tokens`).
		WithArgs(id.String(), "42", rec.SecretHash[:], "password_reset", now, now.Add(time.Hour), false).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Insert(context.Background(), rec); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	rows := sqlmock.NewRows([]string{"id", "account_id", "secret_hash", "purpose", "issued_at", "expires_at", "consumed"}).
		AddRow(id.String(), "42", rec.SecretHash[:], "password_reset", now, now.Add(time.Hour), false)
	mock.ExpectQuery(`SELECT .+ FROM verification_tokens WHERE id`).
		WithArgs(id.String()).
		WillReturnRows(rows)

	got, err := repo.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != id || got.AccountID != "42" || got.Purpose != token.PurposePasswordReset {
		t.Errorf("record = %+v", got)
	}
	if got.SecretHash != rec.SecretHash {
		t.Error("secret hash mismatch")
	}
}

func TestTokenGetNotFound(t *testing.T) {
	repo, mock, db := newTokenRepoWithMock(t)
	defer db.Close()

	id := uuid.New()
	mock.ExpectQuery(`SELECT .+ FROM verification_tokens WHERE id`).
		WithArgs(id.String()).
		WillReturnError(sql.ErrNoRows)

	if _, err := repo.Get(context.Background(), id); !errors.Is(err, token.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestTokenConsume(t *testing.T) {
	repo, mock, db := newTokenRepoWithMock(t)
	defer db.Close()

	id := uuid.New()
	now := time.Now()
	mock.ExpectExec(`UPDATE verification_tokens SET consumed`).
		WithArgs(id.String(), now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.ConsumeByID(context.Background(), id, now); err != nil {
		t.Fatalf("ConsumeByID: %v", err)
	}
}

func TestTokenConsumeLoserResolvesReason(t *testing.T) {
	repo, mock, db := newTokenRepoWithMock(t)
	defer db.Close()

	id := uuid.New()
	now := time.Now()

	// Already consumed by a concurrent winner.
	mock.ExpectExec(`UPDATE verification_tokens SET consumed`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT consumed, expires_at FROM verification_tokens`).
		WithArgs(id.String()).
		WillReturnRows(sqlmock.NewRows([]string{"consumed", "expires_at"}).AddRow(true, now.Add(time.Hour)))

	if err := repo.ConsumeByID(context.Background(), id, now); !errors.Is(err, token.ErrAlreadyUsed) {
		t.Fatalf("err = %v, want ErrAlreadyUsed", err)
	}

	// Live but past expiry.
	mock.ExpectExec(`UPDATE verification_tokens SET consumed`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT consumed, expires_at FROM verification_tokens`).
		WithArgs(id.String()).
		WillReturnRows(sqlmock.NewRows([]string{"consumed", "expires_at"}).AddRow(false, now.Add(-time.Hour)))

	if err := repo.ConsumeByID(context.Background(), id, now); !errors.Is(err, token.ErrExpired) {
		t.Fatalf("err = %v, want ErrExpired", err)
	}

	// Row gone entirely.
	mock.ExpectExec(`UPDATE verification_tokens SET consumed`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT consumed, expires_at FROM verification_tokens`).
		WithArgs(id.String()).
		WillReturnError(sql.ErrNoRows)

	if err := repo.ConsumeByID(context.Background(), id, now); !errors.Is(err, token.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestTokenDeleteForAccount(t *testing.T) {
	repo, mock, db := newTokenRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`DELETE FROM verification_tokens`).
		WithArgs("42", "email_verification").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.DeleteForAccount(context.Background(), "42", token.PurposeEmailVerification); err != nil {
		t.Fatalf("DeleteForAccount: %v", err)
	}
}

func TestTokenDeleteExpired(t *testing.T) {
	repo, mock, db := newTokenRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectExec(`DELETE FROM verification_tokens WHERE expires_at`).
		WithArgs(now.Add(-expiredRetention)).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.DeleteExpired(context.Background(), now)
	if err != nil {
		t.Fatalf("DeleteExpired: %v", err)
	}
	if n != 3 {
		t.Errorf("deleted = %d, want 3", n)
	}
}
