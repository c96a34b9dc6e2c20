// Package pgstore provides Postgres-backed persistence for credentials and
// verification tokens. Repositories take a DBTX so callers can run them
// against a pool or inside a transaction.
package pgstore

import (
	"context"
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// DBTX is the subset of database/sql the repositories use. Both *sql.DB and
// *sql.Tx satisfy it.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Open dials Postgres through the pgx stdlib driver and verifies the
// connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Schema is the reference DDL for the two tables the repositories expect.
// Migration tooling is the application's concern; this is the shape.
const Schema = `
CREATE TABLE IF NOT EXISTS credentials (
    id            BIGSERIAL PRIMARY KEY,
    email         TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    status        SMALLINT NOT NULL,
    role          TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS verification_tokens (
    id          UUID PRIMARY KEY,
    account_id  TEXT NOT NULL,
    secret_hash BYTEA NOT NULL,
    purpose     TEXT NOT NULL,
    issued_at   TIMESTAMPTZ NOT NULL,
    expires_at  TIMESTAMPTZ NOT NULL,
    consumed    BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE INDEX IF NOT EXISTS verification_tokens_account_purpose
    ON verification_tokens (account_id, purpose);
`
