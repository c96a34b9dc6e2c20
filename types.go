package authkit

import (
	"context"
	"io"
	"log/slog"

	internalaudit "github.com/bookvault/authkit/internal/audit"
)

// AccountStatus is the lifecycle state of a credential.
type AccountStatus uint8

const (
	// StatusPending is the state at registration, before email verification.
	StatusPending AccountStatus = iota + 1
	// StatusActive is the only state that can log in.
	StatusActive
	// StatusDisabled is an administratively deactivated account.
	StatusDisabled
)

func (s AccountStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusActive:
		return "active"
	case StatusDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// Role is the closed set of account roles. It replaces the numeric
// discriminator the stored records historically carried; authorization
// compares against a single named constant instead of scattered literals.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleCustomer Role = "customer"
	RoleEmployee Role = "employee"
)

// PrivilegedRole is the one role value that passes the admin gate.
const PrivilegedRole = RoleAdmin

// Valid reports membership in the closed role set.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleCustomer, RoleEmployee:
		return true
	}
	return false
}

// Credential is the stored identity record for one account. Rows are owned
// by the external store; the engine only enforces invariants on values
// passing through.
type Credential struct {
	AccountID    string
	Email        string
	PasswordHash string
	Status       AccountStatus
	Role         Role
}

// CredentialStore is the persistence boundary the caller supplies. Each
// call is its own unit of work; no cross-call transaction is assumed, so
// multi-step flows tolerate partial completion.
//
// Insert assigns AccountID on the passed record and must reject a duplicate
// email with ErrAccountExists. Lookups return ErrAccountNotFound for
// missing rows and wrap backend failures in ErrStoreUnavailable.
type CredentialStore interface {
	FindByID(ctx context.Context, accountID string) (*Credential, error)
	FindByEmail(ctx context.Context, email string) (*Credential, error)
	Insert(ctx context.Context, cred *Credential) error
	Update(ctx context.Context, cred *Credential) error
}

// AuditEvent is one record in the security audit trail.
type AuditEvent = internalaudit.Event

// AuditSink receives audit events from the engine's dispatcher.
type AuditSink = internalaudit.Sink

// NoOpAuditSink discards all events.
type NoOpAuditSink = internalaudit.NoOpSink

// NewChannelAuditSink creates a buffered channel-based sink.
func NewChannelAuditSink(buffer int) *internalaudit.ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONAuditSink creates a sink writing one JSON event per line to w.
func NewJSONAuditSink(w io.Writer) *internalaudit.JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// NewSlogAuditSink creates a sink that records events through a structured
// logger; nil selects slog.Default.
func NewSlogAuditSink(l *slog.Logger) *internalaudit.SlogSink {
	return internalaudit.NewSlogSink(l)
}
