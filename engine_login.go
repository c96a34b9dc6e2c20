package authkit

import (
	"context"
	"errors"
	"fmt"

	"github.com/bookvault/authkit/session"
)

// LoginResult carries the outcome of a successful authentication.
type LoginResult struct {
	SessionID string
	AccountID string
	Role      Role
	// ExpiresAt is the unix-seconds inactivity deadline at issue time; every
	// later Validate pushes it forward.
	ExpiresAt int64
}

// Login authenticates in one of two modes, selected by the shape of the
// identifier. An all-digit identifier is treated as an account id and
// resolved directly, no password check; anything else is treated as an email
// and the password must match. Either way the account must be active.
//
// Every failure surfaces as ErrAuthenticationFailed. Which step failed is
// recorded in the audit trail, never in the returned error, so callers
// cannot be used as an account-enumeration oracle.
func (e *Engine) Login(ctx context.Context, identifier, plaintextPassword string) (*LoginResult, error) {
	if identifier == "" {
		return nil, fmt.Errorf("%w: identifier must not be empty", ErrInvalidInput)
	}

	direct := allDigits(identifier)

	var (
		cred *Credential
		err  error
	)
	if direct {
		cred, err = e.creds.FindByID(ctx, identifier)
	} else {
		cred, err = e.creds.FindByEmail(ctx, identifier)
	}
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			e.emitAudit(ctx, "login", "", "", false, "unknown_identifier")
			return nil, ErrAuthenticationFailed
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if !direct {
		if !e.hasher.Verify(plaintextPassword, cred.PasswordHash) {
			e.emitAudit(ctx, "login", cred.AccountID, "", false, "password_mismatch")
			return nil, ErrAuthenticationFailed
		}
	}

	if cred.Status != StatusActive {
		e.emitAudit(ctx, "login", cred.AccountID, "", false, "account_"+cred.Status.String())
		return nil, ErrAuthenticationFailed
	}

	sess, err := e.sessions.Create(ctx, cred.AccountID, string(cred.Role))
	if err != nil {
		return nil, err
	}

	e.emitAudit(ctx, "login", cred.AccountID, sess.ID, true, modeReason(direct))
	return &LoginResult{
		SessionID: sess.ID,
		AccountID: cred.AccountID,
		Role:      cred.Role,
		ExpiresAt: sess.ExpiresAt,
	}, nil
}

// Validate resolves a session id and slides its inactivity window forward.
// Unknown and idle-timed-out sessions return ErrSessionNotFound; a session
// past its absolute lifetime cap returns ErrSessionExpired.
func (e *Engine) Validate(ctx context.Context, sessionID string) (*session.Session, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session id must not be empty", ErrInvalidInput)
	}
	return e.sessions.Get(ctx, sessionID)
}

// Logout invalidates a session immediately. Logging out an unknown or
// already-ended session succeeds; the end state is identical.
func (e *Engine) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("%w: session id must not be empty", ErrInvalidInput)
	}
	if err := e.sessions.Delete(ctx, sessionID); err != nil {
		return err
	}
	e.emitAudit(ctx, "logout", "", sessionID, true, "")
	return nil
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

func modeReason(direct bool) string {
	if direct {
		return "direct_id"
	}
	return "password"
}
