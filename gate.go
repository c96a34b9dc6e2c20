package authkit

import (
	"context"
	"errors"
	"fmt"
)

// Decision is the full record of one authorization check. Allowed is the
// verdict; the rest is context for the caller and mirrors what went to the
// audit trail.
type Decision struct {
	Allowed   bool
	AccountID string
	Role      Role
	Reason    string
}

// Authorize decides whether the session may perform privileged operations.
// The role is re-read from the credential store on every call, so a
// demotion takes effect immediately even against a session created while
// the account was still privileged. The check never extends the session's
// inactivity window: probing an admin endpoint is not activity.
//
// Every call emits an audit event, allowed or denied. A denied decision
// comes back with ErrAuthorizationDenied so call sites cannot forget to
// check it.
func (e *Engine) Authorize(ctx context.Context, sessionID string) (*Decision, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session id must not be empty", ErrInvalidInput)
	}

	sess, err := e.sessions.Peek(ctx, sessionID)
	if err != nil {
		switch {
		case errors.Is(err, ErrSessionNotFound):
			return e.deny(ctx, sessionID, "", "", "no_session")
		case errors.Is(err, ErrSessionExpired):
			return e.deny(ctx, sessionID, "", "", "session_expired")
		default:
			return nil, err
		}
	}

	cred, err := e.creds.FindByID(ctx, sess.AccountID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return e.deny(ctx, sessionID, sess.AccountID, "", "credential_not_found")
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if cred.Status != StatusActive {
		return e.deny(ctx, sessionID, cred.AccountID, cred.Role, "account_"+cred.Status.String())
	}
	if cred.Role != PrivilegedRole {
		return e.deny(ctx, sessionID, cred.AccountID, cred.Role, "role_mismatch")
	}

	e.emitAudit(ctx, "authorize", cred.AccountID, sessionID, true, "granted")
	return &Decision{
		Allowed:   true,
		AccountID: cred.AccountID,
		Role:      cred.Role,
		Reason:    "granted",
	}, nil
}

func (e *Engine) deny(ctx context.Context, sessionID, accountID string, role Role, reason string) (*Decision, error) {
	e.emitAudit(ctx, "authorize", accountID, sessionID, false, reason)
	return &Decision{
		AccountID: accountID,
		Role:      role,
		Reason:    reason,
	}, ErrAuthorizationDenied
}
