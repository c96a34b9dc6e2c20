package authkit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bookvault/authkit/token"
)

// RegisterResult carries the outcome of account creation. VerificationToken
// is the wire token also delivered by email; it is exposed so callers
// without a mailer can route it themselves.
type RegisterResult struct {
	AccountID         string
	VerificationToken string
	EmailDelivered    bool
}

// Register creates a pending credential and issues its email-verification
// token. The account cannot log in until VerifyEmail consumes that token.
// A duplicate email fails with ErrAccountExists.
func (e *Engine) Register(ctx context.Context, email, plaintextPassword string) (*RegisterResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: invalid email", ErrInvalidInput)
	}

	hash, err := e.hasher.Hash(plaintextPassword)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	cred := &Credential{
		Email:        email,
		PasswordHash: hash,
		Status:       StatusPending,
		Role:         e.config.Account.DefaultRole,
	}
	if err := e.creds.Insert(ctx, cred); err != nil {
		if errors.Is(err, ErrAccountExists) {
			e.emitAudit(ctx, "register", "", "", false, "duplicate_email")
			return nil, ErrAccountExists
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	wire, _, err := e.tokens.Issue(ctx, cred.AccountID, token.PurposeEmailVerification, e.config.Token.VerificationTTL)
	if err != nil {
		// The row exists; the caller can recover via ResendVerification.
		e.emitAudit(ctx, "register", cred.AccountID, "", false, "token_issue_failed")
		return nil, err
	}

	delivered := e.sendTokenMail(email, e.config.Mail.VerificationSubject, wire)
	e.emitAudit(ctx, "register", cred.AccountID, "", true, "")

	return &RegisterResult{
		AccountID:         cred.AccountID,
		VerificationToken: wire,
		EmailDelivered:    delivered,
	}, nil
}

// VerifyEmail consumes a verification token and promotes the account from
// pending to active. Replay of a consumed token fails with
// ErrTokenAlreadyUsed; the promotion itself is idempotent in effect, but the
// token burns exactly once.
func (e *Engine) VerifyEmail(ctx context.Context, wireToken string) error {
	rec, err := e.tokens.Consume(ctx, wireToken)
	if err != nil {
		e.emitAudit(ctx, "verify_email", "", "", false, tokenFailureReason(err))
		return err
	}
	if rec.Purpose != token.PurposeEmailVerification {
		e.emitAudit(ctx, "verify_email", rec.AccountID, "", false, "purpose_mismatch")
		return ErrTokenNotFound
	}

	cred, err := e.creds.FindByID(ctx, rec.AccountID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			e.emitAudit(ctx, "verify_email", rec.AccountID, "", false, "account_gone")
			return ErrAccountNotFound
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if cred.Status == StatusPending {
		cred.Status = StatusActive
		if err := e.creds.Update(ctx, cred); err != nil {
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	}

	e.emitAudit(ctx, "verify_email", rec.AccountID, "", true, "")
	return nil
}

// ResendVerification issues a fresh verification token for a still-pending
// account, replacing any live one. Unknown emails and already-active
// accounts both report success without issuing anything, so this endpoint
// leaks no account state.
func (e *Engine) ResendVerification(ctx context.Context, email string) (bool, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return false, fmt.Errorf("%w: email must not be empty", ErrInvalidInput)
	}

	cred, err := e.creds.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			e.emitAudit(ctx, "resend_verification", "", "", false, "unknown_email")
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if cred.Status != StatusPending {
		e.emitAudit(ctx, "resend_verification", cred.AccountID, "", false, "not_pending")
		return false, nil
	}

	wire, _, err := e.tokens.Issue(ctx, cred.AccountID, token.PurposeEmailVerification, e.config.Token.VerificationTTL)
	if err != nil {
		return false, err
	}

	delivered := e.sendTokenMail(email, e.config.Mail.VerificationSubject, wire)
	e.emitAudit(ctx, "resend_verification", cred.AccountID, "", true, "")
	return delivered, nil
}

func tokenFailureReason(err error) string {
	switch {
	case errors.Is(err, token.ErrExpired):
		return "token_expired"
	case errors.Is(err, token.ErrAlreadyUsed):
		return "token_already_used"
	case errors.Is(err, token.ErrMalformed):
		return "token_malformed"
	default:
		return "token_not_found"
	}
}
