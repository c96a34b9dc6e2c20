package authkit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bookvault/authkit/token"
)

// ResetRequestResult reports what a reset request actually did. Issued is
// false for unknown emails; callers presenting a uniform "check your inbox"
// page simply ignore it.
type ResetRequestResult struct {
	Issued         bool
	ResetToken     string
	EmailDelivered bool
}

// RequestPasswordReset issues a short-lived reset token for the account
// behind email, replacing any live one. An unknown email is not an error:
// the result reports Issued=false and the audit trail records the miss.
func (e *Engine) RequestPasswordReset(ctx context.Context, email string) (*ResetRequestResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return nil, fmt.Errorf("%w: email must not be empty", ErrInvalidInput)
	}

	cred, err := e.creds.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			e.emitAudit(ctx, "password_reset_request", "", "", false, "unknown_email")
			return &ResetRequestResult{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if cred.Status == StatusDisabled {
		e.emitAudit(ctx, "password_reset_request", cred.AccountID, "", false, "account_disabled")
		return &ResetRequestResult{}, nil
	}

	wire, _, err := e.tokens.Issue(ctx, cred.AccountID, token.PurposePasswordReset, e.config.Token.ResetTTL)
	if err != nil {
		return nil, err
	}

	delivered := e.sendTokenMail(email, e.config.Mail.ResetSubject, wire)
	e.emitAudit(ctx, "password_reset_request", cred.AccountID, "", true, "")

	return &ResetRequestResult{
		Issued:         true,
		ResetToken:     wire,
		EmailDelivered: delivered,
	}, nil
}

// ConfirmPasswordReset consumes a reset token and overwrites the account's
// password. The token burns even if it turns out the new password is the
// hash of nothing useful; a second confirm with the same token fails with
// ErrTokenAlreadyUsed.
func (e *Engine) ConfirmPasswordReset(ctx context.Context, wireToken, newPassword string) error {
	hash, err := e.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	rec, err := e.tokens.Consume(ctx, wireToken)
	if err != nil {
		e.emitAudit(ctx, "password_reset_confirm", "", "", false, tokenFailureReason(err))
		return err
	}
	if rec.Purpose != token.PurposePasswordReset {
		e.emitAudit(ctx, "password_reset_confirm", rec.AccountID, "", false, "purpose_mismatch")
		return ErrTokenNotFound
	}

	cred, err := e.creds.FindByID(ctx, rec.AccountID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			e.emitAudit(ctx, "password_reset_confirm", rec.AccountID, "", false, "account_gone")
			return ErrAccountNotFound
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	cred.PasswordHash = hash
	if err := e.creds.Update(ctx, cred); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	e.emitAudit(ctx, "password_reset_confirm", rec.AccountID, "", true, "")
	return nil
}

// ChangePassword rotates the password of an authenticated account. The
// current password must verify; the check runs even when the account was
// resolved from a live session, so a hijacked session alone cannot rotate
// credentials.
func (e *Engine) ChangePassword(ctx context.Context, accountID, currentPassword, newPassword string) error {
	if accountID == "" {
		return fmt.Errorf("%w: account id must not be empty", ErrInvalidInput)
	}

	hash, err := e.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	cred, err := e.creds.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			e.emitAudit(ctx, "password_change", accountID, "", false, "unknown_account")
			return ErrAuthenticationFailed
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if !e.hasher.Verify(currentPassword, cred.PasswordHash) {
		e.emitAudit(ctx, "password_change", accountID, "", false, "password_mismatch")
		return ErrAuthenticationFailed
	}

	cred.PasswordHash = hash
	if err := e.creds.Update(ctx, cred); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	e.emitAudit(ctx, "password_change", accountID, "", true, "")
	return nil
}
