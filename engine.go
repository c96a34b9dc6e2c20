package authkit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/bookvault/authkit/fieldcipher"
	internalaudit "github.com/bookvault/authkit/internal/audit"
	"github.com/bookvault/authkit/mailer"
	"github.com/bookvault/authkit/password"
	"github.com/bookvault/authkit/session"
	"github.com/bookvault/authkit/token"
)

// Engine is the assembled auth core. Construct one with [New] at startup and
// share it across goroutines; all methods are safe for concurrent use.
type Engine struct {
	config   Config
	creds    CredentialStore
	sessions *session.Store
	tokens   *token.Service
	hasher   *password.Hasher
	cipher   *fieldcipher.Cipher
	mail     mailer.Mailer
	audit    *internalaudit.Dispatcher
}

// Close flushes and stops the audit dispatcher. The engine must not be used
// after Close.
func (e *Engine) Close() {
	e.audit.Close()
}

// AuditDropped reports how many audit events were discarded under buffer
// pressure since startup.
func (e *Engine) AuditDropped() uint64 {
	return e.audit.Dropped()
}

// SweepExpiredTokens removes verification tokens past their retention and
// reports how many went. Intended for a periodic background caller.
func (e *Engine) SweepExpiredTokens(ctx context.Context) (int, error) {
	return e.tokens.SweepExpired(ctx)
}

// EncryptCardNumber seals a card number for storage. The engine must have
// been built with cipher secrets; otherwise ErrCipherDisabled.
func (e *Engine) EncryptCardNumber(cardNumber string) (string, error) {
	if e.cipher == nil {
		return "", ErrCipherDisabled
	}
	return e.cipher.Encrypt(cardNumber)
}

// DecryptCardNumber reverses EncryptCardNumber.
func (e *Engine) DecryptCardNumber(blob string) (string, error) {
	if e.cipher == nil {
		return "", ErrCipherDisabled
	}
	return e.cipher.Decrypt(blob)
}

func (e *Engine) emitAudit(ctx context.Context, event, accountID, sessionID string, success bool, reason string) {
	e.audit.Emit(ctx, internalaudit.Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Event:     event,
		AccountID: accountID,
		SessionID: sessionID,
		Success:   success,
		Reason:    reason,
	})
}

// sendTokenMail delivers a wire token out of band. Delivery failure is
// reported to the caller as a flag, never as an operation failure: the token
// stays valid and the flow can resend.
func (e *Engine) sendTokenMail(to, subject, wire string) bool {
	if e.mail == nil {
		return false
	}
	body := wire
	if e.config.Mail.LinkBaseURL != "" {
		body = e.config.Mail.LinkBaseURL + wire
	}
	return e.mail.Send(to, subject, body) == nil
}
