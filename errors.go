package authkit

import (
	"errors"

	"github.com/bookvault/authkit/session"
	"github.com/bookvault/authkit/token"
)

var (
	// ErrInvalidInput marks malformed arguments: the caller's bug, not an
	// expected runtime outcome.
	ErrInvalidInput = errors.New("invalid input")

	// ErrAuthenticationFailed is the single error surfaced for every login
	// failure. Unknown identifier, wrong password, and inactive account are
	// deliberately indistinguishable here; the audit trail has the detail.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrAuthorizationDenied means a valid identity lacks the privilege.
	ErrAuthorizationDenied = errors.New("authorization denied")

	// ErrAccountExists is returned by CredentialStore.Insert on a duplicate
	// email.
	ErrAccountExists = errors.New("account already exists")

	// ErrAccountNotFound is returned by CredentialStore lookups.
	ErrAccountNotFound = errors.New("account not found")

	// ErrConfiguration is fatal at startup: the engine refuses to build
	// rather than run misconfigured.
	ErrConfiguration = errors.New("configuration error")

	// ErrStoreUnavailable wraps transient credential-store failures; the
	// caller may retry.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrCipherDisabled is returned by card operations when the engine was
	// built without field-cipher secrets.
	ErrCipherDisabled = errors.New("field cipher not configured")
)

// Session and token outcomes are re-exported under engine-level names so
// callers handle one error surface; identity is shared, so errors.Is works
// against either name.
var (
	ErrSessionNotFound  = session.ErrNotFound
	ErrSessionExpired   = session.ErrExpired
	ErrTokenNotFound    = token.ErrNotFound
	ErrTokenExpired     = token.ErrExpired
	ErrTokenAlreadyUsed = token.ErrAlreadyUsed
)
