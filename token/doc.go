// Package token issues, validates, consumes, and sweeps single-use
// verification tokens for out-of-band flows (email verification, password
// reset).
//
// # Wire format
//
// The token handed to the user is base64url(tokenID ‖ secret): a 16-byte
// record id followed by a 32-byte random secret. Only the SHA-256 of the
// secret is persisted, so a leaked token table yields nothing usable.
//
// # Lifecycle
//
//	issued → valid → consumed (terminal)
//	              → expired  (terminal, time-triggered)
//
// Consume is atomic: under concurrent attempts on the same token exactly one
// caller succeeds and the rest observe [ErrAlreadyUsed]. Consumed records
// are kept (marked) rather than deleted so replay is reported distinctly
// from not-found; the expiry sweep removes them later.
//
// At most one valid token gates any accountID+purpose pair: issuing a new
// token replaces the previous live one.
package token
