// Package authkit is the credential and access-control core for a bookstore
// backend: password hashing, reversible encryption of stored card numbers,
// single-use verification tokens, session-backed login, and an
// authorization gate for admin-only operations.
//
// It is a library, not a server. HTTP handlers construct an [Engine] once
// via [New] and call it per request; persistence of credentials and tokens
// is supplied by the caller as capabilities ([CredentialStore],
// [token.Store]), with Redis-backed defaults for sessions and tokens and a
// Postgres implementation in pgstore.
//
// Every authentication and authorization decision emits an audit event;
// secret material (passwords, card numbers, token secrets, key material)
// never appears in events, errors, or logs.
package authkit
