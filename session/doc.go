// Package session owns the server-side session table: opaque ids, Redis
// persistence, a sliding inactivity window, and idempotent invalidation.
//
// Sessions are never handed to clients as self-describing tokens; the id is
// 16 random bytes and everything else lives in the store. The inactivity
// window slides on every successful Get via TTL renewal only — the record
// bytes are never rewritten on the read path, so a concurrent Delete can
// never be undone by a racing Get ("resurrected" sessions are structurally
// impossible: DEL removes the key, and EXPIRE on a missing key is a no-op).
package session
