// Package password implements one-way password hashing and verification
// with bcrypt.
//
// # Output format
//
// Hashes are standard bcrypt strings ($2a$12$...); the algorithm, cost, and
// salt are embedded, so verification needs no side channel.
//
// The [Hasher] supports explicit cost migration: if a stored hash was
// produced with a lower cost, [Hasher.NeedsRehash] returns true so the
// caller can re-hash on the next successful login. Verification itself never
// downgrades or upgrades a hash.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords — callers supply plaintext and receive hashes.
//   - Import any other authkit package.
//   - Log plaintext passwords.
package password
