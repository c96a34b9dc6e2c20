// Package fieldcipher provides reversible encryption for sensitive field
// values, primarily stored payment card numbers.
//
// A single 256-bit AES key is derived once per process from two externally
// supplied secrets (master key material and a derivation salt) using
// PBKDF2-HMAC-SHA256 with 65536 iterations. Each Encrypt call uses a fresh
// random nonce, so two encryptions of the same plaintext are never equal.
// The stored blob is base64(nonce ‖ ciphertext); GCM authentication means
// any corruption or key mismatch surfaces as [ErrDecryption] instead of
// silently decoding to garbage.
//
// Missing secrets are a startup-time fatal condition: [New] refuses to
// build a cipher rather than run with broken crypto.
package fieldcipher
