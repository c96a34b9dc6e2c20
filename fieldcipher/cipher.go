package fieldcipher

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// KeyIterations is the PBKDF2 iteration count for key derivation.
	KeyIterations = 65536

	keyBytes   = 32
	nonceBytes = 16
)

var (
	// ErrConfiguration is returned by New when a required secret is absent.
	ErrConfiguration = errors.New("fieldcipher: master key and salt are required")
	// ErrDecryption is returned when a blob cannot be authenticated and
	// decrypted: wrong key, truncation, or tampering.
	ErrDecryption = errors.New("fieldcipher: decryption failed")
	// ErrEmptyPlaintext is returned by Encrypt for empty input.
	ErrEmptyPlaintext = errors.New("fieldcipher: plaintext must not be empty")
)

// Cipher encrypts and decrypts field values with a process-lifetime derived
// key. It is immutable after New and safe for concurrent use.
type Cipher struct {
	aead cipher.AEAD
}

// New derives the AES-256 key from masterKey and salt and returns a ready
// Cipher. Both secrets are required; neither is retained after derivation
// and neither ever appears in errors or logs.
func New(masterKey, salt string) (*Cipher, error) {
	if masterKey == "" || salt == "" {
		return nil, ErrConfiguration
	}

	key := pbkdf2.Key([]byte(masterKey), []byte(salt), KeyIterations, keyBytes, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	aead, err := cipher.NewGCMWithNonceSize(block, nonceBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	return &Cipher{aead: aead}, nil
}

// Encrypt returns base64(nonce ‖ ciphertext) for the given plaintext. A
// fresh random nonce is drawn per call, so output is non-deterministic.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", ErrEmptyPlaintext
	}

	nonce := make([]byte, nonceBytes)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. The nonce is split off as a fixed-width prefix;
// authentication failure of any kind maps to ErrDecryption.
func (c *Cipher) Decrypt(blob string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return "", fmt.Errorf("%w: invalid encoding", ErrDecryption)
	}
	if len(raw) <= nonceBytes {
		return "", fmt.Errorf("%w: blob too short", ErrDecryption)
	}

	nonce, ciphertext := raw[:nonceBytes], raw[nonceBytes:]
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrDecryption
	}
	return string(plaintext), nil
}
