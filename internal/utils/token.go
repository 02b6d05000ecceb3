package utils // package utils provides helper functions for token creation and hashing

import (
	"crypto/rand"   // secure random number generation
	"crypto/sha256" // SHA-256 hashing for reset tokens
	"encoding/hex"  // hex encoding of random bytes and digests
)

// NewSessionToken returns an opaque session identifier with 256 bits of
// entropy, encoded as 64 hex characters. The raw value is handed to the
// client and stored server-side as the session primary key.
func NewSessionToken() (string, error) {
	return randomHex(32)
}

// NewResetToken returns a single-use password reset token. Only its
// SHA-256 hash is persisted; the raw value goes back to the caller once.
func NewResetToken() (string, error) {
	return randomHex(32)
}

// HashToken returns the SHA-256 hex digest of a raw token. Storing only
// the hash means a leaked database row cannot be replayed as a token.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// randomHex returns a hex-encoded string generated from n bytes of
// cryptographically secure random data.
func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
