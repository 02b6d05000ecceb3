package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"golang.org/x/crypto/pbkdf2"
)

// DefaultIterations is the PBKDF2 round count used when no override is
// configured. 100,000 rounds of HMAC-SHA-256 keeps a single verification
// in the tens of milliseconds on commodity hardware.
const DefaultIterations = 100_000

// saltBytes is the amount of random salt generated per account (256 bits
// before hex encoding).
const saltBytes = 32

// derivedKeyLen is the PBKDF2 output length in bytes.
const derivedKeyLen = 32

// HashPassword derives a hex-encoded PBKDF2-SHA-256 digest of the password
// with a freshly generated random salt. It returns the digest and the salt,
// both hex strings. The salt participates in the derivation as the bytes of
// its hex form, so it must be passed back to VerifyPassword unchanged.
func HashPassword(password string, iterations int) (hash, salt string, err error) {
	buf := make([]byte, saltBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", err
	}
	salt = hex.EncodeToString(buf)
	return HashPasswordWithSalt(password, salt, iterations), salt, nil
}

// HashPasswordWithSalt derives the digest for a password under an existing
// salt. Used for verification and by callers that need deterministic output.
func HashPasswordWithSalt(password, salt string, iterations int) string {
	if iterations <= 0 {
		iterations = DefaultIterations
	}
	key := pbkdf2.Key([]byte(password), []byte(salt), iterations, derivedKeyLen, sha256.New)
	return hex.EncodeToString(key)
}

// VerifyPassword recomputes the derivation and compares it against the
// stored digest in constant time. The comparison never short-circuits on
// the first differing byte.
func VerifyPassword(password, hash, salt string, iterations int) bool {
	computed := HashPasswordWithSalt(password, salt, iterations)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(hash)) == 1
}
