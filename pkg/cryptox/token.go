package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
)

// Token size constants (in bytes before encoding).
const (
	// TokenSize128 provides 128 bits of entropy (22 chars base64url).
	TokenSize128 = 16
	// TokenSize256 provides 256 bits of entropy (43 chars base64url).
	TokenSize256 = 32
)

// GenerateToken creates a cryptographically secure random token of the specified byte length.
// The token is returned as a base64url-encoded string (URL-safe, no padding).
func GenerateToken(size int) (string, error) {
	if size <= 0 {
		return "", fmt.Errorf("token size must be positive, got %d", size)
	}

	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random token: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// FingerprintToken returns a deterministic SHA-256 fingerprint of a token
// secret. Stored token records hold only the fingerprint; the raw secret is
// handed to the caller exactly once. Unlike a salted slow hash, the
// fingerprint is stable per input, which is what makes it usable as a stored
// verification value for a secret that was already located by its public
// identifier.
//
// The fingerprint is returned as a base64url-encoded string (43 chars).
func FingerprintToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// VerifyTokenFingerprint reports whether the presented secret matches the
// stored fingerprint using a constant-time comparison.
func VerifyTokenFingerprint(secret, storedFingerprint string) bool {
	fp := FingerprintToken(secret)
	return subtle.ConstantTimeCompare([]byte(fp), []byte(storedFingerprint)) == 1
}
