package contextutils

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// GenerateToken returns n random bytes hex-encoded (2n characters)
func GenerateToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", WrapError(err, "failed to read random bytes")
	}
	return hex.EncodeToString(buf), nil
}

// TokensEqual compares two secrets in constant time. Empty values never match.
func TokensEqual(expected, actual string) bool {
	if expected == "" || actual == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(actual)) == 1
}

// MaskEmail masks the local part of an address for logging, e.g. "ta***@example.com"
func MaskEmail(email string) string {
	if email == "" {
		return "[EMPTY]"
	}

	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return strings.Repeat("*", len(email))
	}

	local, domain := email[:at], email[at:]
	if len(local) <= 2 {
		return strings.Repeat("*", len(local)) + domain
	}
	return local[:2] + strings.Repeat("*", len(local)-2) + domain
}
