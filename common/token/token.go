// Package token generates the webhook tokens that alertmanager puts in the
// plugin's webhook URL.
package token

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// MinLength is the shortest token the settings page will hand out.
const MinLength = 32

// Generator returns a random token of exactly length characters drawn from
// the URL-safe alphabet A-Z a-z 0-9 '-' '_'.
type Generator func(length int) (string, error)

// Secure is the production Generator backed by crypto/rand.
func Secure(length int) (string, error) {
	if length < MinLength {
		length = MinLength
	}

	// base64 yields 4 characters per 3 bytes; round up so truncation never runs short.
	raw := make([]byte, (length*3+3)/4)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("reading random bytes: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(raw)[:length], nil
}

// IsURLSafe reports whether every character of s may appear unescaped in a
// webhook path segment or query value.
func IsURLSafe(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			return false
		}
	}
	return true
}
