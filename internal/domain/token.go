package domain

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

// previewTokenBytes gives a 64 character hex token.
const previewTokenBytes = 32

// NewPreviewToken returns a random opaque token.
func NewPreviewToken() (string, error) {
	buf := make([]byte, previewTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate preview token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// TokenMatches compares a presented token to the stored one in constant time.
func TokenMatches(stored, presented string) bool {
	if stored == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(presented)) == 1
}
