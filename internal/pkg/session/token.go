// internal/pkg/session/token.go
package session

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// TokenLength is the rendered size of a session token: 32 random bytes
// (256 bits of entropy) hex-encoded.
const TokenLength = 64

// NewToken generates an opaque session token.
func NewToken() (string, error) {
	buf := make([]byte, TokenLength/2)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
