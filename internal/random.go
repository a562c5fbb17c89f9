package internal

import (
	"crypto/rand"
	"encoding/base64"
	"strings"

	"github.com/google/uuid"
)

const csrfTokenSize = 32

// NewJTI returns a random refresh token id: a v4 UUID in hex without dashes.
func NewJTI() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(id.String(), "-", ""), nil
}

// NewCSRFToken returns 32 random bytes, base64url without padding.
func NewCSRFToken() (string, error) {
	var raw [csrfTokenSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	// base64url, no padding, cookie and header safe
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

// NewUserID returns a random v4 UUID string.
func NewUserID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
