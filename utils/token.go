package utils

import (
	"crypto/rand"
	"encoding/base64"
)

// NewShareID returns an opaque, URL-safe token with at least 128 bits
// of entropy, as spec §3 requires for share_id. 20 random bytes
// (160 bits) comfortably clear the floor after base64 encoding.
func NewShareID() (string, error) {
	buf := make([]byte, 20)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
