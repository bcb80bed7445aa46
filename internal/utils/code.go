package utils

import (
	"crypto/rand"
	"encoding/hex"
)

// NewCheckinCode returns the opaque code stored on a membership and
// presented (usually as a QR code) at the studio entrance.  16 bytes
// of secure randomness encoded as 32 hex characters; unguessable and
// safe to print on a badge.
func NewCheckinCode() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
