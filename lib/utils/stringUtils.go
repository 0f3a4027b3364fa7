package utils

import (
	"crypto/rand"
	"encoding/hex"
)

// RandomString returns 2*length hex characters of randomness.
func RandomString(length int) string {
	bytes := make([]byte, length)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}
