package utils

import (
	"crypto/rand"
	"encoding/hex"
)

// RandomHex returns a hex string backed by n bytes of crypto/rand entropy.
// CSRF tokens use n=32 which yields a 64-character token.
func RandomHex(n int) string {
	bytes := make([]byte, n)
	if _, err := rand.Read(bytes); err != nil {
		panic(err)
	}
	return hex.EncodeToString(bytes)
}
