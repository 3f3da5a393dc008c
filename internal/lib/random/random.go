package random

import (
	"crypto/rand"
	"encoding/hex"
)

// Hex возвращает криптографически случайную hex-строку длиной 2*n символов.
func Hex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return hex.EncodeToString(b), nil
}
