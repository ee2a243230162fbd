// Package random generates secrets for keys left unconfigured.
package random

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// Bytes returns n bytes from the system CSPRNG.
func Bytes(n int) ([]byte, error) {
	bytes := make([]byte, n)

	_, err := rand.Read(bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to read random bytes: %w", err)
	}

	return bytes, nil
}

// Hex returns n random bytes hex encoded, so the result has 2n characters.
func Hex(n int) (string, error) {
	bytes, err := Bytes(n)
	if err != nil {
		return "", err
	}

	return hex.EncodeToString(bytes), nil
}
