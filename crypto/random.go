package crypto

import (
	"crypto/rand"
	"fmt"
)

// RandomBytes returns n cryptographically secure random bytes. The dht
// package's Generate and GenerateIDInBucket read crypto/rand directly rather
// than calling this function.
func RandomBytes(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("crypto: read random bytes: %w", err)
	}
	return buf, nil
}
