package testutils

import (
	"crypto/rand"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

func RandomBytes(t *testing.T, n int) []byte {
	b := make([]byte, n)
	_, err := rand.Read(b)
	require.NoError(t, err)
	return b
}

// RandomRandomness returns 32 random bytes, the size of a beacon value.
func RandomRandomness(t *testing.T) []byte {
	return RandomBytes(t, 32)
}

// RandomAddress returns a well formed submitter address.
func RandomAddress(t *testing.T) string {
	return hex.EncodeToString(RandomBytes(t, 20))
}
