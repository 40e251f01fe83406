package address

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromPublicKey(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	addr := FromPublicKey(pub)
	assert.Len(t, addr, 2*Size)
	assert.Equal(t, addr, FromPublicKey(pub))

	validated, err := Validate(addr)
	require.NoError(t, err)
	assert.Equal(t, addr, validated)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		valid bool
	}{
		{name: "canonical", input: "00112233445566778899aabbccddeeff00112233", valid: true},
		{name: "upper_case", input: "00112233445566778899AABBCCDDEEFF00112233"},
		{name: "too_short", input: "0011"},
		{name: "not_hex", input: "creator"},
		{name: "empty", input: ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Validate(tc.input)
			if tc.valid {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrInvalidAddress)
		})
	}
}
