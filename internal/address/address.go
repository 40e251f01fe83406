// Package address derives and validates the account addresses used to
// identify submitters, admins and the trusted drand relay.
package address

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Size is the length of an address in bytes.
const Size = 20

var ErrInvalidAddress = errors.New("invalid address")

// FromPublicKey derives an address from an ed25519 peer key:
// the first 20 bytes of blake2b-256(pubkey), hex encoded.
func FromPublicKey(pub ed25519.PublicKey) string {
	sum := blake2b.Sum256(pub)
	return hex.EncodeToString(sum[:Size])
}

// Validate checks that s is a canonical (lower case hex, 20 bytes) address.
func Validate(s string) (string, error) {
	if s != strings.ToLower(s) {
		return "", fmt.Errorf("%w: %q is not lower case", ErrInvalidAddress, s)
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrInvalidAddress, s, err)
	}
	if len(raw) != Size {
		return "", fmt.Errorf("%w: %q has %d bytes, want %d", ErrInvalidAddress, s, len(raw), Size)
	}
	return s, nil
}
