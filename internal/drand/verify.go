package drand

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"

	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
)

// DST is the hash-to-curve domain separation tag of the chained mainnet scheme.
var DST = []byte("BLS_SIG_BLS12381G2_XMD:SHA-256_SSWU_RO_NUL_")

const (
	PubkeySize    = bls12381.SizeOfG1AffineCompressed
	SignatureSize = bls12381.SizeOfG2AffineCompressed
)

var (
	ErrInvalidPubkey    = errors.New("invalid public key")
	ErrInvalidSignature = errors.New("invalid signature")
)

// RoundTooLowError is returned for rounds below the configured floor.
type RoundTooLowError struct {
	Round    uint64
	MinRound uint64
}

func (e *RoundTooLowError) Error() string {
	return fmt.Sprintf("round too low: %d < %d", e.Round, e.MinRound)
}

// Verifier checks round signatures against a fixed group public key.
type Verifier struct {
	pubkeyHex string
	minRound  uint64
}

func NewVerifier(pubkeyHex string, minRound uint64) *Verifier {
	return &Verifier{pubkeyHex: pubkeyHex, minRound: minRound}
}

// NewMainnetVerifier returns a verifier for the drand mainnet chain.
func NewMainnetVerifier(minRound uint64) *Verifier {
	return NewVerifier(MainnetPubkey, minRound)
}

// VerifyAndDerive checks the signature of a round and returns the randomness
// derived from it.
func (v *Verifier) VerifyAndDerive(round uint64, previousSignature, signature []byte) ([]byte, error) {
	if round < v.minRound {
		return nil, &RoundTooLowError{Round: round, MinRound: v.minRound}
	}

	pk, err := parsePubkey(v.pubkeyHex)
	if err != nil {
		return nil, err
	}

	ok, err := Verify(pk, round, previousSignature, signature)
	if err != nil || !ok {
		return nil, ErrInvalidSignature
	}
	return DeriveRandomness(signature), nil
}

func parsePubkey(pubkeyHex string) (*bls12381.G1Affine, error) {
	raw, err := hex.DecodeString(pubkeyHex)
	if err != nil || len(raw) != PubkeySize {
		return nil, ErrInvalidPubkey
	}
	var pk bls12381.G1Affine
	if _, err := pk.SetBytes(raw); err != nil {
		return nil, ErrInvalidPubkey
	}
	return &pk, nil
}

// Message returns the signed message of a chained round:
// sha256(previous_signature || round as big endian u64).
func Message(round uint64, previousSignature []byte) []byte {
	h := sha256.New()
	h.Write(previousSignature)
	var r [8]byte
	binary.BigEndian.PutUint64(r[:], round)
	h.Write(r[:])
	return h.Sum(nil)
}

// Verify checks e(g1, signature) == e(pk, H(message)). Malformed signatures
// are reported as an error.
func Verify(pk *bls12381.G1Affine, round uint64, previousSignature, signature []byte) (bool, error) {
	if len(signature) != SignatureSize {
		return false, fmt.Errorf("signature must be %d bytes, got %d", SignatureSize, len(signature))
	}
	var sig bls12381.G2Affine
	if _, err := sig.SetBytes(signature); err != nil {
		return false, fmt.Errorf("decode signature: %w", err)
	}

	hm, err := bls12381.HashToG2(Message(round, previousSignature), DST)
	if err != nil {
		return false, fmt.Errorf("hash to curve: %w", err)
	}

	_, _, g1, _ := bls12381.Generators()
	var negG1 bls12381.G1Affine
	negG1.Neg(&g1)

	return bls12381.PairingCheck(
		[]bls12381.G1Affine{*pk, negG1},
		[]bls12381.G2Affine{hm, sig},
	)
}

// DeriveRandomness hashes a round signature into 32 bytes of randomness.
func DeriveRandomness(signature []byte) []byte {
	sum := sha256.Sum256(signature)
	return sum[:]
}
