package drand

import (
	"encoding/hex"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/beaconoracle/internal/testutils"
)

const testingMinRound = 72785

func TestVerifyAndDerive(t *testing.T) {
	verifier := NewMainnetVerifier(testingMinRound)

	for _, round := range []uint64{72785, 72786, 72787, 2183668, 2183669, 2183670, 2183671} {
		vector := testutils.DrandMainnetRound(round)
		randomness, err := verifier.VerifyAndDerive(round, vector.PreviousSignatureBytes(), vector.SignatureBytes())
		require.NoError(t, err, "round %d", round)
		assert.Equal(t, vector.Randomness, hex.EncodeToString(randomness))
	}
}

func TestVerifyAndDeriveFailures(t *testing.T) {
	valid := testutils.DrandMainnetRound(72785)

	tests := []struct {
		name        string
		verifier    *Verifier
		round       uint64
		previousSig []byte
		signature   []byte
		expectedErr error
	}{
		{
			name:        "round_below_floor",
			verifier:    NewMainnetVerifier(testingMinRound),
			round:       9,
			previousSig: testutils.DrandMainnetRound(9).PreviousSignatureBytes(),
			signature:   testutils.DrandMainnetRound(9).SignatureBytes(),
		},
		{
			name:        "broken_signature",
			verifier:    NewMainnetVerifier(testingMinRound),
			round:       72785,
			previousSig: valid.PreviousSignatureBytes(),
			signature:   mustDecodeHex(t, "3cc6f6cdf59e95526d5a5d82aaa84fa6f181e4"),
			expectedErr: ErrInvalidSignature,
		},
		{
			name:        "wrong_round",
			verifier:    NewMainnetVerifier(testingMinRound),
			round:       79999,
			previousSig: valid.PreviousSignatureBytes(),
			signature:   valid.SignatureBytes(),
			expectedErr: ErrInvalidSignature,
		},
		{
			name:     "wrong_previous_signature",
			verifier: NewMainnetVerifier(testingMinRound),
			round:    72785,
			previousSig: mustDecodeHex(t, "cccccccccccccccc59e8dae14900aaefe517cb55c840f6e69bc8e4f66c8d18e8"+
				"a609685d9917efbfb0c37f058c2de88f13d297c7e19e0ab24813079efe57a182554ff054c7638153f9b26a60e7111f71"+
				"a0ff63d9571704905d3ca6df0b031747"),
			signature:   valid.SignatureBytes(),
			expectedErr: ErrInvalidSignature,
		},
		{
			name:        "unparsable_pubkey",
			verifier:    NewVerifier("00ff", testingMinRound),
			round:       72785,
			previousSig: valid.PreviousSignatureBytes(),
			signature:   valid.SignatureBytes(),
			expectedErr: ErrInvalidPubkey,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			randomness, err := tc.verifier.VerifyAndDerive(tc.round, tc.previousSig, tc.signature)
			require.Error(t, err)
			assert.Nil(t, randomness)
			if tc.expectedErr != nil {
				assert.ErrorIs(t, err, tc.expectedErr)
				return
			}
			var tooLow *RoundTooLowError
			require.True(t, errors.As(err, &tooLow))
			assert.Equal(t, uint64(9), tooLow.Round)
			assert.Equal(t, uint64(testingMinRound), tooLow.MinRound)
		})
	}
}

func TestVerifyZeroFloorAcceptsEarlyRound(t *testing.T) {
	vector := testutils.DrandMainnetRound(9)
	randomness, err := NewMainnetVerifier(0).VerifyAndDerive(9, vector.PreviousSignatureBytes(), vector.SignatureBytes())
	require.NoError(t, err)
	assert.Equal(t, vector.Randomness, hex.EncodeToString(randomness))
}

func TestDeriveRandomness(t *testing.T) {
	vector := testutils.DrandMainnetRound(72785)
	assert.Equal(t,
		"8b676484b5fb1f37f9ec5c413d7d29883504e5b669f604a1ce68b3388e9ae3d9",
		hex.EncodeToString(DeriveRandomness(vector.SignatureBytes())))
}

func mustDecodeHex(t *testing.T, s string) []byte {
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}
