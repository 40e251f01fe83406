package cert

import (
	"crypto/ed25519"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCertificateSuccess(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err, "Failed to generate Ed25519 key pair")
	c, err := Generate(priv, time.Hour)
	require.NoError(t, err, "Failed to generate certificate")
	assert.NoError(t, NewValidator().ValidateCertificate(c.Leaf))
}

func TestCertificateDNSNameFormat(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	c, err := Generate(priv, time.Hour)
	require.NoError(t, err)

	require.Len(t, c.Leaf.DNSNames, 1)
	name := c.Leaf.DNSNames[0]
	assert.Len(t, name, 53)
	assert.Equal(t, EncodePubKeyToDNS(pub), name)
	assert.Equal(t, "o", name[:1])

	extracted, err := NewValidator().ExtractPublicKey(c.Leaf)
	require.NoError(t, err)
	assert.Equal(t, pub, extracted)
}

func TestValidateCertificateFailures(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	t.Run("mismatched public key", func(t *testing.T) {
		c, err := Generate(priv, time.Hour)
		require.NoError(t, err)
		wrongPub, _, err := ed25519.GenerateKey(nil)
		require.NoError(t, err)
		c.Leaf.PublicKey = wrongPub
		assert.Error(t, NewValidator().ValidateCertificate(c.Leaf))
	})
	t.Run("extra DNS name", func(t *testing.T) {
		c, err := Generate(priv, time.Hour)
		require.NoError(t, err)
		c.Leaf.DNSNames = append(c.Leaf.DNSNames, EncodePubKeyToDNS(pub))
		assert.Error(t, NewValidator().ValidateCertificate(c.Leaf))
	})
	t.Run("expired", func(t *testing.T) {
		c, err := Generate(priv, time.Hour)
		require.NoError(t, err)
		v := NewValidator()
		v.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		assert.ErrorContains(t, v.ValidateCertificate(c.Leaf), "expired")
	})
	t.Run("not yet valid", func(t *testing.T) {
		c, err := Generate(priv, time.Hour)
		require.NoError(t, err)
		v := NewValidator()
		v.now = func() time.Time { return time.Now().Add(-time.Hour) }
		assert.ErrorContains(t, v.ValidateCertificate(c.Leaf), "not yet valid")
	})
	t.Run("wrong key type", func(t *testing.T) {
		c, err := Generate(priv, time.Hour)
		require.NoError(t, err)
		c.Leaf.PublicKey = "not a key"
		_, err = NewValidator().ExtractPublicKey(c.Leaf)
		assert.ErrorIs(t, err, ErrNotEd25519)
	})
}
