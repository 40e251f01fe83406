// Package cert issues and checks the self-signed ed25519 certificates that
// identify oracle peers. A peer is its public key: the certificate carries
// the key both as its subject key and encoded in its only DNS name.
package cert

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base32"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"
)

// DNSNamePrefix is prepended to the encoded public key in the DNS name.
const DNSNamePrefix = "o"

// dnsNameLength is the prefix plus 52 base32 characters for 32 bytes.
const dnsNameLength = 53

// DefaultValidity is the lifetime of a generated certificate.
const DefaultValidity = 365 * 24 * time.Hour

var base32Encoding = base32.NewEncoding("abcdefghijklmnopqrstuvwxyz234567").WithPadding(base32.NoPadding)

var ErrNotEd25519 = errors.New("certificate key is not ed25519")

// EncodePubKeyToDNS encodes a public key into a DNS name.
func EncodePubKeyToDNS(pub ed25519.PublicKey) string {
	return DNSNamePrefix + base32Encoding.EncodeToString(pub)
}

// Generate creates a self-signed certificate for priv valid for validity,
// usable for both server and client authentication.
func Generate(priv ed25519.PrivateKey, validity time.Duration) (*tls.Certificate, error) {
	pub, ok := priv.Public().(ed25519.PublicKey)
	if !ok {
		return nil, ErrNotEd25519
	}
	dnsName := EncodePubKeyToDNS(pub)

	serialNumber, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, fmt.Errorf("failed to generate serial number: %w", err)
	}

	now := time.Now()
	template := &x509.Certificate{
		SerialNumber: serialNumber,
		Subject:      pkix.Name{CommonName: dnsName},
		DNSNames:     []string{dnsName},
		// tolerate small clock skew between peers
		NotBefore: now.Add(-time.Minute),
		NotAfter:  now.Add(validity),
		KeyUsage:  x509.KeyUsageDigitalSignature,
		ExtKeyUsage: []x509.ExtKeyUsage{
			x509.ExtKeyUsageServerAuth,
			x509.ExtKeyUsageClientAuth,
		},
		SignatureAlgorithm:    x509.PureEd25519,
		BasicConstraintsValid: true,
	}

	certDER, err := x509.CreateCertificate(rand.Reader, template, template, pub, priv)
	if err != nil {
		return nil, fmt.Errorf("failed to create certificate: %w", err)
	}
	leaf, err := x509.ParseCertificate(certDER)
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate: %w", err)
	}

	return &tls.Certificate{
		Certificate: [][]byte{certDER},
		PrivateKey:  priv,
		Leaf:        leaf,
	}, nil
}

// Validator checks peer certificates. It implements transport.CertValidator.
type Validator struct {
	now func() time.Time
}

func NewValidator() *Validator {
	return &Validator{now: time.Now}
}

// ValidateCertificate requires an ed25519 signature, a single DNS name
// matching the public key and a certificate within its validity period.
func (v *Validator) ValidateCertificate(c *x509.Certificate) error {
	if c.SignatureAlgorithm != x509.PureEd25519 {
		return fmt.Errorf("invalid signature algorithm %s", c.SignatureAlgorithm)
	}
	pub, err := v.ExtractPublicKey(c)
	if err != nil {
		return err
	}

	if len(c.DNSNames) != 1 {
		return fmt.Errorf("certificate must have exactly one DNS name, has %d", len(c.DNSNames))
	}
	dnsName := c.DNSNames[0]
	if len(dnsName) != dnsNameLength || !strings.HasPrefix(dnsName, DNSNamePrefix) {
		return fmt.Errorf("invalid DNS name %q", dnsName)
	}
	if dnsName != EncodePubKeyToDNS(pub) {
		return fmt.Errorf("DNS name does not match public key")
	}

	now := v.now()
	if now.Before(c.NotBefore) {
		return fmt.Errorf("certificate is not yet valid")
	}
	if now.After(c.NotAfter) {
		return fmt.Errorf("certificate has expired")
	}
	return nil
}

func (v *Validator) ExtractPublicKey(c *x509.Certificate) (ed25519.PublicKey, error) {
	pub, ok := c.PublicKey.(ed25519.PublicKey)
	if !ok {
		return nil, ErrNotEd25519
	}
	return pub, nil
}
