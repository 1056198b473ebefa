// Package testutil builds throwaway keys and certificate chains for tests.
package testutil

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Chain is a leaf, intermediate and root certificate, each with its key.
type Chain struct {
	Leaf, Intermediate, Root          *x509.Certificate
	LeafKey, IntermediateKey, RootKey *rsa.PrivateKey
}

// Certificates returns the chain leaf first.
func (c *Chain) Certificates() []*x509.Certificate {
	return []*x509.Certificate{c.Leaf, c.Intermediate, c.Root}
}

// DER concatenates the DER encoding of certs.
func DER(certs ...*x509.Certificate) []byte {
	var out []byte
	for _, c := range certs {
		out = append(out, c.Raw...)
	}
	return out
}

// PEM encodes certs as consecutive CERTIFICATE blocks.
func PEM(certs ...*x509.Certificate) []byte {
	var out []byte
	for _, c := range certs {
		out = append(out, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: c.Raw})...)
	}
	return out
}

// KeyPEM encodes key as a PKCS#1 RSA PRIVATE KEY block.
func KeyPEM(key *rsa.PrivateKey) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
}

var chainSeq atomic.Int64

// NewChain generates a fresh three certificate chain. Keys are 2048 bits to keep
// tests fast.
func NewChain(t testing.TB) *Chain {
	t.Helper()

	// distinct names keep chains from linking into each other
	seq := chainSeq.Add(1)

	var c Chain
	c.RootKey = newKey(t)
	c.Root = issue(t, &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: fmt.Sprintf("Test Root CA %d", seq)},
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign,
	}, nil, &c.RootKey.PublicKey, c.RootKey)

	c.IntermediateKey = newKey(t)
	c.Intermediate = issue(t, &x509.Certificate{
		SerialNumber:          big.NewInt(2),
		Subject:               pkix.Name{CommonName: fmt.Sprintf("Test Intermediate CA %d", seq)},
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign,
	}, c.Root, &c.IntermediateKey.PublicKey, c.RootKey)

	c.LeafKey = newKey(t)
	c.Leaf = issue(t, &x509.Certificate{
		SerialNumber: big.NewInt(3),
		Subject:      pkix.Name{CommonName: fmt.Sprintf("Test Signer %d", seq), Organization: []string{"Contoso"}},
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageCodeSigning},
	}, c.Intermediate, &c.LeafKey.PublicKey, c.IntermediateKey)

	return &c
}

func newKey(t testing.TB) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

func issue(t testing.TB, tmpl, parent *x509.Certificate, pub *rsa.PublicKey, signer *rsa.PrivateKey) *x509.Certificate {
	t.Helper()
	tmpl.NotBefore = time.Now().Add(-time.Hour)
	tmpl.NotAfter = time.Now().Add(24 * time.Hour)
	if parent == nil {
		parent = tmpl
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, parent, pub, signer)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	return cert
}
