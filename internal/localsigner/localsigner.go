// Package localsigner signs digests with an RSA key and certificate chain read
// from PEM files. It stands in for the Artifact Signing service during local
// development and end-to-end tests.
package localsigner

import (
	"bytes"
	"context"
	"crypto"
	"crypto/rsa"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/sigstore/sigstore/pkg/cryptoutils"
	"github.com/sigstore/sigstore/pkg/signature"
	"github.com/sigstore/sigstore/pkg/signature/options"

	"github.com/azure/notation-azure-artifactsigning/internal/plugin"
	"github.com/azure/notation-azure-artifactsigning/internal/protocol"
)

var (
	errNotRSA      = errors.New("local signing key is not an RSA key")
	errEmptyChain  = errors.New("local certificate chain is empty")
	errKeyMismatch = errors.New("local signing key does not match the leaf certificate")
	errNotPSS      = errors.New("local signer only produces RSASSA-PSS signatures")
)

const errNilPluginConfig = "pluginConfig from request is null"

// Signer signs with a key held in memory.
type Signer struct {
	sv    *signature.RSAPSSSignerVerifier
	chain []*x509.Certificate
}

var _ plugin.SignContext = (*Signer)(nil)

// Load reads a PEM private key from keyFile and a PEM certificate chain, leaf
// first, from chainFile.
func Load(keyFile, chainFile string) (*Signer, error) {
	keyPEM, err := os.ReadFile(keyFile)
	if err != nil {
		return nil, fmt.Errorf("reading signing key: %w", err)
	}
	key, err := cryptoutils.UnmarshalPEMToPrivateKey(keyPEM, cryptoutils.SkipPassword)
	if err != nil {
		return nil, fmt.Errorf("parsing signing key: %w", err)
	}
	priv, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, errNotRSA
	}

	chainPEM, err := os.ReadFile(chainFile)
	if err != nil {
		return nil, fmt.Errorf("reading certificate chain: %w", err)
	}
	chain, err := cryptoutils.UnmarshalCertificatesFromPEM(chainPEM)
	if err != nil {
		return nil, fmt.Errorf("parsing certificate chain: %w", err)
	}
	return New(priv, chain)
}

// New returns a Signer for priv. chain must start with the certificate of priv.
func New(priv *rsa.PrivateKey, chain []*x509.Certificate) (*Signer, error) {
	if len(chain) == 0 {
		return nil, errEmptyChain
	}
	if !priv.PublicKey.Equal(chain[0].PublicKey) {
		return nil, errKeyMismatch
	}
	sv, err := signature.LoadRSAPSSSignerVerifier(priv, crypto.SHA384, &rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthEqualsHash})
	if err != nil {
		return nil, fmt.Errorf("loading signer: %w", err)
	}
	return &Signer{sv: sv, chain: chain}, nil
}

// FileFactory returns a plugin.SignContextFactory that reads keyFile and
// chainFile on its first call, so commands that never sign touch neither file.
func FileFactory(keyFile, chainFile string) plugin.SignContextFactory {
	load := sync.OnceValues(func() (*Signer, error) {
		return Load(keyFile, chainFile)
	})
	return func(_ context.Context, cfg *protocol.PluginConfig) (plugin.SignContext, error) {
		if cfg == nil {
			return nil, protocol.NewValidationError(errNilPluginConfig)
		}
		s, err := load()
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

// SignDigest signs digest with PSS padding. opts must be *rsa.PSSOptions.
func (s *Signer) SignDigest(_ context.Context, digest []byte, opts crypto.SignerOpts) ([]byte, error) {
	pss, ok := opts.(*rsa.PSSOptions)
	if !ok {
		return nil, errNotPSS
	}
	return s.sv.SignMessage(nil, options.WithDigest(digest), options.WithCryptoSignerOpts(pss))
}

// Verify checks sig over digest against the leaf certificate's key.
func (s *Signer) Verify(sig, digest []byte) error {
	return s.sv.VerifySignature(bytes.NewReader(sig), nil, options.WithDigest(digest))
}

// CertificateChain returns a copy of the chain, leaf first.
func (s *Signer) CertificateChain(context.Context) ([]*x509.Certificate, error) {
	return append([]*x509.Certificate(nil), s.chain...), nil
}
