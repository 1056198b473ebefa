package artifactsigning

import (
	"context"
	"crypto"
	"crypto/rsa"
	"crypto/x509"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"

	"github.com/azure/notation-azure-artifactsigning/internal/credentials"
	"github.com/azure/notation-azure-artifactsigning/internal/plugin"
	"github.com/azure/notation-azure-artifactsigning/internal/protocol"
)

const errNilPluginConfig = "pluginConfig from request is null"

var errNotPSS = errors.New("artifact signing only produces RSASSA-PSS signatures")

// Options configures the SignContexts built by Factory.
type Options struct {
	ClientOptions azcore.ClientOptions
	ClientVersion string
	PollFrequency time.Duration
	// SignTimeout bounds a single sign operation, polling included. Zero means
	// no bound beyond the caller's context.
	SignTimeout time.Duration

	// newCredential is replaced in tests.
	newCredential func(excludeCredentials string) (azcore.TokenCredential, error)
}

// SignContext signs digests with the certificate profile named in a
// pluginConfig.
type SignContext struct {
	client  *Client
	timeout time.Duration

	mu    sync.Mutex
	chain []*x509.Certificate
}

var _ plugin.SignContext = (*SignContext)(nil)

// Factory returns a plugin.SignContextFactory producing SignContexts configured
// with opts.
func Factory(opts Options) plugin.SignContextFactory {
	return func(_ context.Context, cfg *protocol.PluginConfig) (plugin.SignContext, error) {
		sc, err := NewSignContext(cfg, opts)
		if err != nil {
			return nil, err
		}
		return sc, nil
	}
}

// NewSignContext resolves the credential and the service client for cfg. No
// request is sent until a digest is signed.
func NewSignContext(cfg *protocol.PluginConfig, opts Options) (*SignContext, error) {
	if cfg == nil {
		return nil, protocol.NewValidationError(errNilPluginConfig)
	}
	newCredential := opts.newCredential
	if newCredential == nil {
		newCredential = credentials.New
	}
	cred, err := newCredential(cfg.ExcludeCredentials)
	if err != nil {
		return nil, err
	}
	client, err := NewClient(cfg.BaseURL, cfg.AccountName, cfg.CertProfile, cred, &ClientOptions{
		ClientOptions: opts.ClientOptions,
		ClientVersion: opts.ClientVersion,
		PollFrequency: opts.PollFrequency,
	})
	if err != nil {
		return nil, fmt.Errorf("creating artifact signing client: %w", err)
	}
	return &SignContext{client: client, timeout: opts.SignTimeout}, nil
}

// SignDigest signs digest with the certificate profile's key. opts must be
// *rsa.PSSOptions.
func (s *SignContext) SignDigest(ctx context.Context, digest []byte, opts crypto.SignerOpts) ([]byte, error) {
	pss, ok := opts.(*rsa.PSSOptions)
	if !ok {
		return nil, errNotPSS
	}
	alg, err := algorithmFor(pss.HashFunc())
	if err != nil {
		return nil, err
	}
	if len(digest) != pss.HashFunc().Size() {
		return nil, fmt.Errorf("digest is %d bytes, %s needs %d", len(digest), alg, pss.HashFunc().Size())
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	status, err := s.client.Sign(ctx, alg, digest)
	if err != nil {
		return nil, fmt.Errorf("signing digest: %w", err)
	}

	if len(status.SigningCertificate) > 0 {
		chain, err := ParseCertificates(status.SigningCertificate)
		if err != nil {
			return nil, fmt.Errorf("signing certificate of operation %s: %w", status.OperationID, err)
		}
		s.mu.Lock()
		s.chain = chain
		s.mu.Unlock()
	}
	return status.Signature, nil
}

// CertificateChain returns the chain of the certificate that signed the last
// digest. When the service returned only the leaf, the issuing certificates of
// the profile chain are appended to it. Without a prior signature the profile
// chain is returned.
func (s *SignContext) CertificateChain(ctx context.Context) ([]*x509.Certificate, error) {
	s.mu.Lock()
	cached := s.chain
	s.mu.Unlock()

	if len(cached) > 1 {
		return cached, nil
	}
	profile, err := s.client.CertificateChain(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching certificate chain: %w", err)
	}
	if len(cached) == 0 {
		return profile, nil
	}
	return completeChain(cached[0], profile), nil
}

// completeChain returns leaf followed by the certificates of profile that are
// not leaf itself, reordered leaf to root.
func completeChain(leaf *x509.Certificate, profile []*x509.Certificate) []*x509.Certificate {
	chain := []*x509.Certificate{leaf}
	for _, c := range profile {
		if !c.Equal(leaf) && c.IsCA {
			chain = append(chain, c)
		}
	}
	return OrderChain(chain)
}

func algorithmFor(h crypto.Hash) (string, error) {
	switch h {
	case crypto.SHA256:
		return AlgorithmPS256, nil
	case crypto.SHA384:
		return AlgorithmPS384, nil
	case crypto.SHA512:
		return AlgorithmPS512, nil
	default:
		return "", fmt.Errorf("unsupported hash function %v", h)
	}
}
