// Package plugin implements the notation plugin commands for the Artifact
// Signing service: request validation, request decoding, response building and
// the generate-signature orchestration.
package plugin

import (
	"context"
	"crypto"
	"crypto/x509"

	"go.uber.org/zap"

	"github.com/azure/notation-azure-artifactsigning/internal/protocol"
)

const (
	Name        = "azure-artifactsigning"
	Description = "Sign OCI artifacts using the Artifact Signing Service"
	URL         = "https://aka.ms/ArtifactSigning"

	// Artifact Signing only issues RSA-3072 keys, and notation only accepts PSS
	// padding for RSA, so exactly one combination is supported.
	SupportedKeySpec       = "RSA-3072"
	SupportedHashAlgorithm = "SHA-384"
	SigningAlgorithm       = "RSASSA-PSS-SHA-384"
)

var (
	SupportedContractVersions = []string{protocol.ContractVersion1}
	Capabilities              = []string{protocol.CapabilitySignatureGenerator}
)

// SignContext signs digests on behalf of a resolved identity and supplies the
// certificate chain of that identity.
type SignContext interface {
	// SignDigest signs an already computed digest. opts selects the padding.
	SignDigest(ctx context.Context, digest []byte, opts crypto.SignerOpts) ([]byte, error)
	// CertificateChain returns the signing certificate chain, leaf first.
	CertificateChain(ctx context.Context) ([]*x509.Certificate, error)
}

// SignContextFactory binds a SignContext to the plugin configuration of a request.
type SignContextFactory func(ctx context.Context, cfg *protocol.PluginConfig) (SignContext, error)

// Plugin serves the notation plugin commands.
type Plugin struct {
	newSignContext SignContextFactory
	logger         *zap.Logger
}

// Option configures a Plugin.
type Option func(*Plugin)

// WithLogger sets the logger used for diagnostics. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Plugin) {
		p.logger = logger
	}
}

// New returns a Plugin that resolves signing identities with newSignContext.
func New(newSignContext SignContextFactory, opts ...Option) *Plugin {
	p := &Plugin{
		newSignContext: newSignContext,
		logger:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}
