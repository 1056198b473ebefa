package plugin

import (
	"context"
	"crypto"
	"crypto/rsa"
	_ "crypto/sha512" // registers crypto.SHA384
	"encoding/base64"
	"strings"

	"go.uber.org/zap"

	"github.com/azure/notation-azure-artifactsigning/internal/protocol"
)

const unsupportedHashAlgo = "Invalid or unsupported hash algo from notation: "

// GenerateSignature answers generate-signature: it hashes the payload, has the
// signing service sign the digest with PSS padding and returns the signature
// together with the signing certificate chain.
//
// Failures reported by the SignContext are returned as they are.
func (p *Plugin) GenerateSignature(ctx context.Context, req *protocol.SignatureRequest) (*protocol.SignatureResponse, error) {
	if err := ValidateSignatureRequest(req); err != nil {
		return nil, err
	}

	sc, err := p.newSignContext(ctx, req.PluginConfig)
	if err != nil {
		return nil, err
	}

	sig, err := Sign(ctx, req, sc)
	if err != nil {
		return nil, err
	}
	p.logger.Debug("digest signed", zap.String("keyId", req.KeyID))

	chain, err := EncodeCertificateChain(ctx, sc)
	if err != nil {
		return nil, err
	}
	p.logger.Debug("certificate chain retrieved", zap.Int("certificates", len(chain)))

	return &protocol.SignatureResponse{
		KeyID:            req.KeyID,
		Signature:        sig,
		SigningAlgorithm: SigningAlgorithm,
		CertificateChain: chain,
	}, nil
}

// Sign digests the decoded payload of req and signs the digest with sc. The
// returned signature is base64 encoded.
//
// A payload that is not valid base64 fails with the decoder's error.
func Sign(ctx context.Context, req *protocol.SignatureRequest, sc SignContext) (string, error) {
	hash, err := hashFor(req.HashAlgorithm)
	if err != nil {
		return "", err
	}

	payload, err := base64.StdEncoding.DecodeString(req.Payload)
	if err != nil {
		return "", err
	}
	digest := computeDigest(payload, hash)

	// notation only accepts PSS padding for RSA keys
	sig, err := sc.SignDigest(ctx, digest, &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthEqualsHash,
		Hash:       hash,
	})
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}

// EncodeCertificateChain returns the base64 DER encoding of every certificate in
// the chain of sc, in the order sc returned them.
func EncodeCertificateChain(ctx context.Context, sc SignContext) ([]string, error) {
	certs, err := sc.CertificateChain(ctx)
	if err != nil {
		return nil, err
	}
	chain := make([]string, 0, len(certs))
	for _, cert := range certs {
		chain = append(chain, base64.StdEncoding.EncodeToString(cert.Raw))
	}
	return chain, nil
}

func hashFor(alg string) (crypto.Hash, error) {
	if strings.TrimSpace(alg) == SupportedHashAlgorithm {
		return crypto.SHA384, nil
	}
	return 0, protocol.NewValidationError(unsupportedHashAlgo + alg)
}

func computeDigest(message []byte, hashFunc crypto.Hash) []byte {
	hasher := hashFunc.New()
	hasher.Write(message)
	return hasher.Sum(nil)
}
