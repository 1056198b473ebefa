package plugin

import (
	"github.com/azure/notation-azure-artifactsigning/internal/protocol"
)

// DescribeKey answers describe-key. Every certificate profile is backed by an
// RSA-3072 key, so the key spec does not depend on the key id.
func (p *Plugin) DescribeKey(req *protocol.KeyRequest) (*protocol.KeyResponse, error) {
	if err := ValidateKeyRequest(req); err != nil {
		return nil, err
	}
	return &protocol.KeyResponse{
		KeyID:   req.KeyID,
		KeySpec: SupportedKeySpec,
	}, nil
}
