package plugin

import (
	"github.com/azure/notation-azure-artifactsigning/internal/protocol"
)

// Metadata answers get-plugin-metadata.
func (p *Plugin) Metadata(req *protocol.MetadataRequest) (*protocol.MetadataResponse, error) {
	if err := ValidateMetadataRequest(req); err != nil {
		return nil, err
	}
	return &protocol.MetadataResponse{
		Name:                      Name,
		Description:               Description,
		Version:                   Version(),
		URL:                       URL,
		SupportedContractVersions: SupportedContractVersions,
		Capabilities:              Capabilities,
	}, nil
}
