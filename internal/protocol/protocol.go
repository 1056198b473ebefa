// Package protocol defines the JSON schema of the notation plugin contract:
// command verbs, request and response bodies, and error codes.
package protocol

const (
	// MetadataCommand is the verb for GetPluginMetadata.
	MetadataCommand = "get-plugin-metadata"
	// KeyCommand is the verb for DescribeKey.
	KeyCommand = "describe-key"
	// SignatureCommand is the verb for GenerateSignature.
	SignatureCommand = "generate-signature"

	// ContractVersion1 is the only plugin contract version currently spoken.
	ContractVersion1 = "1.0"

	// CapabilitySignatureGenerator declares that the plugin produces raw signatures
	// and leaves envelope generation to notation.
	CapabilitySignatureGenerator = "SIGNATURE_GENERATOR.RAW"
)
