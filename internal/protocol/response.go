package protocol

// MetadataResponse is returned by get-plugin-metadata.
type MetadataResponse struct {
	Name                      string   `json:"name"`
	Description               string   `json:"description"`
	Version                   string   `json:"version"`
	URL                       string   `json:"url"`
	SupportedContractVersions []string `json:"supportedContractVersions"`
	Capabilities              []string `json:"capabilities"`
}

// KeyResponse is returned by describe-key.
type KeyResponse struct {
	KeyID   string `json:"keyId"`
	KeySpec string `json:"keySpec"`
}

// SignatureResponse is returned by generate-signature.
type SignatureResponse struct {
	KeyID string `json:"keyId"`
	// Signature is the base64 encoding of the raw signature bytes.
	Signature        string `json:"signature"`
	SigningAlgorithm string `json:"signingAlgorithm"`
	// CertificateChain holds base64 DER certificates ordered leaf to root.
	CertificateChain []string `json:"certificateChain"`
}

// ErrorResponse is written to stderr when a call fails.
type ErrorResponse struct {
	ErrorCode     ErrorCode         `json:"errorCode"`
	ErrorMessage  string            `json:"errorMessage"`
	ErrorMetadata map[string]string `json:"errorMetadata,omitempty"`
}
