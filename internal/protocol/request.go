package protocol

// PluginConfig holds the user supplied `--plugin-config` values forwarded by notation.
type PluginConfig struct {
	AccountName string `json:"accountName"`
	CertProfile string `json:"certProfile"`
	BaseURL     string `json:"baseUrl"`
	// ExcludeCredentials is a comma separated list of credential source names
	// that must not be used when resolving the signing identity.
	ExcludeCredentials string `json:"excludeCredentials,omitempty"`
}

// MetadataRequest is the body of a get-plugin-metadata call. It carries no required fields.
//
// See https://github.com/notaryproject/specifications/blob/main/specs/plugin-extensibility.md#plugin-metadata
type MetadataRequest struct {
	PluginConfig *PluginConfig `json:"pluginConfig,omitempty"`
}

// KeyRequest is the body of a describe-key call.
//
// See https://github.com/notaryproject/specifications/blob/main/specs/plugin-extensibility.md#describe-key
type KeyRequest struct {
	ContractVersion string        `json:"contractVersion"`
	KeyID           string        `json:"keyId"`
	PluginConfig    *PluginConfig `json:"pluginConfig,omitempty"`
}

// SignatureRequest is the body of a generate-signature call.
//
// See https://github.com/notaryproject/specifications/blob/main/specs/plugin-extensibility.md#generate-signature
type SignatureRequest struct {
	ContractVersion string `json:"contractVersion"`
	KeyID           string `json:"keyId"`
	KeySpec         string `json:"keySpec"`
	HashAlgorithm   string `json:"hashAlgorithm"`
	// Payload is the base64 encoding of the bytes to sign.
	Payload      string        `json:"payload"`
	PluginConfig *PluginConfig `json:"pluginConfig,omitempty"`
}
