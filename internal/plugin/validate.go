package plugin

import (
	"net/url"
	"slices"
	"strings"

	"github.com/azure/notation-azure-artifactsigning/internal/protocol"
)

const (
	errNullRequest        = "Request from notation was null"
	errNullPluginConfig   = "pluginConfig from notation is null or empty"
	errInvalidBaseURL     = "provided baseUrl is not a valid URL"
	malformedFieldFormat  = "Request from notation was malformed: field %s was null or empty"
	missingConfigFormat   = "%s property is missing from pluginConfig, or its value is not provided"
	unsupportedContract   = "Unsupported contract version from notation: %s plugin does not support contract version %s"
	unsupportedKeySpec    = "Request from notation contains invalid or unsupported keySpec: %s. Expected keys are %s"
	unsupportedHashFormat = "Request from notation contains invalid or unsupported hashAlgorithm: %s. Supported algorithms are %s"
)

// ValidateMetadataRequest reports whether req can be answered.
func ValidateMetadataRequest(req *protocol.MetadataRequest) error {
	if req == nil {
		return protocol.NewValidationError(errNullRequest)
	}
	return nil
}

// ValidateKeyRequest returns the first problem found in req, or nil.
func ValidateKeyRequest(req *protocol.KeyRequest) error {
	if req == nil {
		return protocol.NewValidationError(errNullRequest)
	}
	if err := validateContractVersion(req.ContractVersion); err != nil {
		return err
	}
	if err := requireField("keyId", req.KeyID); err != nil {
		return err
	}
	return validatePluginConfig(req.PluginConfig)
}

// ValidateSignatureRequest returns the first problem found in req, or nil.
func ValidateSignatureRequest(req *protocol.SignatureRequest) error {
	if req == nil {
		return protocol.NewValidationError(errNullRequest)
	}
	if err := validateContractVersion(req.ContractVersion); err != nil {
		return err
	}
	if err := requireField("keyId", req.KeyID); err != nil {
		return err
	}
	if err := validateKeySpec(req.KeySpec); err != nil {
		return err
	}
	if err := validateHashAlgorithm(req.HashAlgorithm); err != nil {
		return err
	}
	if err := requireField("payload", req.Payload); err != nil {
		return err
	}
	return validatePluginConfig(req.PluginConfig)
}

func requireField(name, value string) error {
	if value == "" {
		return protocol.NewValidationErrorf(malformedFieldFormat, name)
	}
	return nil
}

func validateContractVersion(v string) error {
	if err := requireField("contractVersion", v); err != nil {
		return err
	}
	if !slices.Contains(SupportedContractVersions, v) {
		return protocol.NewValidationErrorf(unsupportedContract, Name, v)
	}
	return nil
}

func validateKeySpec(keySpec string) error {
	if err := requireField("keySpec", keySpec); err != nil {
		return err
	}
	if keySpec != SupportedKeySpec {
		return protocol.NewValidationErrorf(unsupportedKeySpec, keySpec, SupportedKeySpec)
	}
	return nil
}

func validateHashAlgorithm(alg string) error {
	if err := requireField("hashAlgorithm", alg); err != nil {
		return err
	}
	// only the hash algorithm is compared trimmed, keySpec is compared as sent
	if strings.TrimSpace(alg) != SupportedHashAlgorithm {
		return protocol.NewValidationErrorf(unsupportedHashFormat, alg, SupportedHashAlgorithm)
	}
	return nil
}

// validatePluginConfig only checks that values are present. Whether the account,
// profile and endpoint exist is left to the signing service.
func validatePluginConfig(cfg *protocol.PluginConfig) error {
	if cfg == nil {
		return protocol.NewValidationError(errNullPluginConfig)
	}
	if cfg.AccountName == "" {
		return protocol.NewValidationErrorf(missingConfigFormat, "accountName")
	}
	if cfg.BaseURL == "" {
		return protocol.NewValidationErrorf(missingConfigFormat, "baseUrl")
	}
	if !isAbsoluteURL(cfg.BaseURL) {
		return protocol.NewValidationError(errInvalidBaseURL)
	}
	if cfg.CertProfile == "" {
		return protocol.NewValidationErrorf(missingConfigFormat, "certProfile")
	}
	return nil
}

func isAbsoluteURL(raw string) bool {
	if strings.ContainsAny(raw, " \t\r\n") {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() {
		return false
	}
	return u.Host != "" || u.Opaque != ""
}
