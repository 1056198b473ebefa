// Package credentials resolves the Azure identity used to authenticate against
// the Artifact Signing service, honouring the credential sources a user
// excluded through the plugin configuration.
package credentials

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"

	"github.com/azure/notation-azure-artifactsigning/internal/protocol"
)

// Credential source names accepted in excludeCredentials.
const (
	Environment        = "EnvironmentCredential"
	ManagedIdentity    = "ManagedIdentityCredential"
	SharedTokenCache   = "SharedTokenCacheCredential"
	VisualStudio       = "VisualStudioCredential"
	AzureCLI           = "AzureCliCredential"
	AzurePowerShell    = "AzurePowerShellCredential"
	InteractiveBrowser = "InteractiveBrowserCredential"
	WorkloadIdentity   = "WorkloadIdentityCredential"
	AzureDeveloperCLI  = "AzureDeveloperCliCredential"
)

// SupportedTypes lists every name accepted in excludeCredentials. SharedTokenCache,
// VisualStudio and AzurePowerShell have no Go implementation; excluding them is
// accepted and changes nothing.
var SupportedTypes = []string{
	Environment,
	ManagedIdentity,
	SharedTokenCache,
	VisualStudio,
	AzureCLI,
	AzurePowerShell,
	InteractiveBrowser,
	WorkloadIdentity,
	AzureDeveloperCLI,
}

// ErrNoCredential is returned when every credential source was excluded or
// none could be constructed.
var ErrNoCredential = errors.New("no credential source is available")

// Exclusions is the set of excluded credential source names, keyed by their
// canonical spelling.
type Exclusions map[string]bool

// Has reports whether the source called name is excluded.
func (e Exclusions) Has(name string) bool {
	return e[name]
}

// ParseExclusions parses a comma separated list of credential source names.
// Names are trimmed and matched case-insensitively. An unknown name fails with a
// validation error naming it.
func ParseExclusions(list string) (Exclusions, error) {
	if strings.TrimSpace(list) == "" {
		return nil, nil
	}
	excluded := Exclusions{}
	for _, item := range strings.Split(list, ",") {
		item = strings.TrimSpace(item)
		name, ok := canonicalName(item)
		if !ok {
			return nil, protocol.NewValidationErrorf("The user-supplied ExcludeCredentials type %s is not valid. Valid values are: %s",
				item, strings.Join(SupportedTypes, ", "))
		}
		excluded[name] = true
	}
	return excluded, nil
}

func canonicalName(s string) (string, bool) {
	for _, name := range SupportedTypes {
		if strings.EqualFold(name, s) {
			return name, true
		}
	}
	return "", false
}

type source struct {
	name string
	new  func() (azcore.TokenCredential, error)
}

// sources are tried in this order when the user excluded some of them.
var sources = []source{
	{Environment, func() (azcore.TokenCredential, error) { return azidentity.NewEnvironmentCredential(nil) }},
	{WorkloadIdentity, func() (azcore.TokenCredential, error) { return azidentity.NewWorkloadIdentityCredential(nil) }},
	{ManagedIdentity, func() (azcore.TokenCredential, error) { return azidentity.NewManagedIdentityCredential(nil) }},
	{AzureCLI, func() (azcore.TokenCredential, error) { return azidentity.NewAzureCLICredential(nil) }},
	{AzureDeveloperCLI, func() (azcore.TokenCredential, error) { return azidentity.NewAzureDeveloperCLICredential(nil) }},
	{InteractiveBrowser, func() (azcore.TokenCredential, error) { return azidentity.NewInteractiveBrowserCredential(nil) }},
}

// New returns the credential for a pluginConfig excludeCredentials value. With
// nothing excluded this is the default Azure credential chain.
func New(excludeCredentials string) (azcore.TokenCredential, error) {
	excluded, err := ParseExclusions(excludeCredentials)
	if err != nil {
		return nil, err
	}
	if len(excluded) == 0 {
		cred, err := azidentity.NewDefaultAzureCredential(nil)
		if err != nil {
			return nil, fmt.Errorf("creating default azure credential: %w", err)
		}
		return cred, nil
	}
	return newChain(excluded, sources)
}

// newChain chains every non-excluded source that can be constructed in the
// current environment. Sources that fail to construct, typically because their
// environment variables are not set, are skipped.
func newChain(excluded Exclusions, candidates []source) (azcore.TokenCredential, error) {
	var (
		creds []azcore.TokenCredential
		errs  []error
	)
	for _, s := range candidates {
		if excluded.Has(s.name) {
			continue
		}
		cred, err := s.new()
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
			continue
		}
		creds = append(creds, cred)
	}
	if len(creds) == 0 {
		return nil, errors.Join(append([]error{ErrNoCredential}, errs...)...)
	}
	chain, err := azidentity.NewChainedTokenCredential(creds, nil)
	if err != nil {
		return nil, fmt.Errorf("chaining credentials: %w", err)
	}
	return chain, nil
}
