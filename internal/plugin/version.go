package plugin

import (
	"fmt"
	"runtime/debug"

	"github.com/Masterminds/semver/v3"
)

const versionDelimiter = "::"

// buildVersion is injected at link time:
//
//	-ldflags "-X github.com/azure/notation-azure-artifactsigning/internal/plugin.buildVersion=1.2.3"
var buildVersion = ""

var readBuildInfo = debug.ReadBuildInfo

// Version returns the plugin version as major.minor.build.
func Version() string {
	return formatVersion(rawVersion())
}

// ClientVersion identifies this plugin build to the signing service, as
// "<name>::<major>.<minor>.<build>".
func ClientVersion() string {
	return Name + versionDelimiter + Version()
}

func rawVersion() string {
	if buildVersion != "" {
		return buildVersion
	}
	if info, ok := readBuildInfo(); ok {
		return info.Main.Version
	}
	return ""
}

func formatVersion(raw string) string {
	v, err := semver.NewVersion(raw)
	if err != nil {
		return "0.0.0"
	}
	return fmt.Sprintf("%d.%d.%d", v.Major(), v.Minor(), v.Patch())
}
