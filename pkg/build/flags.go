// SPDX-License-Identifier: MIT
//
// Package build exposes metadata embedded into the binary at compile time
// with linker flags:
//
//	go build -ldflags "-X hearsim/pkg/build.buildVersion=0.3.0 \
//	  -X hearsim/pkg/build.buildCommit=$(git rev-parse --short HEAD) \
//	  -X hearsim/pkg/build.buildTime=$(date -u +%FT%TZ)"
//
// Flags that are not set fall back to development values.
package build

import (
	"fmt"
	"strings"

	applog "hearsim/internal/log"
)

const (
	DefaultName        = "hearsim"
	DefaultVersion     = "dev"
	DefaultDescription = "Simulate age-related high-frequency hearing loss"
	unknown            = "unknown"
)

// Info is the build metadata.
type Info struct {
	Name        string
	Description string
	Time        string
	Commit      string
	Version     string
}

// String formats the version line shown by --version.
func (i Info) String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", i.Version, i.Commit, i.Time)
}

// Package-level variables for build information, set by -ldflags.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildInfo    = &Info{
		Name:        DefaultName,
		Description: DefaultDescription,
		Time:        unknown,
		Commit:      unknown,
		Version:     DefaultVersion,
	}
)

// Initialize copies the ldflags variables into the build info. Each missing
// flag keeps its development default and is reported at debug level. Call it
// once, early in startup.
func Initialize() {
	var missing []string
	set := func(dst *string, v, flag string) {
		if v == "" {
			missing = append(missing, flag)
			return
		}
		*dst = v
	}

	set(&buildInfo.Name, buildName, "buildName")
	set(&buildInfo.Time, buildTime, "buildTime")
	set(&buildInfo.Commit, buildCommit, "buildCommit")
	set(&buildInfo.Version, buildVersion, "buildVersion")

	if len(missing) > 0 {
		applog.Debugf("Build: ldflags not set (%s), using development values", strings.Join(missing, ", "))
	}
}

// GetBuildInfo returns the current build information.
func GetBuildInfo() *Info {
	return buildInfo
}
