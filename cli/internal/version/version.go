// Package version reports build information for the sqlchain binary.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

// Set with -ldflags "-X github.com/satishbabariya/sqlchain/cli/internal/version.Version=..."
var (
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// Info describes one build
type Info struct {
	Version   string
	BuildDate string
	GitCommit string
	GoVersion string
	Platform  string
}

// Get returns the build information. Binaries installed with go install
// take the module version and VCS revision from the embedded build info.
func Get() Info {
	info := Info{
		Version:   Version,
		BuildDate: BuildDate,
		GitCommit: GitCommit,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	if info.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = strings.TrimPrefix(bi.Main.Version, "v")
	}
	for _, s := range bi.Settings {
		switch {
		case s.Key == "vcs.revision" && info.GitCommit == "unknown":
			info.GitCommit = s.Value
		case s.Key == "vcs.time" && info.BuildDate == "unknown":
			info.BuildDate = s.Value
		}
	}
	return info
}

func (i Info) String() string {
	return fmt.Sprintf("sqlchain version %s (%s %s)", i.Version, i.Platform, i.GoVersion)
}

// FullString lists every field on its own line
func (i Info) FullString() string {
	var b strings.Builder
	fmt.Fprintf(&b, "sqlchain version %s\n", i.Version)
	fmt.Fprintf(&b, "  commit:   %s\n", i.GitCommit)
	fmt.Fprintf(&b, "  built:    %s\n", i.BuildDate)
	fmt.Fprintf(&b, "  go:       %s\n", i.GoVersion)
	fmt.Fprintf(&b, "  platform: %s", i.Platform)
	return b.String()
}
