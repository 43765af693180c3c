// Package version reports what build of sevenseg is running. Release builds
// stamp the variables below through the linker:
//
//	go build -ldflags "\
//	  -X github.com/smazurov/sevenseg/internal/version.Version=1.2.0 \
//	  -X github.com/smazurov/sevenseg/internal/version.GitCommit=$(git rev-parse --short HEAD) \
//	  -X github.com/smazurov/sevenseg/internal/version.BuildDate=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
package version

import (
	"fmt"
	"runtime"
	"strings"
)

// Name is the program name used in user agents and service status.
const Name = "sevenseg"

// Stamped at link time; unstamped builds report "dev".
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	BuildID   = "unknown"
)

// Info is the build metadata served by GET /api/version.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	BuildID   string `json:"build_id"`
	GoVersion string `json:"go_version"`
	Compiler  string `json:"compiler"`
	Platform  string `json:"platform"`
}

// Get collects the stamped values and the runtime they were built with.
func Get() Info {
	return Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		BuildID:   BuildID,
		GoVersion: runtime.Version(),
		Compiler:  runtime.Compiler,
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// String returns the bare version, e.g. for cobra's --version.
func String() string {
	return Version
}

// String renders the version with its commit, e.g. "1.2.0 (abc1234, linux/arm64)".
func (i Info) String() string {
	return fmt.Sprintf("%s (%s, %s)", i.Version, i.GitCommit, i.Platform)
}

// UserAgent names a sevenseg component in outgoing requests, e.g.
// "sevenseg-cycle/1.2.0 (linux/arm64)". An empty component names the daemon.
func UserAgent(component string) string {
	name := Name
	if component = strings.TrimSpace(component); component != "" {
		name += "-" + component
	}
	return fmt.Sprintf("%s/%s (%s/%s)", name, Version, runtime.GOOS, runtime.GOARCH)
}
