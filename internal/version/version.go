// Package version carries build metadata injected with
// -ldflags "-X github.com/smazurov/rpirtspd/internal/version.Version=...".
package version

import (
	"fmt"
	"runtime"
)

var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	BuildID   = "unknown"
)

// Info contains version and build metadata.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	BuildID   string `json:"build_id"`
	GoVersion string `json:"go_version"`
	Compiler  string `json:"compiler"`
	Platform  string `json:"platform"`
}

// Get returns version and build information.
func Get() Info {
	return Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		BuildID:   BuildID,
		GoVersion: runtime.Version(),
		Compiler:  runtime.Compiler,
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// String returns the application version string.
func String() string {
	return Version
}

// UserAgent identifies the control CLI to the API.
func UserAgent() string {
	return "rpirtspd/" + Version
}

// Banner is the one-line startup summary.
func Banner() string {
	i := Get()
	if i.GitCommit == "unknown" {
		return fmt.Sprintf("rpirtspd %s (%s)", i.Version, i.Platform)
	}
	return fmt.Sprintf("rpirtspd %s (%s, %s)", i.Version, i.GitCommit, i.Platform)
}
