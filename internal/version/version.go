// Package version carries build metadata stamped in via ldflags:
//
//	go build -ldflags "-X github.com/smazurov/logd/internal/version.Version=1.2.0"
package version

import (
	"fmt"
	"runtime"
)

// Program is the binary name used in banners and client names.
const Program = "logd"

var (
	// Version is the application version, set via ldflags during build.
	Version = "dev"
	// GitCommit is the git commit hash, set via ldflags during build.
	GitCommit = "unknown"
	// BuildDate is the build timestamp, set via ldflags during build.
	BuildDate = "unknown"
	// BuildID is the build identifier, set via ldflags during build.
	BuildID = "unknown"
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

// String is the one-line banner, e.g. "logd 1.2.0 (a1b2c3d, linux/amd64)".
func (i Info) String() string {
	return fmt.Sprintf("%s %s (%s, %s)", Program, i.Version, shortCommit(i.GitCommit), i.Platform)
}

// String returns the banner for this build.
func String() string {
	return Get().String()
}

func shortCommit(commit string) string {
	if len(commit) > 7 {
		return commit[:7]
	}
	return commit
}
