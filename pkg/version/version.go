// Package version reports build information for scout.
package version

import (
	"fmt"
	"runtime"
)

// Version is set at build time:
//
//	-ldflags "-X github.com/addls/scout/pkg/version.Version=1.2.3"
var Version = "dev"

// Build information set via ldflags.
var (
	Commit = "unknown"

	// Date is the build date in RFC3339 format.
	Date = "unknown"

	GoVersion = runtime.Version()
)

// BuildInfo is version information for JSON output.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// String returns a one-line version string with all build info.
func String() string {
	return fmt.Sprintf("scout %s (commit: %s, built: %s, go: %s)",
		Version, Commit, Date, GoVersion)
}

// Short returns just the version.
func Short() string {
	return Version
}

// GetInfo returns structured version information.
func GetInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}
