// Package version reports the refbuilder build version.
package version

import (
	"fmt"
	"runtime/debug"
)

// Version is set at build time:
// go build -ldflags "-X git.home.luguber.info/inful/refbuilder/internal/version.Version=v0.3.0".
var Version = "unknown"

// Build metadata, also set via ldflags.
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// Resolved returns Version, falling back to the module version recorded by `go install`.
func Resolved() string {
	if Version != "unknown" && Version != "" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return Version
}

// String formats the version line printed by `refbuilder version`.
func String() string {
	return fmt.Sprintf("refbuilder %s (commit %s, built %s)", Resolved(), GitCommit, BuildTime)
}
