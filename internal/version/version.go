// Package version holds build metadata stamped in by -ldflags.
package version

import "fmt"

var (
	// Version is the release of the gridquery tool.
	Version = "dev"
	// GitSHA is the commit the binary was built from.
	GitSHA = "unknown"
	// BuildTime is the build timestamp.
	BuildTime = "unknown"
)

// String formats the build metadata on one line.
func String() string {
	return fmt.Sprintf("gridquery %s (git %s, built %s)", Version, GitSHA, BuildTime)
}
