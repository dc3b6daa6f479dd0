package version

import "fmt"

// Set at build time via -ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// String formats the full build identity for CLI output.
func String() string {
	return fmt.Sprintf("capgo version %s (commit %s, built %s)", Version, GitCommit, BuildDate)
}
