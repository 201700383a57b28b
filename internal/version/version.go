// Package version exposes build information, injected at link time.
package version

import "fmt"

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Info returns a one-line human-readable version string.
func Info() string {
	return fmt.Sprintf("nakdan %s (commit %s, built %s)", Version, Commit, Date)
}
