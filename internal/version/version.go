// Package version holds build-time version information injected via ldflags:
//
//	go build -ldflags "-X github.com/hazz-dev/urlmedic/internal/version.Version=v1.2.0"
package version

import "fmt"

// These variables are set at build time via -ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String returns the one-line version banner printed by `urlmedic version`.
func String() string {
	return fmt.Sprintf("urlmedic %s (commit %s, built %s)", Version, Commit, Date)
}
