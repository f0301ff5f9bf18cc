// Package version holds build metadata injected through ldflags.
package version

//nolint:revive // Overridden at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)
