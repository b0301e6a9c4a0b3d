// Package version holds build information for changelens.
package version

import "runtime"

// These variables can be overridden at build time using ldflags:
// go build -ldflags "-X changelens/internal/version.Version=1.0.0 -X changelens/internal/version.Commit=abc123"
var (
	// Version is the semantic version of changelens
	Version = "0.4.0"

	// Commit is the git commit hash (set at build time)
	Commit = "unknown"

	// BuildDate is the build timestamp (set at build time)
	BuildDate = "unknown"
)

// Info returns a short version string, with the abbreviated commit when known
func Info() string {
	if Commit != "unknown" && len(Commit) > 7 {
		return Version + " (" + Commit[:7] + ")"
	}
	return Version
}

// Full returns complete version information
func Full() string {
	return "changelens version " + Version + "\n" +
		"Commit: " + Commit + "\n" +
		"Built: " + BuildDate + "\n" +
		"Go: " + runtime.Version()
}

// ServerInfo is the name/version pair reported in the MCP handshake
func ServerInfo() (name, ver string) {
	return "changelens", Version
}
