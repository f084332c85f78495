package core

// Version is the application version, set at build time via ldflags.
// To inject a version during build, use:
//
//	go build -ldflags "-X jandocs/core.Version=$(git describe --tags --always)" .
//
// If not set at build time, defaults to "dev".
var Version = "dev"

// BuildTime is the build timestamp, set at build time via ldflags.
// To inject build time during build, use:
//
//	go build -ldflags "-X jandocs/core.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)" .
//
// If not set at build time, defaults to "unknown".
var BuildTime = "unknown"

// GitCommit is the git commit hash, set at build time via ldflags.
// If not set at build time, defaults to "unknown".
var GitCommit = "unknown"

// GetVersion returns the application version string.
func GetVersion() string {
	return Version
}

// GetVersionInfo returns a formatted version information string.
// Includes version, build time, and git commit if available.
//
// Examples:
//   - "v1.0.0 (built 2024-01-15T10:30:00Z, commit abc1234)"
//   - "dev (built unknown, commit unknown)"
func GetVersionInfo() string {
	return Version + " (built " + BuildTime + ", commit " + GitCommit + ")"
}
