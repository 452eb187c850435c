package core

// Version is the application version, set at build time via ldflags:
//
//	go build -ldflags "-X mcp_analyzer/core.Version=$(git describe --tags --always)" .
//
// If not set at build time, defaults to "dev".
var Version = "dev"

// BuildTime is the build timestamp, set at build time via ldflags.
// Defaults to "unknown" when not injected.
var BuildTime = "unknown"

// GetVersion returns the application version string.
func GetVersion() string {
	return Version
}
