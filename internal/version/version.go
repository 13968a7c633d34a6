// Package version holds the build version, set at link time via
// -ldflags "-X .../internal/version.Version=v1.2.3".
package version

// Version is the build version string.
var Version = "dev"
