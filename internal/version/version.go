// Package version holds the build version of the distributor binary.
package version

// Version is overridden at build time with
// -ldflags "-X github.com/hashicorp-forge/distributor/internal/version.Version=..."
var Version = "0.1.0-dev"
