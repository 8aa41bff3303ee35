// Package version carries build identification injected via ldflags.
package version

var (
	// Version is the release tag of this build.
	Version = "dev"
	// GitSHA is the git commit the build was produced from.
	GitSHA = "unknown"
	// BuildTime is the build timestamp.
	BuildTime = "unknown"
)
