// Package version carries build metadata stamped in via ldflags.
package version

var (
	// Version is the semantic version of this build.
	Version = "v0.0.0-dev"

	// GitCommit is the abbreviated commit hash of this build.
	GitCommit = "unknown"

	// BuildTime is the UTC timestamp of this build.
	BuildTime = "unknown"
)

// Info renders the build metadata as a single banner-friendly line.
func Info() string {
	return Version + " (" + GitCommit + ") built at " + BuildTime
}
