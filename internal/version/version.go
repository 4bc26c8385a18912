// Package version provides version information for clinic-intray.
package version

// Version is the version of clinic-intray. This can be overridden at build time using ldflags.
var Version = "development"

// Commit is the git commit hash. This can be overridden at build time using ldflags.
var Commit = "unknown"

// String returns the full version string including the commit hash if available.
func String() string {
	if Commit != "unknown" {
		return Version + "+" + Commit
	}
	return Version
}

// UserAgent returns the HTTP User-Agent sent to the clinic backend.
func UserAgent() string {
	return "clinic-intray/" + String()
}
