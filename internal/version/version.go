package version

import (
	"fmt"
	"strings"
)

// Version is the service current released version.
// This value can be overridden at build time using ldflags:
//
//	go build -ldflags "-X github.com/charlahq/charla/internal/version.Version=v0.3.0"
//
// Semantic versioning: https://semver.org/
var Version = "0.0.0-dev"

// DevVersion is the service current development version.
var DevVersion = Version

// GitCommit is the git commit hash at build time.
// Set via ldflags: -X github.com/charlahq/charla/internal/version.GitCommit=$(git rev-parse HEAD)
var GitCommit = "unknown"

// BuildTime is the build timestamp in RFC3339 format.
// Set via ldflags: -X github.com/charlahq/charla/internal/version.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)
var BuildTime = "unknown"

func GetCurrentVersion(mode string) string {
	if mode == "dev" || mode == "demo" {
		return DevVersion
	}
	return Version
}

// String returns the version string with optional commit hash.
func String() string {
	v := Version
	if GitCommit != "" && GitCommit != "unknown" {
		shortCommit := GitCommit
		if len(shortCommit) > 8 {
			shortCommit = shortCommit[:8]
		}
		v = fmt.Sprintf("%s-%s", v, shortCommit)
	}
	return v
}

// StringFull returns the complete version information including build metadata.
func StringFull() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("Version=%s", Version))
	if GitCommit != "" && GitCommit != "unknown" {
		shortCommit := GitCommit
		if len(shortCommit) > 8 {
			shortCommit = shortCommit[:8]
		}
		parts = append(parts, fmt.Sprintf("Commit=%s", shortCommit))
	}
	if BuildTime != "" && BuildTime != "unknown" {
		parts = append(parts, fmt.Sprintf("BuildTime=%s", BuildTime))
	}
	return strings.Join(parts, " ")
}
