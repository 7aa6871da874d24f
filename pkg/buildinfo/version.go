// Package buildinfo holds version data stamped in at link time:
//
//	go build -ldflags "-X github.com/matzehuels/postermill/pkg/buildinfo.Version=v0.3.0 \
//	    -X github.com/matzehuels/postermill/pkg/buildinfo.Commit=$(git rev-parse --short HEAD) \
//	    -X github.com/matzehuels/postermill/pkg/buildinfo.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
package buildinfo

import "fmt"

var (
	// Version is the release tag, "dev" for local builds.
	Version = "dev"

	// Commit is the git commit the binary was built from.
	Commit = "none"

	// Date is the UTC build timestamp.
	Date = "unknown"
)

// String returns the multi-line form printed by the version command.
func String() string {
	return fmt.Sprintf("version: %s\ncommit: %s\nbuilt: %s", Version, Commit, Date)
}

// Template returns the version template string for cobra.
func Template() string {
	return fmt.Sprintf("{{.Name}} version %s\ncommit: %s\nbuilt: %s\n", Version, Commit, Date)
}

// UserAgent identifies postermill in outgoing requests. Image hosts tend to
// refuse bare library user agents, hence the browser-compatible prefix.
func UserAgent() string {
	return fmt.Sprintf("Mozilla/5.0 (compatible; postermill/%s)", Version)
}
