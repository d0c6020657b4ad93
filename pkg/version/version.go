// Package version holds build-time version info injected via ldflags.
//
// Set at compile time:
//
//	go build -ldflags "-X github.com/phvlvck/dardasha/pkg/version.tag=v0.1.0
//	  -X github.com/phvlvck/dardasha/pkg/version.commit=abc1234"
package version

// Populated by -ldflags "-X ...". Defaults are used for local dev builds.
var (
	tag    = ""        // git tag (e.g. "v0.1.0"), empty if not on a tag
	commit = "unknown" // short git commit SHA
)

// String returns a human-readable version string.
//
//	Tagged:   "v0.1.0"
//	Untagged: "abc1234"
//	Dev:      "dev"
func String() string {
	if tag != "" {
		return tag
	}
	if commit != "unknown" {
		return commit
	}
	return "dev"
}
