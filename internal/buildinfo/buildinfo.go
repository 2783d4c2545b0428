package buildinfo

import (
	"fmt"
	"os"
)

var (
	// Commit is the 5-character commit string injected at build time
	Commit string
	// Tag of the binary
	Tag string
)

func init() {
	if c := os.Getenv("DETACH_COMMIT_OVERRIDE"); c != "" {
		Commit = c
	}
	if t := os.Getenv("DETACH_TAG_OVERRIDE"); t != "" {
		Tag = t
	}
}

// Version renders the tag, falling back to "snapshot" plus the commit
// for untagged builds.
func Version() string {
	v := Tag
	if v == "" {
		v = "snapshot"
		if Commit != "" {
			v += fmt.Sprintf(" (#%s)", Commit)
		}
	}
	return v
}
