package recipe

import (
	"strings"

	"golang.org/x/mod/semver"
)

// canonical turns loosely written versions ("14", "3.15.2", "v3.9.1") into
// the semver form understood by golang.org/x/mod/semver.
func canonical(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return semver.Canonical(v)
}

func validVersion(v string) bool {
	return canonical(v) != ""
}

// AtLeast reports whether version have is at or above min. An unparsable
// have is never at least anything.
func AtLeast(have, min string) bool {
	h, m := canonical(have), canonical(min)
	if h == "" || m == "" {
		return false
	}
	return semver.Compare(h, m) >= 0
}
