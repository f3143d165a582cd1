// Package version reports the build that is running. The variables are set
// with -ldflags "-X" at release time.
package version

import (
	"fmt"
	"strconv"
	"time"
)

var (
	Number       string
	Revision     string
	RevisionTime string
)

// String returns the version line printed by "netsim version".
func String() string {
	if Number == "" {
		return "netsim: development build"
	}

	if Revision == "" {
		return fmt.Sprintf("netsim: v%s", Number)
	}

	return fmt.Sprintf("netsim: v%s-%s", Number, Revision)
}

// HumanRevisionTime formats RevisionTime, a unix timestamp, or returns an
// empty string if it is not set.
func HumanRevisionTime() string {
	secs, err := strconv.ParseInt(RevisionTime, 10, 64)
	if err != nil {
		return ""
	}

	return time.Unix(secs, 0).UTC().String()
}
