// SPDX-License-Identifier: MIT

// Package version carries build metadata injected via ldflags.
package version

import "fmt"

var (
	// Version is the release tag, or "dev" for local builds.
	Version = "dev"

	// Commit is the short git hash of the build.
	Commit = "unknown"

	// Date is the build timestamp.
	Date = "unknown"
)

// String renders the full build identifier.
func String() string {
	return fmt.Sprintf("%s (%s, %s)", Version, Commit, Date)
}
