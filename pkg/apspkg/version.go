// SPDX-License-Identifier: MPL-2.0

package apspkg

import (
	"strings"

	"golang.org/x/mod/semver"
)

// FileListThreshold is the schema version APP-LIST.xml generation is gated on.
const FileListThreshold = "1.2"

// CompareVersions orders two schema version tokens as raw strings.
//
// It returns 0 when v1 == v2, 1 when v2 sorts after v1 and -1 when v2 sorts
// before v1. Note the orientation: a greater second argument yields 1. No
// numeric parsing takes place, so "1.10" sorts before "1.2".
func CompareVersions(v1, v2 string) int {
	switch {
	case v1 == v2:
		return 0
	case v2 > v1:
		return 1
	default:
		return -1
	}
}

// RequiresFileList reports whether a package declaring schemaVersion gets an
// APP-LIST.xml member: CompareVersions(FileListThreshold, schemaVersion) > -1.
func RequiresFileList(schemaVersion string) bool {
	return CompareVersions(FileListThreshold, schemaVersion) > -1
}

// dottedOrderDisagrees reports whether comparing schemaVersion against the
// threshold as dotted numbers gives a different answer than the raw string
// comparison RequiresFileList uses. Tokens that are not dotted numbers never
// disagree.
func dottedOrderDisagrees(schemaVersion string) bool {
	declared := "v" + strings.TrimPrefix(schemaVersion, "v")
	if !semver.IsValid(declared) {
		return false
	}
	dotted := semver.Compare(declared, "v"+FileListThreshold) >= 0
	return dotted != RequiresFileList(schemaVersion)
}
