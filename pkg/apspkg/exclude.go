// SPDX-License-Identifier: MPL-2.0

package apspkg

import (
	"fmt"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
)

// ExclusionSet holds doublestar patterns matched against slash-separated
// paths relative to the source root. Exclusion applies to a single entry;
// the children of an excluded directory are still considered.
type ExclusionSet struct {
	patterns []string
}

// DefaultExclusions keeps generated documents and previously built packages
// out of an archive: APP-META.xml and APP-LIST.xml at the root, and any
// *.app.zip at any depth.
func DefaultExclusions() ExclusionSet {
	return ExclusionSet{patterns: []string{
		MetaFileName,
		ListFileName,
		"**/*" + PackageSuffix,
	}}
}

// NewExclusionSet validates patterns and returns a set matching any of them.
func NewExclusionSet(patterns ...string) (ExclusionSet, error) {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return ExclusionSet{}, fmt.Errorf("invalid exclusion pattern %q", p)
		}
	}
	return ExclusionSet{patterns: slices.Clone(patterns)}, nil
}

// Patterns returns a copy of the set's patterns.
func (s ExclusionSet) Patterns() []string {
	return slices.Clone(s.patterns)
}

// Excludes reports whether relPath matches any pattern.
func (s ExclusionSet) Excludes(relPath string) bool {
	for _, p := range s.patterns {
		if doublestar.MatchUnvalidated(p, relPath) {
			return true
		}
	}
	return false
}
