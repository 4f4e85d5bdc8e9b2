// SPDX-License-Identifier: MPL-2.0

package apspkg

import "testing"

func TestDefaultExclusions(t *testing.T) {
	t.Parallel()

	excl := DefaultExclusions()
	tests := []struct {
		path string
		want bool
	}{
		{"APP-META.xml", true},
		{"APP-LIST.xml", true},
		{"X-1.0.0-1.app.zip", true},
		{"dist/old/X-0.9-1.app.zip", true},
		{".tmp-123-X-1.0.0-1.app.zip", true},
		// Only the root descriptor is generated; nested copies are content.
		{"docs/APP-META.xml", false},
		{"main.py", false},
		{"bundle.zip", false},
		{"app.zip.bak", false},
	}
	for _, tt := range tests {
		if got := excl.Excludes(tt.path); got != tt.want {
			t.Errorf("Excludes(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestNewExclusionSet(t *testing.T) {
	t.Parallel()

	excl, err := NewExclusionSet("**/*.log", "tmp/**")
	if err != nil {
		t.Fatalf("NewExclusionSet: %v", err)
	}
	if !excl.Excludes("a/b/debug.log") || !excl.Excludes("tmp/x/y") || excl.Excludes("src/main.go") {
		t.Errorf("unexpected matches for %v", excl.Patterns())
	}

	if _, err := NewExclusionSet("[unclosed"); err == nil {
		t.Error("NewExclusionSet accepted an invalid pattern")
	}
}

func TestExclusionSet_PatternsIsCopy(t *testing.T) {
	t.Parallel()

	excl := DefaultExclusions()
	p := excl.Patterns()
	p[0] = "*"
	if excl.Excludes("main.py") {
		t.Error("mutating Patterns() changed the set")
	}
}
