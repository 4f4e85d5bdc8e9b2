// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

// MustChdir switches the working directory to dir and returns a function that
// switches back.
func MustChdir(t testing.TB, dir string) func() {
	t.Helper()
	previous, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir %s: %v", dir, err)
	}
	return func() {
		if err := os.Chdir(previous); err != nil {
			t.Errorf("restore working directory %s: %v", previous, err)
		}
	}
}

// MustSetenv sets key and returns a function that restores the previous value
// or unsets it when there was none.
func MustSetenv(t testing.TB, key, value string) func() {
	t.Helper()
	previous, had := os.LookupEnv(key)
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("setenv %s: %v", key, err)
	}
	return restoreEnv(t, key, previous, had)
}

// MustUnsetenv unsets key and returns a function that restores it.
func MustUnsetenv(t testing.TB, key string) func() {
	t.Helper()
	previous, had := os.LookupEnv(key)
	if err := os.Unsetenv(key); err != nil {
		t.Fatalf("unsetenv %s: %v", key, err)
	}
	return restoreEnv(t, key, previous, had)
}

func restoreEnv(t testing.TB, key, previous string, had bool) func() {
	return func() {
		var err error
		if had {
			err = os.Setenv(key, previous)
		} else {
			err = os.Unsetenv(key)
		}
		if err != nil {
			t.Errorf("restore env %s: %v", key, err)
		}
	}
}

// MustClose closes c and fails the test on error.
func MustClose(t testing.TB, c io.Closer) {
	t.Helper()
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

// MustWriteFile writes data to path, creating parent directories.
func MustWriteFile(t testing.TB, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WriteTree materializes files under root. Keys are slash-separated relative
// paths; a key ending in "/" creates an empty directory.
func WriteTree(t testing.TB, root string, files map[string]string) {
	t.Helper()
	keys := make([]string, 0, len(files))
	for k := range files {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, rel := range keys {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if strings.HasSuffix(rel, "/") {
			if err := os.MkdirAll(path, 0o755); err != nil {
				t.Fatalf("mkdir %s: %v", path, err)
			}
			continue
		}
		MustWriteFile(t, path, []byte(files[rel]))
	}
}

// Descriptor renders an APP-META.xml document. Empty name, version or release
// values omit the element.
func Descriptor(schema, name, version, release string) string {
	var b strings.Builder
	b.WriteString("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	fmt.Fprintf(&b, "<application xmlns=\"http://apstandard.com/ns/1\" version=%q>\n", schema)
	for _, el := range [][2]string{{"name", name}, {"version", version}, {"release", release}} {
		if el[1] != "" {
			fmt.Fprintf(&b, "  <%s>%s</%s>\n", el[0], el[1], el[0])
		}
	}
	b.WriteString("</application>\n")
	return b.String()
}

// WriteDescriptor writes an APP-META.xml for name X, version 1.0.0, release 1
// into dir using the given schema version.
func WriteDescriptor(t testing.TB, dir, schema string) {
	t.Helper()
	MustWriteFile(t, filepath.Join(dir, "APP-META.xml"), []byte(Descriptor(schema, "X", "1.0.0", "1")))
}
