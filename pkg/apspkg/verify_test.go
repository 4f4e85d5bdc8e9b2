// SPDX-License-Identifier: MPL-2.0

package apspkg

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/apspack/apspack/internal/testutil"
)

// rewriteArchive copies src to a new archive, replacing members named in
// replace (nil drops the member) and appending members in extra.
func rewriteArchive(t *testing.T, src string, replace, extra map[string][]byte) string {
	t.Helper()
	names, contents := readArchive(t, src)

	dst := filepath.Join(t.TempDir(), filepath.Base(src))
	f, err := os.Create(dst)
	if err != nil {
		t.Fatal(err)
	}
	defer testutil.MustClose(t, f)

	zw := zip.NewWriter(f)
	add := func(name string, data []byte) {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create member %s: %v", name, err)
		}
		if _, err := w.Write(data); err != nil {
			t.Fatalf("write member %s: %v", name, err)
		}
	}
	for _, name := range names {
		data := contents[name]
		if r, ok := replace[name]; ok {
			if r == nil {
				continue
			}
			data = r
		}
		add(name, data)
	}
	for name, data := range extra {
		add(name, data)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return dst
}

func builtArchive(t *testing.T, schema string) string {
	t.Helper()
	src := newSource(t, schema, map[string]string{"main.py": "a", "lib/util.py": "b", "assets/": ""})
	return mustBuild(t, buildOpts(src, t.TempDir())).ArchivePath
}

func mustVerify(t *testing.T, path string) *VerifyResult {
	t.Helper()
	res, err := Verify(path)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	return res
}

func TestVerify_Intact(t *testing.T) {
	t.Parallel()

	res := mustVerify(t, builtArchive(t, "1.2"))

	if !res.OK() {
		t.Errorf("OK() = false: %+v", res)
	}
	if !res.HasFileList {
		t.Error("HasFileList = false")
	}
	if res.FilesChecked != 3 {
		t.Errorf("FilesChecked = %d, want 3", res.FilesChecked)
	}
	if res.Metadata.Name != "X" {
		t.Errorf("Metadata.Name = %q, want X", res.Metadata.Name)
	}
}

func TestVerify_WithoutFileList(t *testing.T) {
	t.Parallel()

	res := mustVerify(t, builtArchive(t, "1.1"))

	if res.HasFileList {
		t.Error("HasFileList = true for schema 1.1")
	}
	if res.FilesChecked != 0 {
		t.Errorf("FilesChecked = %d, want 0", res.FilesChecked)
	}
	if !res.OK() {
		t.Errorf("OK() = false: %+v", res)
	}
}

func TestVerify_Tampered(t *testing.T) {
	t.Parallel()

	tampered := rewriteArchive(t, builtArchive(t, "1.2"),
		map[string][]byte{"main.py": []byte("changed"), "lib/util.py": nil},
		map[string][]byte{"extra.txt": []byte("sneaky")},
	)

	res := mustVerify(t, tampered)
	if res.OK() {
		t.Fatal("OK() = true for a tampered archive")
	}

	if len(res.Mismatches) != 1 {
		t.Fatalf("Mismatches = %+v, want 1", res.Mismatches)
	}
	m := res.Mismatches[0]
	if m.Name != "main.py" || m.ExpectedSize != 1 || m.ActualSize != 7 {
		t.Errorf("mismatch = %+v, want main.py 1 -> 7 bytes", m)
	}
	if want := digestBytes([]byte("changed")); m.ActualHash != want {
		t.Errorf("ActualHash = %s, want %s", m.ActualHash, want)
	}
	if want := []string{"lib/util.py"}; !slices.Equal(res.Missing, want) {
		t.Errorf("Missing = %v, want %v", res.Missing, want)
	}
	if want := []string{"extra.txt"}; !slices.Equal(res.Undeclared, want) {
		t.Errorf("Undeclared = %v, want %v", res.Undeclared, want)
	}
}

func TestVerify_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		path func(t *testing.T) string
	}{
		{
			name: "not a zip",
			path: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "bogus.app.zip")
				testutil.MustWriteFile(t, path, []byte("not a zip"))
				return path
			},
		},
		{
			name: "no descriptor",
			path: func(t *testing.T) string {
				return rewriteArchive(t, builtArchive(t, "1.2"), map[string][]byte{MetaFileName: nil}, nil)
			},
		},
		{
			name: "malformed list",
			path: func(t *testing.T) string {
				return rewriteArchive(t, builtArchive(t, "1.2"), map[string][]byte{ListFileName: []byte("<files")}, nil)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := Verify(tt.path(t)); !errors.Is(err, ErrArchiveInvalid) {
				t.Errorf("Verify() error = %v, want ErrArchiveInvalid", err)
			}
		})
	}
}
