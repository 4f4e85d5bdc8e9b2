// SPDX-License-Identifier: MPL-2.0

package apspkg

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"testing"

	"github.com/apspack/apspack/internal/testutil"
)

func entryNames(entries []FileEntry) []string {
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.MemberName())
	}
	return names
}

func TestEnumerate(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{
		MetaFileName:           "<meta/>",
		ListFileName:           "<files/>",
		"main.py":              "a",
		"assets/icons/":        "",
		"lib/util.py":          "print(1)\n",
		"lib/APP-META.xml":     "nested descriptors are content",
		"dist/old-1-1.app.zip": "stale",
		"prior-1-1.app.zip":    "stale",
	})

	entries, err := Enumerate(context.Background(), root, DefaultExclusions())
	if err != nil {
		t.Fatalf("Enumerate() failed: %v", err)
	}

	want := []string{
		"assets/",
		"assets/icons/",
		"dist/",
		"lib/",
		"lib/APP-META.xml",
		"lib/util.py",
		"main.py",
	}
	if got := entryNames(entries); !reflect.DeepEqual(got, want) {
		t.Errorf("entries = %v\nwant %v", got, want)
	}

	for _, e := range entries {
		switch e.RelativePath {
		case "main.py":
			if e.ContentHash != "ca978112ca1bbdcafac231b39a23dc4da786eff8147c4e72b9807785afee48bb" || e.Size != 1 {
				t.Errorf("main.py = %s/%d", e.ContentHash, e.Size)
			}
			if e.AbsolutePath != filepath.Join(root, "main.py") {
				t.Errorf("AbsolutePath = %q", e.AbsolutePath)
			}
		case "assets", "assets/icons":
			if e.ContentHash != "" || e.Size != 0 || !e.IsDir() {
				t.Errorf("directory entry %q carries content fields: %+v", e.RelativePath, e)
			}
		}
	}
}

func TestEnumerate_ExclusionIsNotInherited(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{
		"bundle.app.zip/inner.txt": "x",
	})

	entries, err := Enumerate(context.Background(), root, DefaultExclusions())
	if err != nil {
		t.Fatalf("Enumerate() failed: %v", err)
	}
	if got := entryNames(entries); !reflect.DeepEqual(got, []string{"bundle.app.zip/inner.txt"}) {
		t.Errorf("entries = %v, want only the child of the excluded directory", got)
	}
}

func TestEnumerate_CustomExclusions(t *testing.T) {
	t.Parallel()

	excl, err := NewExclusionSet("**/*.tmp")
	if err != nil {
		t.Fatal(err)
	}
	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{"a.tmp": "", "b/c.tmp": "", "b/keep": ""})

	entries, err := Enumerate(context.Background(), root, excl)
	if err != nil {
		t.Fatalf("Enumerate() failed: %v", err)
	}
	if got := entryNames(entries); !reflect.DeepEqual(got, []string{"b/", "b/keep"}) {
		t.Errorf("entries = %v", got)
	}

	if _, err := NewExclusionSet("[unclosed"); err == nil {
		t.Error("NewExclusionSet() accepted an invalid pattern")
	}
}

func TestEnumerate_UnreadableFile(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("file permissions are not enforced")
	}

	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{"secret": "x"})
	if err := os.Chmod(filepath.Join(root, "secret"), 0o000); err != nil {
		t.Fatal(err)
	}

	_, err := Enumerate(context.Background(), root, DefaultExclusions())
	if !errors.Is(err, ErrFileUnreadable) {
		t.Fatalf("error = %v, want ErrFileUnreadable", err)
	}
}

func TestEnumerate_Symlinks(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}

	t.Run("directory link is recorded, not followed", func(t *testing.T) {
		t.Parallel()
		root := t.TempDir()
		target := t.TempDir()
		testutil.WriteTree(t, target, map[string]string{"outside.txt": "x"})
		if err := os.Symlink(target, filepath.Join(root, "linked")); err != nil {
			t.Fatal(err)
		}

		entries, err := Enumerate(context.Background(), root, DefaultExclusions())
		if err != nil {
			t.Fatalf("Enumerate() failed: %v", err)
		}
		if got := entryNames(entries); !reflect.DeepEqual(got, []string{"linked/"}) {
			t.Errorf("entries = %v", got)
		}
	})

	t.Run("broken link is unreadable", func(t *testing.T) {
		t.Parallel()
		root := t.TempDir()
		if err := os.Symlink(filepath.Join(root, "nowhere"), filepath.Join(root, "dangling")); err != nil {
			t.Fatal(err)
		}
		if _, err := Enumerate(context.Background(), root, DefaultExclusions()); !errors.Is(err, ErrFileUnreadable) {
			t.Fatalf("error = %v, want ErrFileUnreadable", err)
		}
	})

	t.Run("excluded broken link is skipped", func(t *testing.T) {
		t.Parallel()
		root := t.TempDir()
		testutil.WriteTree(t, root, map[string]string{"main.py": "a"})
		if err := os.Symlink(filepath.Join(root, "nowhere"), filepath.Join(root, "old.app.zip")); err != nil {
			t.Fatal(err)
		}

		entries, err := Enumerate(context.Background(), root, DefaultExclusions())
		if err != nil {
			t.Fatalf("Enumerate() failed: %v", err)
		}
		if got := entryNames(entries); !reflect.DeepEqual(got, []string{"main.py"}) {
			t.Errorf("entries = %v", got)
		}
	})
}

func TestEnumerate_Canceled(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{"a": "1"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := Enumerate(ctx, root, DefaultExclusions()); !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}
