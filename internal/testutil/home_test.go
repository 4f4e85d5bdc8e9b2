// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestSetHomeDir(t *testing.T) {
	key := "HOME"
	if runtime.GOOS == "windows" {
		key = "USERPROFILE"
	}
	original := os.Getenv(key)

	dir := t.TempDir()
	restore := SetHomeDir(t, dir)
	if got := os.Getenv(key); got != dir {
		t.Errorf("%s = %q, want %q", key, got, dir)
	}
	restore()
	if got := os.Getenv(key); got != original {
		t.Errorf("%s not restored: %q, want %q", key, got, original)
	}
}

func TestIsolateConfig(t *testing.T) {
	t.Setenv("APSPACK_OUTPUT_DIR", "/somewhere")

	root := IsolateConfig(t)
	if got := os.Getenv("XDG_CONFIG_HOME"); got != filepath.Join(root, ".config") {
		t.Errorf("XDG_CONFIG_HOME = %q", got)
	}
	if _, ok := os.LookupEnv("APSPACK_OUTPUT_DIR"); ok {
		t.Error("APSPACK_OUTPUT_DIR still set")
	}
}
