// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"path/filepath"
	"runtime"
	"testing"
)

// SetHomeDir points the platform home variable (USERPROFILE on Windows, HOME
// elsewhere) at dir and returns a function that restores it.
func SetHomeDir(t testing.TB, dir string) func() {
	t.Helper()

	if runtime.GOOS == "windows" {
		return MustSetenv(t, "USERPROFILE", dir)
	}
	return MustSetenv(t, "HOME", dir)
}

// IsolateConfig redirects every location the config loader consults into a
// fresh temporary directory and clears APSPACK_* overrides. It returns the
// directory that acts as the user config root. Cleanup is registered on t.
func IsolateConfig(t *testing.T) string {
	t.Helper()

	root := t.TempDir()
	t.Cleanup(SetHomeDir(t, root))
	t.Cleanup(MustSetenv(t, "XDG_CONFIG_HOME", filepath.Join(root, ".config")))
	t.Cleanup(MustSetenv(t, "APPDATA", filepath.Join(root, "AppData")))
	for _, key := range []string{
		"APSPACK_OUTPUT_DIR",
		"APSPACK_COMPRESSION",
		"APSPACK_VALIDATE",
		"APSPACK_LOG_LEVEL",
	} {
		t.Cleanup(MustUnsetenv(t, key))
	}
	return root
}
