// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/apspack/apspack/internal/config"
	"github.com/apspack/apspack/internal/testutil"
	"github.com/apspack/apspack/pkg/types"
)

// newConfigTestApp uses the real config provider inside an isolated home and
// working directory. Tests using it must not run in parallel.
func newConfigTestApp(t *testing.T) (*testApp, string) {
	t.Helper()
	root := testutil.IsolateConfig(t)
	t.Cleanup(testutil.MustChdir(t, t.TempDir()))
	config.Reset()
	t.Cleanup(config.Reset)

	ta := &testApp{stdout: &bytes.Buffer{}, stderr: &bytes.Buffer{}}
	ta.app = NewApp(Dependencies{Stdout: ta.stdout, Stderr: ta.stderr})
	return ta, root
}

func TestConfigCommands(t *testing.T) {
	ta, _ := newConfigTestApp(t)

	if code := ta.run(t, "config", "path"); code != types.ExitOK {
		t.Fatalf("config path exit code = %d, stderr:\n%s", code, ta.stderr)
	}
	if !strings.Contains(ta.stdout.String(), "not created") {
		t.Errorf("config path before init:\n%s", ta.stdout)
	}

	ta.stdout.Reset()
	if code := ta.run(t, "config", "init"); code != types.ExitOK {
		t.Fatalf("config init exit code = %d, stderr:\n%s", code, ta.stderr)
	}
	defaultPath, err := config.DefaultPath(config.LoadOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(defaultPath); err != nil {
		t.Fatalf("config init did not write %s: %v", defaultPath, err)
	}

	ta.stdout.Reset()
	if code := ta.run(t, "config", "init"); code != types.ExitOK {
		t.Fatalf("second config init exit code = %d", code)
	}
	if !strings.Contains(ta.stdout.String(), "already exists") {
		t.Errorf("second init did not report the existing file:\n%s", ta.stdout)
	}

	ta.stdout.Reset()
	if code := ta.run(t, "config", "show"); code != types.ExitOK {
		t.Fatalf("config show exit code = %d, stderr:\n%s", code, ta.stderr)
	}
	show := ta.stdout.String()
	if !strings.Contains(show, "// source: "+defaultPath) || !strings.Contains(show, `compression: "deflate"`) {
		t.Errorf("config show output:\n%s", show)
	}
}

func TestConfigCommands_ExplicitFile(t *testing.T) {
	ta, _ := newConfigTestApp(t)

	path := filepath.Join(t.TempDir(), "apspack.cue")
	testutil.MustWriteFile(t, path, []byte("compression: \"store\"\n"))

	if code := ta.run(t, "--config", path, "config", "show"); code != types.ExitOK {
		t.Fatalf("exit code = %d, stderr:\n%s", code, ta.stderr)
	}
	if !strings.Contains(ta.stdout.String(), `compression: "store"`) {
		t.Errorf("explicit config not applied:\n%s", ta.stdout)
	}

	ta.stdout.Reset()
	missing := filepath.Join(t.TempDir(), "missing.cue")
	if code := ta.run(t, "--config", missing, "config", "path"); code != types.ExitUsage {
		t.Fatalf("missing --config exit code = %d, want %d", code, types.ExitUsage)
	}
}

func TestConfigCommands_InvalidFile(t *testing.T) {
	ta, _ := newConfigTestApp(t)

	path := filepath.Join(t.TempDir(), "apspack.cue")
	testutil.MustWriteFile(t, path, []byte("compression: \"zstd\"\n"))

	if code := ta.run(t, "--config", path, "build", "-i", t.TempDir()); code != types.ExitUsage {
		t.Fatalf("exit code = %d, want %d", code, types.ExitUsage)
	}
}
