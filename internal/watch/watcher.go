// SPDX-License-Identifier: MPL-2.0

// Package watch rebuilds a package whenever its source tree changes.
//
// Events are coalesced over a debounce window so an editor's write-rename
// dance, or a checkout touching many files, triggers one rebuild.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 500 * time.Millisecond

// defaultIgnores never trigger a rebuild: VCS metadata, editor swap files and
// OS litter.
var defaultIgnores = []string{
	"**/.git/**",
	"**/.hg/**",
	"**/.svn/**",
	"**/*.swp",
	"**/*.swo",
	"**/*~",
	"**/.DS_Store",
}

// ErrAlreadyRunning is returned by a second call to Run.
var ErrAlreadyRunning = errors.New("watch: Run called more than once")

type (
	// Config holds the parameters for a Watcher.
	Config struct {
		// SourceDir is the package source tree. Empty means the working directory.
		SourceDir string

		// Ignore holds doublestar patterns, relative to SourceDir, for paths
		// that never trigger a rebuild. Callers pass the package exclusion set
		// here so generated documents and archives do not retrigger builds.
		Ignore []string

		// Debounce is the quiet period before OnChange fires. Zero or negative
		// means 500ms.
		Debounce time.Duration

		// OnChange receives the changed paths, relative to SourceDir and
		// slash-separated, in sorted order. Errors are logged and watching
		// continues.
		OnChange func(ctx context.Context, changed []string) error

		// Logger defaults to a discard logger.
		Logger *log.Logger
	}

	// Watcher monitors a source tree. Run may be called once.
	Watcher struct {
		cfg       Config
		fsw       *fsnotify.Watcher
		ignores   []string
		logger    *log.Logger
		debounce  time.Duration
		sourceDir string
		started   atomic.Bool
	}
)

// New validates cfg and registers every non-ignored directory under
// SourceDir.
func New(cfg Config) (*Watcher, error) {
	dir := cfg.SourceDir
	if dir == "" {
		dir = "."
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("watch: resolve source directory: %w", err)
	}
	// A linked root is watched through its target so subdirectories are found.
	if resolved, evalErr := filepath.EvalSymlinks(abs); evalErr == nil {
		abs = resolved
	}

	for _, pat := range cfg.Ignore {
		if !doublestar.ValidatePattern(pat) {
			return nil, fmt.Errorf("watch: invalid ignore pattern %q", pat)
		}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		cfg:       cfg,
		fsw:       fsw,
		ignores:   slices.Concat(defaultIgnores, cfg.Ignore),
		logger:    logger,
		debounce:  debounce,
		sourceDir: abs,
	}
	if err := w.addTree(abs); err != nil {
		if closeErr := fsw.Close(); closeErr != nil {
			logger.Warn("close watcher after init failure", "err", closeErr)
		}
		return nil, err
	}
	return w, nil
}

// Run processes events until ctx is canceled and returns nil then. Fatal
// watcher errors, such as an exhausted inotify watch limit, are returned.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	var (
		mu      sync.Mutex
		pending = make(map[string]struct{})
		timer   *time.Timer
		busy    atomic.Bool
	)

	// fire runs on the timer goroutine. A rebuild still in progress pushes
	// the pending set to the next window instead of running concurrently.
	fire := func() {
		if ctx.Err() != nil {
			return
		}
		if !busy.CompareAndSwap(false, true) {
			w.logger.Debug("rebuild still running; deferring changes")
			mu.Lock()
			if timer != nil {
				timer.Reset(w.debounce)
			}
			mu.Unlock()
			return
		}
		defer busy.Store(false)

		mu.Lock()
		if len(pending) == 0 {
			mu.Unlock()
			return
		}
		changed := slices.Sorted(maps.Keys(pending))
		clear(pending)
		mu.Unlock()

		w.logger.Debug("source changed", "paths", len(changed))
		if w.cfg.OnChange != nil {
			if err := w.cfg.OnChange(ctx, changed); err != nil {
				w.logger.Error("rebuild failed", "err", err)
			}
		}
	}

	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
		if err := w.fsw.Close(); err != nil {
			w.logger.Warn("close fsnotify", "err", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watch: fsnotify event channel closed unexpectedly")
			}
			rel, ignored := w.relevant(evt.Name)
			if ignored {
				continue
			}
			if evt.Has(fsnotify.Create) {
				w.maybeAddDir(evt.Name)
			}

			mu.Lock()
			pending[rel] = struct{}{}
			if timer == nil {
				timer = time.AfterFunc(w.debounce, fire)
			} else {
				timer.Reset(w.debounce)
			}
			mu.Unlock()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watch: fsnotify error channel closed unexpectedly")
			}
			if isFatalFsnotifyError(err) {
				return fmt.Errorf("watch: fatal fsnotify error: %w", err)
			}
			w.logger.Warn("fsnotify error", "err", err)
		}
	}
}

// relevant converts an event path to its slash-separated form relative to
// the source root and reports whether it is ignored.
func (w *Watcher) relevant(path string) (string, bool) {
	rel, err := filepath.Rel(w.sourceDir, path)
	if err != nil {
		return "", true
	}
	rel = filepath.ToSlash(rel)
	return rel, w.isIgnored(rel)
}

// addTree registers root and every non-ignored directory below it.
// Inaccessible directories are logged and skipped.
func (w *Watcher) addTree(root string) error {
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			w.logger.Warn("not watching inaccessible path", "path", path, "err", walkErr)
			return nil //nolint:nilerr // skip and keep walking
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.sourceDir {
			if rel, ignored := w.relevant(path); ignored || w.isIgnored(rel+"/") {
				return filepath.SkipDir
			}
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch: add directory %q: %w", path, err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("watch: walk source tree: %w", err)
	}
	return nil
}

// maybeAddDir extends the watch to a directory created after startup,
// including anything already inside it.
func (w *Watcher) maybeAddDir(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return
	}
	if err := w.addTree(path); err != nil {
		w.logger.Warn("watch new directory", "path", path, "err", err)
	}
}

func (w *Watcher) isIgnored(rel string) bool {
	for _, pat := range w.ignores {
		if doublestar.MatchUnvalidated(pat, rel) {
			return true
		}
	}
	return false
}

// DefaultIgnores returns a copy of the built-in ignore patterns.
func DefaultIgnores() []string {
	return slices.Clone(defaultIgnores)
}
