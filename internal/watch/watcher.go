// SPDX-License-Identifier: MPL-2.0

// Package watch monitors package roots and reports which packages changed.
//
// Events within the debounce window are coalesced, so the callback fires once
// with every package directory touched since the last call.
package watch

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// defaultDebounce is the quiet period before OnChange fires. The game and
// Steam write packages as many small files, so this is longer than an editor
// save would need.
const defaultDebounce = 750 * time.Millisecond

// defaultPatterns select the files that make up a package.
var defaultPatterns = []string{
	"**/*.xml",
	"**/*.xml_off",
	"**/*.lua",
	"**/*.cs",
	"**/*.dll",
}

// defaultIgnores are never reported: VCS metadata, temporary files from
// atomic writes and OS metadata.
var defaultIgnores = []string{
	"**/.git/**",
	"**/*.tmp",
	"**/*~",
	"**/.DS_Store",
	"**/Thumbs.db",
}

type (
	// Config holds the parameters for a Watcher.
	Config struct {
		// Roots are the package root directories; each direct subdirectory
		// is a package.
		Roots []string

		// Patterns select which files count as package content. Empty means
		// the default package file patterns.
		Patterns []string

		// Ignore patterns are merged with the built-in ignores.
		Ignore []string

		// Debounce is the quiet period after the last event before the callback
		// fires. Zero or negative values fall back to defaultDebounce.
		Debounce time.Duration

		// OnChange receives the sorted absolute directories of the changed
		// packages. A nil callback is a no-op.
		OnChange func(ctx context.Context, packages []string) error

		Logger *log.Logger
	}

	// Watcher monitors package roots. Run must be called exactly once.
	Watcher struct {
		cfg      Config
		fsw      *fsnotify.Watcher
		roots    []string
		patterns []string
		ignores  []string
		logger   *log.Logger
		debounce time.Duration
		started  atomic.Bool
	}
)

// ErrNoRoots is returned by New when no root exists.
var ErrNoRoots = errors.New("watch: no package roots to watch")

// New creates a Watcher and registers every non-ignored directory under the
// existing roots. Missing roots are skipped.
func New(cfg Config) (*Watcher, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default().WithPrefix("watch")
	}

	patterns := cfg.Patterns
	if len(patterns) == 0 {
		patterns = defaultPatterns
	}
	if err := validatePatterns(patterns, "watch"); err != nil {
		return nil, err
	}
	if err := validatePatterns(cfg.Ignore, "ignore"); err != nil {
		return nil, err
	}

	var roots []string
	for _, r := range cfg.Roots {
		abs, err := filepath.Abs(r)
		if err != nil {
			return nil, fmt.Errorf("watch: resolve root %q: %w", r, err)
		}
		if info, err := os.Stat(abs); err != nil || !info.IsDir() {
			logger.Warn("Skipping missing root", "root", abs)
			continue
		}
		roots = append(roots, abs)
	}
	if len(roots) == 0 {
		return nil, ErrNoRoots
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
		cfg:      cfg,
		fsw:      fsw,
		roots:    roots,
		patterns: patterns,
		ignores:  append(slices.Clone(defaultIgnores), cfg.Ignore...),
		logger:   logger,
		debounce: debounce,
	}

	for _, root := range roots {
		if err := w.addDirectories(root); err != nil {
			if closeErr := fsw.Close(); closeErr != nil {
				logger.Warn("Close after init failure", "error", closeErr)
			}
			return nil, err
		}
	}
	return w, nil
}

// Roots returns the watched roots as absolute paths.
func (w *Watcher) Roots() []string { return slices.Clone(w.roots) }

// Run blocks until ctx is cancelled, dispatching debounced callbacks. It
// returns nil on cancellation and an error when the watcher breaks. A
// callback still running when the next one is due is not overlapped; the
// pending set is kept and retried after another debounce period.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return fmt.Errorf("watch: Run called more than once")
	}

	var (
		mu      sync.Mutex
		pending = make(map[string]struct{})
		timer   *time.Timer
		running atomic.Bool
	)

	fire := func() {
		if ctx.Err() != nil {
			return
		}
		if !running.CompareAndSwap(false, true) {
			w.logger.Debug("Previous callback still running, deferring")
			mu.Lock()
			if timer != nil {
				timer.Reset(w.debounce)
			}
			mu.Unlock()
			return
		}
		defer running.Store(false)

		mu.Lock()
		if len(pending) == 0 {
			mu.Unlock()
			return
		}
		changed := slices.Sorted(maps.Keys(pending))
		clear(pending)
		mu.Unlock()

		if w.cfg.OnChange != nil {
			if err := w.cfg.OnChange(ctx, changed); err != nil {
				w.logger.Error("Change handler failed", "error", err)
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
			w.logger.Warn("Close fsnotify", "error", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return fmt.Errorf("watch: fsnotify event channel closed unexpectedly")
			}

			pkg, ok := w.packageFor(evt.Name)
			if !ok {
				continue
			}

			if evt.Has(fsnotify.Create) {
				w.maybeAddDir(evt.Name)
			}

			mu.Lock()
			pending[pkg] = struct{}{}
			if timer == nil {
				timer = time.AfterFunc(w.debounce, fire)
			} else {
				timer.Reset(w.debounce)
			}
			mu.Unlock()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return fmt.Errorf("watch: fsnotify error channel closed unexpectedly")
			}
			if hint, fatal := exhausted(err); fatal {
				return &ExhaustedError{Hint: hint, Err: err}
			}
			w.logger.Warn("fsnotify error", "error", err)
		}
	}
}

// ExhaustedError is returned by Run when the operating system stops delivering
// events, usually because a watch or handle limit was hit.
type ExhaustedError struct {
	// Hint names the limit to raise or the condition to fix.
	Hint string
	Err  error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("watch: cannot watch the package roots any longer (%s): %v", e.Hint, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// packageFor maps an event path to the package directory it belongs to.
// Creating or removing a package directory itself always counts; deeper
// paths must match a watch pattern and no ignore pattern.
func (w *Watcher) packageFor(path string) (string, bool) {
	for _, root := range w.roots {
		rel, err := filepath.Rel(root, path)
		if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
			continue
		}
		rel = filepath.ToSlash(rel)
		if matchAny(w.ignores, rel) {
			return "", false
		}

		top, rest, nested := strings.Cut(rel, "/")
		if strings.HasPrefix(top, ".") {
			return "", false
		}
		if nested && !matchAny(w.patterns, strings.ToLower(rest)) {
			return "", false
		}
		return filepath.Join(root, top), true
	}
	return "", false
}

// addDirectories registers root and every non-ignored directory below it.
func (w *Watcher) addDirectories(root string) error {
	walkErr := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			w.logger.Warn("Skipping inaccessible path", "path", path, "error", err)
			return nil //nolint:nilerr // intentional skip of inaccessible paths
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.ignoredDir(root, path) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch: add directory %q: %w", path, err)
		}
		return nil
	})
	if walkErr != nil {
		return fmt.Errorf("watch: walk %s: %w", root, walkErr)
	}
	return nil
}

// maybeAddDir watches directories created after startup.
func (w *Watcher) maybeAddDir(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return
	}
	for _, root := range w.roots {
		if rel, err := filepath.Rel(root, path); err == nil && !strings.HasPrefix(rel, "..") {
			if w.ignoredDir(root, path) {
				return
			}
			if err := w.addDirectories(path); err != nil {
				w.logger.Warn("Cannot watch new directory", "path", path, "error", err)
			}
			return
		}
	}
}

func (w *Watcher) ignoredDir(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return true
	}
	rel = filepath.ToSlash(rel)
	return strings.HasPrefix(filepath.Base(path), ".") || matchAny(w.ignores, rel) || matchAny(w.ignores, rel+"/")
}

func matchAny(patterns []string, rel string) bool {
	for _, pat := range patterns {
		if ok, err := doublestar.Match(pat, rel); err == nil && ok {
			return true
		}
	}
	return false
}

// DefaultIgnores returns a copy of the built-in ignore patterns.
func DefaultIgnores() []string {
	return slices.Clone(defaultIgnores)
}

// validatePatterns checks that every pattern is a valid doublestar glob.
func validatePatterns(patterns []string, label string) error {
	for _, pat := range patterns {
		if !doublestar.ValidatePattern(pat) {
			return fmt.Errorf("watch: invalid %s pattern %q: %w", label, pat, doublestar.ErrBadPattern)
		}
	}
	return nil
}
