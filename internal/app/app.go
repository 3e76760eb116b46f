// SPDX-License-Identifier: MPL-2.0

package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/modsmith/modsmith/internal/cache"
	"github.com/modsmith/modsmith/internal/config"
	"github.com/modsmith/modsmith/internal/discovery"
	"github.com/modsmith/modsmith/internal/issue"
	"github.com/modsmith/modsmith/internal/loc"
	"github.com/modsmith/modsmith/internal/playerconfig"
	"github.com/modsmith/modsmith/internal/resolver"
	"github.com/modsmith/modsmith/internal/toggle"
	"github.com/modsmith/modsmith/pkg/idextract"
	"github.com/modsmith/modsmith/pkg/modunit"
)

// ErrNoGameDir is returned by Open when game_dir is unset or not a directory.
var ErrNoGameDir = errors.New("game directory not found")

// Session is one working copy of the package list. It is not safe for
// concurrent use.
type Session struct {
	cfg     *config.Config
	logger  *log.Logger
	cache   *cache.Cache
	scanner *discovery.Scanner
	toggler *toggle.Toggler
	manager *resolver.Manager

	diagnostics []discovery.Diagnostic
	scripting   playerconfig.Scripting
	unmatched   []string
}

// Open validates the game directory, scans every package root and restores
// the active order recorded in the game's player configuration.
func Open(ctx context.Context, cfg *config.Config, logger *log.Logger) (*Session, error) {
	if logger == nil {
		logger = log.Default()
	}
	if err := checkGameDir(cfg.GameDir); err != nil {
		return nil, err
	}

	s := &Session{
		cfg:       cfg,
		logger:    logger,
		scripting: playerconfig.DetectScripting(cfg.GameDir),
		toggler: &toggle.Toggler{
			LocalModsDir: cfg.LocalModsDir(),
			Workers:      cfg.Workers,
			Logger:       logger.WithPrefix("toggle"),
		},
	}

	if path, err := cfg.CachePath(); err != nil {
		logger.Warn("Package cache disabled", "error", err)
	} else {
		s.cache = cache.Open(path, logger.WithPrefix("cache"))
	}
	s.scanner = &discovery.Scanner{
		Cache:      s.cache,
		Extractor:  idextract.New(),
		Workers:    cfg.Workers,
		LibraryDir: cfg.LibraryDir,
		Logger:     logger.WithPrefix("scan"),
	}

	if err := s.scan(ctx); err != nil {
		return nil, err
	}

	order, err := playerconfig.ReadActiveOrder(s.PlayerConfigPath())
	if err != nil {
		logger.Warn("Cannot read active packages", "path", s.PlayerConfigPath(), "error", err)
	}
	s.unmatched = s.restore(order)
	s.manager.ComputeErrors()

	logger.Debug("Session opened",
		"known", s.manager.Len(), "active", len(s.manager.ActiveIDs()), "unmatched", len(s.unmatched))
	return s, nil
}

func checkGameDir(dir string) error {
	var cause error
	if dir == "" {
		cause = ErrNoGameDir
	} else if info, err := os.Stat(dir); err != nil {
		cause = fmt.Errorf("%w: %w", ErrNoGameDir, err)
	} else if !info.IsDir() {
		cause = fmt.Errorf("%w: %s is not a directory", ErrNoGameDir, dir)
	}
	if cause == nil {
		return nil
	}
	return issue.NewErrorContext().
		WithOperation("open game directory").
		WithResource(dir).
		WithSuggestion("Set game_dir in the configuration file or MODSMITH_GAME_DIR").
		WithSuggestion("Run 'modsmith config init' to create a configuration file").
		WithIssue(issue.GameDirNotFoundId).
		Wrap(cause).
		BuildError()
}

// scan rebuilds the manager from the package roots. All packages start
// inactive.
func (s *Session) scan(ctx context.Context) error {
	res, err := s.scanner.Scan(ctx, s.cfg.Roots())
	if err != nil {
		return fmt.Errorf("scan packages: %w", err)
	}
	s.diagnostics = res.Diagnostics

	pkgs := make([]*modunit.Package, 0, len(res.Order))
	for _, id := range res.Order {
		pkgs = append(pkgs, res.Packages[id])
	}
	s.manager = resolver.NewManager(pkgs,
		resolver.WithLogger(s.logger.WithPrefix("resolver")),
		resolver.WithTranslator(loc.New(s.cfg.LanguageTag())),
	)
	return nil
}

// restore activates the packages named in order by their position. Keys are
// matched against package ids first and directory names second. Unmatched
// keys are returned in order.
func (s *Session) restore(order map[string]int) []string {
	keys := make([]string, 0, len(order))
	for k := range order {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b string) int { return order[a] - order[b] })

	byDir := map[string]string{}
	for _, p := range s.Packages() {
		base := filepath.Base(p.Path)
		if _, taken := byDir[base]; !taken {
			byDir[base] = p.ID()
		}
	}

	var (
		ids       []string
		unmatched []string
	)
	for _, k := range keys {
		if _, ok := s.manager.Package(k); ok {
			ids = append(ids, k)
			continue
		}
		if id, ok := byDir[k]; ok {
			ids = append(ids, id)
			continue
		}
		unmatched = append(unmatched, k)
	}
	s.manager.SetActiveOrder(ids)
	return unmatched
}

// Rescan rediscovers every package while keeping the current active order.
// Active packages that disappeared are dropped from the order.
func (s *Session) Rescan(ctx context.Context) error {
	active := s.manager.ActiveIDs()
	if err := s.scan(ctx); err != nil {
		return err
	}
	if gone := s.manager.SetActiveOrder(active); len(gone) > 0 {
		s.logger.Warn("Active packages disappeared", "ids", gone)
	}
	s.manager.ComputeErrors()
	return nil
}

// Config returns the configuration the session was opened with.
func (s *Session) Config() *config.Config { return s.cfg }

// Manager exposes the activation state.
func (s *Session) Manager() *resolver.Manager { return s.manager }

// Diagnostics returns the problems found by the last scan.
func (s *Session) Diagnostics() []discovery.Diagnostic { return slices.Clone(s.diagnostics) }

// Scripting reports the script engines installed in the game directory.
func (s *Session) Scripting() playerconfig.Scripting { return s.scripting }

// Unmatched lists player configuration entries that named no known package.
func (s *Session) Unmatched() []string { return slices.Clone(s.unmatched) }

// PlayerConfigPath returns the path of config_player.xml.
func (s *Session) PlayerConfigPath() string { return playerconfig.Path(s.cfg.GameDir) }

// Packages returns every known package, active ones first in load order.
func (s *Session) Packages() []*modunit.Package {
	return slices.Concat(s.manager.Active(), s.manager.Inactive())
}

// Sort reorders the active packages under their dependency constraints.
func (s *Session) Sort() *resolver.SortReport { return s.manager.Sort() }

// Activate appends the given packages to the active list.
func (s *Session) Activate(ids ...string) error {
	for _, id := range ids {
		if err := s.manager.Activate(id); err != nil {
			return err
		}
	}
	s.manager.ComputeErrors()
	return nil
}

// Deactivate removes the given packages from the active list and returns
// their optional content to its distributed state.
func (s *Session) Deactivate(ctx context.Context, ids ...string) (*toggle.Result, error) {
	total := &toggle.Result{}
	for _, id := range ids {
		if err := s.manager.Deactivate(id); err != nil {
			return total, err
		}
		p, _ := s.manager.Package(id)
		if !p.HasToggleContent {
			continue
		}
		res, err := s.toggler.Rollback(ctx, p)
		total.Merge(res)
		if err != nil {
			return total, err
		}
	}
	s.manager.ComputeErrors()
	return total, nil
}

// Apply switches the optional content of every active package to match the
// active set. Packages are processed one at a time in load order.
func (s *Session) Apply(ctx context.Context) (*toggle.Result, error) {
	active := s.manager.ActiveSet()
	total := &toggle.Result{}
	for _, p := range s.manager.Active() {
		if !p.HasToggleContent {
			continue
		}
		res, err := s.toggler.Apply(ctx, p, active)
		total.Merge(res)
		if err != nil {
			return total, err
		}
		s.logger.Debug("Applied package content", "id", p.ID(), "result", res)
	}
	return total, nil
}

// Rollback returns the optional content of every known package to its
// distributed state.
func (s *Session) Rollback(ctx context.Context) (*toggle.Result, error) {
	total := &toggle.Result{}
	for _, p := range s.Packages() {
		if !p.HasToggleContent {
			continue
		}
		res, err := s.toggler.Rollback(ctx, p)
		total.Merge(res)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Save applies the active set to package content and writes the active list
// to the player configuration.
func (s *Session) Save(ctx context.Context) (*toggle.Result, error) {
	res, err := s.Apply(ctx)
	if err != nil {
		return res, err
	}
	return res, s.writeActive()
}

// Shutdown writes the active list and then rolls back the optional content of
// every package without spawning goroutines, so it is safe to call from a
// signal handler path.
func (s *Session) Shutdown() (*toggle.Result, error) {
	err := s.writeActive()

	total := &toggle.Result{}
	for _, p := range s.Packages() {
		if p.HasToggleContent {
			total.Merge(s.toggler.RollbackSequential(p))
		}
	}
	return total, err
}

func (s *Session) writeActive() error {
	path := s.PlayerConfigPath()
	err := playerconfig.WriteActive(path, s.manager.Active())
	switch {
	case err == nil:
		s.logger.Info("Active packages written", "path", path, "count", len(s.manager.ActiveIDs()))
		return nil
	case errors.Is(err, playerconfig.ErrMissing):
		return issue.NewErrorContext().
			WithOperation("write active packages").
			WithResource(path).
			WithSuggestion("Start the game once so it creates " + playerconfig.FileName).
			WithIssue(issue.PlayerConfigMissingId).
			Wrap(err).
			BuildError()
	case errors.Is(err, fs.ErrPermission):
		return issue.NewErrorContext().
			WithOperation("write active packages").
			WithResource(path).
			WithSuggestion("Close the game and check the file permissions").
			WithIssue(issue.PermissionDeniedId).
			Wrap(err).
			BuildError()
	default:
		return issue.WrapWithContext(err, "write active packages", path)
	}
}

// ClearCache drops every cached package.
func (s *Session) ClearCache() {
	if s.cache != nil {
		s.cache.Clear()
	}
}
