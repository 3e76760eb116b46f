// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/modsmith/modsmith/internal/cache"
	"github.com/modsmith/modsmith/pkg/idextract"
	"github.com/modsmith/modsmith/pkg/modunit"
)

// MaxWorkers caps the default worker count.
const MaxWorkers = 32

type (
	// Scanner discovers packages. The zero value is usable: it scans without
	// a cache, with a fresh extractor and the default worker count.
	Scanner struct {
		// Cache is consulted before building a package and updated after.
		Cache *cache.Cache
		// Extractor is shared by every build so unknown tags accumulate.
		Extractor *idextract.Extractor
		// Workers bounds both fan-outs. Zero means DefaultWorkers().
		Workers int
		// LibraryDir is searched for <id>.xml when a package lacks metadata.xml.
		LibraryDir string
		Logger     *log.Logger
	}

	// Result is the outcome of a scan.
	Result struct {
		// Packages maps package id to package.
		Packages map[string]*modunit.Package
		// Order lists the package ids in discovery order.
		Order       []string
		Diagnostics []Diagnostic
	}

	// outcome is the per-candidate result of a worker.
	outcome struct {
		pkg   *modunit.Package
		diags []Diagnostic
	}
)

// DefaultWorkers returns four workers per logical CPU, capped at MaxWorkers.
func DefaultWorkers() int {
	return min(MaxWorkers, 4*runtime.NumCPU())
}

// Scan discovers packages under roots. Roots that do not exist are skipped.
// Failures for individual directories become diagnostics; the only error
// returned is the context's, when the scan is abandoned.
func (s *Scanner) Scan(ctx context.Context, roots []string) (*Result, error) {
	logger := s.logger()
	if s.Extractor == nil {
		s.Extractor = idextract.New()
	}

	res := &Result{Packages: map[string]*modunit.Package{}}
	candidates, diags := listCandidates(roots)
	res.Diagnostics = append(res.Diagnostics, diags...)
	logger.Debug("Scanning packages", "roots", len(roots), "candidates", len(candidates))

	outcomes := make([]outcome, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers())
	for i, dir := range candidates {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i] = s.load(gctx, dir)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return res, err
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}

	var found []*modunit.Package
	for _, o := range outcomes {
		res.Diagnostics = append(res.Diagnostics, o.diags...)
		if o.pkg != nil {
			found = append(found, o.pkg)
		}
	}

	kept, dupDiags := dedupe(found)
	res.Diagnostics = append(res.Diagnostics, dupDiags...)
	for _, p := range kept {
		res.Packages[p.ID()] = p
		res.Order = append(res.Order, p.ID())
	}

	if s.Cache != nil {
		if err := s.Cache.Flush(); err != nil {
			logger.Warn("Failed to write package cache", "error", err)
			res.Diagnostics = append(res.Diagnostics, Diagnostic{
				Severity: SeverityWarning,
				Code:     CodeCacheFlush,
				Message:  fmt.Sprintf("failed to write package cache: %v", err),
				Path:     s.Cache.Path(),
				Cause:    err,
			})
		}
	}

	logger.Info("Scan complete", "packages", len(res.Packages), "diagnostics", len(res.Diagnostics))
	return res, nil
}

func (s *Scanner) logger() *log.Logger {
	if s.Logger == nil {
		s.Logger = log.Default().WithPrefix("scan")
	}
	return s.Logger
}

func (s *Scanner) workers() int {
	if s.Workers > 0 {
		return s.Workers
	}
	return DefaultWorkers()
}

// listCandidates returns the non-hidden immediate subdirectories of every
// existing root, de-duplicated by resolved path, in root then name order.
func listCandidates(roots []string) ([]string, []Diagnostic) {
	var (
		candidates []string
		diags      []Diagnostic
	)
	seen := map[string]bool{}

	for _, root := range roots {
		if root == "" {
			continue
		}
		entries, err := os.ReadDir(root)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				diags = append(diags, Diagnostic{
					Severity: SeverityWarning,
					Code:     CodeRootUnreadable,
					Message:  fmt.Sprintf("cannot list mod root %q: %v", root, err),
					Path:     root,
					Cause:    err,
				})
			}
			continue
		}

		for _, e := range entries {
			if strings.HasPrefix(e.Name(), ".") {
				continue
			}
			path := filepath.Join(root, e.Name())
			if info, err := os.Stat(path); err != nil || !info.IsDir() {
				continue
			}
			key := cache.Key(path)
			if seen[key] {
				continue
			}
			seen[key] = true
			candidates = append(candidates, key)
		}
	}
	return candidates, diags
}

// dedupe keeps one package per name and then one per id.
//
// See pickCopy for which member of a name group survives.
func dedupe(pkgs []*modunit.Package) ([]*modunit.Package, []Diagnostic) {
	groups := map[string][]*modunit.Package{}
	var names []string
	for _, p := range pkgs {
		if _, ok := groups[p.Name]; !ok {
			names = append(names, p.Name)
		}
		groups[p.Name] = append(groups[p.Name], p)
	}

	winners := map[*modunit.Package]bool{}
	var diags []Diagnostic
	for _, name := range names {
		group := groups[name]
		w := pickCopy(group)
		winners[w] = true
		for _, p := range group {
			if p == w {
				continue
			}
			diags = append(diags, Diagnostic{
				Severity: SeverityWarning,
				Code:     CodeDuplicateName,
				Message:  fmt.Sprintf("package %q at %s shadowed by %s", name, p.Path, w.Path),
				Path:     p.Path,
			})
		}
	}

	var kept []*modunit.Package
	ids := map[string]*modunit.Package{}
	for _, p := range pkgs {
		if !winners[p] {
			continue
		}
		if prev, ok := ids[p.ID()]; ok {
			diags = append(diags, Diagnostic{
				Severity: SeverityWarning,
				Code:     CodeDuplicateID,
				Message:  fmt.Sprintf("package id %s at %s already used by %s", p.ID(), p.Path, prev.Path),
				Path:     p.Path,
			})
			continue
		}
		ids[p.ID()] = p
		kept = append(kept, p)
	}
	return kept, diags
}

// pickCopy chooses among packages sharing a name. A group mixing Steam and
// non-Steam copies keeps its first Steam copy; a group of Steam copies only
// prefers a local one.
func pickCopy(group []*modunit.Package) *modunit.Package {
	var steam []*modunit.Package
	for _, p := range group {
		if p.SteamID != "" {
			steam = append(steam, p)
		}
	}
	switch {
	case len(steam) == 0:
		return group[0]
	case len(steam) < len(group):
		return steam[0]
	}
	for _, p := range steam {
		if p.Local {
			return p
		}
	}
	return steam[0]
}
