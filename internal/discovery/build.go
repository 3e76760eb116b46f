// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"github.com/modsmith/modsmith/internal/xmltree"
	"github.com/modsmith/modsmith/pkg/modunit"
)

var (
	// systemFiles are descriptors that never carry content identifiers.
	systemFiles = map[string]bool{
		"filelist.xml":   true,
		"metadata.xml":   true,
		"modparts.xml":   true,
		"file_list.xml":  true,
		"files_list.xml": true,
		"runconfig.xml":  true,
	}

	toggleMarker = regexp.MustCompile(`BTM:`)
)

const (
	contentPattern = "**/*.xml"
	luaPattern     = "**/*.lua"
	csharpPattern  = "**/*.{cs,dll}"
)

// build accumulates the results of one package's content fan-out. mu guards
// every field below it.
type build struct {
	mu        sync.Mutex
	adds      modunit.IDSet
	overrides modunit.IDSet
	toggle    bool
}

// load returns the package in dir from the cache or from a full build.
func (s *Scanner) load(ctx context.Context, dir string) outcome {
	if s.Cache != nil {
		if p, ok := s.Cache.Lookup(dir); ok {
			return outcome{pkg: p}
		}
	}

	p, diags := s.build(ctx, dir)
	if p != nil && s.Cache != nil && ctx.Err() == nil {
		s.Cache.Store(p)
	}
	return outcome{pkg: p, diags: diags}
}

func (s *Scanner) build(ctx context.Context, dir string) (*modunit.Package, []Diagnostic) {
	logger := s.logger()

	p, err := modunit.ReadIdentity(dir)
	if err != nil {
		d := Diagnostic{Severity: SeverityWarning, Path: dir, Cause: err, Message: err.Error()}
		switch {
		case errors.Is(err, modunit.ErrNoIdentity):
			d.Code = CodeIdentityMissing
			logger.Debug("Skipping directory without filelist.xml", "path", dir)
		case errors.Is(err, modunit.ErrCorePackage):
			d.Code = CodeCorePackage
			logger.Warn("Core packages are not supported", "path", dir)
		default:
			d.Code = CodeIdentityInvalid
			d.Severity = SeverityError
			logger.Error("Failed to read package identity", "path", dir, "error", err)
		}
		return nil, []Diagnostic{d}
	}

	var diags []Diagnostic
	warnings, err := modunit.LoadMetadata(p, s.LibraryDir)
	if err != nil {
		logger.Warn("Ignoring package metadata", "package", p.ID(), "error", err)
		diags = append(diags, Diagnostic{
			Severity: SeverityWarning,
			Code:     CodeMetadataInvalid,
			Message:  err.Error(),
			Path:     dir,
			Cause:    err,
		})
	}
	for _, w := range warnings {
		logger.Warn("Ignoring dependency", "package", p.ID(), "error", w)
		diags = append(diags, Diagnostic{
			Severity: SeverityWarning,
			Code:     CodeDependencyKind,
			Message:  fmt.Sprintf("%s: %v", p.ID(), w),
			Path:     dir,
			Cause:    w,
		})
	}

	files := s.classifyFiles(p, dir)
	b := &build{adds: p.Adds, overrides: p.Overrides, toggle: p.HasToggleContent}
	s.extractContent(ctx, p, files, b)
	p.HasToggleContent = b.toggle

	logger.Debug("Built package", "package", p.ID(), "adds", len(p.Adds), "overrides", len(p.Overrides))
	return p, diags
}

// classifyFiles walks the package once, flags scripting usage and the toggle
// manifest, and returns the content files to extract from.
func (s *Scanner) classifyFiles(p *modunit.Package, dir string) []string {
	var content []string
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return nil
		}
		rel = strings.ToLower(filepath.ToSlash(rel))
		name := strings.ToLower(d.Name())

		switch {
		case match(luaPattern, rel):
			p.UsesLua = true
		case match(csharpPattern, rel):
			p.UsesCSharp = true
		case match(contentPattern, rel):
			if name == modunit.DirectiveFile {
				p.HasToggleContent = true
			}
			if !systemFiles[name] {
				content = append(content, path)
			}
		}
		return nil
	})
	return content
}

// extractContent parses every content file in parallel and merges the
// identifiers and toggle markers found into b.
func (s *Scanner) extractContent(ctx context.Context, p *modunit.Package, files []string, b *build) {
	logger := s.logger()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers())
	for _, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			doc, err := xmltree.Load(path)
			if err != nil {
				logger.Debug("Skipping unparsable content file", "package", p.ID(), "path", path, "error", err)
				return nil
			}

			found := s.Extractor.Extract(doc.Root())
			marked := false
			if !b.hasToggle() {
				marked = len(xmltree.FindComments(&doc.Element, toggleMarker)) > 0
			}

			b.mu.Lock()
			defer b.mu.Unlock()
			b.adds.Merge(found.Adds)
			b.overrides.Merge(found.Overrides)
			b.toggle = b.toggle || marked
			return nil
		})
	}
	// Cancellation leaves a partial package; the caller discards it with the scan.
	_ = g.Wait()
}

func (b *build) hasToggle() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.toggle
}

func match(pattern, rel string) bool {
	ok, err := doublestar.Match(pattern, rel)
	return err == nil && ok
}
