// SPDX-License-Identifier: MPL-2.0

// Package toggle switches optional package content on and off on disk.
//
// Two mechanisms are supported. A package may ship modparts.xml, whose entries
// name filelist.xml entries to enable or disable; disabling comments the entry
// out and renames the referenced file to *.xml_off. Content files may also
// carry inline regions:
//
//	<!-- BTM:extra start setState="on" conditions="2701251094" -->
//	<!--<Item identifier="extra"/>-->
//	<!-- BTM:extra end -->
//
// Applying a package makes each region match its setState when its condition
// holds. Rolling back sets every region to the opposite of its setState, which
// is the state the package is distributed in.
package toggle

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/modsmith/modsmith/internal/condition"
	"github.com/modsmith/modsmith/internal/xmltree"
	"github.com/modsmith/modsmith/pkg/modunit"
)

// DisabledSuffix is appended to the extension of disabled content files.
const DisabledSuffix = "_off"

var (
	regionStart = regexp.MustCompile(`BTM:.*start`)
	regionEnd   = regexp.MustCompile(`BTM:.*end`)
	conditionRe = regexp.MustCompile(`conditions="(.*?)"`)
	stateRe     = regexp.MustCompile(`setState="(.*?)"`)

	systemFiles = []string{
		"filelist.xml", "metadata.xml", "modparts.xml",
		"file_list.xml", "files_list.xml", "runconfig.xml",
	}
)

type (
	// Toggler rewrites package files. The zero value is usable.
	Toggler struct {
		// LocalModsDir resolves modparts.xml paths that start with LocalMods/.
		LocalModsDir string
		// Workers bounds the per-file fan-out. Zero means one per file.
		Workers int
		// Evaluate decides region and manifest conditions. Nil means
		// condition.Evaluate.
		Evaluate condition.Func
		Logger   *log.Logger
	}

	// Result reports what a run changed.
	Result struct {
		// Changed lists rewritten XML files.
		Changed []string
		// Renamed lists content files moved to or from their disabled name,
		// by their enabled path.
		Renamed []string
		// Failed counts files that could not be processed.
		Failed int
	}

	run struct {
		t        *Toggler
		pkg      *modunit.Package
		active   map[string]struct{}
		rollback bool

		mu  sync.Mutex
		res Result
	}
)

// Apply enables or disables the optional content of p for the given active set.
func (t *Toggler) Apply(ctx context.Context, p *modunit.Package, active map[string]struct{}) (*Result, error) {
	r := t.newRun(p, active, false)
	r.manifest()
	if err := r.files(ctx, true); err != nil {
		return r.result(), err
	}
	return r.result(), nil
}

// Rollback returns the optional content of p to its distributed state.
func (t *Toggler) Rollback(ctx context.Context, p *modunit.Package) (*Result, error) {
	r := t.newRun(p, nil, true)
	r.manifest()
	if err := r.files(ctx, true); err != nil {
		return r.result(), err
	}
	return r.result(), nil
}

// RollbackSequential is Rollback without goroutines, for shutdown paths.
func (t *Toggler) RollbackSequential(p *modunit.Package) *Result {
	r := t.newRun(p, nil, true)
	r.manifest()
	_ = r.files(context.Background(), false)
	return r.result()
}

func (t *Toggler) newRun(p *modunit.Package, active map[string]struct{}, rollback bool) *run {
	return &run{t: t, pkg: p, active: active, rollback: rollback}
}

func (t *Toggler) logger() *log.Logger {
	if t.Logger != nil {
		return t.Logger
	}
	return log.Default().WithPrefix("toggle")
}

func (t *Toggler) evaluate(expr string, active map[string]struct{}) bool {
	if t.Evaluate != nil {
		return t.Evaluate(expr, active)
	}
	return condition.Evaluate(expr, active)
}

func (r *run) result() *Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := r.res
	res.Changed = slices.Clone(res.Changed)
	res.Renamed = slices.Clone(res.Renamed)
	slices.Sort(res.Changed)
	slices.Sort(res.Renamed)
	return &res
}

func (r *run) record(changed, renamed string, failed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if changed != "" {
		r.res.Changed = append(r.res.Changed, changed)
	}
	if renamed != "" {
		r.res.Renamed = append(r.res.Renamed, renamed)
	}
	if failed {
		r.res.Failed++
	}
}

// files processes the inline regions of every content file of the package.
func (r *run) files(ctx context.Context, parallel bool) error {
	paths := contentFiles(r.pkg.Path)
	if !parallel {
		for _, path := range paths {
			r.file(path)
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	if r.t.Workers > 0 {
		g.SetLimit(r.t.Workers)
	}
	for _, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r.file(path)
			return nil
		})
	}
	return g.Wait()
}

// file flips the regions of one content file and saves it if any node
// changed. Only the flipped nodes and their start markers are rewritten.
func (r *run) file(path string) {
	logger := r.t.logger()

	src, err := xmltree.LoadSource(path)
	if err != nil {
		logger.Error("Skipping unparsable file", "path", path, "error", err)
		r.record("", "", true)
		return
	}

	for _, region := range src.Spans(regionStart, regionEnd) {
		marker := src.CommentText(region.Start)
		want, ok := r.regionState(path, marker)
		if !ok {
			continue
		}

		pads, bare := readPads(marker)
		for i, idx := range region.Nodes {
			if err := flipNode(src, idx, want, i, pads); err != nil {
				logger.Debug("Leaving node unchanged", "path", path, "error", err)
			}
		}
		if updated := writePads(bare, pads); updated != marker {
			if err := src.Replace(region.Start, "<!--"+updated+"-->"); err != nil {
				logger.Debug("Leaving marker unchanged", "path", path, "error", err)
			}
		}
	}

	if !src.Modified() {
		return
	}
	if err := src.Save(path); err != nil {
		logger.Error("Failed to save file", "path", path, "error", err)
		r.record("", "", true)
		return
	}
	r.record(path, "", false)
}

// regionState returns the liveness a region should have, or false when the
// region is to be left alone.
func (r *run) regionState(path, marker string) (live, ok bool) {
	m := stateRe.FindStringSubmatch(marker)
	if m == nil {
		r.t.logger().Error("Region marker without setState", "path", path, "marker", strings.TrimSpace(marker))
		return false, false
	}
	on := isOn(m[1])
	if r.rollback {
		return !on, true
	}
	if c := conditionRe.FindStringSubmatch(marker); c != nil && c[1] != "" {
		if !r.t.evaluate(c[1], r.active) {
			return false, false
		}
	}
	return on, true
}

// flipNode makes the i-th node of a region live exactly when want is true.
// Uncommenting records the comment's padding in pads; commenting restores
// and forgets it, so a flip and its reverse give back the original bytes.
func flipNode(src *xmltree.Source, idx int, want bool, i int, pads map[int]padding) error {
	switch src.Node(idx).Kind {
	case xmltree.CommentNode:
		if !want {
			return nil
		}
		lead, body, trail := xmltree.SplitPadding(src.CommentText(idx))
		if _, err := xmltree.ParseElement(body); err != nil {
			return err
		}
		if err := src.Replace(idx, body); err != nil {
			return err
		}
		if lead != "" || trail != "" {
			pads[i] = padding{lead: lead, trail: trail}
		}
	case xmltree.ElementNode:
		if want {
			return nil
		}
		pad := pads[i]
		text, err := xmltree.Comment(pad.lead + src.Raw(idx) + pad.trail)
		if err != nil {
			return err
		}
		if err := src.Replace(idx, text); err != nil {
			return err
		}
		delete(pads, i)
	}
	return nil
}

func isOn(state string) bool {
	switch strings.ToLower(strings.TrimSpace(state)) {
	case "on", "1", "true":
		return true
	}
	return false
}

// contentFiles lists the *.xml files of a package, skipping descriptors.
func contentFiles(dir string) []string {
	var files []string
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		name := strings.ToLower(d.Name())
		if slices.Contains(systemFiles, name) {
			return nil
		}
		if ok, _ := doublestar.Match("*.xml", name); ok {
			files = append(files, path)
		}
		return nil
	})
	return files
}

func (res *Result) String() string {
	return fmt.Sprintf("%d changed, %d renamed, %d failed", len(res.Changed), len(res.Renamed), res.Failed)
}

// Merge adds the changes and failures of other to res.
func (res *Result) Merge(other *Result) {
	if other == nil {
		return
	}
	res.Changed = append(res.Changed, other.Changed...)
	res.Renamed = append(res.Renamed, other.Renamed...)
	res.Failed += other.Failed
}
