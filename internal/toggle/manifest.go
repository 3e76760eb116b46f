// SPDX-License-Identifier: MPL-2.0

package toggle

import (
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/beevik/etree"

	"github.com/modsmith/modsmith/internal/xmltree"
	"github.com/modsmith/modsmith/pkg/modunit"
)

const (
	modDirVar    = "%ModDir%"
	localModsDir = modunit.LocalModsDir + "/"
)

// manifest applies modparts.xml to filelist.xml. Each entry flips the first
// filelist entry with the same tag and file, and renames that file on disk.
// The filelist is replaced atomically when anything changed.
func (r *run) manifest() {
	logger := r.t.logger()
	partsPath := filepath.Join(r.pkg.Path, modunit.DirectiveFile)
	listPath := filepath.Join(r.pkg.Path, modunit.IdentityFile)

	if _, err := os.Stat(partsPath); err != nil {
		return
	}
	parts, err := xmltree.Load(partsPath)
	if err != nil {
		logger.Error("Skipping unparsable toggle manifest", "path", partsPath, "error", err)
		r.record("", "", true)
		return
	}
	list, err := xmltree.LoadSource(listPath)
	if err != nil {
		logger.Error("Skipping unparsable filelist", "path", listPath, "error", err)
		r.record("", "", true)
		return
	}

	for _, action := range xmltree.Elements(parts.Root()) {
		if !r.rollback {
			if cond := xmltree.AttrOr(action, "conditions", ""); cond != "" && !r.t.evaluate(cond, r.active) {
				continue
			}
		}

		file := xmltree.AttrOr(action, "file", "")
		kind := xmltree.AttrOr(action, "type", "")
		state := xmltree.AttrOr(action, "setState", "")
		if file == "" || kind == "" || state == "" {
			continue
		}

		want := isOn(state)
		if r.rollback {
			want = !want
		}
		r.flipEntry(list, kind, file, want)
	}

	if !list.Modified() {
		return
	}
	if err := list.SaveAtomic(listPath); err != nil {
		logger.Error("Failed to save filelist", "path", listPath, "error", err)
		r.record("", "", true)
		return
	}
	r.record(listPath, "", false)
}

// flipEntry finds the filelist entry for (kind, file) and makes it live or
// commented. Whitespace inside a commented entry is dropped when it is
// uncommented.
func (r *run) flipEntry(list *xmltree.Source, kind, file string, want bool) {
	for _, idx := range list.Children(list.Root()) {
		commented := list.Node(idx).Kind == xmltree.CommentNode

		var (
			entry *etree.Element
			body  string
			err   error
		)
		if commented {
			_, body, _ = xmltree.SplitPadding(list.CommentText(idx))
			entry, err = xmltree.ParseElement(body)
		} else {
			entry, err = list.Element(idx)
		}
		if err != nil {
			continue
		}

		entryFile := xmltree.AttrOr(entry, "file", "")
		if entryFile == "" || !strings.EqualFold(entry.Tag, kind) || !samePath(entryFile, file) {
			continue
		}

		switch {
		case want && commented:
			if err := list.Replace(idx, body); err != nil {
				return
			}
			r.rename(file, true)
		case !want && !commented:
			text, err := xmltree.Comment(list.Raw(idx))
			if err != nil {
				return
			}
			if err := list.Replace(idx, text); err != nil {
				return
			}
			r.rename(file, false)
		}
		return
	}
}

// rename moves an .xml content file to or from its disabled name. Files with
// other extensions are never renamed.
func (r *run) rename(raw string, enable bool) {
	target := r.resolve(raw)
	if target == "" || filepath.Ext(target) != ".xml" {
		return
	}
	disabled := target + DisabledSuffix

	from, to := target, disabled
	if enable {
		from, to = disabled, target
	}
	if _, err := os.Stat(from); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			r.t.logger().Error("Cannot stat content file", "path", from, "error", err)
		}
		return
	}
	if err := os.Rename(from, to); err != nil {
		r.t.logger().Error("Failed to rename content file", "from", from, "to", to, "error", err)
		r.record("", "", true)
		return
	}
	r.record("", target, false)
}

// resolve maps a filelist path to a filesystem path. %ModDir% is the package
// directory, a leading LocalMods/ is the configured local mods root, and other
// relative paths are taken relative to the package directory.
func (r *run) resolve(raw string) string {
	p := filepath.ToSlash(raw)
	switch {
	case strings.HasPrefix(p, modDirVar+"/"):
		return filepath.Join(r.pkg.Path, filepath.FromSlash(strings.TrimPrefix(p, modDirVar+"/")))
	case strings.HasPrefix(p, "%"):
		r.t.logger().Warn("Unsupported path variable", "path", raw)
		return ""
	case strings.HasPrefix(p, localModsDir):
		if r.t.LocalModsDir == "" {
			return ""
		}
		return filepath.Join(r.t.LocalModsDir, filepath.FromSlash(strings.TrimPrefix(p, localModsDir)))
	case filepath.IsAbs(raw):
		return raw
	default:
		return filepath.Join(r.pkg.Path, filepath.FromSlash(p))
	}
}

func samePath(a, b string) bool {
	return path.Clean(filepath.ToSlash(a)) == path.Clean(filepath.ToSlash(b))
}
