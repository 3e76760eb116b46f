// SPDX-License-Identifier: MPL-2.0

// Package playerconfig reads and writes the game's config_player.xml and
// detects the scripting extensions installed next to the game.
package playerconfig

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/beevik/etree"

	"github.com/modsmith/modsmith/internal/xmltree"
	"github.com/modsmith/modsmith/pkg/modunit"
)

const (
	// FileName is the player configuration file in the game directory.
	FileName = "config_player.xml"

	depsFile  = "Barotrauma.deps.json"
	luaMarker = "Luatrauma"
	luaCsFile = "LuaCsSetupConfig.xml"
)

// ErrMissing is returned by WriteActive when the player configuration does not exist.
var ErrMissing = errors.New("config_player.xml not found")

// Scripting reports which script engines the game installation supports.
type Scripting struct {
	Lua    bool
	CSharp bool
}

// Path returns the player configuration path inside gameDir.
func Path(gameDir string) string {
	return filepath.Join(gameDir, FileName)
}

// ReadActiveOrder returns the 1-based position of every package listed in the
// player configuration, keyed by the second-last segment of its path, which
// is the package directory name. A missing file yields an empty map.
func ReadActiveOrder(path string) (map[string]int, error) {
	order := map[string]int{}

	doc, err := xmltree.Load(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return order, nil
		}
		return nil, err
	}

	for i, pkg := range xmltree.FindElements(doc.Root(), "package") {
		raw := xmltree.AttrOr(pkg, "path", "")
		if raw == "" {
			continue
		}
		parts := strings.Split(strings.ReplaceAll(raw, `\`, "/"), "/")
		if len(parts) < 2 {
			continue
		}
		order[parts[len(parts)-2]] = i + 1
	}
	return order, nil
}

// WriteActive replaces the regularpackages list with pkgs, in order. Each
// package is written as a comment with its name followed by a package element.
// The file is replaced atomically.
func WriteActive(path string, pkgs []*modunit.Package) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%s: %w", path, ErrMissing)
		}
		return err
	}

	doc, err := xmltree.Load(path)
	if err != nil {
		return fmt.Errorf("invalid player config: %w", err)
	}

	list := regularPackages(doc.Root())
	for _, tok := range append([]etree.Token(nil), list.Child...) {
		list.RemoveChild(tok)
	}
	for _, p := range pkgs {
		list.CreateComment(p.Name)
		el := list.CreateElement("package")
		el.CreateAttr("path", filepath.ToSlash(p.ConfigPath())+"/"+modunit.IdentityFile)
	}

	doc.Indent(2)
	return xmltree.SaveAtomic(doc, path)
}

// regularPackages finds or creates the regularpackages element. A new element
// goes under contentpackages when present, otherwise under the root.
func regularPackages(root *etree.Element) *etree.Element {
	if found := xmltree.FindElements(root, "regularpackages"); len(found) > 0 {
		return found[0]
	}
	parent := root
	if found := xmltree.FindElements(root, "contentpackages"); len(found) > 0 {
		parent = found[0]
	}
	return parent.CreateElement("regularpackages")
}

// DetectScripting inspects the game directory for Lua and C# scripting
// support. Unreadable files count as unsupported.
func DetectScripting(gameDir string) Scripting {
	var s Scripting

	if data, err := os.ReadFile(filepath.Join(gameDir, depsFile)); err == nil {
		s.Lua = strings.Contains(string(data), luaMarker)
	}
	if doc, err := xmltree.Load(filepath.Join(gameDir, luaCsFile)); err == nil {
		s.CSharp = strings.EqualFold(xmltree.AttrOr(doc.Root(), "EnableCsScripting", "false"), "true")
	}
	return s
}
