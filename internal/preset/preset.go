// SPDX-License-Identifier: MPL-2.0

// Package preset saves and restores named lists of active packages in the
// game's ModLists directory.
package preset

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/beevik/etree"

	"github.com/modsmith/modsmith/internal/xmltree"
	"github.com/modsmith/modsmith/pkg/modunit"
)

// DirName is the preset directory inside the game directory.
const DirName = "ModLists"

var (
	// ErrInvalidName is the sentinel error wrapped by InvalidNameError.
	ErrInvalidName = errors.New("invalid preset name")
	// ErrNotFound is returned when a preset file does not exist.
	ErrNotFound = errors.New("preset not found")
)

// InvalidNameError is returned when a preset name is empty or would escape
// the preset directory.
type InvalidNameError struct {
	Value string
}

func (e *InvalidNameError) Error() string {
	return fmt.Sprintf("invalid preset name %q", e.Value)
}

func (e *InvalidNameError) Unwrap() error { return ErrInvalidName }

// Dir returns the preset directory inside gameDir.
func Dir(gameDir string) string {
	return filepath.Join(gameDir, DirName)
}

// ValidateName rejects names that are empty or contain path separators.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return &InvalidNameError{Value: name}
	}
	return nil
}

// List returns the names of the presets in dir, sorted. A missing directory
// has no presets.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".xml") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())))
	}
	slices.Sort(names)
	return names, nil
}

// Load resolves the preset against the known packages and returns the ids to
// activate, in preset order, plus the names of entries that matched nothing.
// Workshop entries match by id; Local entries match a local package by name,
// then any package by name. Vanilla entries are ignored.
func Load(dir, name string, known []*modunit.Package) (ids, missing []string, err error) {
	if err := ValidateName(name); err != nil {
		return nil, nil, err
	}
	path := filepath.Join(dir, name+".xml")
	doc, err := xmltree.Load(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, fmt.Errorf("%s: %w", name, ErrNotFound)
		}
		return nil, nil, err
	}

	byID := make(map[string]*modunit.Package, len(known))
	for _, p := range known {
		byID[p.ID()] = p
	}

	seen := map[string]bool{}
	for _, node := range xmltree.Elements(doc.Root()) {
		var (
			match *modunit.Package
			label string
		)
		switch strings.ToLower(node.Tag) {
		case "workshop":
			id := xmltree.AttrOr(node, "id", "")
			label = xmltree.AttrOr(node, "name", "ID: "+id)
			match = byID[id]
		case "local":
			label = xmltree.AttrOr(node, "name", "")
			match = findByName(known, label)
		default:
			continue
		}

		if match == nil {
			missing = append(missing, label)
			continue
		}
		if !seen[match.ID()] {
			seen[match.ID()] = true
			ids = append(ids, match.ID())
		}
	}
	return ids, missing, nil
}

func findByName(known []*modunit.Package, name string) *modunit.Package {
	var fallback *modunit.Package
	for _, p := range known {
		if p.Name != name {
			continue
		}
		if p.Local {
			return p
		}
		if fallback == nil {
			fallback = p
		}
	}
	return fallback
}

// Save writes pkgs as the named preset, replacing any previous version.
func Save(dir, name string, pkgs []*modunit.Package) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create preset directory: %w", err)
	}

	doc := etree.NewDocument()
	root := doc.CreateElement("mods")
	root.CreateElement("Vanilla")
	for _, p := range pkgs {
		if p.Local {
			root.CreateElement("Local").CreateAttr("name", p.Name)
			continue
		}
		el := root.CreateElement("Workshop")
		el.CreateAttr("name", p.Name)
		el.CreateAttr("id", p.ID())
	}
	doc.Indent(2)

	return xmltree.SaveAtomic(doc, filepath.Join(dir, name+".xml"))
}
