// SPDX-License-Identifier: MPL-2.0

package modunit

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/beevik/etree"
	"github.com/bmatcuk/doublestar/v4"

	"github.com/modsmith/modsmith/internal/xmltree"
)

// ReadIdentity parses dir/filelist.xml into a new Package. The returned package
// has Path and Local set; metadata and content are not read. A core package
// yields ErrCorePackage.
func ReadIdentity(dir string) (*Package, error) {
	path := filepath.Join(dir, IdentityFile)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", dir, ErrNoIdentity)
		}
		return nil, err
	}

	doc, err := xmltree.Load(path)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", IdentityFile, err)
	}
	root := doc.Root()

	p := &Package{
		Identifier: Identifier{
			Name:    xmltree.AttrOr(root, "name", ""),
			SteamID: xmltree.AttrOr(root, "steamworkshopid", ""),
		},
		Path:        dir,
		Local:       IsLocalPath(dir),
		CorePackage: strings.EqualFold(xmltree.AttrOr(root, "corepackage", "false"), "true"),
		Settings:    map[string]string{},
		Adds:        IDSet{},
		Overrides:   IDSet{},
	}
	p.Metadata.GameVersion = xmltree.AttrOr(root, "gameversion", "")
	p.Metadata.ModVersion = xmltree.AttrOr(root, "modversion", "")

	if p.CorePackage {
		return nil, fmt.Errorf("%q (%s): %w", p.Name, p.ID(), ErrCorePackage)
	}
	if p.ID() == "" {
		return nil, fmt.Errorf("%s: package has neither name nor steamworkshopid", path)
	}
	return p, nil
}

// ResolveMetadataPath returns the metadata file for p: its own metadata.xml
// when present, otherwise <libraryDir>/**/<id>.xml. It returns "" when neither
// exists or libraryDir is empty.
func ResolveMetadataPath(p *Package, libraryDir string) string {
	local := filepath.Join(p.Path, MetadataFile)
	if _, err := os.Stat(local); err == nil {
		return local
	}
	if libraryDir == "" {
		return ""
	}

	matches, err := doublestar.Glob(os.DirFS(libraryDir), "**/"+doublestar.EscapeMeta(p.ID())+".xml")
	if err != nil || len(matches) == 0 {
		return ""
	}
	return filepath.Join(libraryDir, filepath.FromSlash(matches[0]))
}

// LoadMetadata resolves and applies the metadata file of p. A package without
// metadata is left unchanged. Unsupported dependency kinds are returned as
// warnings; they never fail the load.
func LoadMetadata(p *Package, libraryDir string) ([]error, error) {
	path := ResolveMetadataPath(p, libraryDir)
	if path == "" {
		return nil, nil
	}
	doc, err := xmltree.Load(path)
	if err != nil {
		return nil, fmt.Errorf("invalid metadata for %s: %w", p.ID(), err)
	}
	return ApplyMetadata(p, doc.Root()), nil
}

// ApplyMetadata copies settings, meta information and dependency declarations
// from a parsed metadata root into p.
func ApplyMetadata(p *Package, root *etree.Element) []error {
	if p.Settings == nil {
		p.Settings = map[string]string{}
	}

	var warnings []error
	for _, el := range xmltree.Elements(root) {
		switch strings.ToLower(el.Tag) {
		case "settings":
			for _, s := range xmltree.Elements(el) {
				if name := xmltree.AttrOr(s, "name", ""); name != "" {
					p.Settings[name] = xmltree.AttrOr(s, "value", "")
				}
			}
		case "meta":
			applyMeta(&p.Metadata, el)
		case "dependencies":
			warnings = append(warnings, applyDependencies(&p.Metadata, el)...)
		}
	}
	p.ResetDiagnostics()
	return warnings
}

func applyMeta(m *Metadata, meta *etree.Element) {
	for _, el := range xmltree.Elements(meta) {
		content := strings.TrimSpace(el.Text())
		switch strings.ToLower(el.Tag) {
		case "author":
			m.Author = content
		case "license":
			m.License = content
		case "warning":
			m.DeclaredWarnings = append(m.DeclaredWarnings, splitLines(content)...)
		case "error":
			m.DeclaredErrors = append(m.DeclaredErrors, splitLines(content)...)
		}
	}
}

func applyDependencies(m *Metadata, deps *etree.Element) []error {
	var warnings []error
	for _, el := range xmltree.Elements(deps) {
		kind := DependencyKind(el.Tag)
		if err := kind.Validate(); err != nil {
			warnings = append(warnings, err)
			continue
		}

		d := Dependency{Kind: kind, Attributes: map[string]string{}}
		for _, a := range el.Attr {
			switch a.Key {
			case "name":
				d.Name = a.Value
			case "steamID":
				d.SteamID = a.Value
			case "condition":
				d.Condition = a.Value
			default:
				d.Attributes[a.Key] = a.Value
			}
		}
		if d.Name == "" && d.SteamID == "" {
			continue
		}
		m.Dependencies = append(m.Dependencies, d)
	}
	return warnings
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	out := lines[:0]
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}
