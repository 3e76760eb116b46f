// SPDX-License-Identifier: MPL-2.0

package cache

import (
	"maps"
	"slices"

	"github.com/modsmith/modsmith/pkg/modunit"
)

type (
	fileDoc struct {
		Version int        `toml:"version"`
		Entries []entryDoc `toml:"entry"`
	}

	entryDoc struct {
		Path        string      `toml:"path"`
		Fingerprint string      `toml:"fingerprint"`
		Package     packageSnap `toml:"package"`
	}

	packageSnap struct {
		Name             string            `toml:"name"`
		SteamID          string            `toml:"steam_id,omitempty"`
		Path             string            `toml:"path"`
		Local            bool              `toml:"local"`
		CorePackage      bool              `toml:"core_package"`
		HasToggleContent bool              `toml:"has_toggle_content"`
		UsesLua          bool              `toml:"uses_lua"`
		UsesCSharp       bool              `toml:"uses_csharp"`
		LoadOrder        int               `toml:"load_order"`
		Settings         map[string]string `toml:"settings,omitempty"`
		Adds             []string          `toml:"adds,omitempty"`
		Overrides        []string          `toml:"overrides,omitempty"`
		Metadata         metadataSnap      `toml:"metadata"`
	}

	metadataSnap struct {
		ModVersion       string           `toml:"mod_version,omitempty"`
		GameVersion      string           `toml:"game_version,omitempty"`
		Author           string           `toml:"author,omitempty"`
		License          string           `toml:"license,omitempty"`
		DeclaredWarnings []string         `toml:"declared_warnings,omitempty"`
		DeclaredErrors   []string         `toml:"declared_errors,omitempty"`
		Warnings         []string         `toml:"warnings,omitempty"`
		Errors           []string         `toml:"errors,omitempty"`
		Dependencies     []dependencySnap `toml:"dependency,omitempty"`
	}

	dependencySnap struct {
		Name       string            `toml:"name,omitempty"`
		SteamID    string            `toml:"steam_id,omitempty"`
		Kind       string            `toml:"kind"`
		Condition  string            `toml:"condition,omitempty"`
		Attributes map[string]string `toml:"attributes,omitempty"`
	}
)

func toSnapshot(p *modunit.Package) packageSnap {
	s := packageSnap{
		Name:             p.Name,
		SteamID:          p.SteamID,
		Path:             p.Path,
		Local:            p.Local,
		CorePackage:      p.CorePackage,
		HasToggleContent: p.HasToggleContent,
		UsesLua:          p.UsesLua,
		UsesCSharp:       p.UsesCSharp,
		LoadOrder:        p.LoadOrder,
		Settings:         maps.Clone(p.Settings),
		Adds:             p.Adds.Sorted(),
		Overrides:        p.Overrides.Sorted(),
		Metadata: metadataSnap{
			ModVersion:       p.Metadata.ModVersion,
			GameVersion:      p.Metadata.GameVersion,
			Author:           p.Metadata.Author,
			License:          p.Metadata.License,
			DeclaredWarnings: slices.Clone(p.Metadata.DeclaredWarnings),
			DeclaredErrors:   slices.Clone(p.Metadata.DeclaredErrors),
			Warnings:         slices.Clone(p.Metadata.Warnings),
			Errors:           slices.Clone(p.Metadata.Errors),
		},
	}
	for _, d := range p.Metadata.Dependencies {
		s.Metadata.Dependencies = append(s.Metadata.Dependencies, dependencySnap{
			Name:       d.Name,
			SteamID:    d.SteamID,
			Kind:       string(d.Kind),
			Condition:  d.Condition,
			Attributes: maps.Clone(d.Attributes),
		})
	}
	return s
}

func fromSnapshot(s packageSnap) *modunit.Package {
	p := &modunit.Package{
		Identifier:       modunit.Identifier{Name: s.Name, SteamID: s.SteamID},
		Path:             s.Path,
		Local:            s.Local,
		CorePackage:      s.CorePackage,
		HasToggleContent: s.HasToggleContent,
		UsesLua:          s.UsesLua,
		UsesCSharp:       s.UsesCSharp,
		LoadOrder:        s.LoadOrder,
		Settings:         s.Settings,
		Adds:             modunit.NewIDSet(s.Adds...),
		Overrides:        modunit.NewIDSet(s.Overrides...),
		Metadata: modunit.Metadata{
			ModVersion:       s.Metadata.ModVersion,
			GameVersion:      s.Metadata.GameVersion,
			Author:           s.Metadata.Author,
			License:          s.Metadata.License,
			DeclaredWarnings: s.Metadata.DeclaredWarnings,
			DeclaredErrors:   s.Metadata.DeclaredErrors,
			Warnings:         s.Metadata.Warnings,
			Errors:           s.Metadata.Errors,
		},
	}
	if p.Settings == nil {
		p.Settings = map[string]string{}
	}
	for _, d := range s.Metadata.Dependencies {
		attrs := d.Attributes
		if attrs == nil {
			attrs = map[string]string{}
		}
		p.Metadata.Dependencies = append(p.Metadata.Dependencies, modunit.Dependency{
			Identifier: modunit.Identifier{Name: d.Name, SteamID: d.SteamID},
			Kind:       modunit.DependencyKind(d.Kind),
			Condition:  d.Condition,
			Attributes: attrs,
		})
	}
	return p
}
