// SPDX-License-Identifier: MPL-2.0

package modunit

import (
	"errors"
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

const (
	// IdentityFile names the descriptor that marks a directory as a package.
	IdentityFile = "filelist.xml"
	// MetadataFile names the optional settings/dependency descriptor.
	MetadataFile = "metadata.xml"
	// DirectiveFile names the optional toggle manifest.
	DirectiveFile = "modparts.xml"
	// LocalModsDir is the directory name that marks a package as local.
	LocalModsDir = "LocalMods"

	// DependencyPatch declares that the package patches the dependency.
	DependencyPatch DependencyKind = "patch"
	// DependencyRequirement declares a hard load-before requirement.
	DependencyRequirement DependencyKind = "requirement"
	// DependencyRequiredAnyOrder declares a requirement with no ordering constraint.
	DependencyRequiredAnyOrder DependencyKind = "requiredAnyOrder"
	// DependencyConflict declares that both packages must not be active together.
	DependencyConflict DependencyKind = "conflict"

	// SettingIgnoreOverrideCheck suppresses override-based ordering for a package.
	SettingIgnoreOverrideCheck = "IgnoreOverrideCheck"
)

var (
	// ErrInvalidDependencyKind is the sentinel error wrapped by InvalidDependencyKindError.
	ErrInvalidDependencyKind = errors.New("invalid dependency kind")
	// ErrCorePackage is returned when a directory holds a core content package.
	ErrCorePackage = errors.New("core packages are not supported")
	// ErrNoIdentity is returned when a directory has no filelist.xml.
	ErrNoIdentity = errors.New("filelist.xml not found")
)

type (
	// Identifier names a package. Two identifiers are the same package when
	// their IDs are equal.
	Identifier struct {
		Name    string
		SteamID string
	}

	// DependencyKind classifies a dependency declaration.
	DependencyKind string

	// InvalidDependencyKindError is returned when a DependencyKind is not one
	// of the four supported kinds.
	InvalidDependencyKindError struct {
		Value DependencyKind
	}

	// Dependency is one declaration from the dependencies section of metadata.xml.
	Dependency struct {
		Identifier
		Kind DependencyKind
		// Attributes holds every attribute except name, steamID and condition.
		Attributes map[string]string
		// Condition is an optional boolean expression over active package ids.
		Condition string
	}

	// Metadata holds versions, authorship and the diagnostic lists of a package.
	Metadata struct {
		ModVersion  string
		GameVersion string
		Author      string
		License     string

		// DeclaredWarnings and DeclaredErrors come from metadata.xml.
		DeclaredWarnings []string
		DeclaredErrors   []string

		// Warnings and Errors are rebuilt by the resolver: declared entries
		// followed by computed ones.
		Warnings []string
		Errors   []string

		Dependencies []Dependency
	}

	// Package is one discovered mod package.
	Package struct {
		Identifier

		// Path is the absolute, symlink-resolved package directory.
		Path             string
		Local            bool
		CorePackage      bool
		HasToggleContent bool
		UsesLua          bool
		UsesCSharp       bool

		// LoadOrder is the 1-based position in the active list, or 0 when unset.
		LoadOrder int

		Metadata Metadata
		Settings map[string]string

		// Adds holds the content identifiers the package introduces; Overrides
		// holds the identifiers it replaces.
		Adds      IDSet
		Overrides IDSet
	}
)

// ID returns the Steam Workshop id when present, otherwise the name.
func (i Identifier) ID() string {
	if i.SteamID != "" {
		return i.SteamID
	}
	return i.Name
}

// Equal reports whether both identifiers resolve to the same ID.
func (i Identifier) Equal(other Identifier) bool { return i.ID() == other.ID() }

// String returns the ID.
func (i Identifier) String() string { return i.ID() }

// Error implements the error interface.
func (e *InvalidDependencyKindError) Error() string {
	return fmt.Sprintf("invalid dependency kind %q (must be patch, requirement, requiredAnyOrder or conflict)", e.Value)
}

// Unwrap returns ErrInvalidDependencyKind so callers can use errors.Is for programmatic detection.
func (e *InvalidDependencyKindError) Unwrap() error { return ErrInvalidDependencyKind }

// Validate returns nil if the kind is supported, or an error describing the
// validation failure.
func (k DependencyKind) Validate() error {
	switch k {
	case DependencyPatch, DependencyRequirement, DependencyRequiredAnyOrder, DependencyConflict:
		return nil
	default:
		return &InvalidDependencyKindError{Value: k}
	}
}

// IsHard reports whether the kind imposes a mandatory ordering edge.
func (k DependencyKind) IsHard() bool {
	return k == DependencyPatch || k == DependencyRequirement
}

// String returns the string representation of the DependencyKind.
func (k DependencyKind) String() string { return string(k) }

// IsActive reports whether the package currently has a load order.
func (p *Package) IsActive() bool { return p.LoadOrder > 0 }

// BoolSetting interprets a metadata setting as a boolean. Missing settings are
// false; "true" in any case is true; positive numbers are true.
func (p *Package) BoolSetting(key string) bool {
	v, ok := p.Settings[key]
	if !ok {
		return false
	}
	if strings.EqualFold(v, "true") {
		return true
	}
	if n, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
		return n > 0
	}
	return false
}

// ConfigPath returns the path the game expects in its player configuration:
// LocalMods/<dir> for local packages and the absolute directory otherwise.
func (p *Package) ConfigPath() string {
	if p.Local {
		return LocalModsDir + "/" + filepath.Base(p.Path)
	}
	return p.Path
}

// Clone returns a deep copy of the package.
func (p *Package) Clone() *Package {
	c := *p
	c.Settings = maps.Clone(p.Settings)
	c.Adds = p.Adds.Clone()
	c.Overrides = p.Overrides.Clone()
	c.Metadata.DeclaredWarnings = slices.Clone(p.Metadata.DeclaredWarnings)
	c.Metadata.DeclaredErrors = slices.Clone(p.Metadata.DeclaredErrors)
	c.Metadata.Warnings = slices.Clone(p.Metadata.Warnings)
	c.Metadata.Errors = slices.Clone(p.Metadata.Errors)
	if p.Metadata.Dependencies != nil {
		c.Metadata.Dependencies = make([]Dependency, len(p.Metadata.Dependencies))
		for i, d := range p.Metadata.Dependencies {
			d.Attributes = maps.Clone(d.Attributes)
			c.Metadata.Dependencies[i] = d
		}
	}
	return &c
}

// ResetDiagnostics replaces the live warning and error lists with the
// declared ones.
func (p *Package) ResetDiagnostics() {
	p.Metadata.Warnings = slices.Clone(p.Metadata.DeclaredWarnings)
	p.Metadata.Errors = slices.Clone(p.Metadata.DeclaredErrors)
}

// IsLocalPath reports whether any component of path is LocalMods.
func IsLocalPath(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == LocalModsDir {
			return true
		}
	}
	return false
}
