// SPDX-License-Identifier: MPL-2.0

package resolver

import (
	"github.com/modsmith/modsmith/internal/loc"
	"github.com/modsmith/modsmith/pkg/modunit"
)

// ComputeErrors rebuilds the warning and error lists of every active package
// from its declared diagnostics plus:
//   - active conflicts, as errors or as warnings when the declaration has
//     level="warning", using the declaration's message attribute if any;
//   - absent requirements and patches whose condition is absent or true;
//   - overrides of an identifier first added by another active package, as
//     warnings naming that adder.
//
// Inactive packages are left untouched.
func (m *Manager) ComputeErrors() {
	active := m.ActiveSet()
	addedBy := m.firstAdders()

	for _, id := range m.active {
		p := m.packages[id]
		p.ResetDiagnostics()

		for _, dep := range p.Metadata.Dependencies {
			target := dep.ID()
			_, present := active[target]

			switch dep.Kind {
			case modunit.DependencyConflict:
				if !present || target == id {
					continue
				}
				msg := dep.Attributes["message"]
				if msg == "" {
					msg = m.translate(loc.KeyConflict, m.displayName(dep.Identifier))
				}
				if dep.Attributes["level"] == "warning" {
					p.Metadata.Warnings = append(p.Metadata.Warnings, msg)
				} else {
					p.Metadata.Errors = append(p.Metadata.Errors, msg)
				}
			case modunit.DependencyRequiredAnyOrder:
			case modunit.DependencyPatch, modunit.DependencyRequirement:
				if present {
					continue
				}
				if dep.Condition != "" && !m.evaluate(dep.Condition, active) {
					continue
				}
				p.Metadata.Errors = append(p.Metadata.Errors,
					m.translate(loc.KeyMissingDependency, m.displayName(dep.Identifier), dep.SteamID))
			}
		}

		for _, oid := range p.Overrides.Sorted() {
			adder, ok := addedBy[oid]
			if !ok || adder == id {
				continue
			}
			a := m.packages[adder]
			p.Metadata.Warnings = append(p.Metadata.Warnings,
				m.translate(loc.KeyOverrideID, a.Name, a.ID(), oid))
		}
	}
}

// firstAdders maps every identifier added by an active package to the first
// active package, in load order, that adds it.
func (m *Manager) firstAdders() map[string]string {
	addedBy := map[string]string{}
	for _, id := range m.active {
		for aid := range m.packages[id].Adds {
			if _, ok := addedBy[aid]; !ok {
				addedBy[aid] = id
			}
		}
	}
	return addedBy
}

// displayName prefers the name of the known package an identifier points at,
// then the declared name, then the id.
func (m *Manager) displayName(ident modunit.Identifier) string {
	if p, ok := m.packages[ident.ID()]; ok && p.Name != "" {
		return p.Name
	}
	if ident.Name != "" {
		return ident.Name
	}
	return ident.ID()
}
