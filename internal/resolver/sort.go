// SPDX-License-Identifier: MPL-2.0

package resolver

import (
	"errors"
	"strings"

	"github.com/modsmith/modsmith/internal/dag"
	"github.com/modsmith/modsmith/pkg/modunit"
)

// patchKeywords mark a package name as a patch for other packages whose name
// it contains. "compat" also covers "compatibility".
var patchKeywords = []string{"patch", "compat"}

// minHeuristicNameLen is the shortest name the patch heuristic may match on;
// shorter names would match too many unrelated packages.
const minHeuristicNameLen = 4

type (
	// SortReport summarizes a Sort run.
	SortReport struct {
		// Order is the new active order.
		Order []string
		// AutoActivated lists packages activated to satisfy hard dependencies.
		AutoActivated []string
		// Conflicts lists (declaring package, conflicting package) pairs
		// between active packages.
		Conflicts [][2]string
		// HardEdges and SoftEdges count the ordering constraints considered.
		HardEdges int
		SoftEdges int
		// SoftDropped counts soft edges removed to break cycles.
		SoftDropped int
		// Forced lists packages placed despite unresolved predecessors.
		Forced []string
		// HardBroken counts hard edges violated by forced placements.
		HardBroken int
		// Cycle lists the packages caught in a dependency cycle, in their
		// previous order. Empty when the constraints were acyclic.
		Cycle []string
	}
)

// Cyclic reports whether the sort had to recover from a cycle.
func (r *SortReport) Cyclic() bool { return r.SoftDropped > 0 || len(r.Forced) > 0 }

// Sort reorders the active packages under their dependency constraints and
// recomputes every active package's errors and warnings.
//
// Missing hard dependencies are activated first, repeatedly, until the active
// set is stable. The active packages then become graph nodes in their current
// order, so packages without constraints between them keep their relative
// positions. Requirements and patches are hard edges; the patch-name heuristic
// and override-of-added-identifier relations are soft edges. Cycles are
// recovered from, never returned as errors.
func (m *Manager) Sort() *SortReport {
	report := &SortReport{}
	if len(m.active) == 0 {
		return report
	}

	report.AutoActivated = m.activateMissing()
	report.Conflicts = m.activeConflicts()

	g, hard, soft := m.buildGraph()
	report.HardEdges, report.SoftEdges = hard, soft

	if _, err := g.TopologicalSort(); err != nil {
		var cycleErr *dag.CycleError
		if errors.As(err, &cycleErr) {
			report.Cycle = cycleErr.Cycle
		}
	}

	res := g.Resolve()
	report.Order = res.Order
	report.SoftDropped = res.SoftDropped
	report.Forced = res.Forced
	report.HardBroken = res.HardBroken

	if report.Cyclic() {
		m.logger.Warn("Dependency cycle resolved", "packages", report.Cycle,
			"soft_dropped", res.SoftDropped, "forced", len(res.Forced), "hard_broken", res.HardBroken)
	}
	for _, pair := range report.Conflicts {
		m.logger.Error("Conflict", "package", pair[0], "conflicts_with", pair[1])
	}

	m.active = res.Order
	m.renumber()
	m.ComputeErrors()

	m.logger.Info("Sorted active packages", "count", len(m.active), "auto_activated", len(report.AutoActivated))
	return report
}

// activateMissing activates known, inactive hard dependencies of active
// packages until none are left. A dependency is not activated when an active
// package declares a conflict with it, or when it declares a conflict with an
// active package.
func (m *Manager) activateMissing() []string {
	var activated []string
	for {
		active := m.ActiveSet()
		banned := m.conflictTargets()

		var pending []string
		queued := map[string]bool{}
		for _, id := range m.active {
			for _, dep := range m.packages[id].Metadata.Dependencies {
				if !dep.Kind.IsHard() {
					continue
				}
				target := dep.ID()
				if _, ok := active[target]; ok || queued[target] || banned[target] {
					continue
				}
				if dep.Condition != "" && !m.evaluate(dep.Condition, active) {
					continue
				}
				p, known := m.packages[target]
				if !known || m.conflictsWithActive(p, active) {
					continue
				}
				queued[target] = true
				pending = append(pending, target)
			}
		}

		if len(pending) == 0 {
			return activated
		}
		for _, id := range pending {
			if err := m.Activate(id); err == nil {
				m.logger.Info("Auto-activated dependency", "package", id)
				activated = append(activated, id)
			}
		}
	}
}

// conflictTargets returns every id an active package declares a conflict with.
func (m *Manager) conflictTargets() map[string]bool {
	banned := map[string]bool{}
	for _, id := range m.active {
		for _, dep := range m.packages[id].Metadata.Dependencies {
			if dep.Kind == modunit.DependencyConflict {
				banned[dep.ID()] = true
			}
		}
	}
	return banned
}

func (m *Manager) conflictsWithActive(p *modunit.Package, active map[string]struct{}) bool {
	for _, dep := range p.Metadata.Dependencies {
		if dep.Kind != modunit.DependencyConflict {
			continue
		}
		if _, ok := active[dep.ID()]; ok {
			return true
		}
	}
	return false
}

func (m *Manager) activeConflicts() [][2]string {
	active := m.ActiveSet()
	var pairs [][2]string
	for _, id := range m.active {
		for _, dep := range m.packages[id].Metadata.Dependencies {
			if dep.Kind != modunit.DependencyConflict || dep.ID() == id {
				continue
			}
			if _, ok := active[dep.ID()]; ok {
				pairs = append(pairs, [2]string{id, dep.ID()})
			}
		}
	}
	return pairs
}

// buildGraph returns the ordering graph over the active packages along with
// the number of hard and soft constraints added. Edges point from the package
// that must load first to the one that depends on it.
func (m *Manager) buildGraph() (g *dag.Graph, hard, soft int) {
	g = dag.New()
	for _, id := range m.active {
		g.AddNode(id)
	}

	active := m.ActiveSet()
	addedBy := m.firstAdders()

	for _, id := range m.active {
		p := m.packages[id]

		for _, dep := range p.Metadata.Dependencies {
			target := dep.ID()
			if !dep.Kind.IsHard() || target == id {
				continue
			}
			if _, ok := active[target]; !ok {
				continue
			}
			if dep.Condition != "" && !m.evaluate(dep.Condition, active) {
				continue
			}
			g.AddEdge(target, id)
			hard++
		}

		if isPatchName(p.Name) {
			name := strings.ToLower(p.Name)
			for _, other := range m.active {
				if other == id {
					continue
				}
				otherName := strings.ToLower(m.packages[other].Name)
				if len(otherName) >= minHeuristicNameLen && strings.Contains(name, otherName) {
					g.AddSoftEdge(other, id)
					soft++
				}
			}
		}

		if !p.BoolSetting(modunit.SettingIgnoreOverrideCheck) {
			for _, oid := range p.Overrides.Sorted() {
				if adder, ok := addedBy[oid]; ok && adder != id {
					g.AddSoftEdge(adder, id)
					soft++
				}
			}
		}
	}
	return g, hard, soft
}

func isPatchName(name string) bool {
	lower := strings.ToLower(name)
	for _, k := range patchKeywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}
