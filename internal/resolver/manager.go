// SPDX-License-Identifier: MPL-2.0

// Package resolver holds the activation state of all known packages: which are
// active and in what order. It sorts the active list under dependency
// constraints and classifies conflicts into per-package errors and warnings.
package resolver

import (
	"errors"
	"fmt"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/modsmith/modsmith/internal/condition"
	"github.com/modsmith/modsmith/internal/loc"
	"github.com/modsmith/modsmith/pkg/modunit"
)

var (
	// ErrUnknownPackage is returned for ids that name no known package.
	ErrUnknownPackage = errors.New("unknown package")
	// ErrNotActive is returned when an operation needs an active package.
	ErrNotActive = errors.New("package is not active")
	// ErrNotInactive is returned when an operation needs an inactive package.
	ErrNotInactive = errors.New("package is not inactive")
)

type (
	// Manager owns the known packages and the ordered active and inactive
	// lists. It is not safe for concurrent use.
	Manager struct {
		packages map[string]*modunit.Package
		active   []string
		inactive []string

		evaluate  condition.Func
		translate loc.Func
		logger    *log.Logger
	}

	// Option is a functional option for configuring a Manager.
	Option func(*Manager)
)

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithEvaluator replaces the condition evaluator.
func WithEvaluator(f condition.Func) Option {
	return func(m *Manager) { m.evaluate = f }
}

// WithTranslator replaces the message translator.
func WithTranslator(f loc.Func) Option {
	return func(m *Manager) { m.translate = f }
}

// NewManager creates a Manager over pkgs, all initially inactive in the given
// order. Packages with a duplicate id after the first are ignored.
func NewManager(pkgs []*modunit.Package, opts ...Option) *Manager {
	m := &Manager{
		packages:  make(map[string]*modunit.Package, len(pkgs)),
		evaluate:  condition.Evaluate,
		translate: loc.English(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = log.Default().WithPrefix("resolver")
	}

	for _, p := range pkgs {
		id := p.ID()
		if _, dup := m.packages[id]; dup {
			continue
		}
		m.packages[id] = p
		p.LoadOrder = 0
		m.inactive = append(m.inactive, id)
	}
	return m
}

// Package returns the known package with id.
func (m *Manager) Package(id string) (*modunit.Package, bool) {
	p, ok := m.packages[id]
	return p, ok
}

// Len returns the number of known packages.
func (m *Manager) Len() int { return len(m.packages) }

// Active returns the active packages in load order.
func (m *Manager) Active() []*modunit.Package { return m.resolve(m.active) }

// Inactive returns the inactive packages in list order.
func (m *Manager) Inactive() []*modunit.Package { return m.resolve(m.inactive) }

// ActiveIDs returns the ids of the active packages in load order.
func (m *Manager) ActiveIDs() []string { return slices.Clone(m.active) }

// ActiveSet returns the active ids as a set.
func (m *Manager) ActiveSet() map[string]struct{} {
	set := make(map[string]struct{}, len(m.active))
	for _, id := range m.active {
		set[id] = struct{}{}
	}
	return set
}

// IsActive reports whether id is active.
func (m *Manager) IsActive(id string) bool { return slices.Contains(m.active, id) }

// Activate moves an inactive package to the end of the active list.
func (m *Manager) Activate(id string) error {
	if err := m.known(id); err != nil {
		return err
	}
	i := slices.Index(m.inactive, id)
	if i < 0 {
		return fmt.Errorf("%s: %w", id, ErrNotInactive)
	}
	m.inactive = slices.Delete(m.inactive, i, i+1)
	m.active = append(m.active, id)
	m.renumber()
	return nil
}

// Deactivate moves an active package to the end of the inactive list.
func (m *Manager) Deactivate(id string) error {
	if err := m.known(id); err != nil {
		return err
	}
	i := slices.Index(m.active, id)
	if i < 0 {
		return fmt.Errorf("%s: %w", id, ErrNotActive)
	}
	m.active = slices.Delete(m.active, i, i+1)
	m.inactive = append(m.inactive, id)
	m.renumber()
	return nil
}

// ActivateAll appends every inactive package to the active list.
func (m *Manager) ActivateAll() {
	m.active = append(m.active, m.inactive...)
	m.inactive = nil
	m.renumber()
}

// SwapActive exchanges the positions of two active packages.
func (m *Manager) SwapActive(a, b string) error {
	if err := swap(m.active, a, b, ErrNotActive); err != nil {
		return err
	}
	m.renumber()
	return nil
}

// SwapInactive exchanges the positions of two inactive packages.
func (m *Manager) SwapInactive(a, b string) error {
	return swap(m.inactive, a, b, ErrNotInactive)
}

// MoveActiveToEnd moves an active package to the end of the active list.
func (m *Manager) MoveActiveToEnd(id string) error {
	list, err := moveToEnd(m.active, id, ErrNotActive)
	if err != nil {
		return err
	}
	m.active = list
	m.renumber()
	return nil
}

// MoveInactiveToEnd moves an inactive package to the end of the inactive list.
func (m *Manager) MoveInactiveToEnd(id string) error {
	list, err := moveToEnd(m.inactive, id, ErrNotInactive)
	if err != nil {
		return err
	}
	m.inactive = list
	return nil
}

// SetActiveOrder makes exactly the known ids active, in the given order, and
// deactivates everything else. Unknown and repeated ids are skipped and the
// unknown ones returned.
func (m *Manager) SetActiveOrder(ids []string) []string {
	var (
		active  []string
		unknown []string
	)
	seen := map[string]bool{}
	for _, id := range ids {
		if _, ok := m.packages[id]; !ok {
			unknown = append(unknown, id)
			continue
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		active = append(active, id)
	}

	var inactive []string
	for _, id := range slices.Concat(m.active, m.inactive) {
		if !seen[id] {
			inactive = append(inactive, id)
		}
	}

	m.active, m.inactive = active, inactive
	m.renumber()
	return unknown
}

func (m *Manager) known(id string) error {
	if _, ok := m.packages[id]; !ok {
		return fmt.Errorf("%s: %w", id, ErrUnknownPackage)
	}
	return nil
}

func (m *Manager) resolve(ids []string) []*modunit.Package {
	out := make([]*modunit.Package, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.packages[id])
	}
	return out
}

// renumber keeps LoadOrder equal to the 1-based active position.
func (m *Manager) renumber() {
	for i, id := range m.active {
		m.packages[id].LoadOrder = i + 1
	}
	for _, id := range m.inactive {
		m.packages[id].LoadOrder = 0
	}
}

func swap(list []string, a, b string, notMember error) error {
	i, j := slices.Index(list, a), slices.Index(list, b)
	if i < 0 {
		return fmt.Errorf("%s: %w", a, notMember)
	}
	if j < 0 {
		return fmt.Errorf("%s: %w", b, notMember)
	}
	list[i], list[j] = list[j], list[i]
	return nil
}

func moveToEnd(list []string, id string, notMember error) ([]string, error) {
	i := slices.Index(list, id)
	if i < 0 {
		return list, fmt.Errorf("%s: %w", id, notMember)
	}
	list = slices.Delete(list, i, i+1)
	return append(list, id), nil
}
