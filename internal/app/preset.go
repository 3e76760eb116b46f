// SPDX-License-Identifier: MPL-2.0

package app

import (
	"context"
	"errors"

	"github.com/modsmith/modsmith/internal/issue"
	"github.com/modsmith/modsmith/internal/preset"
	"github.com/modsmith/modsmith/internal/toggle"
)

// PresetDir returns the game's preset directory.
func (s *Session) PresetDir() string { return preset.Dir(s.cfg.GameDir) }

// Presets lists the saved preset names.
func (s *Session) Presets() ([]string, error) { return preset.List(s.PresetDir()) }

// SavePreset stores the active list under name.
func (s *Session) SavePreset(name string) error {
	if err := preset.Save(s.PresetDir(), name, s.manager.Active()); err != nil {
		return issue.WrapWithContext(err, "save preset", name)
	}
	return nil
}

// LoadPreset replaces the active list with the named preset. Packages that
// leave the active list have their optional content rolled back. The returned
// names are preset entries that matched no known package.
func (s *Session) LoadPreset(ctx context.Context, name string) (missing []string, res *toggle.Result, err error) {
	ids, missing, err := preset.Load(s.PresetDir(), name, s.Packages())
	if err != nil {
		if errors.Is(err, preset.ErrNotFound) {
			return nil, nil, issue.NewErrorContext().
				WithOperation("load preset").
				WithResource(name).
				WithSuggestion("Run 'modsmith preset list' to see the saved presets").
				WithIssue(issue.PresetNotFoundId).
				Wrap(err).
				BuildError()
		}
		return nil, nil, issue.WrapWithContext(err, "load preset", name)
	}

	keep := make(map[string]bool, len(ids))
	for _, id := range ids {
		keep[id] = true
	}
	var leaving []string
	for _, id := range s.manager.ActiveIDs() {
		if !keep[id] {
			leaving = append(leaving, id)
		}
	}

	res, err = s.Deactivate(ctx, leaving...)
	if err != nil {
		return missing, res, err
	}
	s.manager.SetActiveOrder(ids)
	s.manager.ComputeErrors()
	return missing, res, nil
}
