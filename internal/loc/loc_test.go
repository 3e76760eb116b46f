// SPDX-License-Identifier: MPL-2.0

package loc

import (
	"testing"

	"golang.org/x/text/language"
)

func TestEnglish(t *testing.T) {
	t.Parallel()

	tr := English()

	tests := []struct {
		key  string
		args []any
		want string
	}{
		{KeyMissingDependency, []any{"Lib", "123"}, "Required mod Lib (123) is not active"},
		{KeyOverrideID, []any{"Base", "42", "item.crowbar"}, "Overrides item.crowbar, which is added by Base (42)"},
		{KeyConflict, []any{"Other"}, "Conflicts with active mod Other"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Parallel()
			if got := tr(tt.key, tt.args...); got != tt.want {
				t.Errorf("translate(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

func TestNew_FallsBackToEnglish(t *testing.T) {
	t.Parallel()

	tr := New(language.Russian)
	if got, want := tr(KeyConflict, "X"), "Conflicts with active mod X"; got != want {
		t.Errorf("translate() = %q, want %q", got, want)
	}
}
