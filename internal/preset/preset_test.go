// SPDX-License-Identifier: MPL-2.0

package preset

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/modsmith/modsmith/pkg/modunit"
)

func knownPackages() []*modunit.Package {
	return []*modunit.Package{
		{Identifier: modunit.Identifier{Name: "Core Lib", SteamID: "111"}},
		{Identifier: modunit.Identifier{Name: "Shared"}, Local: false},
		{Identifier: modunit.Identifier{Name: "My Tweaks"}, Local: true},
	}
}

func TestValidateName(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"", "  ", "a/b", `a\b`, "..", "."} {
		err := ValidateName(name)
		if !errors.Is(err, ErrInvalidName) {
			t.Errorf("ValidateName(%q) = %v, want ErrInvalidName", name, err)
		}
		var nameErr *InvalidNameError
		if !errors.As(err, &nameErr) {
			t.Errorf("ValidateName(%q) is not *InvalidNameError", name)
		}
	}
	if err := ValidateName("Campaign 2"); err != nil {
		t.Errorf("ValidateName() = %v, want nil", err)
	}
}

func TestSaveLoad(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), DirName)
	known := knownPackages()

	if err := Save(dir, "campaign", []*modunit.Package{known[2], known[0]}); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	ids, missing, err := Load(dir, "campaign", known)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if want := []string{"My Tweaks", "111"}; !slices.Equal(ids, want) {
		t.Errorf("ids = %v, want %v", ids, want)
	}
	if len(missing) != 0 {
		t.Errorf("missing = %v, want none", missing)
	}

	names, err := List(dir)
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if !slices.Equal(names, []string{"campaign"}) {
		t.Errorf("List() = %v", names)
	}
}

func TestLoad_Missing(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	content := `<mods>
  <Vanilla/>
  <!-- <Workshop id="111"/> -->
  <Workshop name="Gone" id="999"/>
  <Workshop id="998"/>
  <Local name="Shared"/>
  <Local name="Nowhere"/>
  <Workshop name="Core Lib" id="111"/>
  <Workshop name="Core Lib again" id="111"/>
</mods>`
	if err := os.WriteFile(filepath.Join(dir, "old.xml"), []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}

	ids, missing, err := Load(dir, "old", knownPackages())
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if want := []string{"Shared", "111"}; !slices.Equal(ids, want) {
		t.Errorf("ids = %v, want %v", ids, want)
	}
	if want := []string{"Gone", "ID: 998", "Nowhere"}; !slices.Equal(missing, want) {
		t.Errorf("missing = %v, want %v", missing, want)
	}
}

func TestLoad_NotFound(t *testing.T) {
	t.Parallel()

	_, _, err := Load(t.TempDir(), "nope", nil)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Load() error = %v, want ErrNotFound", err)
	}
}

func TestList_NoDir(t *testing.T) {
	t.Parallel()

	names, err := List(filepath.Join(t.TempDir(), "absent"))
	if err != nil || len(names) != 0 {
		t.Errorf("List() = %v, %v, want empty", names, err)
	}
}
