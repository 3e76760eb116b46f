// SPDX-License-Identifier: MPL-2.0

package cache

import (
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/modsmith/modsmith/pkg/modunit"
)

func quietLogger() *log.Logger { return log.New(io.Discard) }

func writePackage(t *testing.T, dir, filelist, metadata string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, modunit.IdentityFile), []byte(filelist), 0o644); err != nil {
		t.Fatal(err)
	}
	if metadata != "" {
		if err := os.WriteFile(filepath.Join(dir, modunit.MetadataFile), []byte(metadata), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func samplePackage(dir string) *modunit.Package {
	return &modunit.Package{
		Identifier:       modunit.Identifier{Name: "Better Items", SteamID: "42"},
		Path:             Key(dir),
		Local:            true,
		HasToggleContent: true,
		UsesLua:          true,
		LoadOrder:        3,
		Settings:         map[string]string{"IgnoreOverrideCheck": "true"},
		Adds:             modunit.NewIDSet("item.a", "item.b"),
		Overrides:        modunit.NewIDSet("item.c"),
		Metadata: modunit.Metadata{
			ModVersion:       "1.2",
			Author:           "someone",
			DeclaredWarnings: []string{"careful"},
			Warnings:         []string{"careful", "computed"},
			Dependencies: []modunit.Dependency{{
				Identifier: modunit.Identifier{Name: "Lib", SteamID: "7"},
				Kind:       modunit.DependencyConflict,
				Condition:  "!X",
				Attributes: map[string]string{"level": "warning"},
			}},
		},
	}
}

func assertPackageEqual(t *testing.T, got, want *modunit.Package) {
	t.Helper()
	if got.Identifier != want.Identifier || got.Path != want.Path || got.Local != want.Local ||
		got.CorePackage != want.CorePackage || got.HasToggleContent != want.HasToggleContent ||
		got.UsesLua != want.UsesLua || got.UsesCSharp != want.UsesCSharp || got.LoadOrder != want.LoadOrder {
		t.Errorf("scalar fields differ:\ngot  %+v\nwant %+v", got, want)
	}
	if !maps.Equal(got.Settings, want.Settings) {
		t.Errorf("Settings = %v, want %v", got.Settings, want.Settings)
	}
	if !slices.Equal(got.Adds.Sorted(), want.Adds.Sorted()) || !slices.Equal(got.Overrides.Sorted(), want.Overrides.Sorted()) {
		t.Errorf("id sets differ: %v/%v vs %v/%v", got.Adds.Sorted(), got.Overrides.Sorted(), want.Adds.Sorted(), want.Overrides.Sorted())
	}
	gm, wm := got.Metadata, want.Metadata
	if gm.ModVersion != wm.ModVersion || gm.GameVersion != wm.GameVersion || gm.Author != wm.Author || gm.License != wm.License {
		t.Errorf("metadata differs: %+v vs %+v", gm, wm)
	}
	for _, pair := range [][2][]string{
		{gm.DeclaredWarnings, wm.DeclaredWarnings},
		{gm.DeclaredErrors, wm.DeclaredErrors},
		{gm.Warnings, wm.Warnings},
		{gm.Errors, wm.Errors},
	} {
		if !slices.Equal(pair[0], pair[1]) {
			t.Errorf("diagnostics = %v, want %v", pair[0], pair[1])
		}
	}
	if len(gm.Dependencies) != len(wm.Dependencies) {
		t.Fatalf("dependencies = %d, want %d", len(gm.Dependencies), len(wm.Dependencies))
	}
	for i := range gm.Dependencies {
		g, w := gm.Dependencies[i], wm.Dependencies[i]
		if g.Identifier != w.Identifier || g.Kind != w.Kind || g.Condition != w.Condition || !maps.Equal(g.Attributes, w.Attributes) {
			t.Errorf("dependency %d = %+v, want %+v", i, g, w)
		}
	}
}

func TestFingerprint_Stability(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writePackage(t, dir, `<contentpackage name="A"/>`, `<metadata/>`)

	first := Fingerprint(dir)
	if second := Fingerprint(dir); first != second {
		t.Fatalf("fingerprint changed without edits: %s vs %s", first, second)
	}

	writePackage(t, dir, `<contentpackage name="A"/>`, `<metadata/> `)
	if Fingerprint(dir) == first {
		t.Error("fingerprint did not change after editing metadata.xml")
	}

	writePackage(t, dir, `<contentpackage name="B"/>`, `<metadata/>`)
	if Fingerprint(dir) == first {
		t.Error("fingerprint did not change after editing filelist.xml")
	}
}

func TestFingerprint_MissingFiles(t *testing.T) {
	t.Parallel()

	a, b := t.TempDir(), t.TempDir()
	if Fingerprint(a) != Fingerprint(b) {
		t.Error("empty directories should share a fingerprint")
	}
}

func TestLookup_AfterStore(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writePackage(t, dir, `<contentpackage name="Better Items" steamworkshopid="42"/>`, "")

	c := Open(filepath.Join(t.TempDir(), "cache.toml"), quietLogger())
	want := samplePackage(dir)
	c.Store(want)

	got, ok := c.Lookup(dir)
	if !ok {
		t.Fatal("Lookup() missed a freshly stored package")
	}
	assertPackageEqual(t, got, want)

	got.Adds.Add("mutated")
	again, _ := c.Lookup(dir)
	if again.Adds.Has("mutated") {
		t.Error("Lookup() must return an independent copy")
	}
}

func TestLookup_InvalidatedByEdit(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writePackage(t, dir, `<contentpackage name="A"/>`, "")

	c := Open(filepath.Join(t.TempDir(), "cache.toml"), quietLogger())
	c.Store(samplePackage(dir))

	writePackage(t, dir, `<contentpackage name="A" modversion="2"/>`, "")
	if _, ok := c.Lookup(dir); ok {
		t.Error("Lookup() returned a stale entry after filelist.xml changed")
	}
}

func TestFlush_RoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writePackage(t, dir, `<contentpackage name="A"/>`, `<metadata/>`)
	path := filepath.Join(t.TempDir(), "nested", "cache.toml")

	c := Open(path, quietLogger())
	want := samplePackage(dir)
	c.Store(want)
	if err := c.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temp file left behind: %v", err)
	}

	reopened := Open(path, quietLogger())
	if reopened.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", reopened.Len())
	}
	got, ok := reopened.Lookup(dir)
	if !ok {
		t.Fatal("Lookup() missed after reopening")
	}
	assertPackageEqual(t, got, want)
}

func TestFlush_OnlyWhenDirty(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cache.toml")
	c := Open(path, quietLogger())
	if err := c.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Flush() wrote a file for a clean cache")
	}
}

func TestOpen_Corrupt(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cache.toml")
	if err := os.WriteFile(path, []byte("this is = = not toml"), 0o644); err != nil {
		t.Fatal(err)
	}
	if c := Open(path, quietLogger()); c.Len() != 0 {
		t.Errorf("Len() = %d, want 0 for corrupt cache", c.Len())
	}

	if err := os.WriteFile(path, []byte("version = 99\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if c := Open(path, quietLogger()); c.Len() != 0 {
		t.Errorf("Len() = %d, want 0 for unknown version", c.Len())
	}
}

func TestClear(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writePackage(t, dir, `<contentpackage name="A"/>`, "")
	path := filepath.Join(t.TempDir(), "cache.toml")

	c := Open(path, quietLogger())
	c.Store(samplePackage(dir))
	if err := c.Flush(); err != nil {
		t.Fatal(err)
	}

	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len() = %d after Clear()", c.Len())
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Clear() did not remove the cache file")
	}
	c.Clear() // Missing file is fine.
}
