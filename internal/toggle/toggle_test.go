// SPDX-License-Identifier: MPL-2.0

package toggle

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/modsmith/modsmith/pkg/modunit"
)

const regionFixture = `<Items>
  <!-- BTM:extra start setState="on" -->
  <!--<Item identifier="extra"><Price base="10"/></Item>-->
  <!--<Item identifier="bonus"/>-->
  <!-- BTM:extra end -->
  <Item identifier="base"/>
</Items>`

const conditionalFixture = `<Items>
  <!-- BTM:compat start setState="on" conditions="2701251094" -->
  <!--<Item identifier="compat"/>-->
  <!-- BTM:compat end -->
</Items>`

const filelistFixture = `<contentpackage name="Parts">
  <Item file="%ModDir%/Items/items.xml"/>
  <Item file="%ModDir%/Items/extra.xml"/>
</contentpackage>`

const partsFixture = `<parts>
  <part file="%ModDir%/Items/extra.xml" type="Item" setState="off"/>
</parts>`

func quietToggler() *Toggler {
	return &Toggler{Workers: 2, Logger: log.New(io.Discard)}
}

func writeFixture(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll() failed: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}
}

func readFixture(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() failed: %v", err)
	}
	return string(data)
}

func newPackage(t *testing.T, files map[string]string) *modunit.Package {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		writeFixture(t, filepath.Join(dir, filepath.FromSlash(name)), content)
	}
	return &modunit.Package{Identifier: modunit.Identifier{Name: "Parts"}, Path: dir}
}

func TestApply_InlineRegion(t *testing.T) {
	t.Parallel()

	p := newPackage(t, map[string]string{"Items/items.xml": regionFixture})
	path := filepath.Join(p.Path, "Items", "items.xml")
	tg := quietToggler()

	res, err := tg.Apply(context.Background(), p, nil)
	if err != nil {
		t.Fatalf("Apply() failed: %v", err)
	}
	if !slices.Equal(res.Changed, []string{path}) {
		t.Errorf("Changed = %v, want [%s]", res.Changed, path)
	}

	got := readFixture(t, path)
	want := `<Items>
  <!-- BTM:extra start setState="on" -->
  <Item identifier="extra"><Price base="10"/></Item>
  <Item identifier="bonus"/>
  <!-- BTM:extra end -->
  <Item identifier="base"/>
</Items>`
	if got != want {
		t.Errorf("after Apply:\n%s\nwant:\n%s", got, want)
	}
}

func TestApply_Idempotent(t *testing.T) {
	t.Parallel()

	p := newPackage(t, map[string]string{"Items/items.xml": regionFixture})
	tg := quietToggler()

	if _, err := tg.Apply(context.Background(), p, nil); err != nil {
		t.Fatalf("first Apply() failed: %v", err)
	}
	first := readFixture(t, filepath.Join(p.Path, "Items", "items.xml"))

	res, err := tg.Apply(context.Background(), p, nil)
	if err != nil {
		t.Fatalf("second Apply() failed: %v", err)
	}
	if len(res.Changed) != 0 {
		t.Errorf("second Apply() changed %v, want nothing", res.Changed)
	}
	if got := readFixture(t, filepath.Join(p.Path, "Items", "items.xml")); got != first {
		t.Errorf("second Apply() rewrote file:\n%s", got)
	}
}

func TestRollback_RestoresInlineRegion(t *testing.T) {
	t.Parallel()

	p := newPackage(t, map[string]string{"Items/items.xml": regionFixture})
	path := filepath.Join(p.Path, "Items", "items.xml")
	tg := quietToggler()

	if _, err := tg.Apply(context.Background(), p, nil); err != nil {
		t.Fatalf("Apply() failed: %v", err)
	}
	if _, err := tg.Rollback(context.Background(), p); err != nil {
		t.Fatalf("Rollback() failed: %v", err)
	}
	if got := readFixture(t, path); got != regionFixture {
		t.Errorf("after Rollback:\n%s\nwant:\n%s", got, regionFixture)
	}
}

// untidyFixture carries text a tree serializer would normalize: an entity
// and single quotes outside the regions, padded comments and explicit end
// tags inside them.
const untidyFixture = `<?xml version="1.0" encoding="utf-8"?>
<Items description='it&apos;s "extra"'>
  <!-- BTM:extra start setState="on" -->
  <!-- <Item identifier='extra' name="it's"></Item> -->
  <!--
    <Item identifier="bonus">
      <Price base = "10"></Price>
    </Item>
  -->
  <!-- BTM:extra end -->
  <!-- BTM:legacy start setState="off" -->
  <Item identifier="legacy"></Item>
  <!-- BTM:legacy end -->
  <Text>Tom &amp; Jerry's</Text>
</Items>
`

func TestRollback_RestoresUntidyRegion(t *testing.T) {
	t.Parallel()

	p := newPackage(t, map[string]string{"Items/items.xml": untidyFixture})
	path := filepath.Join(p.Path, "Items", "items.xml")
	tg := quietToggler()

	if _, err := tg.Apply(context.Background(), p, nil); err != nil {
		t.Fatalf("Apply() failed: %v", err)
	}
	applied := readFixture(t, path)
	for _, want := range []string{
		`<Items description='it&apos;s "extra"'>`,
		"\n  <Item identifier='extra' name=\"it's\"></Item>\n",
		"\n  <Item identifier=\"bonus\">\n      <Price base = \"10\"></Price>\n    </Item>\n",
		`<!--<Item identifier="legacy"></Item>-->`,
		`<Text>Tom &amp; Jerry's</Text>`,
	} {
		if !strings.Contains(applied, want) {
			t.Errorf("after Apply, file lacks %q:\n%s", want, applied)
		}
	}

	res, err := tg.Apply(context.Background(), p, nil)
	if err != nil {
		t.Fatalf("second Apply() failed: %v", err)
	}
	if len(res.Changed) != 0 || readFixture(t, path) != applied {
		t.Errorf("second Apply() changed %v", res.Changed)
	}

	if _, err := tg.Rollback(context.Background(), p); err != nil {
		t.Fatalf("Rollback() failed: %v", err)
	}
	if got := readFixture(t, path); got != untidyFixture {
		t.Errorf("after Rollback:\n%s\nwant:\n%s", got, untidyFixture)
	}
}

func TestPads_RoundTrip(t *testing.T) {
	t.Parallel()

	marker := ` BTM:extra start setState="on"  `
	pads := map[int]padding{0: {lead: " ", trail: " "}, 2: {lead: "\n\t", trail: "\r\n"}}

	written := writePads(marker, pads)
	if want := ` BTM:extra start setState="on" btm-pad="0:s:s 2:nt:rn"  `; written != want {
		t.Errorf("writePads() = %q, want %q", written, want)
	}

	got, bare := readPads(written)
	if bare != marker {
		t.Errorf("readPads() marker = %q, want %q", bare, marker)
	}
	if len(got) != 2 || got[0] != pads[0] || got[2] != pads[2] {
		t.Errorf("readPads() = %v, want %v", got, pads)
	}
	if writePads(marker, nil) != marker {
		t.Error("writePads() with no padding changed the marker")
	}
}

func TestApply_ConditionalRegion(t *testing.T) {
	t.Parallel()

	p := newPackage(t, map[string]string{"items.xml": conditionalFixture})
	path := filepath.Join(p.Path, "items.xml")
	tg := quietToggler()

	res, err := tg.Apply(context.Background(), p, map[string]struct{}{"111": {}})
	if err != nil {
		t.Fatalf("Apply() failed: %v", err)
	}
	if len(res.Changed) != 0 || readFixture(t, path) != conditionalFixture {
		t.Fatal("region with a false condition was changed")
	}

	if _, err := tg.Apply(context.Background(), p, map[string]struct{}{"2701251094": {}}); err != nil {
		t.Fatalf("Apply() failed: %v", err)
	}
	if got := readFixture(t, path); got == conditionalFixture {
		t.Error("region with a true condition was not changed")
	}

	// Rollback ignores conditions.
	if _, err := tg.Rollback(context.Background(), p); err != nil {
		t.Fatalf("Rollback() failed: %v", err)
	}
	if got := readFixture(t, path); got != conditionalFixture {
		t.Errorf("after Rollback:\n%s\nwant:\n%s", got, conditionalFixture)
	}
}

func TestApply_MarkerWithoutState(t *testing.T) {
	t.Parallel()

	content := `<Items>
  <!-- BTM:broken start -->
  <!--<Item identifier="x"/>-->
  <!-- BTM:broken end -->
</Items>`
	p := newPackage(t, map[string]string{"items.xml": content})
	tg := quietToggler()

	res, err := tg.Apply(context.Background(), p, nil)
	if err != nil {
		t.Fatalf("Apply() failed: %v", err)
	}
	if len(res.Changed) != 0 || res.Failed != 0 {
		t.Errorf("result = %s, want nothing changed", res)
	}
	if got := readFixture(t, filepath.Join(p.Path, "items.xml")); got != content {
		t.Errorf("file changed:\n%s", got)
	}
}

func TestApply_IsolatesBrokenFiles(t *testing.T) {
	t.Parallel()

	p := newPackage(t, map[string]string{
		"broken.xml": "<Items a=></Items>",
		"items.xml":  regionFixture,
	})
	tg := quietToggler()

	res, err := tg.Apply(context.Background(), p, nil)
	if err != nil {
		t.Fatalf("Apply() failed: %v", err)
	}
	if res.Failed != 1 {
		t.Errorf("Failed = %d, want 1", res.Failed)
	}
	if len(res.Changed) != 1 {
		t.Errorf("Changed = %v, want the healthy file", res.Changed)
	}
}

func TestApply_Manifest(t *testing.T) {
	t.Parallel()

	p := newPackage(t, map[string]string{
		modunit.IdentityFile:  filelistFixture,
		modunit.DirectiveFile: partsFixture,
		"Items/items.xml":     "<Items/>",
		"Items/extra.xml":     "<Items/>",
	})
	listPath := filepath.Join(p.Path, modunit.IdentityFile)
	extra := filepath.Join(p.Path, "Items", "extra.xml")
	tg := quietToggler()

	res, err := tg.Apply(context.Background(), p, nil)
	if err != nil {
		t.Fatalf("Apply() failed: %v", err)
	}
	if !slices.Equal(res.Renamed, []string{extra}) {
		t.Errorf("Renamed = %v, want [%s]", res.Renamed, extra)
	}
	if _, err := os.Stat(extra + DisabledSuffix); err != nil {
		t.Errorf("disabled file missing: %v", err)
	}
	if _, err := os.Stat(extra); !os.IsNotExist(err) {
		t.Errorf("enabled file still present: %v", err)
	}

	wantList := `<contentpackage name="Parts">
  <Item file="%ModDir%/Items/items.xml"/>
  <!--<Item file="%ModDir%/Items/extra.xml"/>-->
</contentpackage>`
	if got := readFixture(t, listPath); got != wantList {
		t.Errorf("filelist after Apply:\n%s\nwant:\n%s", got, wantList)
	}

	// A second apply finds nothing to flip.
	res, err = tg.Apply(context.Background(), p, nil)
	if err != nil {
		t.Fatalf("second Apply() failed: %v", err)
	}
	if len(res.Changed) != 0 || len(res.Renamed) != 0 {
		t.Errorf("second Apply() = %s, want no changes", res)
	}

	res = tg.RollbackSequential(p)
	if res.Failed != 0 {
		t.Errorf("RollbackSequential() Failed = %d", res.Failed)
	}
	if got := readFixture(t, listPath); got != filelistFixture {
		t.Errorf("filelist after rollback:\n%s\nwant:\n%s", got, filelistFixture)
	}
	if _, err := os.Stat(extra); err != nil {
		t.Errorf("content file not restored: %v", err)
	}
}

func TestApply_ManifestCondition(t *testing.T) {
	t.Parallel()

	parts := `<parts>
  <part file="%ModDir%/Items/extra.xml" type="Item" setState="off" conditions="999"/>
</parts>`
	p := newPackage(t, map[string]string{
		modunit.IdentityFile:  filelistFixture,
		modunit.DirectiveFile: parts,
		"Items/extra.xml":     "<Items/>",
	})
	tg := quietToggler()

	res, err := tg.Apply(context.Background(), p, nil)
	if err != nil {
		t.Fatalf("Apply() failed: %v", err)
	}
	if len(res.Renamed) != 0 || len(res.Changed) != 0 {
		t.Errorf("Apply() = %s, want no changes while condition is false", res)
	}

	res, err = tg.Apply(context.Background(), p, map[string]struct{}{"999": {}})
	if err != nil {
		t.Fatalf("Apply() failed: %v", err)
	}
	if len(res.Renamed) != 1 {
		t.Errorf("Renamed = %v, want one file", res.Renamed)
	}
}

func TestApply_Cancelled(t *testing.T) {
	t.Parallel()

	p := newPackage(t, map[string]string{"items.xml": regionFixture})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := quietToggler().Apply(ctx, p, nil); err == nil {
		t.Fatal("Apply() with cancelled context succeeded")
	}
}

func TestResolve(t *testing.T) {
	t.Parallel()

	pkgDir := filepath.Join(t.TempDir(), "pkg")
	localDir := filepath.Join(t.TempDir(), "LocalMods")
	r := &run{
		t:   &Toggler{LocalModsDir: localDir, Logger: log.New(io.Discard)},
		pkg: &modunit.Package{Path: pkgDir},
	}

	tests := []struct {
		raw  string
		want string
	}{
		{"%ModDir%/Items/a.xml", filepath.Join(pkgDir, "Items", "a.xml")},
		{"LocalMods/Other/a.xml", filepath.Join(localDir, "Other", "a.xml")},
		{"Items/a.xml", filepath.Join(pkgDir, "Items", "a.xml")},
		{"%ModDir:123%/a.xml", ""},
	}
	for _, tt := range tests {
		if got := r.resolve(tt.raw); got != tt.want {
			t.Errorf("resolve(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}
