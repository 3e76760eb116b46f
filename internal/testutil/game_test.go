// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestGame(t *testing.T) {
	t.Parallel()

	g := NewGame(t)
	dir := g.Package("Addon", `<contentpackage name="Addon"/>`, Requires("Base", "Extra"))
	g.SimplePackage("Base")
	path := g.PlayerConfig("Base", "Addon")

	if dir != filepath.Join(g.Dir, "LocalMods", "Addon") {
		t.Errorf("Package() = %s", dir)
	}
	meta, err := os.ReadFile(filepath.Join(dir, "metadata.xml"))
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`<requirement name="Base"/>`, `<requirement name="Extra"/>`} {
		if !strings.Contains(string(meta), want) {
			t.Errorf("metadata.xml missing %s:\n%s", want, meta)
		}
	}
	if _, err := os.Stat(filepath.Join(g.LocalModsDir(), "Base", "metadata.xml")); !os.IsNotExist(err) {
		t.Errorf("SimplePackage() wrote metadata.xml: %v", err)
	}

	cfg, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	base := strings.Index(string(cfg), "LocalMods/Base/filelist.xml")
	addon := strings.Index(string(cfg), "LocalMods/Addon/filelist.xml")
	if base < 0 || addon < base {
		t.Errorf("PlayerConfig() order wrong:\n%s", cfg)
	}
}

func TestMustRemoveAll(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "a")
	MustWriteFile(t, filepath.Join(dir, "b", "c.txt"), "x")
	MustRemoveAll(t, dir)
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("directory still present: %v", err)
	}
}
