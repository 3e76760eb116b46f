// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"
)

// Game is a throwaway game directory.
type Game struct {
	t   testing.TB
	Dir string
}

// NewGame creates an empty game directory under t.TempDir().
func NewGame(t testing.TB) *Game {
	t.Helper()
	return &Game{t: t, Dir: t.TempDir()}
}

// LocalModsDir returns the LocalMods folder of the game.
func (g *Game) LocalModsDir() string { return filepath.Join(g.Dir, "LocalMods") }

// Package writes a local package named dir. filelist is the body of
// filelist.xml; an empty metadata skips metadata.xml. It returns the package
// directory.
func (g *Game) Package(dir, filelist, metadata string) string {
	g.t.Helper()
	pkgDir := filepath.Join(g.LocalModsDir(), dir)
	MustWriteFile(g.t, filepath.Join(pkgDir, "filelist.xml"), filelist)
	if metadata != "" {
		MustWriteFile(g.t, filepath.Join(pkgDir, "metadata.xml"), metadata)
	}
	return pkgDir
}

// SimplePackage writes a local package whose filelist only carries a name.
func (g *Game) SimplePackage(name string) string {
	g.t.Helper()
	return g.Package(name, fmt.Sprintf(`<contentpackage name=%q/>`, name), "")
}

// Requires returns a metadata.xml body requiring the named packages.
func Requires(names ...string) string {
	var b strings.Builder
	b.WriteString("<metadata>\n  <dependencies>\n")
	for _, n := range names {
		fmt.Fprintf(&b, "    <requirement name=%q/>\n", n)
	}
	b.WriteString("  </dependencies>\n</metadata>")
	return b.String()
}

// PlayerConfig writes config_player.xml listing the local packages in dirs as
// active, in order. It returns the file path.
func (g *Game) PlayerConfig(dirs ...string) string {
	g.t.Helper()
	var b strings.Builder
	b.WriteString("<config>\n  <contentpackages>\n    <regularpackages>\n")
	for _, d := range dirs {
		fmt.Fprintf(&b, "      <package path=\"LocalMods/%s/filelist.xml\"/>\n", d)
	}
	b.WriteString("    </regularpackages>\n  </contentpackages>\n</config>")
	path := filepath.Join(g.Dir, "config_player.xml")
	MustWriteFile(g.t, path, b.String())
	return path
}
