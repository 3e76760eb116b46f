// SPDX-License-Identifier: MPL-2.0

package config

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/text/language"

	"github.com/modsmith/modsmith/pkg/modunit"
)

// cacheFileName is the default package cache file name.
const cacheFileName = "packages.toml"

// LocalModsDir returns <game_dir>/LocalMods, or "" without a game directory.
func (c *Config) LocalModsDir() string {
	if c.GameDir == "" {
		return ""
	}
	return filepath.Join(c.GameDir, modunit.LocalModsDir)
}

// Roots returns the directories scanned for packages, in precedence order,
// skipping unset ones.
func (c *Config) Roots() []string {
	var roots []string
	for _, dir := range []string{c.LocalModsDir(), c.WorkshopSyncDir, c.SteamModDir} {
		if dir != "" {
			roots = append(roots, dir)
		}
	}
	return roots
}

// CachePath returns cache_file, or packages.toml in the user cache directory.
func (c *Config) CachePath() (string, error) {
	if c.CacheFile != "" {
		return c.CacheFile, nil
	}
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate cache directory: %w", err)
	}
	return filepath.Join(dir, AppName, cacheFileName), nil
}

// LanguageTag parses the language setting, falling back to English.
func (c *Config) LanguageTag() language.Tag {
	tag, err := language.Parse(c.Language)
	if err != nil {
		return language.English
	}
	return tag
}
