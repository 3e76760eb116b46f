// SPDX-License-Identifier: MPL-2.0

// Package cache persists parsed packages keyed by directory so unchanged
// packages are not rebuilt on every scan.
//
// An entry is trusted only while the fingerprint of the package's identity
// files still matches the one recorded when it was stored. The backing file is
// TOML and is replaced atomically on Flush.
package cache

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/pelletier/go-toml/v2"

	"github.com/modsmith/modsmith/pkg/modunit"
)

// formatVersion is bumped whenever the snapshot layout changes.
const formatVersion = 1

// fingerprintChunk is the read size used while hashing identity files.
const fingerprintChunk = 4096

// Cache maps absolute package directories to fingerprinted package snapshots.
// It is safe for concurrent use.
type Cache struct {
	path   string
	logger *log.Logger

	mu      sync.Mutex
	entries map[string]entry
	dirty   bool
}

type entry struct {
	fingerprint string
	pkg         *modunit.Package
}

// Open loads the cache file at path. A missing file yields an empty cache; an
// unreadable or corrupt file is logged and also yields an empty cache.
func Open(path string, logger *log.Logger) *Cache {
	if logger == nil {
		logger = log.Default().WithPrefix("cache")
	}
	c := &Cache{path: path, logger: logger, entries: map[string]entry{}}

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("Cache file unreadable, starting empty", "path", path, "error", err)
		}
		return c
	}

	entries, err := decode(data)
	if err != nil {
		logger.Warn("Cache file corrupt, starting empty", "path", path, "error", err)
		return c
	}
	c.entries = entries
	logger.Debug("Cache loaded", "path", path, "entries", len(entries))
	return c
}

// Path returns the backing file path.
func (c *Cache) Path() string { return c.path }

// Len returns the number of entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Lookup returns a copy of the cached package for dir if its identity files
// are unchanged since it was stored.
func (c *Cache) Lookup(dir string) (*modunit.Package, bool) {
	key := Key(dir)

	c.mu.Lock()
	e, ok := c.entries[key]
	c.mu.Unlock()
	if !ok {
		return nil, false
	}

	if Fingerprint(key) != e.fingerprint {
		return nil, false
	}
	return e.pkg.Clone(), true
}

// Store records p under its directory with a fingerprint computed now,
// replacing any previous entry.
func (c *Cache) Store(p *modunit.Package) {
	key := Key(p.Path)
	fp := Fingerprint(key)
	snapshot := p.Clone()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{fingerprint: fp, pkg: snapshot}
	c.dirty = true
}

// Flush writes the cache to disk if anything changed since the last flush.
// The file is written next to its final location and renamed into place.
func (c *Cache) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.dirty {
		return nil
	}

	data, err := encode(c.entries)
	if err != nil {
		return fmt.Errorf("failed to encode cache: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	tmpPath := c.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		_ = os.Remove(tmpPath) // Best-effort cleanup of temp file
		return fmt.Errorf("failed to rename cache file: %w", err)
	}

	c.dirty = false
	c.logger.Debug("Cache flushed", "path", c.path, "entries", len(c.entries))
	return nil
}

// Clear drops every entry and removes the backing file. Deletion errors are
// logged and otherwise ignored.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = map[string]entry{}
	c.dirty = false
	if err := os.Remove(c.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		c.logger.Warn("Failed to delete cache file", "path", c.path, "error", err)
	}
}

// Key normalizes dir into the absolute, symlink-resolved form used as cache key.
func Key(dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return filepath.Clean(dir)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	return abs
}

// Fingerprint hashes filelist.xml followed by metadata.xml in dir with SHA-256.
// Missing or unreadable files contribute nothing.
func Fingerprint(dir string) string {
	h := sha256.New()
	buf := make([]byte, fingerprintChunk)
	for _, name := range []string{modunit.IdentityFile, modunit.MetadataFile} {
		hashFile(h, filepath.Join(dir, name), buf)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func hashFile(w io.Writer, path string, buf []byte) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	// A read error mid-file leaves a partial hash, which simply never matches.
	_, _ = io.CopyBuffer(w, onlyReader{f}, buf)
}

// onlyReader hides WriterTo/ReaderFrom so io.CopyBuffer honors the chunk size.
type onlyReader struct{ io.Reader }

func encode(entries map[string]entry) ([]byte, error) {
	doc := fileDoc{Version: formatVersion}
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		e := entries[k]
		doc.Entries = append(doc.Entries, entryDoc{
			Path:        k,
			Fingerprint: e.fingerprint,
			Package:     toSnapshot(e.pkg),
		})
	}

	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decode(data []byte) (map[string]entry, error) {
	var doc fileDoc
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Version != formatVersion {
		return nil, fmt.Errorf("unsupported cache version %d", doc.Version)
	}

	entries := make(map[string]entry, len(doc.Entries))
	for _, e := range doc.Entries {
		if e.Path == "" {
			continue
		}
		entries[e.Path] = entry{fingerprint: e.Fingerprint, pkg: fromSnapshot(e.Package)}
	}
	return entries, nil
}
