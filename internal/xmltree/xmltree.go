// SPDX-License-Identifier: MPL-2.0

// Package xmltree provides the small set of XML operations the mod pipeline
// relies on.
//
// Documents that are read or generated as a whole are github.com/beevik/etree
// trees. Serializing a tree normalizes escaping, quoting and empty elements,
// so files that must keep their bytes, such as content files whose comments
// are flipped on and off, are edited through a Source instead: only the
// replaced nodes change and every other byte is written back as read.
package xmltree

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/beevik/etree"
	"github.com/bmatcuk/doublestar/v4"
)

// ErrNoRoot is returned when a document has no root element.
var ErrNoRoot = errors.New("document has no root element")

// Load reads and parses the XML document at path.
func Load(path string) (*etree.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Parse parses an XML document from memory. A document without a root
// element is rejected.
func Parse(data []byte) (*etree.Document, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, err
	}
	if doc.Root() == nil {
		return nil, ErrNoRoot
	}
	return doc, nil
}

// SaveAtomic writes doc next to path and renames it into place, so readers
// never observe a half-written file.
func SaveAtomic(doc *etree.Document, path string) error {
	data, err := doc.WriteToBytes()
	if err != nil {
		return err
	}
	return writeAtomic(path, data)
}

func writeAtomic(path string, data []byte) error {
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath) // Best-effort cleanup of temp file
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

// Attr looks up an attribute by key, ignoring case.
func Attr(e *etree.Element, key string) (string, bool) {
	for _, a := range e.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Value, true
		}
	}
	return "", false
}

// AttrOr returns the attribute value for key (case-insensitive), or dflt.
func AttrOr(e *etree.Element, key, dflt string) string {
	if v, ok := Attr(e, key); ok {
		return v
	}
	return dflt
}

// Elements returns the element children of e in document order, skipping
// comments and character data.
func Elements(e *etree.Element) []*etree.Element {
	return e.ChildElements()
}

// FindElements returns every descendant element of e whose lowercase tag
// matches the lowercase doublestar pattern, in document order.
func FindElements(e *etree.Element, pattern string) []*etree.Element {
	pattern = strings.ToLower(pattern)

	var found []*etree.Element
	walk(e, func(el *etree.Element) {
		if el == e {
			return
		}
		if ok, err := doublestar.Match(pattern, strings.ToLower(el.Tag)); err == nil && ok {
			found = append(found, el)
		}
	})
	return found
}

// FindComments returns every comment under e whose text matches re, in
// document order.
func FindComments(e *etree.Element, re *regexp.Regexp) []*etree.Comment {
	var found []*etree.Comment
	walk(e, func(el *etree.Element) {
		for _, tok := range el.Child {
			if c, ok := tok.(*etree.Comment); ok && re.MatchString(c.Data) {
				found = append(found, c)
			}
		}
	})
	return found
}

// walk visits e and all of its descendant elements in document order using an
// explicit stack.
func walk(e *etree.Element, visit func(*etree.Element)) {
	stack := []*etree.Element{e}
	for len(stack) > 0 {
		el := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		visit(el)

		children := el.ChildElements()
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}
}
