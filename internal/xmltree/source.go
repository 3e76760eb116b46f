// SPDX-License-Identifier: MPL-2.0

package xmltree

import (
	"bytes"
	"cmp"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"slices"
	"strings"

	"github.com/beevik/etree"
)

// ErrOverlap is returned by Source.Replace when a span was already replaced
// or encloses a replaced span.
var ErrOverlap = errors.New("span overlaps an earlier replacement")

// whitespace is the XML whitespace set.
const whitespace = " \t\r\n"

type (
	// NodeKind tells elements and comments apart.
	NodeKind int

	// Node is an element or comment of a Source with its byte span
	// [Start, End) in the original document.
	Node struct {
		Kind  NodeKind
		Start int
		End   int
		// Parent is the index of the enclosing element, -1 at top level.
		Parent int
	}

	// Span is a run of sibling nodes enclosed by a start and an end marker
	// comment. All fields are node indexes. Character data is not part of a
	// span.
	Span struct {
		Start int
		Nodes []int
		End   int
	}

	// Source is an XML document kept as its original bytes. Replacements
	// swap the bytes of single nodes; every byte outside a replaced node is
	// written back exactly as it was read.
	Source struct {
		data     []byte
		nodes    []Node
		children map[int][]int
		edits    []edit
	}

	edit struct {
		start, end int
		text       string
	}
)

const (
	ElementNode NodeKind = iota + 1
	CommentNode
)

// LoadSource reads the document at path.
func LoadSource(path string) (*Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	src, err := ParseSource(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return src, nil
}

// ParseSource indexes the elements and comments of data. The document must
// be well formed and have a root element.
func ParseSource(data []byte) (*Source, error) {
	s := &Source{data: data, children: map[int][]int{}}

	d := xml.NewDecoder(bytes.NewReader(data))
	d.Entity = xml.HTMLEntity

	var (
		open  []int
		names []xml.Name
		root  bool
	)
	for {
		start := int(d.InputOffset())
		tok, err := d.RawToken()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		end := int(d.InputOffset())

		parent := -1
		if len(open) > 0 {
			parent = open[len(open)-1]
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if parent == -1 {
				if root {
					return nil, fmt.Errorf("second root element at offset %d", start)
				}
				root = true
			}
			idx := s.add(Node{Kind: ElementNode, Start: start, Parent: parent})
			open = append(open, idx)
			names = append(names, t.Name)
		case xml.EndElement:
			if len(open) == 0 || names[len(names)-1] != t.Name {
				return nil, fmt.Errorf("unexpected end element </%s> at offset %d", t.Name.Local, start)
			}
			s.nodes[open[len(open)-1]].End = end
			open = open[:len(open)-1]
			names = names[:len(names)-1]
		case xml.Comment:
			s.add(Node{Kind: CommentNode, Start: start, End: end, Parent: parent})
		}
	}

	if len(open) > 0 {
		return nil, fmt.Errorf("element <%s> is not closed", names[len(names)-1].Local)
	}
	if !root {
		return nil, ErrNoRoot
	}
	return s, nil
}

func (s *Source) add(n Node) int {
	s.nodes = append(s.nodes, n)
	idx := len(s.nodes) - 1
	s.children[n.Parent] = append(s.children[n.Parent], idx)
	return idx
}

// Node returns the node at idx.
func (s *Source) Node(idx int) Node { return s.nodes[idx] }

// Root returns the index of the root element.
func (s *Source) Root() int {
	for _, idx := range s.children[-1] {
		if s.nodes[idx].Kind == ElementNode {
			return idx
		}
	}
	return -1
}

// Children returns the element and comment children of the node at parent in
// document order. A parent of -1 yields the top-level nodes.
func (s *Source) Children(parent int) []int { return slices.Clone(s.children[parent]) }

// Raw returns the original bytes of the node at idx.
func (s *Source) Raw(idx int) string {
	n := s.nodes[idx]
	return string(s.data[n.Start:n.End])
}

// CommentText returns the text between <!-- and --> of the comment at idx.
func (s *Source) CommentText(idx int) string {
	raw := s.Raw(idx)
	return raw[len("<!--") : len(raw)-len("-->")]
}

// Element parses the element at idx into an etree element.
func (s *Source) Element(idx int) (*etree.Element, error) {
	return ParseElement(s.Raw(idx))
}

// Spans returns the sibling runs delimited by comments matching start and
// end, at every level of the document. Spans never cross parents; a start
// marker without a matching end marker at the same level yields nothing.
func (s *Source) Spans(start, end *regexp.Regexp) []Span {
	parents := make([]int, 0, len(s.children))
	for p := range s.children {
		parents = append(parents, p)
	}
	slices.Sort(parents)

	var spans []Span
	for _, p := range parents {
		var cur *Span
		for _, idx := range s.children[p] {
			isComment := s.nodes[idx].Kind == CommentNode
			switch {
			case isComment && start.MatchString(s.CommentText(idx)):
				cur = &Span{Start: idx}
			case isComment && cur != nil && end.MatchString(s.CommentText(idx)):
				cur.End = idx
				spans = append(spans, *cur)
				cur = nil
			case cur != nil:
				cur.Nodes = append(cur.Nodes, idx)
			}
		}
	}
	return spans
}

// Replace swaps the bytes of the node at idx for text.
func (s *Source) Replace(idx int, text string) error {
	n := s.nodes[idx]
	for _, e := range s.edits {
		if n.Start < e.end && e.start < n.End {
			return ErrOverlap
		}
	}
	s.edits = append(s.edits, edit{start: n.Start, end: n.End, text: text})
	return nil
}

// Modified reports whether any node was replaced.
func (s *Source) Modified() bool { return len(s.edits) > 0 }

// Bytes returns the document with every replacement applied.
func (s *Source) Bytes() []byte {
	edits := slices.Clone(s.edits)
	slices.SortFunc(edits, func(a, b edit) int { return cmp.Compare(a.start, b.start) })

	var buf bytes.Buffer
	buf.Grow(len(s.data))
	pos := 0
	for _, e := range edits {
		buf.Write(s.data[pos:e.start])
		buf.WriteString(e.text)
		pos = e.end
	}
	buf.Write(s.data[pos:])
	return buf.Bytes()
}

// Save writes the document to path directly.
func (s *Source) Save(path string) error {
	return os.WriteFile(path, s.Bytes(), 0o644)
}

// SaveAtomic writes the document next to path and renames it into place.
func (s *Source) SaveAtomic(path string) error {
	return writeAtomic(path, s.Bytes())
}

// ParseElement parses text holding exactly one element and nothing else.
func ParseElement(text string) (*etree.Element, error) {
	if !strings.HasPrefix(text, "<") {
		return nil, errors.New("text is not an element")
	}
	src, err := ParseSource([]byte(text))
	if err != nil {
		return nil, err
	}
	root := src.Root()
	if len(src.children[-1]) != 1 || src.nodes[root].Start != 0 || src.nodes[root].End != len(text) {
		return nil, errors.New("text is not a single element")
	}
	doc, err := Parse([]byte(text))
	if err != nil {
		return nil, err
	}
	return doc.Root(), nil
}

// SplitPadding separates the leading and trailing whitespace of text from
// its body.
func SplitPadding(text string) (lead, body, trail string) {
	body = strings.TrimLeft(text, whitespace)
	lead = text[:len(text)-len(body)]
	trimmed := strings.TrimRight(body, whitespace)
	trail = body[len(trimmed):]
	return lead, trimmed, trail
}

// Comment wraps text in comment delimiters. Text containing "--" cannot be
// commented out.
func Comment(text string) (string, error) {
	if strings.Contains(text, "--") || strings.HasSuffix(text, "-") {
		return "", errors.New(`text contains "--" and cannot be commented out`)
	}
	return "<!--" + text + "-->", nil
}
