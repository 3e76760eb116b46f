// SPDX-License-Identifier: MPL-2.0

package xmltree

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"
)

// untidyDoc exercises everything a tree serializer would normalize.
const untidyDoc = `<?xml version="1.0" encoding="utf-8"?>
<Items description='it&apos;s "quoted"'>
  <!-- BTM:extra start setState="on" -->
  <!-- <Item identifier='extra' name="it's"></Item> -->
  <Item identifier="live" price = "1"></Item>
  <!-- BTM:extra end -->
  <Text>Tom &amp; Jerry's</Text>
</Items>
`

var (
	startMarker = regexp.MustCompile(`BTM:.*start`)
	endMarker   = regexp.MustCompile(`BTM:.*end`)
)

func mustSource(t *testing.T, data string) *Source {
	t.Helper()
	src, err := ParseSource([]byte(data))
	if err != nil {
		t.Fatalf("ParseSource() error = %v", err)
	}
	return src
}

func TestSource_UnmodifiedBytes(t *testing.T) {
	t.Parallel()

	src := mustSource(t, untidyDoc)
	if src.Modified() {
		t.Error("fresh source reports modifications")
	}
	if got := string(src.Bytes()); got != untidyDoc {
		t.Errorf("Bytes() differs:\n%s\nwant:\n%s", got, untidyDoc)
	}
}

func TestSource_Spans(t *testing.T) {
	t.Parallel()

	src := mustSource(t, untidyDoc)
	spans := src.Spans(startMarker, endMarker)
	if len(spans) != 1 {
		t.Fatalf("Spans() returned %d spans, want 1", len(spans))
	}
	sp := spans[0]
	if len(sp.Nodes) != 2 {
		t.Fatalf("span has %d nodes, want 2", len(sp.Nodes))
	}

	first, second := src.Node(sp.Nodes[0]), src.Node(sp.Nodes[1])
	if first.Kind != CommentNode || second.Kind != ElementNode {
		t.Errorf("kinds = %d, %d; want comment then element", first.Kind, second.Kind)
	}
	if got, want := src.CommentText(sp.Nodes[0]), ` <Item identifier='extra' name="it's"></Item> `; got != want {
		t.Errorf("CommentText() = %q, want %q", got, want)
	}
	if got, want := src.Raw(sp.Nodes[1]), `<Item identifier="live" price = "1"></Item>`; got != want {
		t.Errorf("Raw() = %q, want %q", got, want)
	}
	if second.Parent != src.Root() {
		t.Errorf("Parent = %d, want root %d", second.Parent, src.Root())
	}
}

func TestSource_SpansUnterminated(t *testing.T) {
	t.Parallel()

	src := mustSource(t, `<a><!-- BTM: start setState="on" --><b/></a>`)
	if spans := src.Spans(startMarker, endMarker); len(spans) != 0 {
		t.Errorf("Spans() returned %d spans, want 0", len(spans))
	}
}

func TestSource_ReplaceKeepsOtherBytes(t *testing.T) {
	t.Parallel()

	src := mustSource(t, untidyDoc)
	sp := src.Spans(startMarker, endMarker)[0]

	_, body, _ := SplitPadding(src.CommentText(sp.Nodes[0]))
	if err := src.Replace(sp.Nodes[0], body); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}
	if err := src.Replace(sp.Nodes[0], "again"); !errors.Is(err, ErrOverlap) {
		t.Errorf("second Replace() error = %v, want ErrOverlap", err)
	}

	want := `<?xml version="1.0" encoding="utf-8"?>
<Items description='it&apos;s "quoted"'>
  <!-- BTM:extra start setState="on" -->
  <Item identifier='extra' name="it's"></Item>
  <Item identifier="live" price = "1"></Item>
  <!-- BTM:extra end -->
  <Text>Tom &amp; Jerry's</Text>
</Items>
`
	if got := string(src.Bytes()); got != want {
		t.Errorf("Bytes() =\n%s\nwant:\n%s", got, want)
	}

	path := filepath.Join(t.TempDir(), "items.xml")
	if err := src.SaveAtomic(path); err != nil {
		t.Fatalf("SaveAtomic() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != want {
		t.Errorf("saved file differs:\n%s", data)
	}
}

func TestParseSource_Errors(t *testing.T) {
	t.Parallel()

	for _, doc := range []string{
		`<Items a=></Items>`,
		`<a><b></a></b>`,
		`<a>`,
		`<!-- only a comment -->`,
		`<a/><b/>`,
	} {
		if _, err := ParseSource([]byte(doc)); err == nil {
			t.Errorf("ParseSource(%q) succeeded", doc)
		}
	}
}

func TestParseElement(t *testing.T) {
	t.Parallel()

	el, err := ParseElement(`<Item identifier='a'><Price/></Item>`)
	if err != nil {
		t.Fatalf("ParseElement() error = %v", err)
	}
	if el.Tag != "Item" || AttrOr(el, "identifier", "") != "a" {
		t.Errorf("ParseElement() = <%s identifier=%q>", el.Tag, AttrOr(el, "identifier", ""))
	}

	for _, text := range []string{" just prose ", `<a/><b/>`, `<a/><!--x-->`, `<a>`} {
		if _, err := ParseElement(text); err == nil {
			t.Errorf("ParseElement(%q) succeeded", text)
		}
	}
}

func TestSplitPadding(t *testing.T) {
	t.Parallel()

	lead, body, trail := SplitPadding("\n\t <Item/>  \n")
	if lead != "\n\t " || body != "<Item/>" || trail != "  \n" {
		t.Errorf("SplitPadding() = %q, %q, %q", lead, body, trail)
	}
	if lead, body, trail := SplitPadding("<Item/>"); lead != "" || body != "<Item/>" || trail != "" {
		t.Errorf("SplitPadding() of unpadded text = %q, %q, %q", lead, body, trail)
	}
}

func TestComment(t *testing.T) {
	t.Parallel()

	if got, err := Comment(`<Item/>`); err != nil || got != `<!--<Item/>-->` {
		t.Errorf("Comment() = %q, %v", got, err)
	}
	for _, text := range []string{`<Item a="x--y"/>`, `x-`} {
		if _, err := Comment(text); err == nil {
			t.Errorf("Comment(%q) succeeded", text)
		}
	}
}
