// SPDX-License-Identifier: MPL-2.0

package xmltree

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/beevik/etree"
)

const sampleDoc = `<Items>
  <!-- BTM: start setState="on" -->
  <!--<Item identifier="a"/>-->
  <Item identifier="b"/>
  <!-- BTM: end -->
  <Group>
    <Item identifier="c" AnimationType="Walk"/>
  </Group>
</Items>`

func mustParse(t *testing.T, data string) *etree.Document {
	t.Helper()
	doc, err := Parse([]byte(data))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return doc
}

func TestParse_NoRoot(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte(`<!-- only a comment -->`))
	if !errors.Is(err, ErrNoRoot) {
		t.Errorf("Parse() error = %v, want ErrNoRoot", err)
	}
}

func TestAttr_CaseInsensitive(t *testing.T) {
	t.Parallel()

	doc := mustParse(t, sampleDoc)
	items := FindElements(doc.Root(), "item")
	if len(items) != 2 {
		t.Fatalf("FindElements() returned %d elements, want 2", len(items))
	}

	v, ok := Attr(items[1], "animationtype")
	if !ok || v != "Walk" {
		t.Errorf("Attr() = %q, %v; want %q, true", v, ok, "Walk")
	}
	if got := AttrOr(items[0], "missing", "dflt"); got != "dflt" {
		t.Errorf("AttrOr() = %q, want %q", got, "dflt")
	}
}

func TestFindElements_Glob(t *testing.T) {
	t.Parallel()

	doc := mustParse(t, sampleDoc)
	got := FindElements(doc.Root(), "{group,item}")
	if len(got) != 3 {
		t.Errorf("FindElements() returned %d elements, want 3", len(got))
	}
}

func TestFindComments(t *testing.T) {
	t.Parallel()

	doc := mustParse(t, sampleDoc)
	got := FindComments(&doc.Element, regexp.MustCompile(`BTM:`))
	if len(got) != 2 {
		t.Errorf("FindComments() returned %d comments, want 2", len(got))
	}
}

func TestSaveAtomic_UnchangedBytes(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "doc.xml")
	if err := os.WriteFile(path, []byte(sampleDoc), 0o644); err != nil {
		t.Fatal(err)
	}
	doc, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := SaveAtomic(doc, path); err != nil {
		t.Fatalf("SaveAtomic() error = %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != sampleDoc {
		t.Errorf("saved document differs:\n%s\nwant:\n%s", got, sampleDoc)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temp file left behind: %v", err)
	}
}
