// SPDX-License-Identifier: MPL-2.0

package idextract

import (
	"slices"
	"sync"
	"testing"

	"github.com/modsmith/modsmith/internal/xmltree"
)

func extract(t *testing.T, x *Extractor, doc string) Result {
	t.Helper()
	d, err := xmltree.Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return x.Extract(d.Root())
}

func TestExtract_Items(t *testing.T) {
	t.Parallel()

	res := extract(t, New(), `<Items>
  <Item identifier="crowbar"/>
  <Item/>
  <Override>
    <Item identifier="wrench"/>
  </Override>
</Items>`)

	if got, want := res.Adds.Sorted(), []string{"item.Item", "item.crowbar"}; !slices.Equal(got, want) {
		t.Errorf("Adds = %v, want %v", got, want)
	}
	if got, want := res.Overrides.Sorted(), []string{"item.wrench"}; !slices.Equal(got, want) {
		t.Errorf("Overrides = %v, want %v", got, want)
	}
}

func TestExtract_OverrideAtRoot(t *testing.T) {
	t.Parallel()

	res := extract(t, New(), `<Override>
  <Afflictions>
    <Affliction identifier="burn"/>
    <CPRSettings/>
  </Afflictions>
  <Character speciesname="Crawler"/>
</Override>`)

	if len(res.Adds) != 0 {
		t.Errorf("Adds = %v, want none", res.Adds.Sorted())
	}
	want := []string{"CPRSettings", "Character.Crawler", "affliction.burn"}
	if got := res.Overrides.Sorted(); !slices.Equal(got, want) {
		t.Errorf("Overrides = %v, want %v", got, want)
	}
}

func TestExtract_ContextInheritance(t *testing.T) {
	t.Parallel()

	// Children of <Items> with unknown tags resolve through the "item" context.
	res := extract(t, New(), `<Items><Wrench identifier="w"/><Hammer/></Items>`)
	if got, want := res.Adds.Sorted(), []string{"item.Hammer", "item.w"}; !slices.Equal(got, want) {
		t.Errorf("Adds = %v, want %v", got, want)
	}

	// <Characters> sets no context of its own, so "item" flows through it.
	res = extract(t, New(), `<Items><Characters><Thing identifier="t"/></Characters></Items>`)
	if got, want := res.Adds.Sorted(), []string{"item.t"}; !slices.Equal(got, want) {
		t.Errorf("Adds = %v, want %v", got, want)
	}
}

func TestExtract_ShortCircuitRoots(t *testing.T) {
	t.Parallel()

	for _, doc := range []string{
		`<infotexts><Item identifier="x"/></infotexts>`,
		`<English><Item identifier="x"/></English>`,
		`<contentpackage><Item identifier="x"/></contentpackage>`,
	} {
		if res := extract(t, New(), doc); !res.Empty() {
			t.Errorf("Extract(%s) = %v / %v, want empty", doc, res.Adds.Sorted(), res.Overrides.Sorted())
		}
	}

	if res := New().Extract(nil); !res.Empty() {
		t.Error("Extract(nil) should be empty")
	}
}

func TestExtract_IgnoreStopsDescent(t *testing.T) {
	t.Parallel()

	res := extract(t, New(), `<Randomevents><Sounds><EventSet identifier="x"/></Sounds><EventSet identifier="y"/></Randomevents>`)
	if got, want := res.Adds.Sorted(), []string{"EventSet.y"}; !slices.Equal(got, want) {
		t.Errorf("Adds = %v, want %v", got, want)
	}
}

func TestExtract_AnimationFallback(t *testing.T) {
	t.Parallel()

	x := New()
	res := extract(t, x, `<Animations>
  <HumanSwim ANIMATIONTYPE="SwimSlow"/>
</Animations>`)
	// The root has no rule and no animation type, so it is a leaf.
	if !res.Empty() {
		t.Errorf("unknown root should not descend, got %v", res.Adds.Sorted())
	}
	if got := x.Unknown(); !slices.Equal(got, []string{"Animations"}) {
		t.Errorf("Unknown() = %v", got)
	}

	res = extract(t, x, `<HumanRun animationtype="Run"/>`)
	if got, want := res.Adds.Sorted(), []string{"GroundAnimation.HumanRun"}; !slices.Equal(got, want) {
		t.Errorf("Adds = %v, want %v", got, want)
	}

	res = extract(t, x, `<Override><FishSwim animationtype="swimfast"/><Odd animationtype="fly"/></Override>`)
	if got, want := res.Overrides.Sorted(), []string{"WaterAnimation.FishSwim"}; !slices.Equal(got, want) {
		t.Errorf("Overrides = %v, want %v", got, want)
	}
}

func TestExtract_AttributeRules(t *testing.T) {
	t.Parallel()

	res := extract(t, New(), `<BackgroundCreatures>
  <BackgroundCreature identifier="ignored"/>
  <Fish/>
</BackgroundCreatures>`)
	want := []string{"BackgroundCreature.BackgroundCreature", "BackgroundCreature.Fish"}
	if got := res.Adds.Sorted(); !slices.Equal(got, want) {
		t.Errorf("Adds = %v, want %v", got, want)
	}

	res = extract(t, New(), `<NPCSets><NPCSet identifier="set"><NPC identifier="guard"/></NPCSet></NPCSets>`)
	if got, want := res.Adds.Sorted(), []string{"NPC.guard"}; !slices.Equal(got, want) {
		t.Errorf("Adds = %v, want %v", got, want)
	}
}

func TestExtract_Deterministic(t *testing.T) {
	t.Parallel()

	const doc = `<Items><Item identifier="a"/><Override><Item identifier="b"/></Override><Item identifier="c"/></Items>`
	x := New()
	first := extract(t, x, doc)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := xmltree.Parse([]byte(doc))
			if err != nil {
				t.Error(err)
				return
			}
			got := x.Extract(d.Root())
			if !slices.Equal(got.Adds.Sorted(), first.Adds.Sorted()) || !slices.Equal(got.Overrides.Sorted(), first.Overrides.Sorted()) {
				t.Errorf("concurrent Extract() = %v/%v, want %v/%v",
					got.Adds.Sorted(), got.Overrides.Sorted(), first.Adds.Sorted(), first.Overrides.Sorted())
			}
		}()
	}
	wg.Wait()
}
