package sequence

import (
	"errors"
	"reflect"
	"sort"
	"testing"
)

// hl and br build entries with readable ids for table tests.
func hl(id string) Entry        { return HighlightRef(id) }
func br(id, title string) Entry { return Break(id, title) }

func ids(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, en := range entries {
		out[i] = en.ID
	}
	return out
}

func TestEditorBasics(t *testing.T) {
	e := NewEditor(hl("a"), br("b1", ""), hl("b"))

	if e.Len() != 3 {
		t.Fatalf("Len = %d, want 3", e.Len())
	}
	if got := e.IndexOf("b1"); got != 1 {
		t.Errorf("IndexOf(b1) = %d, want 1", got)
	}
	if got := e.IndexOf("missing"); got != -1 {
		t.Errorf("IndexOf(missing) = %d, want -1", got)
	}

	en, ok := e.Get("b")
	if !ok || en.Kind != KindHighlight {
		t.Errorf("Get(b) = %+v %v", en, ok)
	}

	// Entries returns a copy.
	got := e.Entries()
	got[0] = hl("mutated")
	if e.Entries()[0].ID != "a" {
		t.Error("Entries returned the editor's backing slice")
	}
}

func TestInsertAtClamps(t *testing.T) {
	e := NewEditor(hl("a"), hl("b"))

	e.InsertAt(-5, br("front", ""))
	e.InsertAt(99, br("back", ""))
	e.InsertAt(2, br("mid", ""))

	want := []string{"front", "a", "mid", "b", "back"}
	if got := ids(e.Entries()); !reflect.DeepEqual(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}

func TestRemoveAndSetTitle(t *testing.T) {
	e := NewEditor(hl("a"), br("b1", ""), hl("b"))

	if !e.Remove("b1") {
		t.Error("Remove(b1) = false")
	}
	if e.Remove("b1") {
		t.Error("second Remove(b1) = true")
	}
	if e.Len() != 2 {
		t.Errorf("Len after remove = %d, want 2", e.Len())
	}

	e.Append(br("b2", ""))
	if !e.SetTitle("b2", "Intro") {
		t.Error("SetTitle(b2) = false")
	}
	if en, _ := e.Get("b2"); en.Title != "Intro" {
		t.Errorf("title = %q, want Intro", en.Title)
	}
	// Highlights carry no caption.
	if e.SetTitle("a", "nope") {
		t.Error("SetTitle on a highlight = true")
	}
	if e.SetTitle("missing", "nope") {
		t.Error("SetTitle on unknown id = true")
	}
}

func TestReorderSingle(t *testing.T) {
	e := NewEditor(hl("a"), hl("b"), hl("c"), hl("d"))

	got, err := e.Reorder([]string{"a"}, 2)
	if err != nil {
		t.Fatalf("Reorder: %v", err)
	}
	want := []string{"b", "c", "a", "d"}
	if !reflect.DeepEqual(ids(got), want) {
		t.Errorf("order = %v, want %v", ids(got), want)
	}

	// The editor itself is untouched; Reorder is a pure computation.
	if !reflect.DeepEqual(ids(e.Entries()), []string{"a", "b", "c", "d"}) {
		t.Error("Reorder mutated the editor")
	}
}

func TestReorderBlock(t *testing.T) {
	e := NewEditor(hl("a"), hl("b"), hl("c"), hl("d"), hl("e"))

	// Non-adjacent picks drop as one contiguous block, keeping their
	// relative order.
	got, err := e.Reorder([]string{"d", "b"}, 0)
	if err != nil {
		t.Fatalf("Reorder: %v", err)
	}
	want := []string{"b", "d", "a", "c", "e"}
	if !reflect.DeepEqual(ids(got), want) {
		t.Errorf("order = %v, want %v", ids(got), want)
	}
}

func TestReorderClampsInsertBefore(t *testing.T) {
	e := NewEditor(hl("a"), hl("b"), hl("c"))

	got, err := e.Reorder([]string{"a"}, 99)
	if err != nil {
		t.Fatalf("Reorder: %v", err)
	}
	if !reflect.DeepEqual(ids(got), []string{"b", "c", "a"}) {
		t.Errorf("order = %v, want [b c a]", ids(got))
	}
}

func TestReorderEmptyDrag(t *testing.T) {
	e := NewEditor(hl("a"), hl("b"))

	if _, err := e.Reorder([]string{"x", "y"}, 0); !errors.Is(err, ErrEmptyDrag) {
		t.Errorf("err = %v, want ErrEmptyDrag", err)
	}
	if _, err := e.Reorder(nil, 0); !errors.Is(err, ErrEmptyDrag) {
		t.Errorf("nil drag err = %v, want ErrEmptyDrag", err)
	}
}

// TestReorderIsPermutation drives Reorder across every dragged-set /
// insertion-point combination of a small sequence and checks the
// structural guarantees: same length, same id multiset, non-dragged
// relative order preserved.
func TestReorderIsPermutation(t *testing.T) {
	base := []Entry{hl("a"), br("b1", ""), hl("b"), hl("c"), br("b2", "End")}
	e := NewEditor(base...)
	allIDs := ids(base)

	// All non-empty subsets of the five ids.
	for mask := 1; mask < 1<<len(allIDs); mask++ {
		var dragged []string
		for bit, id := range allIDs {
			if mask&(1<<bit) != 0 {
				dragged = append(dragged, id)
			}
		}
		for at := 0; at <= len(base)+1; at++ {
			got, err := e.Reorder(dragged, at)
			if err != nil {
				t.Fatalf("Reorder(%v, %d): %v", dragged, at, err)
			}
			if len(got) != len(base) {
				t.Fatalf("Reorder(%v, %d): length %d, want %d", dragged, at, len(got), len(base))
			}

			gotIDs := ids(got)
			sortedGot := append([]string(nil), gotIDs...)
			sortedAll := append([]string(nil), allIDs...)
			sort.Strings(sortedGot)
			sort.Strings(sortedAll)
			if !reflect.DeepEqual(sortedGot, sortedAll) {
				t.Fatalf("Reorder(%v, %d): id multiset changed: %v", dragged, at, gotIDs)
			}

			dragSet := make(map[string]bool)
			for _, id := range dragged {
				dragSet[id] = true
			}
			var keptBefore, keptAfter []string
			for _, id := range allIDs {
				if !dragSet[id] {
					keptBefore = append(keptBefore, id)
				}
			}
			for _, id := range gotIDs {
				if !dragSet[id] {
					keptAfter = append(keptAfter, id)
				}
			}
			if !reflect.DeepEqual(keptBefore, keptAfter) {
				t.Fatalf("Reorder(%v, %d): non-dragged order changed: %v -> %v",
					dragged, at, keptBefore, keptAfter)
			}
		}
	}
}

func TestArrangeBy(t *testing.T) {
	e := NewEditor(hl("a"), br("b1", ""), hl("b"), hl("c"), br("b2", ""))

	// Breaks hold their positions; highlights fill around them in the
	// requested order.
	got := e.ArrangeBy([]string{"c", "a", "b"})
	want := []string{"c", "b1", "a", "b", "b2"}
	if !reflect.DeepEqual(ids(got), want) {
		t.Errorf("order = %v, want %v", ids(got), want)
	}
}

func TestArrangeByPartialAndUnknown(t *testing.T) {
	e := NewEditor(hl("a"), hl("b"), hl("c"))

	// Unknown ids are ignored; unmentioned highlights keep their prior
	// relative order after the ranked ones.
	got := e.ArrangeBy([]string{"ghost", "c"})
	want := []string{"c", "a", "b"}
	if !reflect.DeepEqual(ids(got), want) {
		t.Errorf("order = %v, want %v", ids(got), want)
	}
}

func TestFlattenCollapsesRuns(t *testing.T) {
	in := []Entry{
		hl("a"),
		br("b1", ""), br("b2", "Intro"), br("b3", "Late"),
		hl("b"),
		br("b4", "Solo"),
		hl("c"),
	}
	got := Flatten(in)

	want := []string{"a", "b1", "b", "b4", "c"}
	if !reflect.DeepEqual(ids(got), want) {
		t.Fatalf("order = %v, want %v", ids(got), want)
	}
	// The kept run marker adopted the first non-empty title.
	if got[1].Title != "Intro" {
		t.Errorf("run title = %q, want Intro", got[1].Title)
	}
	if got[3].Title != "Solo" {
		t.Errorf("solo break title = %q, want Solo", got[3].Title)
	}
}

func TestFlattenKeepsExistingTitle(t *testing.T) {
	in := []Entry{br("b1", "Keep"), br("b2", "Drop")}
	got := Flatten(in)
	if len(got) != 1 || got[0].ID != "b1" || got[0].Title != "Keep" {
		t.Errorf("Flatten = %v", got)
	}
}

func TestFlattenRunsSeparatedByHighlightStay(t *testing.T) {
	in := []Entry{br("b1", ""), hl("a"), br("b2", "")}
	got := Flatten(in)
	if len(got) != 3 {
		t.Fatalf("Flatten merged across a highlight: %v", got)
	}
}

func TestFlattenIdempotent(t *testing.T) {
	in := []Entry{
		br("b1", ""), br("b2", "Intro"),
		hl("a"), hl("b"),
		br("b3", ""), br("b4", ""), br("b5", "Outro"),
	}
	once := Flatten(in)
	twice := Flatten(once)
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("Flatten not idempotent: %v vs %v", once, twice)
	}

	// Highlights are never dropped.
	count := 0
	for _, en := range once {
		if en.Kind == KindHighlight {
			count++
		}
	}
	if count != 2 {
		t.Errorf("highlight count = %d, want 2", count)
	}
}

func TestFlattenEmptyAndSingle(t *testing.T) {
	if got := Flatten(nil); len(got) != 0 {
		t.Errorf("Flatten(nil) = %v", got)
	}
	if got := Flatten([]Entry{br("b1", "")}); len(got) != 1 {
		t.Errorf("Flatten single break = %v", got)
	}
}

func TestNewBreakMintsIDs(t *testing.T) {
	a, b := NewBreak(""), NewBreak("x")
	if a.ID == "" || b.ID == "" || a.ID == b.ID {
		t.Errorf("NewBreak ids: %q, %q", a.ID, b.ID)
	}
	if a.Kind != KindBreak {
		t.Errorf("Kind = %v, want break", a.Kind)
	}
}
