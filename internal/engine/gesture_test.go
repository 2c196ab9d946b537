package engine

import (
	"errors"
	"reflect"
	"testing"

	"github.com/paperedit/paperedit/internal/highlight"
	"github.com/paperedit/paperedit/internal/sequence"
)

// threeClips builds a session with three highlights in sequence order
// a, b, c.
func threeClips(t *testing.T) (*Engine, [3]string) {
	t.Helper()
	e := New(testTokens())
	a, err := e.CreateHighlight(0, 1)
	if err != nil {
		t.Fatalf("create a: %v", err)
	}
	b, err := e.CreateHighlight(3, 4)
	if err != nil {
		t.Fatalf("create b: %v", err)
	}
	c, err := e.CreateHighlight(6, 7)
	if err != nil {
		t.Fatalf("create c: %v", err)
	}
	return e, [3]string{a.ID, b.ID, c.ID}
}

func TestStartReorderCollapsesToGrabbedEntry(t *testing.T) {
	e, ids := threeClips(t)

	// Grabbing an entry outside the selection drags just that entry.
	d, err := e.StartReorder(ids[2], []string{ids[0], ids[1]})
	if err != nil {
		t.Fatalf("StartReorder: %v", err)
	}
	if got := d.IDs(); len(got) != 1 || got[0] != ids[2] {
		t.Errorf("drag ids = %v, want just %s", got, ids[2])
	}
}

func TestStartReorderDragsSelectionInSequenceOrder(t *testing.T) {
	e, ids := threeClips(t)

	// Selection given backwards; the drag set follows sequence order.
	d, err := e.StartReorder(ids[0], []string{ids[2], ids[0]})
	if err != nil {
		t.Fatalf("StartReorder: %v", err)
	}
	if got := d.IDs(); !reflect.DeepEqual(got, []string{ids[0], ids[2]}) {
		t.Errorf("drag ids = %v, want sequence order [a c]", got)
	}
}

func TestStartReorderUnknownGrab(t *testing.T) {
	e, _ := threeClips(t)
	if _, err := e.StartReorder("ghost", nil); !errors.Is(err, sequence.ErrEmptyDrag) {
		t.Errorf("err = %v, want ErrEmptyDrag", err)
	}
}

func TestReorderDragPreviewAndDrop(t *testing.T) {
	e, ids := threeClips(t)

	d, err := e.StartReorder(ids[0], nil)
	if err != nil {
		t.Fatalf("StartReorder: %v", err)
	}

	// Preview commits nothing.
	prev, err := d.Preview(2)
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if !reflect.DeepEqual(seqIDs(prev), []string{ids[1], ids[2], ids[0]}) {
		t.Errorf("preview = %v", seqIDs(prev))
	}
	if !reflect.DeepEqual(seqIDs(e.Sequence()), []string{ids[0], ids[1], ids[2]}) {
		t.Error("Preview mutated the sequence")
	}

	got, err := d.Drop(2)
	if err != nil {
		t.Fatalf("Drop: %v", err)
	}
	if !reflect.DeepEqual(seqIDs(got), []string{ids[1], ids[2], ids[0]}) {
		t.Errorf("dropped order = %v", seqIDs(got))
	}
	if !reflect.DeepEqual(seqIDs(e.Sequence()), seqIDs(got)) {
		t.Error("Drop did not commit")
	}
}

func TestReorderDragConsumedAfterDrop(t *testing.T) {
	e, ids := threeClips(t)
	d, _ := e.StartReorder(ids[0], nil)

	if _, err := d.Drop(0); err != nil {
		t.Fatalf("Drop: %v", err)
	}
	if _, err := d.Drop(1); !errors.Is(err, ErrDragDone) {
		t.Errorf("second Drop err = %v, want ErrDragDone", err)
	}
	if _, err := d.Preview(1); !errors.Is(err, ErrDragDone) {
		t.Errorf("Preview after Drop err = %v, want ErrDragDone", err)
	}
}

func TestReorderDragCancel(t *testing.T) {
	e, ids := threeClips(t)
	d, _ := e.StartReorder(ids[0], nil)

	d.Cancel()
	if _, err := d.Drop(2); !errors.Is(err, ErrDragDone) {
		t.Errorf("Drop after Cancel err = %v, want ErrDragDone", err)
	}
	if !reflect.DeepEqual(seqIDs(e.Sequence()), []string{ids[0], ids[1], ids[2]}) {
		t.Error("canceled drag changed the sequence")
	}
}

func TestDropFlattensBreakRuns(t *testing.T) {
	e, ids := threeClips(t)
	e.InsertBreak(1, "One")
	e.InsertBreak(3, "Two")
	// Order now: a, break(One), b, break(Two), c.

	// Dragging b away leaves the two breaks adjacent; the committed
	// drop folds them.
	d, err := e.StartReorder(ids[1], nil)
	if err != nil {
		t.Fatalf("StartReorder: %v", err)
	}
	got, err := d.Drop(0)
	if err != nil {
		t.Fatalf("Drop: %v", err)
	}

	breaks := 0
	for _, en := range got {
		if en.Kind == sequence.KindBreak {
			breaks++
		}
	}
	if breaks != 1 {
		t.Errorf("breaks after drop = %d, want 1", breaks)
	}
	if got[0].ID != ids[1] {
		t.Errorf("dropped order starts with %s, want b", got[0].ID)
	}
}

func TestDropRejectedWhileAnotherDropApplies(t *testing.T) {
	e, ids := threeClips(t)
	d, _ := e.StartReorder(ids[0], nil)

	// Simulate a re-entrant drop arriving mid-apply.
	e.dropping = true
	if _, err := d.Drop(1); !errors.Is(err, ErrDropInFlight) {
		t.Errorf("err = %v, want ErrDropInFlight", err)
	}
	e.dropping = false

	// The rejected drop did not consume the gesture.
	if _, err := d.Drop(1); err != nil {
		t.Errorf("Drop after guard cleared: %v", err)
	}
}

func TestStartResizeValidation(t *testing.T) {
	e, ids := threeClips(t)

	if _, err := e.StartResize("ghost", highlight.EdgeEnd); !errors.Is(err, highlight.ErrNotFound) {
		t.Errorf("unknown id err = %v, want ErrNotFound", err)
	}
	if _, err := e.StartResize(ids[0], highlight.EdgeStart|highlight.EdgeEnd); !errors.Is(err, highlight.ErrInvalidEdge) {
		t.Errorf("both edges err = %v, want ErrInvalidEdge", err)
	}
	if _, err := e.StartResize(ids[0], 0); !errors.Is(err, highlight.ErrInvalidEdge) {
		t.Errorf("no edge err = %v, want ErrInvalidEdge", err)
	}
}

func TestResizeDragOverAndDrop(t *testing.T) {
	e, ids := threeClips(t)
	// b spans [3,4]; tokens 5 is free, 6 belongs to c.
	d, err := e.StartResize(ids[1], highlight.EdgeEnd)
	if err != nil {
		t.Fatalf("StartResize: %v", err)
	}

	res, err := d.Over(5)
	if err != nil {
		t.Fatalf("Over: %v", err)
	}
	if res.Start != 3 || res.End != 5 || res.Mode != highlight.ResizeExpand {
		t.Errorf("Over(5) = %+v, want expand to [3,5]", res)
	}
	// Over commits nothing.
	if iv, _ := e.Highlight(ids[1]); iv.End != 4 {
		t.Error("Over mutated the highlight")
	}

	iv, err := d.Drop(5)
	if err != nil {
		t.Fatalf("Drop: %v", err)
	}
	if iv.Start != 3 || iv.End != 5 {
		t.Errorf("dropped bounds = [%d,%d], want [3,5]", iv.Start, iv.End)
	}
	if iv.Label != "found is that" {
		t.Errorf("label = %q, want refreshed token text", iv.Label)
	}
}

func TestResizeDropOnEdgeIsNoOp(t *testing.T) {
	e, ids := threeClips(t)
	d, _ := e.StartResize(ids[1], highlight.EdgeEnd)

	iv, err := d.Drop(4) // cursor on the dragged edge's original spot
	if err != nil {
		t.Fatalf("Drop: %v", err)
	}
	if iv.Start != 3 || iv.End != 4 {
		t.Errorf("no-op drop = [%d,%d], want original [3,4]", iv.Start, iv.End)
	}
}

func TestResizeDropOverlapLeavesStateUntouched(t *testing.T) {
	e, ids := threeClips(t)
	// Dragging b's end onto c's range must fail at commit.
	d, _ := e.StartResize(ids[1], highlight.EdgeEnd)

	if _, err := d.Drop(6); !errors.Is(err, highlight.ErrOverlap) {
		t.Fatalf("err = %v, want ErrOverlap", err)
	}
	if iv, _ := e.Highlight(ids[1]); iv.Start != 3 || iv.End != 4 {
		t.Errorf("failed drop mutated bounds to [%d,%d]", iv.Start, iv.End)
	}

	// The gesture is consumed either way.
	if _, err := d.Drop(5); !errors.Is(err, ErrDragDone) {
		t.Errorf("Drop after failed Drop err = %v, want ErrDragDone", err)
	}
}

func TestResizeDragCancel(t *testing.T) {
	e, ids := threeClips(t)
	d, _ := e.StartResize(ids[1], highlight.EdgeStart)

	d.Cancel()
	if _, err := d.Over(2); !errors.Is(err, ErrDragDone) {
		t.Errorf("Over after Cancel err = %v, want ErrDragDone", err)
	}
	if iv, _ := e.Highlight(ids[1]); iv.Start != 3 || iv.End != 4 {
		t.Error("canceled resize changed the highlight")
	}
}
