package engine

import (
	"fmt"

	"github.com/paperedit/paperedit/internal/highlight"
	"github.com/paperedit/paperedit/internal/sequence"
)

// ReorderDrag is one sequence drag from grab to drop. The engine hands
// one out at drag start; Drop or Cancel consumes it, after which every
// call answers ErrDragDone. Gesture state lives here, never in the
// engine, so an abandoned drag leaves nothing behind.
type ReorderDrag struct {
	eng  *Engine
	ids  []string
	done bool
}

// StartReorder opens a drag on the entry grabID. Grabbing an entry that
// is part of selection moves the whole selection, in sequence order;
// grabbing an unselected entry collapses the drag to just that entry.
func (e *Engine) StartReorder(grabID string, selection []string) (*ReorderDrag, error) {
	if e.seq.IndexOf(grabID) < 0 {
		return nil, fmt.Errorf("grab %s: %w", grabID, sequence.ErrEmptyDrag)
	}
	sel := make(map[string]bool, len(selection))
	for _, id := range selection {
		sel[id] = true
	}
	var ids []string
	if sel[grabID] {
		for _, en := range e.seq.Entries() {
			if sel[en.ID] {
				ids = append(ids, en.ID)
			}
		}
	} else {
		ids = []string{grabID}
	}
	return &ReorderDrag{eng: e, ids: ids}, nil
}

// IDs returns the dragged entry ids in sequence order.
func (d *ReorderDrag) IDs() []string {
	out := make([]string, len(d.ids))
	copy(out, d.ids)
	return out
}

// Preview returns the order a drop at insertBefore would produce,
// committing nothing. insertBefore counts positions in the sequence
// with the dragged entries removed, the same as Drop.
func (d *ReorderDrag) Preview(insertBefore int) ([]sequence.Entry, error) {
	if d.done {
		return nil, ErrDragDone
	}
	return d.eng.seq.Reorder(d.ids, insertBefore)
}

// Drop commits the drag at insertBefore, then folds adjacent break
// runs. A drop landing while a previous drop is still applying is
// rejected with ErrDropInFlight and the gesture stays open; any other
// failure consumes the gesture with the sequence untouched.
func (d *ReorderDrag) Drop(insertBefore int) ([]sequence.Entry, error) {
	if d.done {
		return nil, ErrDragDone
	}
	if d.eng.dropping {
		return nil, ErrDropInFlight
	}
	d.eng.dropping = true
	defer func() { d.eng.dropping = false }()

	next, err := d.eng.seq.Reorder(d.ids, insertBefore)
	if err != nil {
		d.done = true
		return nil, err
	}
	d.eng.commitSequence(next)
	d.done = true
	return d.eng.Sequence(), nil
}

// Cancel abandons the drag; the sequence is untouched.
func (d *ReorderDrag) Cancel() { d.done = true }

// ResizeDrag is one edge drag on a highlight from grab to drop.
type ResizeDrag struct {
	eng  *Engine
	id   string
	edge highlight.Edge
	orig highlight.Interval
	done bool
}

// StartResize opens an edge drag on the highlight id. The drag must
// hold exactly one edge.
func (e *Engine) StartResize(id string, edge highlight.Edge) (*ResizeDrag, error) {
	iv, ok := e.store.Get(id)
	if !ok {
		return nil, fmt.Errorf("resize %s: %w", id, highlight.ErrNotFound)
	}
	if edge != highlight.EdgeStart && edge != highlight.EdgeEnd {
		return nil, fmt.Errorf("resize %s holding %s: %w", id, edge, highlight.ErrInvalidEdge)
	}
	return &ResizeDrag{eng: e, id: id, edge: edge, orig: iv}, nil
}

// Interval returns the highlight as it was at drag start.
func (d *ResizeDrag) Interval() highlight.Interval { return d.orig }

// Edge returns the dragged edge.
func (d *ResizeDrag) Edge() highlight.Edge { return d.edge }

// Over computes the range the drag would produce at cursor, for live
// preview. Nothing is committed and nothing is validated against the
// store.
func (d *ResizeDrag) Over(cursor int) (highlight.ResizeResult, error) {
	if d.done {
		return highlight.ResizeResult{}, ErrDragDone
	}
	return highlight.Resize(d.orig, d.edge, cursor)
}

// Drop commits the drag at cursor and consumes the gesture. A drop on
// the edge's original position is a clean no-op returning the original
// range. A commit that would overlap a neighboring highlight fails with
// ErrOverlap and the highlight keeps its original range.
func (d *ResizeDrag) Drop(cursor int) (highlight.Interval, error) {
	if d.done {
		return highlight.Interval{}, ErrDragDone
	}
	if d.eng.dropping {
		return highlight.Interval{}, ErrDropInFlight
	}
	d.eng.dropping = true
	defer func() { d.eng.dropping = false }()
	d.done = true

	res, err := highlight.Resize(d.orig, d.edge, cursor)
	if err != nil {
		return highlight.Interval{}, err
	}
	if res.Mode == highlight.ResizeNone {
		return d.orig, nil
	}
	return d.eng.MoveHighlight(d.id, res.Start, res.End)
}

// Cancel abandons the drag; the highlight keeps its original range.
func (d *ResizeDrag) Cancel() { d.done = true }
