// Package sequence maintains the display order of a paper edit:
// highlight references and section breaks, arranged independently of
// transcript position.
package sequence

import (
	"errors"
	"sort"

	"github.com/google/uuid"
)

// ErrEmptyDrag reports a reorder whose dragged ids match nothing in the
// sequence.
var ErrEmptyDrag = errors.New("drag matches no sequence entries")

// Kind tags a sequence entry. The kind is fixed when the entry is made
// and never re-derived from its payload.
type Kind int

const (
	KindHighlight Kind = iota
	KindBreak
)

func (k Kind) String() string {
	if k == KindBreak {
		return "break"
	}
	return "highlight"
}

// Entry is one element of the display order: a reference to a stored
// highlight, or a section break.
type Entry struct {
	Kind  Kind
	ID    string
	Title string // break caption; empty for highlights and untitled breaks
}

// HighlightRef returns an entry referencing a stored highlight.
func HighlightRef(id string) Entry {
	return Entry{Kind: KindHighlight, ID: id}
}

// NewBreak returns a break entry under a fresh id.
func NewBreak(title string) Entry {
	return Entry{Kind: KindBreak, ID: uuid.NewString(), Title: title}
}

// Break returns a break entry under an existing id.
func Break(id, title string) Entry {
	return Entry{Kind: KindBreak, ID: id, Title: title}
}

// Editor holds an ordered entry list and rearranges it. Not safe for
// concurrent use; the owner serializes access.
type Editor struct {
	entries []Entry
}

// NewEditor returns an editor over the given starting order.
func NewEditor(entries ...Entry) *Editor {
	e := &Editor{}
	e.entries = append(e.entries, entries...)
	return e
}

// Entries returns a copy of the current order.
func (e *Editor) Entries() []Entry {
	out := make([]Entry, len(e.entries))
	copy(out, e.entries)
	return out
}

// SetEntries replaces the current order.
func (e *Editor) SetEntries(entries []Entry) {
	e.entries = append(e.entries[:0:0], entries...)
}

// Len returns the entry count.
func (e *Editor) Len() int { return len(e.entries) }

// IndexOf returns the position of the entry with the given id, or -1.
func (e *Editor) IndexOf(id string) int {
	for i, en := range e.entries {
		if en.ID == id {
			return i
		}
	}
	return -1
}

// Get returns the entry with the given id.
func (e *Editor) Get(id string) (Entry, bool) {
	if i := e.IndexOf(id); i >= 0 {
		return e.entries[i], true
	}
	return Entry{}, false
}

// Append adds an entry at the end.
func (e *Editor) Append(en Entry) {
	e.entries = append(e.entries, en)
}

// InsertAt places an entry before position i, clamped to the list.
func (e *Editor) InsertAt(i int, en Entry) {
	if i < 0 {
		i = 0
	}
	if i > len(e.entries) {
		i = len(e.entries)
	}
	e.entries = append(e.entries, Entry{})
	copy(e.entries[i+1:], e.entries[i:])
	e.entries[i] = en
}

// Remove deletes the entry with the given id and reports whether it was
// present.
func (e *Editor) Remove(id string) bool {
	i := e.IndexOf(id)
	if i < 0 {
		return false
	}
	e.entries = append(e.entries[:i], e.entries[i+1:]...)
	return true
}

// SetTitle replaces the caption of the break entry id. It reports false
// for unknown ids and for highlight entries, which carry no caption.
func (e *Editor) SetTitle(id, title string) bool {
	i := e.IndexOf(id)
	if i < 0 || e.entries[i].Kind != KindBreak {
		return false
	}
	e.entries[i].Title = title
	return true
}

// Reorder computes the order after dropping the dragged entries as one
// block. insertBefore is a position in the list with the dragged
// entries already removed; it is clamped to that list's length, so any
// large value means "move to the end". The dragged entries keep their
// relative order and so does everything else.
//
// The returned slice is a fresh permutation of the current entries; the
// editor itself is not changed. Dragged ids that match nothing are
// skipped, and when none match at all Reorder reports ErrEmptyDrag.
func (e *Editor) Reorder(draggedIDs []string, insertBefore int) ([]Entry, error) {
	drag := make(map[string]bool, len(draggedIDs))
	for _, id := range draggedIDs {
		drag[id] = true
	}

	var dragged, remaining []Entry
	for _, en := range e.entries {
		if drag[en.ID] {
			dragged = append(dragged, en)
		} else {
			remaining = append(remaining, en)
		}
	}
	if len(dragged) == 0 {
		return nil, ErrEmptyDrag
	}

	at := insertBefore
	if at > len(remaining) {
		at = len(remaining)
	}
	if at < 0 {
		at = 0
	}

	out := make([]Entry, 0, len(e.entries))
	out = append(out, remaining[:at]...)
	out = append(out, dragged...)
	out = append(out, remaining[at:]...)
	return out, nil
}

// ArrangeBy computes an order with the highlight entries rearranged to
// follow ids while break entries keep their positions. Unknown ids are
// ignored; highlights missing from ids follow the ranked ones in their
// current relative order. The editor itself is not changed.
func (e *Editor) ArrangeBy(ids []string) []Entry {
	rank := make(map[string]int, len(ids))
	for i, id := range ids {
		if _, ok := rank[id]; !ok {
			rank[id] = i
		}
	}

	var ranked, rest []Entry
	for _, en := range e.entries {
		if en.Kind != KindHighlight {
			continue
		}
		if _, ok := rank[en.ID]; ok {
			ranked = append(ranked, en)
		} else {
			rest = append(rest, en)
		}
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		return rank[ranked[a].ID] < rank[ranked[b].ID]
	})
	queue := append(ranked, rest...)

	out := make([]Entry, 0, len(e.entries))
	next := 0
	for _, en := range e.entries {
		if en.Kind != KindHighlight {
			out = append(out, en)
			continue
		}
		out = append(out, queue[next])
		next++
	}
	return out
}

// Flatten collapses each run of two or more adjacent breaks into one,
// so at most a single break separates any two highlights. The run keeps
// its first break; when that break has no title it adopts the first
// non-empty title later in the run. Highlight entries are never
// touched, and flattening an already-flat order changes nothing.
func Flatten(entries []Entry) []Entry {
	out := make([]Entry, 0, len(entries))
	for i := 0; i < len(entries); {
		en := entries[i]
		if en.Kind != KindBreak {
			out = append(out, en)
			i++
			continue
		}
		keep := en
		j := i + 1
		for j < len(entries) && entries[j].Kind == KindBreak {
			if keep.Title == "" && entries[j].Title != "" {
				keep.Title = entries[j].Title
			}
			j++
		}
		out = append(out, keep)
		i = j
	}
	return out
}
