// Package engine ties the transcript index, the highlight store, and
// the display sequence into one editing session.
//
// An Engine is single-owner state: the host (the TUI event loop here)
// serializes every call. Mutations are synchronous and atomic, and the
// engine touches no files and no clocks. After each committed mutation
// the host reads the projections back out and persists the export.
package engine

import (
	"errors"
	"sort"

	"github.com/paperedit/paperedit/internal/highlight"
	"github.com/paperedit/paperedit/internal/sequence"
	"github.com/paperedit/paperedit/internal/transcript"
)

// Errors returned by the gesture lifecycle.
var (
	// ErrDropInFlight reports a drop arriving while another drop is
	// still being applied. The late drop is rejected, never queued.
	ErrDropInFlight = errors.New("another drop is still being applied")

	// ErrDragDone reports a call on a drag gesture that was already
	// dropped or canceled.
	ErrDragDone = errors.New("drag gesture already finished")
)

// Clip is the timestamp-domain projection of a highlight: the shape the
// session file and downstream cut tools consume.
type Clip struct {
	ID    string
	Start float64 // seconds
	End   float64 // seconds
	Color string
	Text  string
}

// SavedBreak is a persisted section break.
type SavedBreak struct {
	ID    string
	Title string
}

// SavedEntry is one element of a persisted display order. Exactly one
// field is set.
type SavedEntry struct {
	Clip  *Clip
	Break *SavedBreak
}

// Engine is one editing session over a fixed transcript.
type Engine struct {
	tokens *transcript.Index
	store  *highlight.Store
	seq    *sequence.Editor

	dropping bool // re-entrant drop guard
}

// Option adjusts a new Engine.
type Option func(*Engine)

// WithPalette draws highlight colors from p instead of the default
// palette.
func WithPalette(p *highlight.Palette) Option {
	return func(e *Engine) { e.store = highlight.NewStore(p) }
}

// New returns an empty session over the given tokens.
func New(tokens []transcript.Token, opts ...Option) *Engine {
	e := &Engine{
		tokens: transcript.NewIndex(tokens),
		store:  highlight.NewStore(nil),
		seq:    sequence.NewEditor(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Restore rebuilds a session from persisted entries. Clip times map
// back to token positions through Index.Locate, so ranges survive the
// small timestamp drift a re-transcription introduces. Persisted colors
// are kept and missing labels are re-derived from token text.
//
// Restore never fails wholesale: a clip with no id, or one whose mapped
// range collides with an earlier entry, is dropped and the rest of the
// session loads. Breaks without ids get fresh ones.
func Restore(tokens []transcript.Token, saved []SavedEntry, opts ...Option) *Engine {
	e := New(tokens, opts...)
	for _, en := range saved {
		switch {
		case en.Clip != nil:
			c := en.Clip
			if c.ID == "" {
				continue
			}
			start := e.tokens.Locate(c.Start)
			end := e.tokens.Locate(c.End)
			label := c.Text
			if label == "" {
				label = e.tokens.Text(start, end)
			}
			iv, err := e.store.Create(start, end,
				highlight.WithID(c.ID),
				highlight.WithColor(c.Color),
				highlight.WithLabel(label),
				highlight.AllowPoint(),
			)
			if err != nil {
				continue
			}
			e.seq.Append(sequence.HighlightRef(iv.ID))
		case en.Break != nil:
			if en.Break.ID == "" {
				e.seq.Append(sequence.NewBreak(en.Break.Title))
			} else {
				e.seq.Append(sequence.Break(en.Break.ID, en.Break.Title))
			}
		}
	}
	e.commitSequence(e.seq.Entries())
	return e
}

// Tokens returns the transcript index.
func (e *Engine) Tokens() *transcript.Index { return e.tokens }

// CreateHighlight adds a highlight over the closed token range
// [start, end] and appends it to the display sequence. The label is
// derived from the covered token text unless an option overrides it.
func (e *Engine) CreateHighlight(start, end int, opts ...highlight.CreateOption) (highlight.Interval, error) {
	if start > end {
		start, end = end, start
	}
	opts = append([]highlight.CreateOption{highlight.WithLabel(e.tokens.Text(start, end))}, opts...)
	iv, err := e.store.Create(start, end, opts...)
	if err != nil {
		return highlight.Interval{}, err
	}
	e.seq.Append(sequence.HighlightRef(iv.ID))
	return iv, nil
}

// MoveHighlight updates a highlight's bounds and refreshes its label
// from the new range.
func (e *Engine) MoveHighlight(id string, start, end int) (highlight.Interval, error) {
	iv, err := e.store.Update(id, start, end)
	if err != nil {
		return highlight.Interval{}, err
	}
	e.store.SetLabel(id, e.tokens.Text(iv.Start, iv.End))
	iv, _ = e.store.Get(id)
	return iv, nil
}

// DeleteHighlight removes a highlight and its sequence entry. Unknown
// ids are a no-op.
func (e *Engine) DeleteHighlight(id string) {
	e.store.Delete(id)
	e.seq.Remove(id)
}

// HighlightAt returns the first highlight, in creation order, covering
// the token position idx.
func (e *Engine) HighlightAt(idx int) (highlight.Interval, bool) {
	return e.store.FindContaining(idx)
}

// Highlight returns the highlight with the given id.
func (e *Engine) Highlight(id string) (highlight.Interval, bool) {
	return e.store.Get(id)
}

// Highlights returns the highlight set in creation order, token-position
// domain.
func (e *Engine) Highlights() []highlight.Interval {
	return e.store.All()
}

// InsertBreak places a new section break before the sequence position
// at and returns the resulting order. Break runs are folded right away,
// so inserting next to an existing break merges with it.
func (e *Engine) InsertBreak(at int, title string) []sequence.Entry {
	e.seq.InsertAt(at, sequence.NewBreak(title))
	e.commitSequence(e.seq.Entries())
	return e.Sequence()
}

// RemoveBreak deletes a break entry. Highlight entries are not
// removable this way; DeleteHighlight owns those.
func (e *Engine) RemoveBreak(id string) {
	if en, ok := e.seq.Get(id); ok && en.Kind == sequence.KindBreak {
		e.seq.Remove(id)
	}
}

// RetitleBreak sets the caption of a break entry and reports whether
// the id named one.
func (e *Engine) RetitleBreak(id, title string) bool {
	return e.seq.SetTitle(id, title)
}

// Sequence returns the current display order.
func (e *Engine) Sequence() []sequence.Entry {
	return e.seq.Entries()
}

// ApplyOrder rearranges the highlight entries into the given id order,
// leaving breaks where they stand. Typically fed with a cached
// suggested ordering produced elsewhere.
func (e *Engine) ApplyOrder(ids []string) []sequence.Entry {
	e.commitSequence(e.seq.ArrangeBy(ids))
	return e.Sequence()
}

// ArrangeByTimeline orders the highlight entries by their transcript
// position.
func (e *Engine) ArrangeByTimeline() []sequence.Entry {
	ivs := e.store.All()
	sort.Slice(ivs, func(a, b int) bool { return ivs[a].Start < ivs[b].Start })
	ids := make([]string, len(ivs))
	for i, iv := range ivs {
		ids[i] = iv.ID
	}
	return e.ApplyOrder(ids)
}

// Clips returns every highlight in creation order, mapped to
// timestamps.
func (e *Engine) Clips() []Clip {
	ivs := e.store.All()
	out := make([]Clip, len(ivs))
	for i, iv := range ivs {
		out[i] = e.clip(iv)
	}
	return out
}

// Export returns the display order in its persisted, timestamp-domain
// form. The sequence is already flat; every committing operation
// normalizes before returning.
func (e *Engine) Export() []SavedEntry {
	entries := e.seq.Entries()
	out := make([]SavedEntry, 0, len(entries))
	for _, en := range entries {
		switch en.Kind {
		case sequence.KindHighlight:
			iv, ok := e.store.Get(en.ID)
			if !ok {
				continue
			}
			c := e.clip(iv)
			out = append(out, SavedEntry{Clip: &c})
		case sequence.KindBreak:
			out = append(out, SavedEntry{Break: &SavedBreak{ID: en.ID, Title: en.Title}})
		}
	}
	return out
}

func (e *Engine) clip(iv highlight.Interval) Clip {
	start, end := e.tokens.Span(iv.Start, iv.End)
	return Clip{ID: iv.ID, Start: start, End: end, Color: iv.Color, Text: iv.Label}
}

func (e *Engine) commitSequence(entries []sequence.Entry) {
	e.seq.SetEntries(sequence.Flatten(entries))
}
