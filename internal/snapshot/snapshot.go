// Package snapshot builds immutable view models from an editing
// session.
//
// A DataSnapshot captures everything the UI renders: the highlight set
// in both domains, the display order with clips attached, and summary
// stats. Snapshots are rebuilt after each committed edit and swapped
// atomically into the UI model.
package snapshot

import (
	"time"

	"github.com/paperedit/paperedit/internal/engine"
	"github.com/paperedit/paperedit/internal/highlight"
	"github.com/paperedit/paperedit/internal/sequence"
)

// Row is one line of the sequence view: an entry plus, for highlights,
// its timestamp-domain clip.
type Row struct {
	Entry sequence.Entry
	Clip  engine.Clip // zero value for breaks
}

// DataSnapshot is an immutable, self-contained view of the session
// state.
type DataSnapshot struct {
	Title      string
	Highlights []highlight.Interval // token domain, creation order
	Clips      []engine.Clip        // timestamp domain, creation order
	Rows       []Row                // display order

	// Counts.
	TokenCount     int
	HighlightCount int
	BreakCount     int

	// Seconds of source footage, and of it, seconds highlighted.
	Duration float64
	Selected float64

	// Timestamp of snapshot creation.
	BuiltAt time.Time
}

// Build assembles a complete snapshot from the engine.
func Build(title string, eng *engine.Engine) *DataSnapshot {
	clips := eng.Clips()
	byID := make(map[string]engine.Clip, len(clips))
	for _, c := range clips {
		byID[c.ID] = c
	}

	order := eng.Sequence()
	rows := make([]Row, 0, len(order))
	breaks := 0
	for _, en := range order {
		row := Row{Entry: en}
		if en.Kind == sequence.KindHighlight {
			row.Clip = byID[en.ID]
		} else {
			breaks++
		}
		rows = append(rows, row)
	}

	var selected float64
	for _, c := range clips {
		selected += c.End - c.Start
	}

	return &DataSnapshot{
		Title:          title,
		Highlights:     eng.Highlights(),
		Clips:          clips,
		Rows:           rows,
		TokenCount:     eng.Tokens().Len(),
		HighlightCount: len(clips),
		BreakCount:     breaks,
		Duration:       eng.Tokens().Duration(),
		Selected:       selected,
		BuiltAt:        time.Now(),
	}
}

// Clip returns the timestamp-domain clip for a highlight id.
func (s *DataSnapshot) Clip(id string) (engine.Clip, bool) {
	for _, c := range s.Clips {
		if c.ID == id {
			return c, true
		}
	}
	return engine.Clip{}, false
}

// ClipStart returns the start time of a highlight's clip, in seconds.
func (s *DataSnapshot) ClipStart(iv highlight.Interval) float64 {
	c, _ := s.Clip(iv.ID)
	return c.Start
}

// ClipEnd returns the end time of a highlight's clip, in seconds.
func (s *DataSnapshot) ClipEnd(iv highlight.Interval) float64 {
	c, _ := s.Clip(iv.ID)
	return c.End
}

// ColorAt returns the color of the highlight covering the token
// position idx, or "" when the token is bare.
func (s *DataSnapshot) ColorAt(idx int) string {
	if iv, ok := s.HighlightAt(idx); ok {
		return iv.Color
	}
	return ""
}

// HighlightAt returns the first highlight, in creation order, covering
// the token position idx.
func (s *DataSnapshot) HighlightAt(idx int) (highlight.Interval, bool) {
	for _, iv := range s.Highlights {
		if iv.Contains(idx) {
			return iv, true
		}
	}
	return highlight.Interval{}, false
}
