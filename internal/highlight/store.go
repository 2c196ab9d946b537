// Package highlight implements the highlight layer of a paper edit:
// closed, non-overlapping token ranges with stable colors, plus the
// pure resize arithmetic for edge drags.
package highlight

import (
	"fmt"

	"github.com/google/uuid"
)

// Interval is a highlighted token range, inclusive on both ends.
// Start and End are token positions, End >= Start; a single-token
// highlight has Start == End.
type Interval struct {
	ID    string
	Start int
	End   int
	Color string // hex, e.g. "#a6e3a1"
	Label string // display text, usually the joined token text
}

// Contains reports whether the token position idx falls inside the
// range.
func (iv Interval) Contains(idx int) bool {
	return iv.Start <= idx && idx <= iv.End
}

// Width returns the number of tokens the range covers.
func (iv Interval) Width() int {
	return iv.End - iv.Start + 1
}

// overlaps reports whether two closed ranges intersect. Sharing one
// boundary token counts: [2,4] and [4,6] overlap.
func overlaps(aStart, aEnd, bStart, bEnd int) bool {
	return aStart <= bEnd && aEnd >= bStart
}

// CreateOption adjusts a single Create call.
type CreateOption func(*createConfig)

type createConfig struct {
	id         string
	color      string
	label      string
	allowPoint bool
}

// WithID creates the highlight under a persisted id instead of minting
// a fresh one.
func WithID(id string) CreateOption {
	return func(c *createConfig) { c.id = id }
}

// WithColor assigns an explicit color instead of allocating one from
// the store's palette.
func WithColor(hex string) CreateOption {
	return func(c *createConfig) { c.color = hex }
}

// WithLabel attaches display text to the new highlight.
func WithLabel(text string) CreateOption {
	return func(c *createConfig) { c.label = text }
}

// AllowPoint permits a range with start == end, which Create otherwise
// rejects with ErrPointRange.
func AllowPoint() CreateOption {
	return func(c *createConfig) { c.allowPoint = true }
}

// Store holds the highlight set for one session, in creation order.
// Not safe for concurrent use; the owner serializes access.
type Store struct {
	intervals []Interval
	palette   *Palette
	used      map[string]bool // colors currently assigned
}

// NewStore returns an empty store drawing colors from palette. A nil
// palette means the default palette.
func NewStore(palette *Palette) *Store {
	if palette == nil {
		palette = NewPalette()
	}
	return &Store{
		palette: palette,
		used:    make(map[string]bool),
	}
}

// Create adds a highlight over the closed token range [start, end].
// Reversed bounds are normalized. The range must not intersect any
// existing highlight; a color is allocated unless WithColor supplies
// one.
func (s *Store) Create(start, end int, opts ...CreateOption) (Interval, error) {
	var cfg createConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if start > end {
		start, end = end, start
	}
	if start == end && !cfg.allowPoint {
		return Interval{}, fmt.Errorf("create [%d,%d]: %w", start, end, ErrPointRange)
	}
	if hit, ok := s.conflict(start, end, ""); ok {
		return Interval{}, fmt.Errorf("create [%d,%d] against [%d,%d]: %w", start, end, hit.Start, hit.End, ErrOverlap)
	}

	iv := Interval{
		ID:    cfg.id,
		Start: start,
		End:   end,
		Color: cfg.color,
		Label: cfg.label,
	}
	if iv.ID == "" {
		iv.ID = uuid.NewString()
	}
	if iv.Color == "" {
		iv.Color = s.palette.Allocate(s.used)
	}
	s.used[iv.Color] = true
	s.intervals = append(s.intervals, iv)
	return iv, nil
}

// Update moves the highlight id to the closed range [start, end],
// normalizing reversed bounds. The highlight's own current range is
// excluded from the overlap check, so it can shrink, grow, or slide
// across its old span in one call. A single-token result is allowed
// here; that is how an edge drag clamped at its anchor lands.
func (s *Store) Update(id string, start, end int) (Interval, error) {
	i := s.find(id)
	if i < 0 {
		return Interval{}, fmt.Errorf("update %s: %w", id, ErrNotFound)
	}
	if start > end {
		start, end = end, start
	}
	if hit, ok := s.conflict(start, end, id); ok {
		return Interval{}, fmt.Errorf("update [%d,%d] against [%d,%d]: %w", start, end, hit.Start, hit.End, ErrOverlap)
	}
	s.intervals[i].Start = start
	s.intervals[i].End = end
	return s.intervals[i], nil
}

// SetLabel replaces the display text of a highlight. Unknown ids are a
// no-op.
func (s *Store) SetLabel(id, label string) {
	if i := s.find(id); i >= 0 {
		s.intervals[i].Label = label
	}
}

// Delete removes the highlight id and returns its color to
// circulation. Unknown ids are a no-op, so deleting twice is safe.
func (s *Store) Delete(id string) {
	i := s.find(id)
	if i < 0 {
		return
	}
	s.palette.Release(s.used, s.intervals[i].Color)
	s.intervals = append(s.intervals[:i], s.intervals[i+1:]...)
}

// Get returns the highlight with the given id.
func (s *Store) Get(id string) (Interval, bool) {
	if i := s.find(id); i >= 0 {
		return s.intervals[i], true
	}
	return Interval{}, false
}

// FindContaining returns the first highlight, in creation order, whose
// range contains the token position idx. Creation order is the
// contract, not an accident: callers resolving a click depend on it.
func (s *Store) FindContaining(idx int) (Interval, bool) {
	for _, iv := range s.intervals {
		if iv.Contains(idx) {
			return iv, true
		}
	}
	return Interval{}, false
}

// All returns the highlights in creation order.
func (s *Store) All() []Interval {
	out := make([]Interval, len(s.intervals))
	copy(out, s.intervals)
	return out
}

// Len returns the number of highlights.
func (s *Store) Len() int { return len(s.intervals) }

// conflict returns the first stored highlight intersecting
// [start, end], skipping skipID.
func (s *Store) conflict(start, end int, skipID string) (Interval, bool) {
	for _, iv := range s.intervals {
		if iv.ID == skipID {
			continue
		}
		if overlaps(start, end, iv.Start, iv.End) {
			return iv, true
		}
	}
	return Interval{}, false
}

func (s *Store) find(id string) int {
	for i, iv := range s.intervals {
		if iv.ID == id {
			return i
		}
	}
	return -1
}
