package highlight

import "fmt"

// Edge is a bitmask of the highlight ends a drag holds. A valid resize
// holds exactly one; zero (neither) and EdgeStart|EdgeEnd (both) are
// rejected with ErrInvalidEdge.
type Edge int

const (
	EdgeStart Edge = 1 << iota
	EdgeEnd
)

func (e Edge) String() string {
	switch e {
	case EdgeStart:
		return "start"
	case EdgeEnd:
		return "end"
	case EdgeStart | EdgeEnd:
		return "both"
	}
	return "none"
}

// ResizeMode classifies what a drag position does to the held range.
type ResizeMode int

const (
	// ResizeNone means the cursor sits on the dragged edge's original
	// position; committing is a no-op.
	ResizeNone ResizeMode = iota
	// ResizeExpand means the cursor moved away from the range body.
	ResizeExpand
	// ResizeContract means the cursor moved into the range body.
	ResizeContract
)

func (m ResizeMode) String() string {
	switch m {
	case ResizeExpand:
		return "expand"
	case ResizeContract:
		return "contract"
	}
	return "none"
}

// ResizeResult is the range a drag position produces, before any store
// validation.
type ResizeResult struct {
	Start int
	End   int
	Mode  ResizeMode
}

// Resize computes the range produced by dragging one edge of iv to the
// token position cursor. The opposite edge stays anchored and the
// dragged edge cannot cross it, so the range can collapse onto the
// anchor token but never invert.
//
// Resize is pure and never consults a store; committing the result goes
// through Store.Update, which re-checks overlap on its own.
func Resize(iv Interval, edge Edge, cursor int) (ResizeResult, error) {
	switch edge {
	case EdgeStart:
		start := cursor
		if start > iv.End {
			start = iv.End
		}
		res := ResizeResult{Start: start, End: iv.End}
		switch {
		case start < iv.Start:
			res.Mode = ResizeExpand
		case start > iv.Start:
			res.Mode = ResizeContract
		}
		return res, nil

	case EdgeEnd:
		end := cursor
		if end < iv.Start {
			end = iv.Start
		}
		res := ResizeResult{Start: iv.Start, End: end}
		switch {
		case end > iv.End:
			res.Mode = ResizeExpand
		case end < iv.End:
			res.Mode = ResizeContract
		}
		return res, nil
	}

	return ResizeResult{}, fmt.Errorf("resize holding %s: %w", edge, ErrInvalidEdge)
}
