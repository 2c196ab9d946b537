// Package transcript holds the immutable token stream of a loaded
// transcript and maps between timestamps and token positions.
//
// Tokens are word-level entries with start/end times in seconds, ordered
// by time. Everything downstream (highlights, the display sequence)
// refers to token positions rather than raw timestamps, so edits survive
// re-transcription runs that nudge timings slightly.
package transcript

import (
	"math"
	"strings"
)

// Token is one word (or word-like unit) of a transcript.
type Token struct {
	Text  string
	Start float64 // seconds
	End   float64 // seconds
}

// Index is a position-ordered view of a token stream. It is built once
// per session and never mutated.
type Index struct {
	tokens []Token
}

// NewIndex copies tokens into an Index. The slice order is the position
// order; callers pass tokens sorted by start time.
func NewIndex(tokens []Token) *Index {
	out := make([]Token, len(tokens))
	copy(out, tokens)
	return &Index{tokens: out}
}

// Len returns the token count.
func (ix *Index) Len() int { return len(ix.tokens) }

// Token returns the token at position i.
func (ix *Index) Token(i int) Token { return ix.tokens[i] }

// Tokens returns a copy of the token stream.
func (ix *Index) Tokens() []Token {
	out := make([]Token, len(ix.tokens))
	copy(out, ix.tokens)
	return out
}

// Locate maps a timestamp in seconds to a token position.
//
// A token whose span contains sec wins, first match in order. Otherwise
// the token whose start time is closest to sec is chosen, ties going to
// the earlier position. An empty index returns 0; callers that need a
// real position check Len first.
func (ix *Index) Locate(sec float64) int {
	best := 0
	bestDist := math.Inf(1)
	for i, tok := range ix.tokens {
		if tok.Start <= sec && sec <= tok.End {
			return i
		}
		if d := math.Abs(tok.Start - sec); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// Clamp bounds i to a valid token position.
func (ix *Index) Clamp(i int) int {
	if len(ix.tokens) == 0 || i < 0 {
		return 0
	}
	if i >= len(ix.tokens) {
		return len(ix.tokens) - 1
	}
	return i
}

// Span returns the start time of the first token and the end time of
// the last token in the closed position range [start, end].
func (ix *Index) Span(start, end int) (float64, float64) {
	if len(ix.tokens) == 0 {
		return 0, 0
	}
	start, end = ix.Clamp(start), ix.Clamp(end)
	return ix.tokens[start].Start, ix.tokens[end].End
}

// Text joins the token text of the closed position range [start, end]
// with single spaces.
func (ix *Index) Text(start, end int) string {
	if len(ix.tokens) == 0 {
		return ""
	}
	start, end = ix.Clamp(start), ix.Clamp(end)
	parts := make([]string, 0, end-start+1)
	for i := start; i <= end; i++ {
		parts = append(parts, ix.tokens[i].Text)
	}
	return strings.Join(parts, " ")
}

// Duration returns the end time of the last token, in seconds.
func (ix *Index) Duration() float64 {
	if len(ix.tokens) == 0 {
		return 0
	}
	return ix.tokens[len(ix.tokens)-1].End
}
