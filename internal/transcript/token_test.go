package transcript

import "testing"

// fourTokens is the transcript used across the lookup tests: four words
// with small gaps between them.
func fourTokens() []Token {
	return []Token{
		{Text: "well", Start: 0, End: 0.5},
		{Text: "the", Start: 0.6, End: 1.0},
		{Text: "thing", Start: 1.1, End: 1.4},
		{Text: "is", Start: 1.5, End: 1.7},
	}
}

func TestLocateContainment(t *testing.T) {
	ix := NewIndex(fourTokens())

	tests := []struct {
		sec  float64
		want int
	}{
		{0.25, 0}, // inside token 0
		{0.8, 1},  // inside token 1
		{0.55, 1}, // in the gap, token 1 starts nearer
		{1.6, 3},  // inside token 3
		{0, 0},    // exactly on a start boundary
		{1.7, 3},  // exactly on the last end boundary
		{-5, 0},   // before the transcript
		{99, 3},   // after the transcript
		{1.05, 2}, // gap between tokens 1 and 2, token 2's start is nearer
	}
	for _, tt := range tests {
		if got := ix.Locate(tt.sec); got != tt.want {
			t.Errorf("Locate(%v) = %d, want %d", tt.sec, got, tt.want)
		}
	}
}

func TestLocateTieGoesToLowerIndex(t *testing.T) {
	// 0.55 is equidistant from Start=0.5 and Start=0.6; the earlier
	// token wins.
	ix := NewIndex([]Token{
		{Text: "a", Start: 0.5, End: 0.5},
		{Text: "b", Start: 0.6, End: 0.6},
	})
	if got := ix.Locate(0.55); got != 0 {
		t.Errorf("Locate(0.55) = %d, want 0 (tie breaks low)", got)
	}
}

func TestLocateEmptyIndex(t *testing.T) {
	ix := NewIndex(nil)
	if got := ix.Locate(3.2); got != 0 {
		t.Errorf("Locate on empty index = %d, want 0", got)
	}
	if ix.Len() != 0 {
		t.Errorf("Len on empty index = %d, want 0", ix.Len())
	}
}

func TestClamp(t *testing.T) {
	ix := NewIndex(fourTokens())
	tests := []struct {
		in, want int
	}{
		{-1, 0},
		{0, 0},
		{2, 2},
		{3, 3},
		{4, 3},
		{99, 3},
	}
	for _, tt := range tests {
		if got := ix.Clamp(tt.in); got != tt.want {
			t.Errorf("Clamp(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}

	empty := NewIndex(nil)
	if got := empty.Clamp(5); got != 0 {
		t.Errorf("Clamp on empty index = %d, want 0", got)
	}
}

func TestSpan(t *testing.T) {
	ix := NewIndex(fourTokens())

	start, end := ix.Span(1, 2)
	if start != 0.6 || end != 1.4 {
		t.Errorf("Span(1,2) = (%v,%v), want (0.6,1.4)", start, end)
	}

	// Single-token span.
	start, end = ix.Span(0, 0)
	if start != 0 || end != 0.5 {
		t.Errorf("Span(0,0) = (%v,%v), want (0,0.5)", start, end)
	}

	// Out-of-range bounds clamp.
	start, end = ix.Span(-3, 99)
	if start != 0 || end != 1.7 {
		t.Errorf("Span(-3,99) = (%v,%v), want (0,1.7)", start, end)
	}

	empty := NewIndex(nil)
	if s, e := empty.Span(0, 0); s != 0 || e != 0 {
		t.Errorf("Span on empty index = (%v,%v), want (0,0)", s, e)
	}
}

func TestText(t *testing.T) {
	ix := NewIndex(fourTokens())
	if got := ix.Text(1, 3); got != "the thing is" {
		t.Errorf("Text(1,3) = %q, want %q", got, "the thing is")
	}
	if got := ix.Text(2, 2); got != "thing" {
		t.Errorf("Text(2,2) = %q, want %q", got, "thing")
	}
	if got := NewIndex(nil).Text(0, 5); got != "" {
		t.Errorf("Text on empty index = %q, want empty", got)
	}
}

func TestDuration(t *testing.T) {
	if got := NewIndex(fourTokens()).Duration(); got != 1.7 {
		t.Errorf("Duration = %v, want 1.7", got)
	}
	if got := NewIndex(nil).Duration(); got != 0 {
		t.Errorf("Duration on empty index = %v, want 0", got)
	}
}

func TestIndexCopiesInput(t *testing.T) {
	tokens := fourTokens()
	ix := NewIndex(tokens)
	tokens[0].Text = "mutated"
	if ix.Token(0).Text != "well" {
		t.Error("Index shares backing storage with the caller's slice")
	}
}
