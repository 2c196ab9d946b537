package highlight

import (
	"math/rand"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// DefaultColors is the ordered palette new highlights draw from before
// synthesis kicks in. Light pastels so black text stays readable on
// top of them.
var DefaultColors = []string{
	"#f38ba8", // red
	"#fab387", // peach
	"#f9e2af", // yellow
	"#a6e3a1", // green
	"#94e2d5", // teal
	"#89dceb", // sky
	"#89b4fa", // blue
	"#cba6f7", // mauve
	"#f5c2e7", // pink
	"#b4befe", // lavender
}

// Palette hands out highlight colors: the first unused entry of a fixed
// list, then random pastels once the list is exhausted.
type Palette struct {
	colors []string
}

// NewPalette returns a palette over the given colors, or DefaultColors
// when none are given.
func NewPalette(colors ...string) *Palette {
	if len(colors) == 0 {
		colors = DefaultColors
	}
	out := make([]string, len(colors))
	copy(out, colors)
	return &Palette{colors: out}
}

// Colors returns the palette entries in allocation order.
func (p *Palette) Colors() []string {
	out := make([]string, len(p.colors))
	copy(out, p.colors)
	return out
}

// Allocate returns the first palette color not present in used, or a
// synthesized pastel once every entry is taken. Synthesized colors are
// random and not deduplicated; the HSL window keeps them in the same
// readable-pastel family as the fixed list.
func (p *Palette) Allocate(used map[string]bool) string {
	for _, c := range p.colors {
		if !used[c] {
			return c
		}
	}
	h := rand.Float64() * 360
	s := 0.45 + rand.Float64()*0.30
	l := 0.65 + rand.Float64()*0.20
	return colorful.Hsl(h, s, l).Hex()
}

// Release returns a color to circulation.
func (p *Palette) Release(used map[string]bool, color string) {
	delete(used, color)
}
