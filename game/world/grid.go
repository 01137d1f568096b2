package world

import "github.com/kasuganosora/miridle/server/resource"

// Grid is the walkable area of a map. Maps are open rectangles, so a cell
// is passable whenever it is inside the bounds.
type Grid struct {
	Width, Height int
}

// NewGrid sizes a grid from a map template.
func NewGrid(mp *resource.MapTemplate) Grid {
	return Grid{Width: mp.Width, Height: mp.Height}
}

// Passable reports whether (x, y) can be entered.
func (g Grid) Passable(x, y int) bool {
	return x >= 0 && y >= 0 && x < g.Width && y < g.Height
}

// Cells is the number of cells on the map.
func (g Grid) Cells() int { return g.Width * g.Height }
