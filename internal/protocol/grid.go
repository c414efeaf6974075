package protocol

import "arenabot.ai/internal/mathx"

// Grid is the server's occupancy map: rows are y, columns are x.
// Positive cells hold a ship id, zero is empty, negative cells hold a bullet.
type Grid struct {
	cells [][]int32
	w, h  int
}

// NewGrid wraps cells, which must be rectangular.
func NewGrid(cells [][]int32) (Grid, error) {
	g := Grid{cells: cells, h: len(cells)}
	if g.h == 0 {
		return g, nil
	}
	g.w = len(cells[0])
	for i, row := range cells {
		if len(row) != g.w {
			return Grid{}, malformed(PartGrid, "row %d has %d cells, want %d", i, len(row), g.w)
		}
	}
	if g.w == 0 {
		g.h = 0
	}
	return g, nil
}

func (g Grid) Width() int  { return g.w }
func (g Grid) Height() int { return g.h }
func (g Grid) Empty() bool { return g.w == 0 || g.h == 0 }

// At returns the cell at (row, col) with toroidal wrap on both axes.
// It panics on an empty grid.
func (g Grid) At(row, col int) int32 {
	return g.cells[mathx.Mod(row, g.h)][mathx.Mod(col, g.w)]
}
