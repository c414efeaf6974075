// Package evade reads the threat grid around the agent's ship and steers away
// from incoming bullets.
package evade

import (
	"math"

	"arenabot.ai/internal/bot/clock"
	"arenabot.ai/internal/mathx"
	"arenabot.ai/internal/protocol"
)

type Config struct {
	ScanRate int // frames between scans
	Radius   int // neighborhood half-width in cells
}

// Threat summarizes one scan. Heading is only meaningful when Evade is set.
type Threat struct {
	Count   int
	Heading float64
	Evade   bool
}

// Scanner keeps scratch buffers between scans, so it belongs to exactly one agent.
type Scanner struct {
	cfg Config

	win    [][]int32
	xs, ys []float64
}

func New(cfg Config) *Scanner {
	if cfg.Radius < 0 {
		cfg.Radius = 0
	}
	return &Scanner{cfg: cfg}
}

// SelfCell maps a world position to its grid cell. Coordinates are rounded half
// to even and wrapped, so any position (including exactly on the far edge) is valid.
func SelfCell(g protocol.Grid, x, y float64) (row, col int) {
	col = mathx.Mod(int(math.RoundToEven(x)), g.Width())
	row = mathx.Mod(int(math.RoundToEven(y)), g.Height())
	return row, col
}

// Neighborhood copies the (2r+1)x(2r+1) window centred on (row, col) into dst,
// wrapping both axes. dst is reused when it is large enough.
func Neighborhood(dst [][]int32, g protocol.Grid, row, col, r int) [][]int32 {
	if g.Empty() {
		return dst[:0]
	}
	n := 2*r + 1
	if cap(dst) < n {
		dst = make([][]int32, n)
	}
	dst = dst[:n]
	for i := 0; i < n; i++ {
		if cap(dst[i]) < n {
			dst[i] = make([]int32, n)
		}
		dst[i] = dst[i][:n]
		for j := 0; j < n; j++ {
			dst[i][j] = g.At(row-r+i, col-r+j)
		}
	}
	return dst
}

// Scan looks for bullets around self. For every negative cell at window offset
// (i, j) the escape vector is (r-j, r-i), pointing from the threat to the centre;
// the heading is the circular mean of those directions.
func (s *Scanner) Scan(g protocol.Grid, self protocol.Ship) Threat {
	if g.Empty() {
		return Threat{}
	}
	r := s.cfg.Radius
	row, col := SelfCell(g, self.X, self.Y)
	s.win = Neighborhood(s.win, g, row, col, r)

	s.xs = s.xs[:0]
	s.ys = s.ys[:0]
	var th Threat
	for i, line := range s.win {
		for j, cell := range line {
			if cell >= 0 {
				continue
			}
			th.Count++
			s.xs = append(s.xs, float64(r-j))
			s.ys = append(s.ys, float64(r-i))
		}
	}
	if th.Count == 0 {
		return th
	}
	th.Heading, th.Evade = mathx.MeanDirection(s.xs, s.ys)
	return th
}

// Decide scans when the scan rate is due and returns the evasive MoveShip, if any.
func (s *Scanner) Decide(f *clock.Frame, g protocol.Grid, self protocol.Ship) (Threat, *protocol.Command) {
	if !f.Due(s.cfg.ScanRate) {
		return Threat{}, nil
	}
	th := s.Scan(g, self)
	if !th.Evade {
		return th, nil
	}
	cmd := protocol.MoveShip(th.Heading)
	return th, &cmd
}
