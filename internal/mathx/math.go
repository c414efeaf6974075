package mathx

import "math"

func Mod(a, b int) int {
	// b > 0
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

// Heading returns the angle of the vector (fromX,fromY) -> (toX,toY), in (-π, π].
func Heading(fromX, fromY, toX, toY float64) float64 {
	return math.Atan2(toY-fromY, toX-fromX)
}

func Dist(ax, ay, bx, by float64) float64 {
	return math.Hypot(bx-ax, by-ay)
}

// Project moves (x, y) forward by d along angle.
func Project(x, y, angle, d float64) (float64, float64) {
	return x + math.Cos(angle)*d, y + math.Sin(angle)*d
}

// MeanDirection is the circular mean of a set of direction vectors: each (x, y)
// is scaled to unit length, the units are summed and the angle of the sum is
// returned. Zero vectors carry no direction and are skipped. ok is false when
// nothing was left or the resultant cancels out.
func MeanDirection(xs, ys []float64) (angle float64, ok bool) {
	var sx, sy float64
	for i := range xs {
		n := math.Hypot(xs[i], ys[i])
		if n == 0 {
			continue
		}
		sx += xs[i] / n
		sy += ys[i] / n
	}
	if math.Hypot(sx, sy) < 1e-9 {
		return 0, false
	}
	return math.Atan2(sy, sx), true
}
