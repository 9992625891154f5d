package matrix

import "math"

// Stats is the numeric summary of a grid.
type Stats struct {
	Min  float32
	Max  float32
	Mean float32
}

// Reduce computes min, max and mean over every value of g.
//
// Min and max start from +Inf and -Inf, so an empty grid reports them as
// infinities, and a NaN anywhere in the grid makes both NaN. Mean is 0 for an
// empty grid.
func Reduce(g *Grid) Stats {
	lo, hi := math.Inf(1), math.Inf(-1)
	var sum float64

	for _, v := range g.data {
		f := float64(v)
		lo = math.Min(lo, f)
		hi = math.Max(hi, f)
		sum += f
	}

	var mean float64
	if n := len(g.data); n > 0 {
		mean = sum / float64(n)
	}

	return Stats{Min: float32(lo), Max: float32(hi), Mean: float32(mean)}
}
