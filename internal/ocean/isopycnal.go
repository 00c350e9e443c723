package ocean

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/interp"
)

// DefaultBuoyancyLevels is the resolution of isopycnal grids when callers
// do not choose one.
const DefaultBuoyancyLevels = 500

// BGrid returns nb equally spaced buoyancy levels spanning the range of all
// given profiles.
func BGrid(nb int, profiles ...Profile) []float64 {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, p := range profiles {
		if len(p) == 0 {
			continue
		}
		lo = math.Min(lo, floats.Min(p))
		hi = math.Max(hi, floats.Max(p))
	}
	if math.IsInf(lo, 0) {
		lo, hi = 0, 0
	}
	if hi <= lo {
		hi = lo + 1e-9*math.Max(math.Abs(lo), 1)
	}
	if nb < 2 {
		nb = 2
	}
	return floats.Span(make([]float64, nb), lo, hi)
}

// MapToIsopycnal remaps a depth-space streamfunction psi into buoyancy
// space. Each layer between adjacent nodes carries the transport increment
// psi[j+1]-psi[j]; positive increments carry water of buoyancy bPos and
// negative ones water of buoyancy bNeg (the upstream column). The result at
// level bgrid[k] is the transport of all water denser than bgrid[k]. It is
// zero at the minimum buoyancy, and zero again at the maximum whenever psi
// vanishes at both ends of the column.
func MapToIsopycnal(psi, bPos, bNeg Profile, bgrid []float64) []float64 {
	psib := make([]float64, len(bgrid))
	for j := 0; j < len(psi)-1; j++ {
		dpsi := psi[j+1] - psi[j]
		if dpsi == 0 {
			continue
		}
		up := bPos
		if dpsi < 0 {
			up = bNeg
		}
		ba, bb := up[j], up[j+1]
		for k, level := range bgrid {
			psib[k] += dpsi * denserFraction(ba, bb, level)
		}
	}
	return psib
}

// denserFraction is the fraction of a layer, with buoyancy varying linearly
// from ba to bb, that is strictly denser than level.
func denserFraction(ba, bb, level float64) float64 {
	switch {
	case ba == bb:
		if ba < level {
			return 1
		}
		return 0
	case bb > ba:
		return clamp01((level - ba) / (bb - ba))
	default:
		return 1 - clamp01((ba-level)/(ba-bb))
	}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// MapToDepth interpolates an isopycnal streamfunction back onto the depth
// nodes of a column with buoyancy profile b.
func MapToDepth(b Profile, bgrid, psib []float64) (Profile, error) {
	out, err := Interp(b, bgrid, psib)
	if err != nil {
		return nil, err
	}
	return Profile(out), nil
}

// Interp evaluates the piecewise-linear interpolant through (xs, ys) at
// every x, holding end values beyond the data. xs must be strictly
// increasing.
func Interp(x, xs, ys []float64) ([]float64, error) {
	for i := 1; i < len(xs); i++ {
		if xs[i] <= xs[i-1] {
			return nil, ErrNonMonotonic
		}
	}
	var pl interp.PiecewiseLinear
	if err := pl.Fit(xs, ys); err != nil {
		return nil, err
	}
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = pl.Predict(v)
	}
	return out, nil
}
