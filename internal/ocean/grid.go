package ocean

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate"
)

// Grid is a vertical coordinate ordered from the bottom to the surface.
type Grid []float64

// NewGrid copies z and validates it.
func NewGrid(z []float64) (Grid, error) {
	g := make(Grid, len(z))
	copy(g, z)
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// Linspace returns n equally spaced depths from bottom to top.
func Linspace(bottom, top float64, n int) Grid {
	if n < 2 {
		return Grid{bottom}
	}
	return Grid(floats.Span(make([]float64, n), bottom, top))
}

// Validate checks that the grid has at least three finite, strictly
// increasing points.
func (g Grid) Validate() error {
	if len(g) < 3 {
		return Configf("z", nil, "grid needs at least 3 points, got %d", len(g))
	}
	for i, v := range g {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Configf("z", ErrInvalidProfile, "non-finite depth at index %d", i)
		}
		if i > 0 && v <= g[i-1] {
			return Configf("z", ErrNonMonotonic, "z[%d]=%g does not exceed z[%d]=%g", i, v, i-1, g[i-1])
		}
	}
	return nil
}

func (g Grid) Bottom() float64 { return g[0] }
func (g Grid) Top() float64    { return g[len(g)-1] }
func (g Grid) Depth() float64  { return g[len(g)-1] - g[0] }

// Spacing returns the n-1 distances between adjacent nodes.
func (g Grid) Spacing() []float64 {
	dz := make([]float64, len(g)-1)
	for i := range dz {
		dz[i] = g[i+1] - g[i]
	}
	return dz
}

// Thickness returns the finite-volume cell thickness of every node. End
// nodes own half a cell so that the thicknesses sum to the column depth.
func (g Grid) Thickness() []float64 {
	n := len(g)
	h := make([]float64, n)
	for i := 0; i < n-1; i++ {
		half := 0.5 * (g[i+1] - g[i])
		h[i] += half
		h[i+1] += half
	}
	return h
}

// Clone returns an independent copy.
func (g Grid) Clone() Grid {
	c := make(Grid, len(g))
	copy(c, g)
	return c
}

// Profile holds one value per grid node.
type Profile []float64

// Sample evaluates fn at every node of g.
func Sample(g Grid, fn func(z float64) float64) Profile {
	p := make(Profile, len(g))
	for i, z := range g {
		p[i] = fn(z)
	}
	return p
}

func (p Profile) Clone() Profile {
	c := make(Profile, len(p))
	copy(c, p)
	return c
}

func (p Profile) IsValid() bool {
	for _, v := range p {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// IsStable reports whether buoyancy does not decrease with height, allowing
// a violation of at most tol between neighbours.
func (p Profile) IsStable(tol float64) bool {
	for i := 1; i < len(p); i++ {
		if p[i] < p[i-1]-tol {
			return false
		}
	}
	return true
}

// Content is the depth integral of the profile over g. It equals the sum of
// node values weighted by Grid.Thickness.
func (p Profile) Content(g Grid) float64 {
	return integrate.Trapezoidal(g, p)
}

// CheckLength returns ErrLength wrapped in a ConfigError when p does not
// match g.
func (p Profile) CheckLength(field string, g Grid) error {
	if len(p) != len(g) {
		return Configf(field, ErrLength, "has %d values for a %d point grid", len(p), len(g))
	}
	return nil
}
