package column

import (
	"fmt"
	"math"

	"github.com/mfjansen/mocsim/internal/ocean"
)

// Step advances the profile by dt seconds of
//
//	db/dt = d/dz(kappa db/dz) - w db/dz
//
// with w the vertical velocity (m/s, positive upward) at every node. Time
// is backward Euler; diffusion is conservative centred differencing with
// interface diffusivities; advection is upwinded on the sign of w. When
// convect is set the profile is convectively adjusted afterwards.
//
// A failed solve leaves the profile untouched.
func (c *Column) Step(w []float64, dt float64, convect bool) error {
	n := len(c.z)
	if len(w) != n {
		return ocean.Configf("w", ocean.ErrLength, "has %d values for a %d point grid", len(w), n)
	}
	if !(dt > 0) || math.IsInf(dt, 0) {
		return ocean.Configf("dt", ocean.ErrNonPositive, "time step %g", dt)
	}
	if !ocean.Profile(w).IsValid() {
		return &ocean.DivergenceError{Solver: "column", Residual: math.NaN(), Err: fmt.Errorf("%w in vertical velocity", ocean.ErrInvalidProfile)}
	}

	c.assemble(w, dt)
	if err := solveTridiagonal(c.lower, c.diag, c.upper, c.rhs); err != nil {
		return &ocean.DivergenceError{Solver: "column", Residual: math.NaN(), Err: err}
	}
	if !ocean.Profile(c.rhs).IsValid() {
		return &ocean.DivergenceError{Solver: "column", Residual: math.NaN(), Err: fmt.Errorf("%w after time step", ocean.ErrInvalidProfile)}
	}
	copy(c.b, c.rhs)

	if convect {
		c.Convect()
	}
	return nil
}

func (c *Column) assemble(w []float64, dt float64) {
	n := len(c.z)
	for i := 0; i < n; i++ {
		c.lower[i], c.diag[i], c.upper[i] = 0, 1, 0
		c.rhs[i] = c.b[i]
	}

	for i := 0; i < n-1; i++ {
		g := dt * c.kface[i] / c.dz[i]
		c.diag[i] += g / c.h[i]
		c.upper[i] -= g / c.h[i]
		c.diag[i+1] += g / c.h[i+1]
		c.lower[i+1] -= g / c.h[i+1]
	}

	for i := 0; i < n; i++ {
		switch {
		case w[i] > 0 && i > 0:
			k := dt * w[i] / c.dz[i-1]
			c.diag[i] += k
			c.lower[i] -= k
		case w[i] < 0 && i < n-1:
			k := -dt * w[i] / c.dz[i]
			c.diag[i] += k
			c.upper[i] -= k
		}
	}

	switch c.bottom.Kind {
	case ValueBoundary:
		c.diag[0], c.upper[0] = 1, 0
		c.rhs[0] = c.bottom.Value
	case FluxBoundary:
		c.rhs[0] -= dt * c.kappa.At(c.z[0]) * c.bottom.Value / c.h[0]
	}

	top := n - 1
	switch c.surface.Kind {
	case ValueBoundary:
		c.lower[top], c.diag[top] = 0, 1
		c.rhs[top] = c.surface.Value
	case FluxBoundary:
		c.rhs[top] += dt * c.kappa.At(c.z[top]) * c.surface.Value / c.h[top]
	}
}
