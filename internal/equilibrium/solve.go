package equilibrium

import (
	"fmt"
	"math"

	"github.com/mfjansen/mocsim/internal/bvp"
	"github.com/mfjansen/mocsim/internal/ocean"
)

// The collocation unknowns are scaled so every component is O(1):
//
//	b   = bN + db*beta
//	psi = db*H^2/f * Psi
//	z   = H*zeta
//
// with state (Psi, Psi', beta, beta') and parameter log(H), which keeps the
// cell depth positive through the Newton iteration.
func (s *Solver) problem() bvp.Problem {
	db := s.bs - s.bn
	return bvp.Problem{
		Name: "equilibrium",
		N:    4,
		K:    1,
		F: func(zeta float64, y, p, dydx []float64) {
			h := math.Exp(p[0])
			z := zeta * h
			k := s.kappa.At(z)
			lambda := db * h * h * h / (s.f * s.a * k)
			so := h * s.psiSO.At(z) * 1e6 / (s.a * k)
			dydx[0] = y[1]
			dydx[1] = -y[2]
			dydx[2] = y[3]
			dydx[3] = (lambda*y[0] - so - h*s.kappa.Slope(z, 1)/k) * y[3]
		},
		BC: func(ya, yb, p, res []float64) {
			res[0] = ya[0]
			res[1] = yb[0]
			res[2] = ya[1]
			res[3] = yb[2] - 1
			if s.bbot != nil {
				res[4] = ya[2] - (*s.bbot-s.bn)/db
				return
			}
			h := math.Exp(p[0])
			res[4] = ya[3] - h*s.FluxGradient(h)/db
		},
	}
}

// initialGuess is an exponential thermocline whose first moment vanishes,
// which Psi(-1) = Psi'(-1) = Psi(0) = 0 require of beta.
func (s *Solver) initialGuess() ([][]float64, []float64) {
	delta := math.Min(math.Max(s.ScaleDepth()/s.hGuess, 0.05), 0.5)
	e := math.Exp(-1 / delta)
	m := 2 * delta * (delta - e - delta*e)

	n := len(s.zeta)
	y := make([][]float64, n)
	for i, zeta := range s.zeta {
		ez := math.Exp(zeta / delta)
		y[i] = []float64{0, 0, (ez - m) / (1 - m), ez / (delta * (1 - m))}
	}
	for i := 1; i < n; i++ {
		dz := s.zeta[i] - s.zeta[i-1]
		y[i][1] = y[i-1][1] - 0.5*dz*(y[i-1][2]+y[i][2])
		y[i][0] = y[i-1][0] + 0.5*dz*(y[i-1][1]+y[i][1])
	}
	end := y[n-1][0]
	for i, zeta := range s.zeta {
		y[i][0] -= end * (zeta + 1)
		y[i][1] -= end
	}
	return y, []float64{math.Log(s.hGuess)}
}

// Solve runs the collocation solver. A failed solve keeps any earlier
// solution.
func (s *Solver) Solve() error {
	y0, p0 := s.initialGuess()
	sol, err := bvp.Solve(s.problem(), s.zeta, y0, p0, s.set)
	if err != nil {
		return fmt.Errorf("equilibrium column: %w", err)
	}
	h := math.Exp(sol.P[0])
	if math.IsInf(h, 0) || h == 0 {
		return &ocean.DivergenceError{Solver: "equilibrium", Iteration: sol.Iterations, Residual: sol.Residual, Err: ocean.ErrInvalidProfile}
	}
	s.sol, s.h = sol, h
	return nil
}

// Solved reports whether Solve has succeeded at least once.
func (s *Solver) Solved() bool { return s.sol != nil }

// H is the overturning cell depth, or zero before a successful solve.
func (s *Solver) H() float64 { return s.h }

// Iterations returns the Newton iterations and final residual of the last
// successful solve.
func (s *Solver) Iterations() (int, float64) {
	if s.sol == nil {
		return 0, math.NaN()
	}
	return s.sol.Iterations, s.sol.Residual
}

func (s *Solver) state(z float64) []float64 {
	return s.sol.Eval(math.Max(z/s.h, -1))
}

// B is the buoyancy on the physical grid, held at its cell-bottom value
// below -H. It is nil before a successful solve.
func (s *Solver) B() ocean.Profile {
	if s.sol == nil {
		return nil
	}
	db := s.bs - s.bn
	return ocean.Sample(s.z, func(z float64) float64 {
		return s.bn + db*s.state(z)[2]
	})
}

// Psi is the northern overturning in Sv on the physical grid, zero below
// -H. It is nil before a successful solve.
func (s *Solver) Psi() ocean.Profile {
	if s.sol == nil {
		return nil
	}
	scale := (s.bs - s.bn) * s.h * s.h / s.f * 1e-6
	return ocean.Sample(s.z, func(z float64) float64 {
		if z < -s.h {
			return 0
		}
		return scale * s.state(z)[0]
	})
}

// BottomGradient is b_z at -H.
func (s *Solver) BottomGradient() float64 {
	if s.sol == nil {
		return math.NaN()
	}
	return (s.bs - s.bn) * s.sol.Y[0][3] / s.h
}
