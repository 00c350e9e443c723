// Package bvp solves nonlinear two-point boundary-value problems
//
//	y'(x) = f(x, y, p),   a <= x <= b
//	bc(y(a), y(b), p) = 0
//
// for n state components and k unknown parameters p. The system is
// discretised by trapezoidal collocation on a fixed mesh and the resulting
// algebraic equations are solved with a damped Newton iteration whose
// Jacobian is built block by block with gonum's finite differences.
package bvp

import (
	"errors"
	"fmt"
	"math"

	"github.com/mfjansen/mocsim/internal/ocean"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Func writes dy/dx at x into dydx.
type Func func(x float64, y, p, dydx []float64)

// BC writes the n+k boundary residuals into res.
type BC func(ya, yb, p, res []float64)

// Problem describes the equations to solve.
type Problem struct {
	Name string
	N    int
	K    int
	F    Func
	BC   BC
}

// Settings bounds the Newton iteration.
type Settings struct {
	// Tol is the largest scaled residual accepted at convergence.
	Tol float64
	// MaxIter is the number of Newton iterations before giving up.
	MaxIter int
	// MinDamping is the smallest step fraction tried by the line search.
	MinDamping float64
}

func DefaultSettings() Settings {
	return Settings{
		Tol:        1e-6,
		MaxIter:    100,
		MinDamping: 1.0 / 1024,
	}
}

// Solution is a converged collocation solution.
type Solution struct {
	X          []float64
	Y          [][]float64
	P          []float64
	Iterations int
	Residual   float64
	dydx       [][]float64
}

// Solve iterates from the initial guess y0 (one state per mesh node) and
// p0 until the collocation and boundary residuals fall below set.Tol.
// Failure to converge is returned as a *ocean.DivergenceError wrapping
// ocean.ErrNoConvergence; a singular Newton matrix wraps ocean.ErrSingular.
func Solve(prob Problem, x []float64, y0 [][]float64, p0 []float64, set Settings) (*Solution, error) {
	if err := prob.validate(x, y0, p0); err != nil {
		return nil, err
	}
	if set.Tol <= 0 {
		set.Tol = DefaultSettings().Tol
	}
	if set.MaxIter <= 0 {
		set.MaxIter = DefaultSettings().MaxIter
	}
	if set.MinDamping <= 0 || set.MinDamping > 1 {
		set.MinDamping = DefaultSettings().MinDamping
	}

	s := newSystem(prob, x)
	u := s.pack(y0, p0)
	res := make([]float64, s.size)
	s.residual(u, res)

	name := prob.Name
	if name == "" {
		name = "bvp"
	}

	for iter := 0; iter <= set.MaxIter; iter++ {
		if !floats.HasNaN(res) && !hasInf(res) && s.scaledNorm(res) <= set.Tol {
			y, p := s.unpack(u)
			sol := &Solution{X: s.x, Y: y, P: p, Iterations: iter, Residual: s.scaledNorm(res)}
			sol.dydx = s.derivatives(y, p)
			return sol, nil
		}
		if floats.HasNaN(res) || hasInf(res) {
			return nil, &ocean.DivergenceError{Solver: name, Iteration: iter, Residual: math.NaN(), Err: ocean.ErrInvalidProfile}
		}
		if iter == set.MaxIter {
			break
		}

		step, err := s.newtonStep(u, res)
		if err != nil {
			return nil, &ocean.DivergenceError{Solver: name, Iteration: iter, Residual: s.scaledNorm(res), Err: err}
		}

		merit := floats.Dot(res, res)
		trial := make([]float64, s.size)
		trialRes := make([]float64, s.size)
		for damping := 1.0; ; damping /= 2 {
			floats.AddScaledTo(trial, u, damping, step)
			s.residual(trial, trialRes)
			m := floats.Dot(trialRes, trialRes)
			if m <= (1-1e-4*damping)*merit || damping/2 < set.MinDamping {
				break
			}
		}
		u, trial = trial, u
		res, trialRes = trialRes, res
	}

	return nil, &ocean.DivergenceError{Solver: name, Iteration: set.MaxIter, Residual: s.scaledNorm(res), Err: ocean.ErrNoConvergence}
}

func (prob Problem) validate(x []float64, y0 [][]float64, p0 []float64) error {
	switch {
	case prob.F == nil || prob.BC == nil:
		return ocean.Configf("bvp", nil, "equations and boundary conditions are required")
	case prob.N < 1 || prob.K < 0:
		return ocean.Configf("bvp", nil, "invalid dimensions n=%d k=%d", prob.N, prob.K)
	case len(p0) != prob.K:
		return ocean.Configf("bvp", ocean.ErrLength, "%d parameter guesses for %d parameters", len(p0), prob.K)
	case len(y0) != len(x):
		return ocean.Configf("bvp", ocean.ErrLength, "%d initial states for a %d point mesh", len(y0), len(x))
	}
	if err := ocean.Grid(x).Validate(); err != nil {
		return err
	}
	for i, y := range y0 {
		if len(y) != prob.N {
			return ocean.Configf("bvp", ocean.ErrLength, "initial state %d has %d components, want %d", i, len(y), prob.N)
		}
	}
	return nil
}

// system is the discretised problem. The unknown vector packs the states
// node by node followed by the parameters.
type system struct {
	prob Problem
	x    []float64
	h    []float64
	m    int
	size int
	// right-hand side at each node, refreshed by residual and jacobian
	f [][]float64
}

func newSystem(prob Problem, x []float64) *system {
	m := len(x)
	s := &system{
		prob: prob,
		x:    append([]float64(nil), x...),
		h:    ocean.Grid(x).Spacing(),
		m:    m,
		size: m*prob.N + prob.K,
	}
	s.f = make([][]float64, m)
	for i := range s.f {
		s.f[i] = make([]float64, prob.N)
	}
	return s
}

func (s *system) pack(y [][]float64, p []float64) []float64 {
	u := make([]float64, s.size)
	n := s.prob.N
	for i := range y {
		copy(u[i*n:(i+1)*n], y[i])
	}
	copy(u[s.m*n:], p)
	return u
}

func (s *system) unpack(u []float64) ([][]float64, []float64) {
	n := s.prob.N
	y := make([][]float64, s.m)
	for i := range y {
		y[i] = append([]float64(nil), u[i*n:(i+1)*n]...)
	}
	return y, append([]float64(nil), u[s.m*n:]...)
}

func (s *system) state(u []float64, i int) []float64 {
	n := s.prob.N
	return u[i*n : (i+1)*n]
}

func (s *system) params(u []float64) []float64 { return u[s.m*s.prob.N:] }

// residual evaluates the collocation rows (y[i+1]-y[i])/h - (f[i]+f[i+1])/2
// followed by the boundary rows.
func (s *system) residual(u, res []float64) {
	n := s.prob.N
	p := s.params(u)
	for i := 0; i < s.m; i++ {
		s.prob.F(s.x[i], s.state(u, i), p, s.f[i])
	}
	for i := 0; i < s.m-1; i++ {
		yi, yj := s.state(u, i), s.state(u, i+1)
		for c := 0; c < n; c++ {
			res[i*n+c] = (yj[c]-yi[c])/s.h[i] - 0.5*(s.f[i][c]+s.f[i+1][c])
		}
	}
	s.prob.BC(s.state(u, 0), s.state(u, s.m-1), p, res[(s.m-1)*n:])
}

// scaledNorm is the largest collocation residual relative to the local
// slope magnitude, or the largest boundary residual.
func (s *system) scaledNorm(res []float64) float64 {
	n := s.prob.N
	worst := 0.0
	for i := 0; i < s.m-1; i++ {
		for c := 0; c < n; c++ {
			scale := 1 + 0.5*math.Abs(s.f[i][c]+s.f[i+1][c])
			worst = math.Max(worst, math.Abs(res[i*n+c])/scale)
		}
	}
	for _, r := range res[(s.m-1)*n:] {
		worst = math.Max(worst, math.Abs(r))
	}
	return worst
}

func (s *system) newtonStep(u, res []float64) ([]float64, error) {
	jac := s.jacobian(u)
	rhs := make([]float64, s.size)
	floats.ScaleTo(rhs, -1, res)

	var step mat.VecDense
	err := step.SolveVec(jac, mat.NewVecDense(s.size, rhs))
	var cond mat.Condition
	switch {
	case err == nil:
	case errors.As(err, &cond) && !math.IsInf(float64(cond), 1):
	default:
		return nil, fmt.Errorf("%w: %v", ocean.ErrSingular, err)
	}

	out := make([]float64, s.size)
	for i := range out {
		out[i] = step.AtVec(i)
	}
	if floats.HasNaN(out) || hasInf(out) {
		return nil, ocean.ErrSingular
	}
	return out, nil
}

// jacobian differentiates the residual by forward differences. The
// right-hand side only couples a node to itself, so each node contributes
// an n x n block and the parameters one column block for all nodes.
func (s *system) jacobian(u []float64) *mat.Dense {
	n, k, m := s.prob.N, s.prob.K, s.m
	jac := mat.NewDense(s.size, s.size, nil)
	p := s.params(u)

	for i := 0; i < m; i++ {
		s.prob.F(s.x[i], s.state(u, i), p, s.f[i])
	}

	// d f_i / d y_i
	blocks := make([]*mat.Dense, m)
	for i := 0; i < m; i++ {
		x := s.x[i]
		blocks[i] = forwardJacobian(n, s.state(u, i), s.f[i], func(dst, y []float64) {
			s.prob.F(x, y, p, dst)
		})
	}

	for i := 0; i < m-1; i++ {
		for r := 0; r < n; r++ {
			row := i*n + r
			for c := 0; c < n; c++ {
				left := -0.5 * blocks[i].At(r, c)
				right := -0.5 * blocks[i+1].At(r, c)
				if r == c {
					left -= 1 / s.h[i]
					right += 1 / s.h[i]
				}
				jac.Set(row, i*n+c, left)
				jac.Set(row, (i+1)*n+c, right)
			}
		}
	}

	// parameter columns of the collocation rows
	if k > 0 {
		origin := make([]float64, m*n)
		for i := range s.f {
			copy(origin[i*n:], s.f[i])
		}
		dp := forwardJacobian(m*n, p, origin, func(dst, pw []float64) {
			for i := 0; i < m; i++ {
				s.prob.F(s.x[i], s.state(u, i), pw, dst[i*n:(i+1)*n])
			}
		})
		for j := 0; j < k; j++ {
			for i := 0; i < m-1; i++ {
				for r := 0; r < n; r++ {
					jac.Set(i*n+r, m*n+j, -0.5*(dp.At(i*n+r, j)+dp.At((i+1)*n+r, j)))
				}
			}
		}
	}

	// boundary rows, differentiated with respect to (y(a), y(b), p)
	base := (m - 1) * n
	v := make([]float64, 0, 2*n+k)
	v = append(v, s.state(u, 0)...)
	v = append(v, s.state(u, m-1)...)
	v = append(v, p...)
	ref := make([]float64, n+k)
	s.prob.BC(v[:n], v[n:2*n], v[2*n:], ref)
	db := forwardJacobian(n+k, v, ref, func(dst, w []float64) {
		s.prob.BC(w[:n], w[n:2*n], w[2*n:], dst)
	})
	for r := 0; r < n+k; r++ {
		for c := 0; c < n; c++ {
			jac.Set(base+r, c, db.At(r, c))
			jac.Set(base+r, (m-1)*n+c, db.At(r, n+c))
		}
		for j := 0; j < k; j++ {
			jac.Set(base+r, m*n+j, db.At(r, 2*n+j))
		}
	}
	return jac
}

// forwardJacobian is the rows x len(v) Jacobian of fn at v, whose value
// there is origin. Each variable is perturbed relative to its magnitude:
// fd works in the scaled variable t with v + max(1,|v|)*t, and the columns
// are scaled back afterwards.
func forwardJacobian(rows int, v, origin []float64, fn func(dst, v []float64)) *mat.Dense {
	scale := make([]float64, len(v))
	for c, vc := range v {
		scale[c] = math.Max(1, math.Abs(vc))
	}
	work := make([]float64, len(v))
	jac := mat.NewDense(rows, len(v), nil)
	fd.Jacobian(jac, func(dst, t []float64) {
		for c := range t {
			work[c] = v[c] + scale[c]*t[c]
		}
		fn(dst, work)
	}, make([]float64, len(v)), &fd.JacobianSettings{
		Formula:     fd.Forward,
		OriginValue: origin,
		Step:        fdStep,
	})
	for c, sc := range scale {
		for r := 0; r < rows; r++ {
			jac.Set(r, c, jac.At(r, c)/sc)
		}
	}
	return jac
}

func (s *system) derivatives(y [][]float64, p []float64) [][]float64 {
	d := make([][]float64, len(y))
	for i := range y {
		d[i] = make([]float64, s.prob.N)
		s.prob.F(s.x[i], y[i], p, d[i])
	}
	return d
}

// fdStep is the forward-difference step in units of a variable's
// magnitude.
const fdStep = 1.5e-8

func hasInf(s []float64) bool {
	for _, v := range s {
		if math.IsInf(v, 0) {
			return true
		}
	}
	return false
}
