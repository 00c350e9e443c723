package bvp

import "sort"

// Eval returns the state at x by cubic Hermite interpolation between mesh
// nodes, using the right-hand side at the nodes as the derivative. Outside
// the mesh the end state is returned.
func (s *Solution) Eval(x float64) []float64 {
	m := len(s.X)
	switch {
	case x <= s.X[0]:
		return append([]float64(nil), s.Y[0]...)
	case x >= s.X[m-1]:
		return append([]float64(nil), s.Y[m-1]...)
	}

	i := sort.SearchFloat64s(s.X, x)
	if s.X[i] == x {
		return append([]float64(nil), s.Y[i]...)
	}
	i--

	h := s.X[i+1] - s.X[i]
	t := (x - s.X[i]) / h
	t2, t3 := t*t, t*t*t
	h00 := 2*t3 - 3*t2 + 1
	h10 := t3 - 2*t2 + t
	h01 := -2*t3 + 3*t2
	h11 := t3 - t2

	out := make([]float64, len(s.Y[i]))
	for c := range out {
		out[c] = h00*s.Y[i][c] + h10*h*s.dydx[i][c] + h01*s.Y[i+1][c] + h11*h*s.dydx[i+1][c]
	}
	return out
}

// Component returns component c of the state at every mesh node.
func (s *Solution) Component(c int) []float64 {
	out := make([]float64, len(s.Y))
	for i, y := range s.Y {
		out[i] = y[c]
	}
	return out
}
