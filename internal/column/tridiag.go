package column

import (
	"errors"
	"fmt"

	"github.com/mfjansen/mocsim/internal/ocean"
	"gonum.org/v1/gonum/mat"
)

// solveTridiagonal solves the system with sub-diagonal a (a[0] unused),
// diagonal d and super-diagonal c (c[n-1] unused) with partial pivoting.
// The solution overwrites r; a, d and c are left untouched.
func solveTridiagonal(a, d, c, r []float64) error {
	n := len(d)
	sys := mat.NewTridiag(n, a[1:], d, c[:n-1])
	x := mat.NewVecDense(n, r)
	if err := sys.SolveVecTo(x, false, x); err != nil {
		var cond mat.Condition
		if errors.As(err, &cond) {
			return fmt.Errorf("%w: %v", ocean.ErrSingular, err)
		}
		return err
	}
	return nil
}
