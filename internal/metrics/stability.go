package metrics

import (
	"github.com/mfjansen/mocsim/internal/coupling"
	"github.com/mfjansen/mocsim/internal/ocean"
)

// Stability is the fraction of observed cycles in which every column was
// statically stable to within tol. It also keeps the largest inversion
// seen and which column produced it.
type Stability struct {
	tol     float64
	stable  int
	cycles  int
	worst   float64
	culprit string
}

func NewStability(tol float64) *Stability {
	return &Stability{tol: tol}
}

func (s *Stability) Name() string { return "stability" }

func (s *Stability) Observe(snap coupling.Snapshot) {
	s.cycles++
	ok := true
	for _, c := range snap.Columns {
		inv := inversion(c.B)
		if inv > s.tol {
			ok = false
		}
		if inv > s.worst {
			s.worst, s.culprit = inv, c.Name
		}
	}
	if ok {
		s.stable++
	}
}

// inversion is the largest drop in buoyancy between neighbouring levels
// going up, or zero for a stable profile.
func inversion(b ocean.Profile) float64 {
	var worst float64
	for i := 1; i < len(b); i++ {
		if d := b[i-1] - b[i]; d > worst {
			worst = d
		}
	}
	return worst
}

func (s *Stability) Value() float64 {
	if s.cycles == 0 {
		return 1
	}
	return float64(s.stable) / float64(s.cycles)
}

// Worst returns the largest inversion observed since the last Reset and
// the column it occurred in.
func (s *Stability) Worst() (float64, string) { return s.worst, s.culprit }

func (s *Stability) Reset() {
	*s = Stability{tol: s.tol}
}
