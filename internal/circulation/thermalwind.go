// Package circulation holds the diagnostic overturning relations that turn
// buoyancy profiles into streamfunctions: thermal wind between two columns
// and the residual circulation of a re-entrant Southern Ocean channel.
//
// Streamfunctions are reported in Sv on the vertical grid.
package circulation

import (
	"fmt"

	"github.com/mfjansen/mocsim/internal/ocean"
	"gonum.org/v1/gonum/floats"
)

const (
	DefaultF     = 1.2e-4
	DefaultWidth = 1.0
)

type ThermalWindConfig struct {
	Z     []float64
	F     float64
	Width float64
	B1    ocean.Source
	B2    ocean.Source
}

// ThermalWind computes the overturning between column 1 and column 2 from
// f psi_zz = Width*(b2 - b1) with psi zero at the bottom and the surface.
// Positive psi is deep transport from column 2 into column 1.
type ThermalWind struct {
	z      ocean.Grid
	f      float64
	width  float64
	b1, b2 ocean.Profile
	psi    ocean.Profile
}

func NewThermalWind(cfg ThermalWindConfig) (*ThermalWind, error) {
	if cfg.F == 0 {
		cfg.F = DefaultF
	}
	if cfg.Width == 0 {
		cfg.Width = DefaultWidth
	}
	z, err := ocean.NewGrid(cfg.Z)
	if err != nil {
		return nil, err
	}
	if !(cfg.Width > 0) {
		return nil, ocean.Configf("width", ocean.ErrNonPositive, "width %g", cfg.Width)
	}

	tw := &ThermalWind{z: z, f: cfg.F, width: cfg.Width}
	for _, in := range []struct {
		name string
		src  ocean.Source
		dst  *ocean.Profile
	}{{"b1", cfg.B1, &tw.b1}, {"b2", cfg.B2, &tw.b2}} {
		field, err := ocean.Normalize(in.src, z)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", in.name, err)
		}
		*in.dst = field.OnGrid(z)
	}
	tw.psi = make(ocean.Profile, len(z))
	return tw, nil
}

// Update replaces both buoyancy profiles. Either may be nil to keep the
// current one.
func (tw *ThermalWind) Update(b1, b2 ocean.Profile) error {
	for _, p := range []struct {
		name string
		b    ocean.Profile
	}{{"b1", b1}, {"b2", b2}} {
		if p.b == nil {
			continue
		}
		if err := p.b.CheckLength(p.name, tw.z); err != nil {
			return err
		}
		if !p.b.IsValid() {
			return ocean.Configf(p.name, ocean.ErrInvalidProfile, "buoyancy profile")
		}
	}
	if b1 != nil {
		copy(tw.b1, b1)
	}
	if b2 != nil {
		copy(tw.b2, b2)
	}
	return nil
}

// Solve integrates the shear twice from the bottom and removes the linear
// part that the surface condition rejects.
func (tw *ThermalWind) Solve() error {
	n := len(tw.z)
	dz := tw.z.Spacing()

	rhs := make([]float64, n)
	for i := range rhs {
		rhs[i] = tw.width * (tw.b2[i] - tw.b1[i]) / tw.f
	}
	inc := make([]float64, n)
	for i := 1; i < n; i++ {
		inc[i] = 0.5 * dz[i-1] * (rhs[i-1] + rhs[i])
	}
	shear := floats.CumSum(make([]float64, n), inc)
	for i := 1; i < n; i++ {
		inc[i] = 0.5 * dz[i-1] * (shear[i-1] + shear[i])
	}
	psi := floats.CumSum(make([]float64, n), inc)

	top := psi[n-1]
	depth := tw.z.Depth()
	for i, z := range tw.z {
		tw.psi[i] = (psi[i] - top*(z-tw.z.Bottom())/depth) * 1e-6
	}
	tw.psi[0], tw.psi[n-1] = 0, 0

	if !tw.psi.IsValid() {
		return &ocean.DivergenceError{Solver: "thermal wind", Err: ocean.ErrInvalidProfile}
	}
	return nil
}

func (tw *ThermalWind) Z() ocean.Grid { return tw.z }

// Psi returns a copy of the depth-space streamfunction in Sv.
func (tw *ThermalWind) Psi() ocean.Profile { return tw.psi.Clone() }

func (tw *ThermalWind) B1() ocean.Profile { return tw.b1.Clone() }
func (tw *ThermalWind) B2() ocean.Profile { return tw.b2.Clone() }

// BGrid spans the buoyancy range of both columns with nb levels.
func (tw *ThermalWind) BGrid(nb int) []float64 {
	if nb <= 0 {
		nb = ocean.DefaultBuoyancyLevels
	}
	return ocean.BGrid(nb, tw.b1, tw.b2)
}

// Psib maps the streamfunction to buoyancy space. Each layer's transport
// is assigned the buoyancy of the column it leaves.
func (tw *ThermalWind) Psib(nb int) (bgrid, psib []float64) {
	bgrid = tw.BGrid(nb)
	return bgrid, ocean.MapToIsopycnal(tw.psi, tw.b2, tw.b1, bgrid)
}

// PsibZ maps the isopycnal streamfunction back to depth space in each
// column, so that every column sees the transport on its own isopycnals.
func (tw *ThermalWind) PsibZ(nb int) (psi1, psi2 ocean.Profile, err error) {
	bgrid, psib := tw.Psib(nb)
	if psi1, err = ocean.MapToDepth(tw.b1, bgrid, psib); err != nil {
		return nil, nil, fmt.Errorf("thermal wind column 1: %w", err)
	}
	if psi2, err = ocean.MapToDepth(tw.b2, bgrid, psib); err != nil {
		return nil, nil, fmt.Errorf("thermal wind column 2: %w", err)
	}
	return psi1, psi2, nil
}
