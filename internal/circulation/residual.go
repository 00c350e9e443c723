package circulation

import (
	"fmt"
	"math"

	"github.com/mfjansen/mocsim/internal/bvp"
	"github.com/mfjansen/mocsim/internal/ocean"
	"gonum.org/v1/gonum/interp"
)

const (
	DefaultRho  = 1030.0
	DefaultSMax = 0.01
	DefaultHEk  = 100.0
	DefaultSOF  = 1e-4
)

// ResidualConfig describes a Southern Ocean sector. Y is the meridional
// grid of the channel (m, increasing northward); BS and Tau are the surface
// buoyancy and zonal wind stress over Y; L is the zonal length of the
// sector and K the eddy diffusivity. B is the basin buoyancy profile on Z.
type ResidualConfig struct {
	Z   []float64
	Y   []float64
	BS  ocean.Source
	Tau ocean.Source
	L   float64
	K   float64
	F   float64
	Rho float64
	// SMax bounds the magnitude of isopycnal slopes.
	SMax float64
	// HEk is the depth of the boundary layers in which psi is brought to
	// zero at the surface and the bottom.
	HEk float64
	B   ocean.Source

	Settings bvp.Settings
}

// Residual computes the residual overturning of a channel sector as the sum
// of wind-driven Ekman transport at each layer's outcrop and the opposing
// eddy transport along its slope.
type Residual struct {
	z      ocean.Grid
	y      ocean.Grid
	bs     ocean.Profile
	tau    ocean.Field
	l, k   float64
	f, rho float64
	smax   float64
	hek    float64
	set    bvp.Settings
	b      ocean.Profile
	psi    ocean.Profile
	ekman  ocean.Profile
	eddy   ocean.Profile
}

func NewResidual(cfg ResidualConfig) (*Residual, error) {
	if cfg.F == 0 {
		cfg.F = DefaultSOF
	}
	if cfg.Rho == 0 {
		cfg.Rho = DefaultRho
	}
	if cfg.SMax == 0 {
		cfg.SMax = DefaultSMax
	}
	if cfg.HEk == 0 {
		cfg.HEk = DefaultHEk
	}
	if cfg.Settings == (bvp.Settings{}) {
		cfg.Settings = bvp.DefaultSettings()
	}

	switch {
	case !(cfg.L > 0):
		return nil, ocean.Configf("L", ocean.ErrNonPositive, "sector length %g", cfg.L)
	case cfg.K < 0:
		return nil, ocean.Configf("K", nil, "eddy diffusivity %g must not be negative", cfg.K)
	case !(cfg.Rho > 0):
		return nil, ocean.Configf("rho", ocean.ErrNonPositive, "density %g", cfg.Rho)
	case !(cfg.SMax > 0):
		return nil, ocean.Configf("s_max", ocean.ErrNonPositive, "slope bound %g", cfg.SMax)
	case !(cfg.HEk > 0):
		return nil, ocean.Configf("h_ek", ocean.ErrNonPositive, "boundary layer depth %g", cfg.HEk)
	case !cfg.BS.IsSet():
		return nil, ocean.Configf("bs", nil, "surface buoyancy section is required")
	}

	z, err := ocean.NewGrid(cfg.Z)
	if err != nil {
		return nil, err
	}
	y, err := ocean.NewGrid(cfg.Y)
	if err != nil {
		return nil, fmt.Errorf("y: %w", err)
	}
	bs, err := ocean.Normalize(cfg.BS, y)
	if err != nil {
		return nil, fmt.Errorf("bs: %w", err)
	}
	tau, err := ocean.Normalize(cfg.Tau, y)
	if err != nil {
		return nil, fmt.Errorf("tau: %w", err)
	}
	b, err := ocean.Normalize(cfg.B, z)
	if err != nil {
		return nil, fmt.Errorf("b: %w", err)
	}

	n := len(z)
	r := &Residual{
		z:     z,
		y:     y,
		bs:    bs.OnGrid(y),
		tau:   tau,
		l:     cfg.L,
		k:     cfg.K,
		f:     cfg.F,
		rho:   cfg.Rho,
		smax:  cfg.SMax,
		hek:   cfg.HEk,
		set:   cfg.Settings,
		b:     b.OnGrid(z),
		psi:   make(ocean.Profile, n),
		ekman: make(ocean.Profile, n),
		eddy:  make(ocean.Profile, n),
	}
	if !r.bs.IsValid() {
		return nil, ocean.Configf("bs", ocean.ErrInvalidProfile, "surface buoyancy section")
	}
	return r, nil
}

// Update replaces the basin buoyancy profile.
func (r *Residual) Update(b ocean.Profile) error {
	if err := b.CheckLength("b", r.z); err != nil {
		return err
	}
	if !b.IsValid() {
		return ocean.Configf("b", ocean.ErrInvalidProfile, "basin profile")
	}
	copy(r.b, b)
	return nil
}

// Outcrop returns the latitude at which buoyancy b meets the surface,
// scanning the surface section from the north. Layers lighter than the
// northern end do not outcrop in the channel and get the northern edge;
// layers denser than the whole section outcrop at the southern edge.
func (r *Residual) Outcrop(b float64) float64 {
	n := len(r.y)
	for j := n - 1; j >= 0; j-- {
		if r.bs[j] > b {
			continue
		}
		if j == n-1 {
			return r.y[n-1]
		}
		frac := (b - r.bs[j]) / (r.bs[j+1] - r.bs[j])
		return r.y[j] + frac*(r.y[j+1]-r.y[j])
	}
	return r.y[0]
}

// Slope is the isopycnal slope at depth z of a layer outcropping at ys,
// bounded by SMax. It is zero for layers that do not outcrop.
func (r *Residual) Slope(z, ys float64) float64 {
	yn := r.y.Top()
	if ys >= yn {
		return 0
	}
	s := z / (yn - ys)
	return math.Max(-r.smax, math.Min(r.smax, s))
}

// Solve computes the target transport on every layer and relaxes it to
// zero at the surface and the bottom through boundary layers of depth HEk:
//
//	-HEk^2 psi_zz + psi = psi_target,   psi = 0 at both ends.
//
// A failed solve leaves Psi, PsiEkman and PsiEddy from the last success.
func (r *Residual) Solve() error {
	n := len(r.z)
	target := make([]float64, n)
	ekman := make(ocean.Profile, n)
	eddy := make(ocean.Profile, n)
	for i, z := range r.z {
		ys := r.Outcrop(r.b[i])
		ekman[i] = r.l * r.tau.At(ys) / (r.rho * r.f) * 1e-6
		eddy[i] = r.l * r.k * r.Slope(z, ys) * 1e-6
		target[i] = ekman[i] + eddy[i]
	}

	var pl interp.PiecewiseLinear
	if err := pl.Fit(r.z, target); err != nil {
		return fmt.Errorf("residual overturning: %w", err)
	}
	hek := r.hek
	prob := bvp.Problem{
		Name: "residual overturning",
		N:    2,
		F: func(z float64, y, p, dydx []float64) {
			dydx[0] = y[1] / hek
			dydx[1] = (y[0] - pl.Predict(z)) / hek
		},
		BC: func(ya, yb, p, res []float64) {
			res[0] = ya[0]
			res[1] = yb[0]
		},
	}

	y0 := make([][]float64, n)
	for i := range y0 {
		y0[i] = []float64{target[i], 0}
	}
	y0[0][0], y0[n-1][0] = 0, 0

	sol, err := bvp.Solve(prob, r.z, y0, nil, r.set)
	if err != nil {
		return fmt.Errorf("residual overturning: %w", err)
	}
	copy(r.psi, sol.Component(0))
	copy(r.ekman, ekman)
	copy(r.eddy, eddy)
	return nil
}

func (r *Residual) Z() ocean.Grid { return r.z }

// Psi returns the residual overturning in Sv.
func (r *Residual) Psi() ocean.Profile { return r.psi.Clone() }

// PsiEkman returns the wind-driven part of the target transport in Sv.
func (r *Residual) PsiEkman() ocean.Profile { return r.ekman.Clone() }

// PsiEddy returns the eddy-driven part of the target transport in Sv.
func (r *Residual) PsiEddy() ocean.Profile { return r.eddy.Clone() }

func (r *Residual) B() ocean.Profile { return r.b.Clone() }
