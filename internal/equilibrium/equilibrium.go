// Package equilibrium solves for the steady buoyancy and overturning
// profile of a basin whose overturning cell depth is part of the solution.
//
// In the basin, vertical advection by the net overturning (northern cell
// minus Southern Ocean inflow) balances vertical diffusion,
//
//	(psi - psiSO)/A * b_z = (kappa b_z)_z,
//
// while the northern cell follows thermal wind against the northern
// buoyancy,
//
//	f psi_zz = bN - b.
//
// The cell occupies -H <= z <= 0 with psi and psi_z vanishing at -H and psi
// vanishing at the surface. Surface buoyancy is prescribed; at -H either
// the buoyancy or the diffusive buoyancy flux is.
package equilibrium

import (
	"math"

	"github.com/mfjansen/mocsim/internal/bvp"
	"github.com/mfjansen/mocsim/internal/ocean"
)

const (
	DefaultF      = 1.2e-4
	DefaultBS     = 0.025
	DefaultA      = 6e13
	DefaultKappa  = 2e-5
	DefaultHGuess = 1500.0
	DefaultNZ     = 100
)

type bottomConditionError struct{}

func (bottomConditionError) Error() string {
	return "You need to specify either b_bot or B_int for bottom boundary condition"
}

func (bottomConditionError) Unwrap() error { return ocean.ErrConfig }

// ErrBottomCondition is returned by New when neither BBot nor BInt is set.
var ErrBottomCondition error = bottomConditionError{}

// Config holds the solver parameters. Zero values select the defaults.
type Config struct {
	F  float64 // Coriolis parameter (1/s)
	BS float64 // surface buoyancy (m/s^2)
	BN float64 // northern buoyancy (m/s^2)

	// Exactly one of BBot (buoyancy at -H) and BInt (diffusive buoyancy
	// flux A*kappa*b_z at -H, m^4/s^3) must be set.
	BBot *float64
	BInt *float64

	A      float64 // basin area (m^2)
	Z      []float64
	Kappa  ocean.Source
	PsiSO  ocean.Source // Southern Ocean overturning (Sv)
	HGuess float64
	NZ     int

	Settings bvp.Settings
}

// Solver holds one equilibrium problem and, once solved, its solution.
type Solver struct {
	f, bs, bn, a float64
	bbot, bint   *float64
	z            ocean.Grid
	kappa        ocean.Field
	psiSO        ocean.Field
	hGuess       float64
	zeta         []float64
	set          bvp.Settings

	sol *bvp.Solution
	h   float64
}

// New validates cfg, fills defaults and builds a Solver.
func New(cfg Config) (*Solver, error) {
	if cfg.BBot == nil && cfg.BInt == nil {
		return nil, ErrBottomCondition
	}
	if cfg.BBot != nil && cfg.BInt != nil {
		return nil, ocean.Configf("b_bot", nil, "b_bot and B_int are mutually exclusive")
	}

	if cfg.F == 0 {
		cfg.F = DefaultF
	}
	if cfg.BS == 0 {
		cfg.BS = DefaultBS
	}
	if cfg.A == 0 {
		cfg.A = DefaultA
	}
	if cfg.HGuess == 0 {
		cfg.HGuess = DefaultHGuess
	}
	if cfg.NZ == 0 {
		cfg.NZ = DefaultNZ
	}
	if cfg.Z == nil {
		cfg.Z = ocean.Linspace(-4000, 0, 80)
	}
	if !cfg.Kappa.IsSet() {
		cfg.Kappa = ocean.Const(DefaultKappa)
	}
	if cfg.Settings == (bvp.Settings{}) {
		cfg.Settings = bvp.DefaultSettings()
		cfg.Settings.MaxIter = 200
	}

	switch {
	case !(cfg.A > 0):
		return nil, ocean.Configf("A", ocean.ErrNonPositive, "basin area %g", cfg.A)
	case !(cfg.HGuess > 0):
		return nil, ocean.Configf("H_guess", ocean.ErrNonPositive, "depth guess %g", cfg.HGuess)
	case cfg.NZ < 3:
		return nil, ocean.Configf("nz", nil, "need at least 3 collocation points, got %d", cfg.NZ)
	case cfg.BS == cfg.BN:
		return nil, ocean.Configf("b_s", nil, "surface and northern buoyancy are both %g", cfg.BS)
	}

	z, err := ocean.NewGrid(cfg.Z)
	if err != nil {
		return nil, err
	}
	kappa, err := ocean.Normalize(cfg.Kappa, z)
	if err != nil {
		return nil, err
	}
	if err := kappa.Positive("kappa", z); err != nil {
		return nil, err
	}
	psiSO, err := ocean.Normalize(cfg.PsiSO, z)
	if err != nil {
		return nil, err
	}

	zeta := make([]float64, cfg.NZ)
	for i := range zeta {
		zeta[i] = float64(i)/float64(cfg.NZ-1) - 1
	}

	return &Solver{
		f:      cfg.F,
		bs:     cfg.BS,
		bn:     cfg.BN,
		a:      cfg.A,
		bbot:   cfg.BBot,
		bint:   cfg.BInt,
		z:      z,
		kappa:  kappa,
		psiSO:  psiSO,
		hGuess: cfg.HGuess,
		zeta:   zeta,
		set:    cfg.Settings,
	}, nil
}

// Zeta returns the normalised collocation mesh on [-1, 0].
func (s *Solver) Zeta() []float64 { return append([]float64(nil), s.zeta...) }

func (s *Solver) Z() ocean.Grid { return s.z }

// Alpha is the advective scaling h^2/(A kappa) at normalised depth zeta.
func (s *Solver) Alpha(zeta, h float64) float64 {
	return h * h / (s.a * s.kappa.Eval(zeta, h))
}

// FluxGradient is the bottom stratification B_int/(A kappa(-h)) that
// carries the prescribed diffusive flux at depth h. It is NaN when the
// bottom condition is a fixed buoyancy.
// PsiSO is the Southern Ocean overturning in Sv at depth z.
func (s *Solver) PsiSO(z float64) float64 { return s.psiSO.At(z) }

func (s *Solver) FluxGradient(h float64) float64 {
	if s.bint == nil {
		return math.NaN()
	}
	return *s.bint / (s.a * s.kappa.At(-h))
}

// ScaleDepth is the advective-diffusive depth scale (kappa f A / db)^(1/3).
func (s *Solver) ScaleDepth() float64 {
	return math.Cbrt(s.kappa.At(s.z.Top()) * s.f * s.a / math.Abs(s.bs-s.bn))
}
