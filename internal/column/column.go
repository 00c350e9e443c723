// Package column integrates the buoyancy profile of a single basin column
// in time under imposed vertical velocity, vertical diffusion and
// convective adjustment.
package column

import (
	"math"

	"github.com/mfjansen/mocsim/internal/ocean"
)

type BoundaryKind int

const (
	// ValueBoundary fixes the buoyancy at the boundary node.
	ValueBoundary BoundaryKind = iota
	// FluxBoundary fixes the vertical buoyancy gradient at the boundary, so
	// the diffusive flux through it is kappa times that gradient.
	FluxBoundary
)

// Boundary is the condition applied at the surface or bottom row.
type Boundary struct {
	Kind  BoundaryKind
	Value float64
}

func Value(b float64) Boundary { return Boundary{Kind: ValueBoundary, Value: b} }
func Flux(bz float64) Boundary { return Boundary{Kind: FluxBoundary, Value: bz} }

func (b Boundary) String() string {
	if b.Kind == FluxBoundary {
		return "flux"
	}
	return "value"
}

// Config holds everything needed to build a Column.
type Config struct {
	Z       []float64
	Kappa   ocean.Source
	Area    float64
	Surface Boundary
	Bottom  Boundary
	// N2Min is the stratification left behind by convective adjustment.
	N2Min float64
	// Initial is the starting buoyancy profile; unset means zero.
	Initial ocean.Source
}

// Column owns one buoyancy profile and advances it in place.
type Column struct {
	z       ocean.Grid
	h       []float64
	dz      []float64
	kappa   ocean.Field
	kface   []float64
	area    float64
	surface Boundary
	bottom  Boundary
	n2min   float64
	b       ocean.Profile

	lower, diag, upper, rhs []float64
}

// New validates cfg and builds a column. Every rejected parameter is
// reported as an ocean.ConfigError.
func New(cfg Config) (*Column, error) {
	z, err := ocean.NewGrid(cfg.Z)
	if err != nil {
		return nil, err
	}
	if !(cfg.Area > 0) {
		return nil, ocean.Configf("area", ocean.ErrNonPositive, "basin area %g", cfg.Area)
	}
	if cfg.N2Min < 0 || math.IsNaN(cfg.N2Min) {
		return nil, ocean.Configf("n2min", nil, "minimum stratification %g must not be negative", cfg.N2Min)
	}
	if !cfg.Kappa.IsSet() {
		return nil, ocean.Configf("kappa", nil, "diffusivity is required")
	}
	kappa, err := ocean.Normalize(cfg.Kappa, z)
	if err != nil {
		return nil, err
	}
	if err := kappa.Positive("kappa", z); err != nil {
		return nil, err
	}
	for _, bc := range []Boundary{cfg.Surface, cfg.Bottom} {
		if math.IsNaN(bc.Value) || math.IsInf(bc.Value, 0) {
			return nil, ocean.Configf("boundary", nil, "non-finite %s condition %g", bc, bc.Value)
		}
	}

	init, err := ocean.Normalize(cfg.Initial, z)
	if err != nil {
		return nil, err
	}
	b := init.OnGrid(z)
	if !b.IsValid() {
		return nil, ocean.Configf("b", ocean.ErrInvalidProfile, "initial profile")
	}

	n := len(z)
	c := &Column{
		z:       z,
		h:       z.Thickness(),
		dz:      z.Spacing(),
		kappa:   kappa,
		kface:   make([]float64, n-1),
		area:    cfg.Area,
		surface: cfg.Surface,
		bottom:  cfg.Bottom,
		n2min:   cfg.N2Min,
		b:       b,
		lower:   make([]float64, n),
		diag:    make([]float64, n),
		upper:   make([]float64, n),
		rhs:     make([]float64, n),
	}
	for i := range c.kface {
		c.kface[i] = kappa.At(0.5 * (z[i] + z[i+1]))
		if !(c.kface[i] > 0) {
			return nil, ocean.Configf("kappa", ocean.ErrNonPositive, "value %g between z[%d] and z[%d]", c.kface[i], i, i+1)
		}
	}
	c.applyValueBoundaries()
	return c, nil
}

func (c *Column) applyValueBoundaries() {
	if c.bottom.Kind == ValueBoundary {
		c.b[0] = c.bottom.Value
	}
	if c.surface.Kind == ValueBoundary {
		c.b[len(c.b)-1] = c.surface.Value
	}
}

// B returns a copy of the current buoyancy profile.
func (c *Column) B() ocean.Profile { return c.b.Clone() }

// Z returns the column grid. Callers must not modify it.
func (c *Column) Z() ocean.Grid { return c.z }

func (c *Column) Area() float64 { return c.area }

func (c *Column) N2Min() float64 { return c.n2min }

// Kappa returns the diffusivity at depth z.
func (c *Column) Kappa(z float64) float64 { return c.kappa.At(z) }

// Content is the depth-integrated buoyancy of the column.
func (c *Column) Content() float64 { return c.b.Content(c.z) }

// Surface and Bottom return the boundary conditions.
func (c *Column) Surface() Boundary { return c.surface }
func (c *Column) Bottom() Boundary  { return c.bottom }

// SetSurface replaces the surface condition used by subsequent steps.
func (c *Column) SetSurface(bc Boundary) { c.surface = bc }

// SetB replaces the profile wholesale, for instance with an equilibrium
// solution.
func (c *Column) SetB(b ocean.Profile) error {
	if err := b.CheckLength("b", c.z); err != nil {
		return err
	}
	if !b.IsValid() {
		return ocean.Configf("b", ocean.ErrInvalidProfile, "replacement profile")
	}
	copy(c.b, b)
	return nil
}
