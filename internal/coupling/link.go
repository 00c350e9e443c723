package coupling

import (
	"github.com/mfjansen/mocsim/internal/circulation"
	"github.com/mfjansen/mocsim/internal/ocean"
)

// Link diagnoses an overturning transport from column profiles and returns
// what each connected column receives from it.
type Link interface {
	Name() string
	// Columns lists the names of the columns the link reads and feeds.
	Columns() []string
	// Refresh updates the solver from profile copies keyed by column name
	// and solves it.
	Refresh(profiles map[string]ocean.Profile) error
	// Contribution is the upward transport (Sv) the link drives through
	// each level of the named column.
	Contribution(column string) ocean.Profile
	// Psi is the last diagnosed streamfunction in Sv.
	Psi() ocean.Profile
}

// ThermalWindLink connects two columns through thermal wind. South is
// column 1 and North column 2 of the solver; the transport upwells in South
// and sinks in North. With Isopycnal set, each column receives the
// transport remapped onto its own buoyancy surfaces.
type ThermalWindLink struct {
	Label     string
	Solver    *circulation.ThermalWind
	South     string
	North     string
	Isopycnal bool
	// Levels is the buoyancy grid resolution of the isopycnal remap.
	Levels int

	south, north ocean.Profile
}

func (l *ThermalWindLink) Name() string {
	if l.Label != "" {
		return l.Label
	}
	return l.South + "-" + l.North
}

func (l *ThermalWindLink) Columns() []string { return []string{l.South, l.North} }

func (l *ThermalWindLink) Refresh(profiles map[string]ocean.Profile) error {
	if err := l.Solver.Update(profiles[l.South], profiles[l.North]); err != nil {
		return err
	}
	if err := l.Solver.Solve(); err != nil {
		return err
	}
	if !l.Isopycnal {
		l.south, l.north = l.Solver.Psi(), l.Solver.Psi()
		return nil
	}
	psi1, psi2, err := l.Solver.PsibZ(l.Levels)
	if err != nil {
		return err
	}
	l.south, l.north = psi1, psi2
	return nil
}

func (l *ThermalWindLink) Contribution(column string) ocean.Profile {
	switch column {
	case l.South:
		return l.south.Clone()
	case l.North:
		out := l.north.Clone()
		for i := range out {
			out[i] = -out[i]
		}
		return out
	}
	return nil
}

func (l *ThermalWindLink) Psi() ocean.Profile { return l.Solver.Psi() }

// ResidualLink drains the Southern Ocean residual overturning out of the
// bottom of Basin.
type ResidualLink struct {
	Label  string
	Solver *circulation.Residual
	Basin  string
}

func (l *ResidualLink) Name() string {
	if l.Label != "" {
		return l.Label
	}
	return "so-" + l.Basin
}

func (l *ResidualLink) Columns() []string { return []string{l.Basin} }

func (l *ResidualLink) Refresh(profiles map[string]ocean.Profile) error {
	if err := l.Solver.Update(profiles[l.Basin]); err != nil {
		return err
	}
	return l.Solver.Solve()
}

func (l *ResidualLink) Contribution(column string) ocean.Profile {
	if column != l.Basin {
		return nil
	}
	out := l.Solver.Psi()
	for i := range out {
		out[i] = -out[i]
	}
	return out
}

func (l *ResidualLink) Psi() ocean.Profile { return l.Solver.Psi() }
