package config

import (
	"fmt"

	"github.com/mfjansen/mocsim/internal/circulation"
	"github.com/mfjansen/mocsim/internal/column"
	"github.com/mfjansen/mocsim/internal/coupling"
	"github.com/mfjansen/mocsim/internal/equilibrium"
	"github.com/mfjansen/mocsim/internal/ocean"
	"github.com/sirupsen/logrus"
)

// Build validates cfg and assembles a driver with every column and link
// it describes. A nil logger selects the logrus standard logger.
func Build(cfg *Config, log logrus.FieldLogger) (*coupling.Driver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	d, err := coupling.New(coupling.Options{Dt: cfg.Dt, UpdateEvery: cfg.UpdateEvery, Logger: log})
	if err != nil {
		return nil, err
	}

	z := cfg.Z()
	for _, cc := range cfg.Columns {
		col, err := cc.build(z)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", cc.Name, err)
		}
		if err := d.AddColumn(cc.Name, col, cc.Convect); err != nil {
			return nil, err
		}
	}

	for _, tc := range cfg.ThermalWind {
		tw, err := circulation.NewThermalWind(circulation.ThermalWindConfig{Z: z, F: tc.F, Width: tc.Width})
		if err != nil {
			return nil, fmt.Errorf("thermal wind %s: %w", tc.Name, err)
		}
		link := &coupling.ThermalWindLink{
			Label:     tc.Name,
			Solver:    tw,
			South:     tc.South,
			North:     tc.North,
			Isopycnal: tc.Isopycnal,
			Levels:    tc.Levels,
		}
		if err := d.AddLink(link); err != nil {
			return nil, err
		}
	}

	for _, rc := range cfg.Residual {
		bs, err := rc.Section.Buoyancy()
		if err != nil {
			return nil, fmt.Errorf("residual %s: %w", rc.Name, err)
		}
		r, err := circulation.NewResidual(circulation.ResidualConfig{
			Z:    z,
			Y:    rc.Section.Grid(),
			BS:   ocean.Samples(bs),
			Tau:  ocean.Const(rc.Tau),
			L:    rc.L,
			K:    rc.K,
			F:    rc.F,
			Rho:  rc.Rho,
			SMax: rc.SMax,
			HEk:  rc.HEk,
		})
		if err != nil {
			return nil, fmt.Errorf("residual %s: %w", rc.Name, err)
		}
		if err := d.AddLink(&coupling.ResidualLink{Label: rc.Name, Solver: r, Basin: rc.Basin}); err != nil {
			return nil, err
		}
	}

	return d, nil
}

func (cc ColumnConfig) build(z ocean.Grid) (*column.Column, error) {
	kappa, err := cc.Kappa.Source()
	if err != nil {
		return nil, err
	}
	bottom := column.Flux(cc.BZBot)
	if cc.BBot != nil {
		bottom = column.Value(*cc.BBot)
	}
	return column.New(column.Config{
		Z:       z,
		Kappa:   kappa,
		Area:    cc.Area,
		Surface: column.Value(cc.BS),
		Bottom:  bottom,
		N2Min:   cc.N2Min,
		Initial: ocean.Samples(cc.Init.Profile(z)),
	})
}

// BuildEquilibrium assembles the equilibrium column solver on the
// configured grid.
func BuildEquilibrium(cfg *Config) (*equilibrium.Solver, error) {
	ec := cfg.Equilibrium
	if ec == nil {
		return nil, ocean.Configf("equilibrium", nil, "no equilibrium section")
	}
	ecfg := equilibrium.Config{
		F:      ec.F,
		BS:     ec.BS,
		BN:     ec.BN,
		BBot:   ec.BBot,
		BInt:   ec.BInt,
		A:      ec.A,
		Z:      cfg.Z(),
		PsiSO:  ec.PsiSO.Source(),
		HGuess: ec.HGuess,
		NZ:     ec.NZ,
	}
	if ec.Kappa.isSet() {
		kappa, err := ec.Kappa.Source()
		if err != nil {
			return nil, err
		}
		ecfg.Kappa = kappa
	}
	return equilibrium.New(ecfg)
}
