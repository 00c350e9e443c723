package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/mfjansen/mocsim/internal/ocean"
	"gopkg.in/yaml.v3"
)

const (
	Day  = 86400.0
	Year = 360 * Day

	DefaultDt          = 30 * Day
	DefaultSteps       = 1200
	DefaultUpdateEvery = 12
	DefaultBottom      = -4000.0
	DefaultPoints      = 80
	DefaultEFold       = 300.0
)

type Config struct {
	Mode        string              `yaml:"mode" toml:"mode"`
	Dt          float64             `yaml:"dt" toml:"dt"`
	Steps       int                 `yaml:"steps" toml:"steps"`
	UpdateEvery int                 `yaml:"update_every" toml:"update_every"`
	Grid        GridConfig          `yaml:"grid" toml:"grid"`
	Columns     []ColumnConfig      `yaml:"columns" toml:"columns"`
	ThermalWind []ThermalWindConfig `yaml:"thermal_wind,omitempty" toml:"thermal_wind,omitempty"`
	Residual    []ResidualConfig    `yaml:"residual,omitempty" toml:"residual,omitempty"`
	Equilibrium *EquilibriumConfig  `yaml:"equilibrium,omitempty" toml:"equilibrium,omitempty"`
}

type GridConfig struct {
	Bottom float64 `yaml:"bottom" toml:"bottom"`
	Points int     `yaml:"points" toml:"points"`
}

// KappaConfig selects a diffusivity: a named profile, samples on the grid,
// or a constant value, in that order of precedence.
type KappaConfig struct {
	Value   float64   `yaml:"value,omitempty" toml:"value,omitempty"`
	Samples []float64 `yaml:"samples,omitempty" toml:"samples,omitempty"`
	Profile string    `yaml:"profile,omitempty" toml:"profile,omitempty"`
}

// InitConfig gives the starting profile Surface*exp(z/EFold) + z/zb*Bottom
// with zb the grid bottom.
type InitConfig struct {
	Surface float64 `yaml:"surface" toml:"surface"`
	Bottom  float64 `yaml:"bottom" toml:"bottom"`
	EFold   float64 `yaml:"efold" toml:"efold"`
}

type ColumnConfig struct {
	Name string  `yaml:"name" toml:"name"`
	Area float64 `yaml:"area" toml:"area"`
	BS   float64 `yaml:"bs" toml:"bs"`
	// BBot fixes the bottom buoyancy; without it the bottom gradient BZBot
	// is imposed.
	BBot    *float64    `yaml:"b_bot,omitempty" toml:"b_bot,omitempty"`
	BZBot   float64     `yaml:"bz_bot,omitempty" toml:"bz_bot,omitempty"`
	N2Min   float64     `yaml:"n2min" toml:"n2min"`
	Convect bool        `yaml:"convect" toml:"convect"`
	Kappa   KappaConfig `yaml:"kappa" toml:"kappa"`
	Init    InitConfig  `yaml:"init" toml:"init"`
}

type ThermalWindConfig struct {
	Name      string  `yaml:"name" toml:"name"`
	South     string  `yaml:"south" toml:"south"`
	North     string  `yaml:"north" toml:"north"`
	F         float64 `yaml:"f,omitempty" toml:"f,omitempty"`
	Width     float64 `yaml:"width,omitempty" toml:"width,omitempty"`
	Isopycnal bool    `yaml:"isopycnal" toml:"isopycnal"`
	Levels    int     `yaml:"levels,omitempty" toml:"levels,omitempty"`
}

// SectionConfig is the surface buoyancy across the channel. Profile is
// "linear" (South to North) or "nadeau-jansen"; Samples override both.
type SectionConfig struct {
	Length  float64   `yaml:"length" toml:"length"`
	Points  int       `yaml:"points" toml:"points"`
	Profile string    `yaml:"profile" toml:"profile"`
	South   float64   `yaml:"south,omitempty" toml:"south,omitempty"`
	North   float64   `yaml:"north,omitempty" toml:"north,omitempty"`
	BAABW   float64   `yaml:"b_aabw,omitempty" toml:"b_aabw,omitempty"`
	Samples []float64 `yaml:"samples,omitempty" toml:"samples,omitempty"`
}

type ResidualConfig struct {
	Name    string        `yaml:"name" toml:"name"`
	Basin   string        `yaml:"basin" toml:"basin"`
	Section SectionConfig `yaml:"section" toml:"section"`
	Tau     float64       `yaml:"tau" toml:"tau"`
	L       float64       `yaml:"l" toml:"l"`
	K       float64       `yaml:"k" toml:"k"`
	F       float64       `yaml:"f,omitempty" toml:"f,omitempty"`
	Rho     float64       `yaml:"rho,omitempty" toml:"rho,omitempty"`
	SMax    float64       `yaml:"s_max,omitempty" toml:"s_max,omitempty"`
	HEk     float64       `yaml:"h_ek,omitempty" toml:"h_ek,omitempty"`
}

// OverturningConfig is a Southern Ocean overturning in Sv, either samples
// on the grid or a constant.
type OverturningConfig struct {
	Value   float64   `yaml:"value,omitempty" toml:"value,omitempty"`
	Samples []float64 `yaml:"samples,omitempty" toml:"samples,omitempty"`
}

type EquilibriumConfig struct {
	F      float64           `yaml:"f,omitempty" toml:"f,omitempty"`
	BS     float64           `yaml:"bs,omitempty" toml:"bs,omitempty"`
	BN     float64           `yaml:"bn,omitempty" toml:"bn,omitempty"`
	BBot   *float64          `yaml:"b_bot,omitempty" toml:"b_bot,omitempty"`
	BInt   *float64          `yaml:"b_int,omitempty" toml:"b_int,omitempty"`
	A      float64           `yaml:"area,omitempty" toml:"area,omitempty"`
	Kappa  KappaConfig       `yaml:"kappa" toml:"kappa"`
	PsiSO  OverturningConfig `yaml:"psi_so,omitempty" toml:"psi_so,omitempty"`
	HGuess float64           `yaml:"h_guess,omitempty" toml:"h_guess,omitempty"`
	NZ     int               `yaml:"nz,omitempty" toml:"nz,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Mode:        "transient",
		Dt:          DefaultDt,
		Steps:       DefaultSteps,
		UpdateEvery: DefaultUpdateEvery,
		Grid:        GridConfig{Bottom: DefaultBottom, Points: DefaultPoints},
	}
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// Load reads a YAML file, or TOML when the name ends in .toml. Fields
// missing from the file keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if isTOML(path) {
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	var data []byte
	if isTOML(path) {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return err
		}
		data = buf.Bytes()
	} else {
		var err error
		if data, err = yaml.Marshal(cfg); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0644)
}

// Clone returns a deep copy that shares no slices or pointers with c.
func (c *Config) Clone() *Config {
	out := *c
	out.Columns = append([]ColumnConfig(nil), c.Columns...)
	for i := range out.Columns {
		col := &out.Columns[i]
		col.BBot = clonePtr(col.BBot)
		col.Kappa.Samples = cloneFloats(col.Kappa.Samples)
	}
	out.ThermalWind = append([]ThermalWindConfig(nil), c.ThermalWind...)
	out.Residual = append([]ResidualConfig(nil), c.Residual...)
	for i := range out.Residual {
		out.Residual[i].Section.Samples = cloneFloats(out.Residual[i].Section.Samples)
	}
	if c.Equilibrium != nil {
		eq := *c.Equilibrium
		eq.BBot = clonePtr(eq.BBot)
		eq.BInt = clonePtr(eq.BInt)
		eq.Kappa.Samples = cloneFloats(eq.Kappa.Samples)
		eq.PsiSO.Samples = cloneFloats(eq.PsiSO.Samples)
		out.Equilibrium = &eq
	}
	return &out
}

func clonePtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	w := *v
	return &w
}

func cloneFloats(v []float64) []float64 {
	if v == nil {
		return nil
	}
	return append([]float64(nil), v...)
}

// Z is the uniform grid from Grid.Bottom to the surface.
func (c *Config) Z() ocean.Grid {
	return ocean.Linspace(c.Grid.Bottom, 0, c.Grid.Points)
}

// Validate checks the run parameters and the references between columns
// and links. Errors wrap ocean.ErrConfig.
func (c *Config) Validate() error {
	switch {
	case c.Mode != "transient" && c.Mode != "equilibrium":
		return ocean.Configf("mode", nil, "unknown mode %q", c.Mode)
	case !(c.Dt > 0):
		return ocean.Configf("dt", ocean.ErrNonPositive, "time step %g", c.Dt)
	case c.Steps < 0:
		return ocean.Configf("steps", nil, "step count %d is negative", c.Steps)
	case c.UpdateEvery < 1:
		return ocean.Configf("update_every", nil, "refresh cadence %d must be at least 1", c.UpdateEvery)
	case c.Grid.Points < 3:
		return ocean.Configf("grid.points", nil, "need at least 3 points, got %d", c.Grid.Points)
	case !(c.Grid.Bottom < 0):
		return ocean.Configf("grid.bottom", nil, "bottom %g must be below the surface", c.Grid.Bottom)
	case len(c.Columns) == 0:
		return ocean.Configf("columns", nil, "at least one column is required")
	}

	names := make(map[string]bool, len(c.Columns))
	for _, col := range c.Columns {
		if col.Name == "" {
			return ocean.Configf("columns", nil, "column without a name")
		}
		if names[col.Name] {
			return ocean.Configf("columns", nil, "duplicate column %q", col.Name)
		}
		names[col.Name] = true
	}
	for _, tw := range c.ThermalWind {
		for _, ref := range []string{tw.South, tw.North} {
			if !names[ref] {
				return ocean.Configf("thermal_wind", nil, "%s refers to unknown column %q", tw.Name, ref)
			}
		}
	}
	for _, r := range c.Residual {
		if !names[r.Basin] {
			return ocean.Configf("residual", nil, "%s refers to unknown column %q", r.Name, r.Basin)
		}
	}
	return nil
}
