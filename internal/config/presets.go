package config

import "sort"

// Presets builds a fresh configuration per call so callers can override
// fields freely.
var Presets = map[string]func() *Config{
	"single-basin": singleBasin,
	"two-basin":    twoBasin,
	"nadeau-jansen": nadeauJansenConfig,
}

func ptr(v float64) *float64 { return &v }

// singleBasin is one basin closed by a Southern Ocean channel, with the
// matching equilibrium problem for comparison.
func singleBasin() *Config {
	cfg := DefaultConfig()
	cfg.Columns = []ColumnConfig{{
		Name:  "basin",
		Area:  8e13,
		BS:    0.025,
		BBot:  ptr(-0.001),
		Kappa: KappaConfig{Profile: "exponential"},
		Init:  InitConfig{Surface: 0.025, Bottom: -0.001},
	}}
	cfg.Residual = []ResidualConfig{{
		Name:    "so",
		Basin:   "basin",
		Section: SectionConfig{Length: 2e6, Points: 41, Profile: "linear", South: -0.001, North: 0.025},
		Tau:     0.1,
		L:       2e7,
		K:       1000,
	}}
	cfg.Equilibrium = &EquilibriumConfig{
		BS:    0.025,
		BInt:  ptr(3e3),
		A:     2e14,
		Kappa: KappaConfig{Value: 3e-5},
	}
	return cfg
}

// twoBasin adds a convecting northern sinking region joined to the basin
// by thermal wind.
func twoBasin() *Config {
	cfg := DefaultConfig()
	cfg.Columns = []ColumnConfig{
		{
			Name:  "basin",
			Area:  7e13,
			BS:    0.02,
			BBot:  ptr(-0.001),
			Kappa: KappaConfig{Profile: "tapered"},
			Init:  InitConfig{Surface: 0.02, Bottom: -0.001},
		},
		{
			Name:    "north",
			Area:    5.5e12,
			BS:      0.00036,
			BBot:    ptr(-0.001),
			N2Min:   2e-7,
			Convect: true,
			Kappa:   KappaConfig{Profile: "tapered"},
			Init:    InitConfig{Surface: 0.02, Bottom: -0.001},
		},
	}
	cfg.ThermalWind = []ThermalWindConfig{{Name: "amoc", South: "basin", North: "north", Isopycnal: true}}
	cfg.Residual = []ResidualConfig{{
		Name:    "so",
		Basin:   "basin",
		Section: SectionConfig{Length: 2e6, Points: 41, Profile: "linear", South: -0.001, North: 0.02},
		Tau:     0.1,
		L:       1e7,
		K:       1000,
	}}
	return cfg
}

// nadeauJansenConfig is the Atlantic-Pacific configuration with a zonal
// overturning through the Southern Ocean, integrated for 10000 years.
func nadeauJansenConfig() *Config {
	const (
		bs      = 0.02
		bsNorth = 0.00036
		bAABW   = -0.0011
		lx      = 1.3e7
	)
	bbot := bAABW
	if bsNorth < bbot {
		bbot = bsNorth
	}
	basin := func(name string, area, surface float64) ColumnConfig {
		return ColumnConfig{
			Name:  name,
			Area:  area,
			BS:    surface,
			BBot:  ptr(bbot),
			N2Min: 2e-7,
			Kappa: KappaConfig{Profile: "tapered"},
			Init:  InitConfig{Surface: bs, Bottom: bbot},
		}
	}
	section := SectionConfig{Length: 3e6, Points: 51, Profile: "nadeau-jansen", BAABW: bAABW}

	cfg := DefaultConfig()
	cfg.Steps = 10000 * 12
	north := basin("north", 5.5e12, bsNorth)
	north.Convect = true
	cfg.Columns = []ColumnConfig{basin("atlantic", 7e13, bs), north, basin("pacific", 1.7e14, bs)}
	cfg.ThermalWind = []ThermalWindConfig{
		{Name: "amoc", South: "atlantic", North: "north", Isopycnal: true},
		{Name: "zoc", South: "pacific", North: "atlantic", F: 1e-4, Isopycnal: true},
	}
	cfg.Residual = []ResidualConfig{
		{Name: "so-atlantic", Basin: "atlantic", Section: section, Tau: 0.16, L: 6.0 / 21 * lx, K: 1800},
		{Name: "so-pacific", Basin: "pacific", Section: section, Tau: 0.16, L: 15.0 / 21 * lx, K: 1800},
	}
	return cfg
}

// GetPreset returns a new copy of the named preset, or nil.
func GetPreset(name string) *Config {
	build, ok := Presets[name]
	if !ok {
		return nil
	}
	return build()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
