package config

import (
	"math"

	"github.com/mfjansen/mocsim/internal/ocean"
)

// kappaFloor keeps tapered diffusivities strictly positive at the floor.
const kappaFloor = 1e-7

// Named diffusivity profiles (m^2/s) as functions of depth.
var kappaProfiles = map[string]func(z float64) float64{
	// Effective diffusivity diagnosed from a GCM, tapered to zero over the
	// deepest 600 m of a 4000 m ocean.
	"tapered": func(z float64) float64 {
		taper := 1 - math.Max(-4000-z+600, 0)/600
		return math.Max(gcmKappa(z)*taper*taper, kappaFloor)
	},
	"gcm": gcmKappa,
	// Background plus surface- and bottom-intensified mixing.
	"exponential": func(z float64) float64 {
		return 2e-5 + 1e-4*math.Exp(z/100) + 1e-3*math.Exp(-z/1000-4)
	},
}

func gcmKappa(z float64) float64 {
	return 1e-4 * (1.1 - math.Tanh(math.Max(z+2000, 0)/1000+math.Min(z+2000, 0)/1300))
}

func (k KappaConfig) isSet() bool {
	return k.Profile != "" || len(k.Samples) > 0 || k.Value != 0
}

// Source converts the diffusivity selection into a field source.
func (k KappaConfig) Source() (ocean.Source, error) {
	switch {
	case k.Profile != "":
		fn, ok := kappaProfiles[k.Profile]
		if !ok {
			return ocean.Source{}, ocean.Configf("kappa.profile", nil, "unknown profile %q", k.Profile)
		}
		return ocean.Func(fn, nil), nil
	case len(k.Samples) > 0:
		return ocean.Samples(k.Samples), nil
	case k.Value != 0:
		return ocean.Const(k.Value), nil
	}
	return ocean.Source{}, ocean.Configf("kappa", nil, "no diffusivity given")
}

// Source converts the overturning into a field source. Samples win over
// the constant.
func (o OverturningConfig) Source() ocean.Source {
	if len(o.Samples) > 0 {
		return ocean.Samples(o.Samples)
	}
	return ocean.Const(o.Value)
}

// Profile samples the initial buoyancy on z.
func (in InitConfig) Profile(z ocean.Grid) ocean.Profile {
	efold := in.EFold
	if efold == 0 {
		efold = DefaultEFold
	}
	zb := z.Bottom()
	return ocean.Sample(z, func(zz float64) float64 {
		return in.Surface*math.Exp(zz/efold) + zz/zb*in.Bottom
	})
}

// Grid is the meridional coordinate of the section.
func (s SectionConfig) Grid() ocean.Grid {
	return ocean.Linspace(0, s.Length, s.Points)
}

// Buoyancy samples the surface buoyancy across the section.
func (s SectionConfig) Buoyancy() ([]float64, error) {
	if s.Points < 2 || !(s.Length > 0) {
		return nil, ocean.Configf("section", nil, "need a positive length and at least 2 points")
	}
	if len(s.Samples) > 0 {
		if len(s.Samples) != s.Points {
			return nil, ocean.Configf("section.samples", ocean.ErrLength, "has %d values for %d points", len(s.Samples), s.Points)
		}
		return append([]float64(nil), s.Samples...), nil
	}

	y := s.Grid()
	out := make([]float64, len(y))
	switch s.Profile {
	case "", "linear":
		for i, yy := range y {
			out[i] = s.South + (s.North-s.South)*yy/s.Length
		}
	case "nadeau-jansen":
		for i, yy := range y {
			out[i] = nadeauJansen(yy, s.BAABW)
		}
	default:
		return nil, ocean.Configf("section.profile", nil, "unknown profile %q", s.Profile)
	}
	return out, nil
}

// nadeauJansen is a cosine rise north of the sea-ice edge at 555 km joined
// to a linear ramp down to bAABW at the southern boundary.
func nadeauJansen(y, bAABW float64) float64 {
	const edge = 5.55e5
	rise := func(y float64) float64 { return 0.0345 * (1 - math.Cos(math.Pi*(y-1e5)/8e6)) }
	if y > edge {
		return rise(y)
	}
	offset := rise(edge)
	return (bAABW-offset)/edge*(edge-y) + offset
}
