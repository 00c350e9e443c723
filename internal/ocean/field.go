package ocean

import (
	"math"

	"gonum.org/v1/gonum/interp"
)

type sourceKind int

const (
	sourceUnset sourceKind = iota
	sourceConst
	sourceSamples
	sourceFunc
)

// Source is an unnormalised field input: a scalar, an array aligned to the
// grid it will be normalised against, or a function of depth with an
// optional derivative.
type Source struct {
	kind   sourceKind
	value  float64
	values []float64
	fn     func(z float64) float64
	dfn    func(z float64) float64
}

func Const(v float64) Source { return Source{kind: sourceConst, value: v} }

func Samples(v []float64) Source {
	c := make([]float64, len(v))
	copy(c, v)
	return Source{kind: sourceSamples, values: c}
}

// Func wraps fn; dfn may be nil, in which case the slope is synthesised from
// the first two grid points.
func Func(fn, dfn func(z float64) float64) Source {
	return Source{kind: sourceFunc, fn: fn, dfn: dfn}
}

// IsSet reports whether the source was given at all.
func (s Source) IsSet() bool { return s.kind != sourceUnset }

// Field is a normalised function of depth. Eval and Slope take a scale
// factor: the field is evaluated at depth z*scale, which lets solvers work
// in a stretched coordinate without rebuilding the field.
type Field struct {
	value func(z float64) float64
	slope func(z float64) float64
	kind  sourceKind
}

// Normalize turns s into a Field on grid g. An unset source becomes the
// zero field.
//
// Sampled fields interpolate linearly and clamp beyond the grid ends. Their
// slope, like that of a function given without a derivative, is the single
// finite difference between the first two grid points held flat everywhere.
func Normalize(s Source, g Grid) (Field, error) {
	switch s.kind {
	case sourceUnset:
		return constField(0), nil
	case sourceConst:
		return constField(s.value), nil
	case sourceSamples:
		if len(s.values) != len(g) {
			return Field{}, Configf("field", ErrLength, "has %d samples for a %d point grid", len(s.values), len(g))
		}
		var pl interp.PiecewiseLinear
		if err := pl.Fit(g, s.values); err != nil {
			return Field{}, Configf("field", err, "cannot interpolate samples")
		}
		d := (s.values[1] - s.values[0]) / (g[1] - g[0])
		return Field{
			value: pl.Predict,
			slope: func(float64) float64 { return d },
			kind:  sourceSamples,
		}, nil
	case sourceFunc:
		if s.fn == nil {
			return Field{}, Configf("field", nil, "function source without a function")
		}
		slope := s.dfn
		if slope == nil {
			d := (s.fn(g[1]) - s.fn(g[0])) / (g[1] - g[0])
			slope = func(float64) float64 { return d }
		}
		return Field{value: s.fn, slope: slope, kind: sourceFunc}, nil
	}
	return Field{}, Configf("field", nil, "unknown source kind %d", s.kind)
}

func constField(v float64) Field {
	return Field{
		value: func(float64) float64 { return v },
		slope: func(float64) float64 { return 0 },
		kind:  sourceConst,
	}
}

// Eval returns the field at depth z*scale.
func (f Field) Eval(z, scale float64) float64 { return f.value(z * scale) }

// Slope returns the vertical derivative of the field at depth z*scale.
func (f Field) Slope(z, scale float64) float64 { return f.slope(z * scale) }

// At returns the field at depth z.
func (f Field) At(z float64) float64 { return f.value(z) }

// IsConst reports whether the field came from a scalar.
func (f Field) IsConst() bool { return f.kind == sourceConst }

// OnGrid samples the field at every node of g.
func (f Field) OnGrid(g Grid) Profile { return Sample(g, f.value) }

// Positive checks that the field is finite and strictly positive at every
// node of g, as required of a diffusivity.
func (f Field) Positive(name string, g Grid) error {
	for i, z := range g {
		v := f.value(z)
		if math.IsNaN(v) || v <= 0 {
			return Configf(name, ErrNonPositive, "value %g at z[%d]=%g", v, i, z)
		}
	}
	return nil
}
