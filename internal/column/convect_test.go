package column

import (
	"math"
	"testing"

	"github.com/mfjansen/mocsim/internal/ocean"
)

func TestConvect(t *testing.T) {
	tests := []struct {
		name  string
		n2min float64
		b     func(z float64) float64
	}{
		{"unstable surface layer", 0, func(z float64) float64 { return math.Max(z, -0.3) - 2*math.Max(z+0.1, 0) }},
		{"overturned column", 0, func(z float64) float64 { return -z }},
		{"oscillating", 0, func(z float64) float64 { return 0.1*z + 0.05*math.Sin(40*z) }},
		{"minimum stratification", 0.2, func(z float64) float64 { return 0.1 * math.Cos(9*z) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(Config{
				Z:       ocean.Linspace(-1, 0, 41),
				Kappa:   ocean.Const(1),
				Area:    1,
				Surface: Flux(0),
				Bottom:  Flux(0),
				N2Min:   tt.n2min,
				Initial: ocean.Func(tt.b, nil),
			})
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}
			before := c.Content()

			c.Convect()
			once := c.B()

			z := c.Z()
			for i := 1; i < len(once); i++ {
				if dbdz := (once[i] - once[i-1]) / (z[i] - z[i-1]); dbdz < tt.n2min-1e-9 {
					t.Errorf("unstable at %d: db/dz = %v", i, dbdz)
				}
			}
			if diff := math.Abs(c.Content() - before); diff > 1e-12 {
				t.Errorf("content changed by %v", diff)
			}

			c.Convect()
			for i, v := range c.B() {
				if math.Abs(v-once[i]) > 1e-14 {
					t.Errorf("second pass moved node %d by %v", i, v-once[i])
				}
			}
		})
	}
}

func TestConvect_StableProfileUntouched(t *testing.T) {
	c := unitColumn(t, Value(0), Flux(0), func(z float64) float64 { return z })
	before := c.B()
	c.Convect()
	for i, v := range c.B() {
		if v != before[i] {
			t.Fatalf("stable profile modified at node %d", i)
		}
	}
}

func TestStep_WithConvection(t *testing.T) {
	c := unitColumn(t, Value(1), Flux(0), func(z float64) float64 { return -z })
	if err := c.Step(zeros(len(c.Z())), 1e-4, true); err != nil {
		t.Fatalf("step failed: %v", err)
	}
	if !c.B().IsStable(1e-12) {
		t.Errorf("profile still unstable after convective step: %v", c.B())
	}
}
