package equilibrium_test

import (
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mfjansen/mocsim/internal/equilibrium"
	"github.com/mfjansen/mocsim/internal/ocean"
)

func ptr(v float64) *float64 { return &v }

func fluxConfig() equilibrium.Config {
	return equilibrium.Config{
		Z:     ocean.Linspace(-4000, 0, 80),
		BInt:  ptr(3e3),
		A:     2e14,
		Kappa: ocean.Const(3e-5),
	}
}

var _ = Describe("Solver", func() {
	Describe("New", func() {
		It("requires a bottom boundary condition", func() {
			cfg := fluxConfig()
			cfg.BInt = nil
			_, err := equilibrium.New(cfg)
			Expect(err).To(MatchError("You need to specify either b_bot or B_int for bottom boundary condition"))
			Expect(errors.Is(err, ocean.ErrConfig)).To(BeTrue())
		})

		It("rejects both bottom conditions at once", func() {
			cfg := fluxConfig()
			cfg.BBot = ptr(-0.001)
			_, err := equilibrium.New(cfg)
			Expect(err).To(MatchError(ocean.ErrConfig))
		})

		It("rejects a non-positive diffusivity", func() {
			cfg := fluxConfig()
			cfg.Kappa = ocean.Func(func(z float64) float64 { return z * 1e-8 }, nil)
			_, err := equilibrium.New(cfg)
			Expect(err).To(MatchError(ocean.ErrNonPositive))
		})

		It("builds the normalised collocation mesh", func() {
			s, err := equilibrium.New(fluxConfig())
			Expect(err).NotTo(HaveOccurred())

			zeta := s.Zeta()
			Expect(zeta).To(HaveLen(equilibrium.DefaultNZ))
			for i, v := range zeta {
				Expect(v).To(BeNumerically("~", float64(i)/float64(len(zeta)-1)-1, 1e-15))
			}
		})

		It("uses the default grid when none is given", func() {
			s, err := equilibrium.New(equilibrium.Config{BBot: ptr(-0.002)})
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Z()).To(HaveLen(80))
			Expect(s.Z().Bottom()).To(Equal(-4000.0))
		})
	})

	Describe("scalings", func() {
		var s *equilibrium.Solver

		BeforeEach(func() {
			var err error
			s, err = equilibrium.New(fluxConfig())
			Expect(err).NotTo(HaveOccurred())
		})

		It("computes the advective scaling", func() {
			Expect(s.Alpha(-0.5, 1200)).To(BeNumerically("~", 1200.0*1200/(2e14*3e-5), 1e-12))
		})

		It("computes the bottom stratification of the flux condition", func() {
			Expect(s.FluxGradient(1200)).To(BeNumerically("~", 3e3/(2e14*3e-5), 1e-18))
		})

		It("reports NaN for the flux gradient under a fixed bottom buoyancy", func() {
			fixed, err := equilibrium.New(equilibrium.Config{BBot: ptr(-0.002)})
			Expect(err).NotTo(HaveOccurred())
			Expect(math.IsNaN(fixed.FluxGradient(1000))).To(BeTrue())
		})

		It("returns nothing before solving", func() {
			Expect(s.Solved()).To(BeFalse())
			Expect(s.B()).To(BeNil())
			Expect(s.Psi()).To(BeNil())
		})
	})

	Describe("Solve with a bottom flux condition", func() {
		var s *equilibrium.Solver

		BeforeEach(func() {
			var err error
			s, err = equilibrium.New(fluxConfig())
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Solve()).To(Succeed())
		})

		It("finds a finite cell depth", func() {
			Expect(s.H()).To(BeNumerically(">", 0))
			Expect(math.IsInf(s.H(), 0)).To(BeFalse())
		})

		It("meets the surface and bottom conditions", func() {
			b := s.B()
			Expect(b[len(b)-1]).To(BeNumerically("~", equilibrium.DefaultBS, 1e-6))

			fg := s.FluxGradient(s.H())
			Expect(s.BottomGradient()).To(BeNumerically("~", fg, 1e-3*fg))
		})

		It("closes the overturning at the surface", func() {
			psi := s.Psi()
			Expect(psi[len(psi)-1]).To(BeNumerically("~", 0, 1e-2))
		})
	})

	Describe("Solve on a grid deeper than the cell", func() {
		var s *equilibrium.Solver

		BeforeEach(func() {
			cfg := fluxConfig()
			cfg.Z = deepGrid()
			var err error
			s, err = equilibrium.New(cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Solve()).To(Succeed())
		})

		It("zeroes the overturning below the cell", func() {
			psi := s.Psi()
			below := belowCell(s)
			Expect(below).NotTo(BeEmpty())
			for _, i := range below {
				Expect(psi[i]).To(BeZero())
			}
		})

		It("holds buoyancy at its cell-bottom value below the cell", func() {
			b := s.B()
			below := belowCell(s)
			Expect(below).NotTo(BeEmpty())
			for _, i := range below {
				Expect(b[i]).To(Equal(b[below[0]]))
			}
		})
	})

	Describe("Solve with a fixed bottom buoyancy", func() {
		var s *equilibrium.Solver

		BeforeEach(func() {
			var err error
			s, err = equilibrium.New(equilibrium.Config{
				Z:     deepGrid(),
				BBot:  ptr(-0.002),
				A:     2e14,
				Kappa: ocean.Const(3e-5),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Solve()).To(Succeed())
		})

		It("meets the bottom buoyancy at the cell bottom", func() {
			b := s.B()
			below := belowCell(s)
			Expect(below).NotTo(BeEmpty())
			Expect(b[below[0]]).To(BeNumerically("~", -0.002, 1e-6))
			Expect(b[len(b)-1]).To(BeNumerically("~", equilibrium.DefaultBS, 1e-6))
		})

		It("is stably stratified", func() {
			Expect(s.B().IsStable(1e-9)).To(BeTrue())
			Expect(s.BottomGradient()).To(BeNumerically(">", 0))
		})
	})

	Describe("Solve with a depth-dependent diffusivity", func() {
		// kappa grows linearly with depth from 1e-5 at the surface, so
		// samples, a bare function and a function with its derivative all
		// describe the same field and slope wherever the cell ends.
		linear := func(z float64) float64 { return 1e-5 - 2e-5*z/4000 }
		slope := func(float64) float64 { return -2e-5 / 4000 }

		solveWith := func(kappa ocean.Source) *equilibrium.Solver {
			cfg := fluxConfig()
			cfg.Z = deepGrid()
			cfg.Kappa = kappa
			s, err := equilibrium.New(cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Solve()).To(Succeed())
			return s
		}

		It("agrees between samples and function forms", func() {
			withSlope := solveWith(ocean.Func(linear, slope))
			samples := solveWith(ocean.Samples(ocean.Sample(deepGrid(), linear)))
			bare := solveWith(ocean.Func(linear, nil))

			h := withSlope.H()
			Expect(h).To(BeNumerically(">", 0))
			Expect(samples.H()).To(BeNumerically("~", h, 1e-4*h))
			Expect(bare.H()).To(BeNumerically("~", h, 1e-4*h))
		})

		It("meets the flux condition with the diffusivity at the cell bottom", func() {
			s := solveWith(ocean.Samples(ocean.Sample(deepGrid(), linear)))
			fg := s.FluxGradient(s.H())
			want := 3e3 / (2e14 * linear(-s.H()))
			Expect(fg).To(BeNumerically("~", want, 1e-6*want))
			Expect(s.BottomGradient()).To(BeNumerically("~", fg, 1e-3*fg))
		})
	})

	Describe("Solve with Southern Ocean inflow", func() {
		It("deepens the cell", func() {
			base, err := equilibrium.New(fluxConfig())
			Expect(err).NotTo(HaveOccurred())
			Expect(base.Solve()).To(Succeed())

			cfg := fluxConfig()
			cfg.PsiSO = ocean.Const(5)
			withSO, err := equilibrium.New(cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(withSO.Solve()).To(Succeed())

			Expect(withSO.H()).To(BeNumerically(">", base.H()))
			b := withSO.B()
			Expect(b[len(b)-1]).To(BeNumerically("~", equilibrium.DefaultBS, 1e-6))
			Expect(withSO.BottomGradient()).To(BeNumerically("~", withSO.FluxGradient(withSO.H()), 1e-3*withSO.FluxGradient(withSO.H())))
		})
	})
})

func deepGrid() []float64 { return ocean.Linspace(-8000, 0, 161) }

// belowCell returns the grid indices strictly below -H, deepest first.
func belowCell(s *equilibrium.Solver) []int {
	var idx []int
	for i, z := range s.Z() {
		if z < -s.H() {
			idx = append(idx, i)
		}
	}
	return idx
}
