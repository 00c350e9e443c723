package circulation_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mfjansen/mocsim/internal/circulation"
	"github.com/mfjansen/mocsim/internal/ocean"
)

var _ = Describe("Residual", func() {
	z := ocean.Linspace(-4000, 0, 81)
	y := ocean.Linspace(0, 2e6, 51)
	section := func(y float64) float64 { return -0.002 + 0.011*y/1e6 }
	basin := func(z float64) float64 { return 0.02*math.Exp(z/500) - 0.002 }

	config := func() circulation.ResidualConfig {
		return circulation.ResidualConfig{
			Z:   z,
			Y:   y,
			BS:  ocean.Func(section, nil),
			Tau: ocean.Const(0.1),
			L:   1e7,
			K:   1000,
			B:   ocean.Func(basin, nil),
		}
	}

	Describe("outcrops and slopes", func() {
		var r *circulation.Residual

		BeforeEach(func() {
			var err error
			r, err = circulation.NewResidual(config())
			Expect(err).NotTo(HaveOccurred())
		})

		It("inverts the surface section", func() {
			Expect(r.Outcrop(0.009)).To(BeNumerically("~", 1e6, 1e-3))
			Expect(r.Outcrop(-0.002)).To(BeNumerically("~", 0, 1e-6))
		})

		It("handles layers outside the surface range", func() {
			Expect(r.Outcrop(0.05)).To(Equal(y[len(y)-1]))
			Expect(r.Outcrop(-0.01)).To(Equal(0.0))
		})

		It("bounds the isopycnal slope", func() {
			Expect(r.Slope(-4000, 1.5e6)).To(BeNumerically("~", -0.008, 1e-12))
			Expect(r.Slope(-4000, 1.9e6)).To(Equal(-circulation.DefaultSMax))
			Expect(r.Slope(-100, y[len(y)-1])).To(BeZero())
		})
	})

	It("relaxes a uniform Ekman transport to zero at the boundaries", func() {
		cfg := config()
		cfg.K = 0
		r, err := circulation.NewResidual(cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(r.Solve()).To(Succeed())

		ekman := 1e7 * 0.1 / (circulation.DefaultRho * circulation.DefaultSOF) * 1e-6
		for _, v := range r.PsiEkman() {
			Expect(v).To(BeNumerically("~", ekman, 1e-9))
		}
		for _, v := range r.PsiEddy() {
			Expect(v).To(BeZero())
		}

		psi := r.Psi()
		Expect(psi[0]).To(BeNumerically("~", 0, 1e-5))
		Expect(psi[len(psi)-1]).To(BeNumerically("~", 0, 1e-5))
		Expect(psi[40]).To(BeNumerically("~", ekman, 1e-3*ekman))
	})

	It("opposes the wind with eddy transport on sloping layers", func() {
		cfg := config()
		cfg.Tau = ocean.Const(0)
		r, err := circulation.NewResidual(cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(r.Solve()).To(Succeed())

		for _, v := range r.PsiEddy() {
			Expect(v).To(BeNumerically("<=", 0))
		}
		Expect(r.Psi()[20]).To(BeNumerically("<", 0))
	})

	It("follows basin updates", func() {
		r, err := circulation.NewResidual(config())
		Expect(err).NotTo(HaveOccurred())
		Expect(r.Solve()).To(Succeed())
		before := r.Psi()

		Expect(r.Update(ocean.Sample(z, func(z float64) float64 { return basin(z) + 0.005 }))).To(Succeed())
		Expect(r.Solve()).To(Succeed())
		Expect(r.Psi()).NotTo(Equal(before))

		Expect(r.Update(ocean.Profile{0, 1})).To(MatchError(ocean.ErrLength))
	})

	It("keeps the previous transports when a solve fails", func() {
		stress := 0.1
		cfg := config()
		cfg.Tau = ocean.Func(func(float64) float64 { return stress }, nil)
		r, err := circulation.NewResidual(cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(r.Solve()).To(Succeed())
		psi, ekman, eddy := r.Psi(), r.PsiEkman(), r.PsiEddy()

		stress = math.NaN()
		Expect(r.Solve()).NotTo(Succeed())
		Expect(r.Psi()).To(Equal(psi))
		Expect(r.PsiEkman()).To(Equal(ekman))
		Expect(r.PsiEddy()).To(Equal(eddy))
	})

	It("validates its parameters", func() {
		cfg := config()
		cfg.L = 0
		_, err := circulation.NewResidual(cfg)
		Expect(err).To(MatchError(ocean.ErrNonPositive))

		cfg = config()
		cfg.BS = ocean.Source{}
		_, err = circulation.NewResidual(cfg)
		Expect(err).To(MatchError(ocean.ErrConfig))

		cfg = config()
		cfg.Y = []float64{0, 1e6, 5e5}
		_, err = circulation.NewResidual(cfg)
		Expect(err).To(MatchError(ocean.ErrNonMonotonic))
	})
})
