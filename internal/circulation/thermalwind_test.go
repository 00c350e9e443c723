package circulation_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mfjansen/mocsim/internal/circulation"
	"github.com/mfjansen/mocsim/internal/ocean"
)

var _ = Describe("ThermalWind", func() {
	z := ocean.Linspace(-4000, 0, 81)
	basin := func(z float64) float64 { return 0.02*math.Exp(z/300) - 0.001 }

	It("gives no overturning between identical columns", func() {
		tw, err := circulation.NewThermalWind(circulation.ThermalWindConfig{
			Z:  z,
			B1: ocean.Func(basin, nil),
			B2: ocean.Func(basin, nil),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(tw.Solve()).To(Succeed())
		for _, v := range tw.Psi() {
			Expect(v).To(BeZero())
		}
	})

	It("reproduces the parabolic profile of a uniform buoyancy difference", func() {
		tw, err := circulation.NewThermalWind(circulation.ThermalWindConfig{
			Z:  z,
			F:  1e-4,
			B1: ocean.Const(0.01),
			B2: ocean.Const(0),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(tw.Solve()).To(Succeed())

		psi := tw.Psi()
		for i, zi := range z {
			want := -0.01 / (2 * 1e-4) * (zi + 4000) * zi * 1e-6
			Expect(psi[i]).To(BeNumerically("~", want, 1e-6*200))
		}
		Expect(psi[40]).To(BeNumerically("~", 200, 1e-4))
	})

	It("scales with the width", func() {
		cfg := circulation.ThermalWindConfig{Z: z, B1: ocean.Func(basin, nil), B2: ocean.Const(0)}
		narrow, err := circulation.NewThermalWind(cfg)
		Expect(err).NotTo(HaveOccurred())
		cfg.Width = 3
		wide, err := circulation.NewThermalWind(cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(narrow.Solve()).To(Succeed())
		Expect(wide.Solve()).To(Succeed())

		pn, pw := narrow.Psi(), wide.Psi()
		for i := range pn {
			Expect(pw[i]).To(BeNumerically("~", 3*pn[i], 1e-9*math.Max(1, math.Abs(pn[i]))))
		}
	})

	Describe("isopycnal mapping", func() {
		var tw *circulation.ThermalWind

		BeforeEach(func() {
			var err error
			tw, err = circulation.NewThermalWind(circulation.ThermalWindConfig{
				Z:  z,
				B1: ocean.Func(basin, nil),
				B2: ocean.Func(func(z float64) float64 { return 0.3*basin(z) - 0.0005 }, nil),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(tw.Solve()).To(Succeed())
		})

		It("closes at both ends of the buoyancy grid", func() {
			bgrid, psib := tw.Psib(200)
			Expect(bgrid).To(HaveLen(200))
			Expect(psib[0]).To(BeNumerically("~", 0, 1e-9))
			Expect(psib[len(psib)-1]).To(BeNumerically("~", 0, 1e-9))
		})

		It("maps back onto each column", func() {
			psi1, psi2, err := tw.PsibZ(ocean.DefaultBuoyancyLevels)
			Expect(err).NotTo(HaveOccurred())
			Expect(psi1).To(HaveLen(len(z)))
			Expect(psi2).To(HaveLen(len(z)))
			Expect(psi1.IsValid()).To(BeTrue())
			Expect(psi2.IsValid()).To(BeTrue())
		})
	})

	It("rejects mismatched profiles", func() {
		tw, err := circulation.NewThermalWind(circulation.ThermalWindConfig{Z: z})
		Expect(err).NotTo(HaveOccurred())
		Expect(tw.Update(ocean.Profile{1, 2, 3}, nil)).To(MatchError(ocean.ErrLength))

		_, err = circulation.NewThermalWind(circulation.ThermalWindConfig{Z: z, B1: ocean.Samples([]float64{1, 2})})
		Expect(err).To(MatchError(ocean.ErrLength))
	})

	It("keeps the profile it was not given", func() {
		tw, err := circulation.NewThermalWind(circulation.ThermalWindConfig{Z: z, B2: ocean.Const(0.5)})
		Expect(err).NotTo(HaveOccurred())
		Expect(tw.Update(make(ocean.Profile, len(z)), nil)).To(Succeed())
		Expect(tw.B2()[10]).To(Equal(0.5))
	})
})
