package coupling_test

import (
	"context"
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mfjansen/mocsim/internal/circulation"
	"github.com/mfjansen/mocsim/internal/column"
	"github.com/mfjansen/mocsim/internal/coupling"
	"github.com/mfjansen/mocsim/internal/ocean"
)

const year = 360 * 86400.0

var grid = ocean.Linspace(-4000, 0, 41)

func newColumn(surface float64, area float64) *column.Column {
	col, err := column.New(column.Config{
		Z:       grid,
		Kappa:   ocean.Const(2e-5),
		Area:    area,
		Surface: column.Value(surface),
		Bottom:  column.Flux(0),
		N2Min:   2e-7,
		Initial: ocean.Func(func(z float64) float64 { return surface*math.Exp(z/500) - 0.001 }, nil),
	})
	Expect(err).NotTo(HaveOccurred())
	return col
}

// constLink feeds a fixed transport into one column.
type constLink struct {
	name    string
	column  string
	psi     float64
	refresh error
	calls   int
}

func (l *constLink) Name() string      { return l.name }
func (l *constLink) Columns() []string { return []string{l.column} }
func (l *constLink) Refresh(map[string]ocean.Profile) error {
	l.calls++
	return l.refresh
}
func (l *constLink) Contribution(col string) ocean.Profile {
	if col != l.column {
		return nil
	}
	p := make(ocean.Profile, len(grid))
	for i := range p {
		p[i] = l.psi
	}
	return p
}
func (l *constLink) Psi() ocean.Profile { return l.Contribution(l.column) }

var _ = Describe("Driver", func() {
	var d *coupling.Driver

	BeforeEach(func() {
		var err error
		d, err = coupling.New(coupling.Options{Dt: 30 * 86400, UpdateEvery: 3, Logger: quietLogger()})
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("construction", func() {
		It("rejects a non-positive time step", func() {
			_, err := coupling.New(coupling.Options{Dt: 0})
			Expect(err).To(MatchError(ocean.ErrNonPositive))
		})

		It("rejects a negative refresh cadence", func() {
			_, err := coupling.New(coupling.Options{Dt: 1, UpdateEvery: -2})
			Expect(err).To(MatchError(ocean.ErrConfig))
		})

		It("rejects duplicate columns and unknown link endpoints", func() {
			Expect(d.AddColumn("basin", newColumn(0.02, 6e13), false)).To(Succeed())
			Expect(d.AddColumn("basin", newColumn(0.02, 6e13), false)).To(MatchError(ocean.ErrConfig))
			Expect(d.AddLink(&constLink{name: "x", column: "north"})).To(MatchError(ocean.ErrConfig))
		})

		It("rejects columns on a different grid", func() {
			Expect(d.AddColumn("basin", newColumn(0.02, 6e13), false)).To(Succeed())
			other, err := column.New(column.Config{
				Z:     ocean.Linspace(-3000, 0, 41),
				Kappa: ocean.Const(1e-5),
				Area:  1e13,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(d.AddColumn("other", other, false)).To(MatchError(ocean.ErrConfig))
		})

		It("refuses to run without columns", func() {
			_, err := d.RunTransient(context.Background(), 1)
			Expect(err).To(MatchError(ocean.ErrConfig))
		})
	})

	Describe("Advance", func() {
		It("keeps the refresh cadence across calls", func() {
			link := &constLink{name: "up", column: "basin", psi: 1}
			Expect(d.AddColumn("basin", newColumn(0.02, 6e13), false)).To(Succeed())
			Expect(d.AddLink(link)).To(Succeed())

			Expect(d.Advance(context.Background(), 2)).To(Succeed())
			Expect(link.calls).To(Equal(1))
			Expect(d.Advance(context.Background(), 2)).To(Succeed())
			Expect(link.calls).To(Equal(2))
			Expect(d.Steps()).To(Equal(4))
		})
	})

	Describe("a two-column thermal wind run", func() {
		var (
			tw        *circulation.ThermalWind
			snapshots []coupling.Snapshot
		)

		BeforeEach(func() {
			Expect(d.AddColumn("basin", newColumn(0.02, 6e13), false)).To(Succeed())
			Expect(d.AddColumn("north", newColumn(0.002, 5e12), true)).To(Succeed())

			var err error
			tw, err = circulation.NewThermalWind(circulation.ThermalWindConfig{Z: grid})
			Expect(err).NotTo(HaveOccurred())
			Expect(d.AddLink(&coupling.ThermalWindLink{Label: "amoc", Solver: tw, South: "basin", North: "north", Isopycnal: true})).To(Succeed())

			snapshots = nil
			d.AddObserver(coupling.ObserverFunc(func(s coupling.Snapshot) {
				snapshots = append(snapshots, s)
			}))
		})

		It("steps every column and refreshes on the configured cadence", func() {
			res, err := d.RunTransient(context.Background(), 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Mode).To(Equal(coupling.Transient))
			Expect(res.StepsTaken).To(Equal(10))
			Expect(res.Refreshes).To(Equal(1 + 10/3))
			Expect(d.Time()).To(Equal(10 * 30 * 86400.0))

			Expect(snapshots).To(HaveLen(10))
			for i, s := range snapshots {
				Expect(s.Step).To(Equal(i + 1))
			}
		})

		It("diagnoses a positive overturning from a dense northern column", func() {
			res, err := d.RunTransient(context.Background(), 1)
			Expect(err).NotTo(HaveOccurred())
			amoc, ok := res.Final.Link("amoc")
			Expect(ok).To(BeTrue())
			Expect(amoc.Psi[20]).To(BeNumerically(">", 0))
		})

		It("hands out copies", func() {
			res, err := d.RunTransient(context.Background(), 2)
			Expect(err).NotTo(HaveOccurred())

			basin, ok := res.Final.Column("basin")
			Expect(ok).To(BeTrue())
			basin.B[5] = 1e9
			col, _ := d.Column("basin")
			Expect(col.B()[5]).NotTo(Equal(1e9))
		})

		It("keeps the northern column statically stable", func() {
			_, err := d.RunEquilibrium(context.Background(), 24)
			Expect(err).NotTo(HaveOccurred())
			north, _ := d.Column("north")
			Expect(north.B().IsStable(1e-12)).To(BeTrue())
		})

		It("stops when the context is cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			res, err := d.RunTransient(ctx, 5)
			Expect(err).To(MatchError(context.Canceled))
			Expect(res.StepsTaken).To(BeZero())
		})
	})

	Describe("failures", func() {
		BeforeEach(func() {
			Expect(d.AddColumn("basin", newColumn(0.02, 6e13), false)).To(Succeed())
		})

		It("aborts on a failing link", func() {
			boom := errors.New("boom")
			Expect(d.AddLink(&constLink{name: "bad", column: "basin", refresh: boom})).To(Succeed())
			_, err := d.RunTransient(context.Background(), 3)

			var stepErr *coupling.StepError
			Expect(errors.As(err, &stepErr)).To(BeTrue())
			Expect(stepErr.Link).To(Equal("bad"))
			Expect(err).To(MatchError(boom))
		})

		It("aborts on a numerical failure in a column", func() {
			Expect(d.AddLink(&constLink{name: "nan", column: "basin", psi: math.NaN()})).To(Succeed())
			res, err := d.RunTransient(context.Background(), 3)

			var stepErr *coupling.StepError
			Expect(errors.As(err, &stepErr)).To(BeTrue())
			Expect(stepErr.Column).To(Equal("basin"))
			Expect(ocean.IsNumerical(err)).To(BeTrue())
			Expect(res.StepsTaken).To(BeZero())
		})
	})

	It("conserves buoyancy in an isolated insulated column", func() {
		col, err := column.New(column.Config{
			Z:       grid,
			Kappa:   ocean.Const(1e-4),
			Area:    1e13,
			Surface: column.Flux(0),
			Bottom:  column.Flux(0),
			Initial: ocean.Func(func(z float64) float64 { return 0.01 * math.Cos(z/700) }, nil),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(d.AddColumn("box", col, true)).To(Succeed())
		before := col.Content()

		_, err = d.RunTransient(context.Background(), int(10*year/(30*86400)))
		Expect(err).NotTo(HaveOccurred())
		Expect(col.Content()).To(BeNumerically("~", before, 1e-10*math.Max(1, math.Abs(before))))
	})
})
