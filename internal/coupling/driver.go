// Package coupling advances a set of columns together with the overturning
// links that connect them. Every cycle converts the last diagnosed
// transports to vertical velocities, steps every column, and every
// UpdateEvery steps re-diagnoses the transports from profile copies.
package coupling

import (
	"context"
	"fmt"

	"github.com/mfjansen/mocsim/internal/column"
	"github.com/mfjansen/mocsim/internal/ocean"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
)

type Options struct {
	// Dt is the column time step in seconds.
	Dt float64
	// UpdateEvery is the number of steps between link refreshes. Transports
	// are stale for up to UpdateEvery-1 steps.
	UpdateEvery int
	Logger      logrus.FieldLogger
}

type entry struct {
	name    string
	col     *column.Column
	convect bool
}

type Driver struct {
	opts      Options
	log       logrus.FieldLogger
	z         ocean.Grid
	columns   []entry
	links     []Link
	metrics   []Metric
	observers []Observer
	step      int
	refreshes int
	// stale counts steps since the last refresh.
	stale int
}

func New(opts Options) (*Driver, error) {
	if !(opts.Dt > 0) {
		return nil, ocean.Configf("dt", ocean.ErrNonPositive, "time step %g", opts.Dt)
	}
	if opts.UpdateEvery == 0 {
		opts.UpdateEvery = 1
	}
	if opts.UpdateEvery < 1 {
		return nil, ocean.Configf("update_every", nil, "refresh cadence %d must be at least 1", opts.UpdateEvery)
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Driver{opts: opts, log: log}, nil
}

// AddColumn registers col under name. All columns must share one grid.
func (d *Driver) AddColumn(name string, col *column.Column, convect bool) error {
	if col == nil {
		return ocean.Configf("column", nil, "column %q is nil", name)
	}
	if d.find(name) >= 0 {
		return ocean.Configf("column", nil, "duplicate column %q", name)
	}
	z := col.Z()
	if d.z == nil {
		d.z = z
	} else if !floats.Equal(z, d.z) {
		return ocean.Configf("column", nil, "column %q is not on the shared grid", name)
	}
	d.columns = append(d.columns, entry{name: name, col: col, convect: convect})
	return nil
}

// AddLink registers a link. Every column it names must already exist.
func (d *Driver) AddLink(l Link) error {
	for _, name := range l.Columns() {
		if d.find(name) < 0 {
			return ocean.Configf("link", nil, "%s refers to unknown column %q", l.Name(), name)
		}
	}
	for _, other := range d.links {
		if other.Name() == l.Name() {
			return ocean.Configf("link", nil, "duplicate link %q", l.Name())
		}
	}
	d.links = append(d.links, l)
	return nil
}

func (d *Driver) AddMetric(m Metric)     { d.metrics = append(d.metrics, m) }
func (d *Driver) AddObserver(o Observer) { d.observers = append(d.observers, o) }

func (d *Driver) find(name string) int {
	for i, e := range d.columns {
		if e.name == name {
			return i
		}
	}
	return -1
}

// Column returns the named column.
func (d *Driver) Column(name string) (*column.Column, bool) {
	i := d.find(name)
	if i < 0 {
		return nil, false
	}
	return d.columns[i].col, true
}

// Refresh solves every link from copies of the current profiles.
func (d *Driver) Refresh() error {
	profiles := make(map[string]ocean.Profile, len(d.columns))
	for _, e := range d.columns {
		profiles[e.name] = e.col.B()
	}
	for _, l := range d.links {
		if err := l.Refresh(profiles); err != nil {
			return &StepError{Step: d.step, Link: l.Name(), Err: err}
		}
	}
	d.refreshes++
	d.stale = 0
	return nil
}

// velocity sums the link transports feeding a column and converts them to
// a vertical velocity in m/s.
func (d *Driver) velocity(e entry) []float64 {
	w := make([]float64, len(d.z))
	for _, l := range d.links {
		c := l.Contribution(e.name)
		if len(c) != len(w) {
			continue
		}
		for i, v := range c {
			w[i] += v
		}
	}
	for i := range w {
		w[i] *= 1e6 / e.col.Area()
	}
	return w
}

// RunTransient integrates steps time steps.
func (d *Driver) RunTransient(ctx context.Context, steps int) (*Result, error) {
	return d.run(ctx, Transient, steps)
}

// RunEquilibrium repeats the transient cycle iters times to relax the
// columns toward steady state. It stops on the iteration count alone and
// does not test for convergence.
func (d *Driver) RunEquilibrium(ctx context.Context, iters int) (*Result, error) {
	return d.run(ctx, Equilibrium, iters)
}

func (d *Driver) run(ctx context.Context, mode Mode, steps int) (*Result, error) {
	if len(d.columns) == 0 {
		return nil, ocean.Configf("columns", nil, "no columns to run")
	}
	if steps < 0 {
		return nil, ocean.Configf("steps", nil, "step count %d is negative", steps)
	}

	log := d.log.WithFields(logrus.Fields{
		"mode":    mode,
		"columns": len(d.columns),
		"links":   len(d.links),
	})

	for _, m := range d.metrics {
		m.Reset()
	}
	result := &Result{Mode: mode, Metrics: make(map[string]float64)}

	if err := d.Refresh(); err != nil {
		return result, err
	}

	if err := d.advance(ctx, mode, steps, result, log); err != nil {
		return result, err
	}

	result.Final = d.Snapshot(mode)
	result.Refreshes = d.refreshes
	for _, m := range d.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
	log.WithFields(logrus.Fields{
		"steps":     result.StepsTaken,
		"refreshes": result.Refreshes,
	}).Info("run complete")
	return result, nil
}

// Advance continues the transient cycle for steps more steps without the
// initial refresh, keeping the refresh cadence of earlier calls. Metrics
// keep accumulating.
func (d *Driver) Advance(ctx context.Context, steps int) error {
	if len(d.columns) == 0 {
		return ocean.Configf("columns", nil, "no columns to run")
	}
	if d.refreshes == 0 {
		if err := d.Refresh(); err != nil {
			return err
		}
	}
	return d.advance(ctx, Transient, steps, &Result{Mode: Transient}, d.log)
}

func (d *Driver) advance(ctx context.Context, mode Mode, steps int, result *Result, log logrus.FieldLogger) error {
	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			result.Final = d.Snapshot(mode)
			return ctx.Err()
		default:
		}

		for _, e := range d.columns {
			if err := e.col.Step(d.velocity(e), d.opts.Dt, e.convect); err != nil {
				return &StepError{Step: d.step, Column: e.name, Err: err}
			}
		}
		d.step++
		d.stale++
		result.StepsTaken++

		if d.stale >= d.opts.UpdateEvery {
			if err := d.Refresh(); err != nil {
				return err
			}
			log.WithFields(logrus.Fields{
				"step": d.step,
				"days": d.Time() / 86400,
			}).Debug("refreshed transports")
		}

		if len(d.metrics) > 0 || len(d.observers) > 0 {
			snap := d.Snapshot(mode)
			for _, m := range d.metrics {
				m.Observe(snap)
			}
			for _, o := range d.observers {
				o.OnCycle(snap)
			}
		}
	}
	return nil
}

// Time is the model time in seconds since the driver was built.
func (d *Driver) Time() float64 { return float64(d.step) * d.opts.Dt }

func (d *Driver) Steps() int { return d.step }

// Snapshot copies the current state of every column and link.
func (d *Driver) Snapshot(mode Mode) Snapshot {
	s := Snapshot{
		Mode:    mode,
		Step:    d.step,
		Time:    d.Time(),
		Z:       d.z.Clone(),
		Columns: make([]ColumnState, 0, len(d.columns)),
		Links:   make([]LinkState, 0, len(d.links)),
	}
	for _, e := range d.columns {
		s.Columns = append(s.Columns, ColumnState{Name: e.name, B: e.col.B(), Content: e.col.Content()})
	}
	for _, l := range d.links {
		s.Links = append(s.Links, LinkState{Name: l.Name(), Psi: l.Psi()})
	}
	return s
}

func (d *Driver) String() string {
	return fmt.Sprintf("driver(%d columns, %d links, dt=%gs, every %d)", len(d.columns), len(d.links), d.opts.Dt, d.opts.UpdateEvery)
}
