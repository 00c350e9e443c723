// Package sweep runs a configuration over a grid of parameter values in
// parallel and collects the metrics of every run.
package sweep

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/mfjansen/mocsim/internal/config"
	"github.com/mfjansen/mocsim/internal/coupling"
	"github.com/mfjansen/mocsim/internal/ocean"
	"github.com/sirupsen/logrus"
)

// setters apply one swept value to every component it concerns.
var setters = map[string]func(cfg *config.Config, v float64){
	"tau": func(cfg *config.Config, v float64) {
		for i := range cfg.Residual {
			cfg.Residual[i].Tau = v
		}
	},
	"k": func(cfg *config.Config, v float64) {
		for i := range cfg.Residual {
			cfg.Residual[i].K = v
		}
	},
	"kappa": func(cfg *config.Config, v float64) {
		for i := range cfg.Columns {
			cfg.Columns[i].Kappa = config.KappaConfig{Value: v}
		}
	},
	"n2min": func(cfg *config.Config, v float64) {
		for i := range cfg.Columns {
			cfg.Columns[i].N2Min = v
		}
	},
	"dt_days": func(cfg *config.Config, v float64) { cfg.Dt = v * config.Day },
}

// Names lists the parameters that can be swept.
func Names() []string {
	names := make([]string, 0, len(setters))
	for name := range setters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type Parameter struct {
	Name   string
	Values []float64
}

// ParseParameter reads "name=v1,v2,...".
func ParseParameter(s string) (Parameter, error) {
	name, list, ok := strings.Cut(s, "=")
	if !ok || name == "" || list == "" {
		return Parameter{}, ocean.Configf("param", nil, "expected name=v1,v2,... got %q", s)
	}
	p := Parameter{Name: strings.TrimSpace(name)}
	for _, field := range strings.Split(list, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			return Parameter{}, ocean.Configf("param", err, "value %q of %s", field, p.Name)
		}
		p.Values = append(p.Values, v)
	}
	return p, nil
}

type Options struct {
	// Workers bounds the number of concurrent runs; zero uses GOMAXPROCS.
	Workers int
	// Attach registers metrics and observers on each driver before it runs.
	Attach func(d *coupling.Driver, cfg *config.Config)
	Logger logrus.FieldLogger
}

// Point is the outcome of one run. A failed run keeps its error and has
// no metrics.
type Point struct {
	Params  map[string]float64
	Metrics map[string]float64
	Err     error
}

type Sweep struct {
	base   func() *config.Config
	params []Parameter
	opts   Options
	log    logrus.FieldLogger
}

// New validates the parameters. base must return a fresh configuration on
// every call.
func New(base func() *config.Config, params []Parameter, opts Options) (*Sweep, error) {
	if base == nil {
		return nil, ocean.Configf("base", nil, "no base configuration")
	}
	seen := make(map[string]bool, len(params))
	for _, p := range params {
		if _, ok := setters[p.Name]; !ok {
			return nil, ocean.Configf("param", nil, "cannot sweep %q (available: %v)", p.Name, Names())
		}
		if seen[p.Name] {
			return nil, ocean.Configf("param", nil, "%s given twice", p.Name)
		}
		if len(p.Values) == 0 {
			return nil, ocean.Configf("param", nil, "%s has no values", p.Name)
		}
		seen[p.Name] = true
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Sweep{base: base, params: params, opts: opts, log: log}, nil
}

// Points enumerates the Cartesian product of the parameter values, the
// last parameter varying fastest.
func (s *Sweep) Points() []map[string]float64 {
	var out []map[string]float64
	var walk func(depth int, current map[string]float64)
	walk = func(depth int, current map[string]float64) {
		if depth == len(s.params) {
			out = append(out, current)
			return
		}
		p := s.params[depth]
		for _, v := range p.Values {
			next := make(map[string]float64, len(current)+1)
			for k, val := range current {
				next[k] = val
			}
			next[p.Name] = v
			walk(depth+1, next)
		}
	}
	walk(0, map[string]float64{})
	return out
}

// Run executes every point and returns them in the order of Points. It
// fails only when ctx is cancelled.
func (s *Sweep) Run(ctx context.Context) ([]Point, error) {
	points := s.Points()
	results := make([]Point, len(points))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < s.opts.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				results[idx] = s.runPoint(ctx, points[idx])
			}
		}()
	}

feed:
	for i := range points {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}

func (s *Sweep) runPoint(ctx context.Context, params map[string]float64) Point {
	pt := Point{Params: params}
	cfg := s.base()
	fields := logrus.Fields{}
	for name, v := range params {
		setters[name](cfg, v)
		fields[name] = v
	}
	log := s.log.WithFields(fields)

	d, err := config.Build(cfg, log)
	if err != nil {
		pt.Err = err
		return pt
	}
	if s.opts.Attach != nil {
		s.opts.Attach(d, cfg)
	}
	res, err := d.RunTransient(ctx, cfg.Steps)
	if err != nil {
		log.WithError(err).Warn("sweep point failed")
		pt.Err = err
		return pt
	}
	pt.Metrics = res.Metrics
	return pt
}

// Best returns the successful point with the largest (or, with minimize,
// the smallest) value of metric.
func Best(points []Point, metric string, minimize bool) (Point, bool) {
	var (
		best  Point
		found bool
	)
	for _, p := range points {
		v, ok := p.Metrics[metric]
		if p.Err != nil || !ok {
			continue
		}
		if !found || (minimize && v < best.Metrics[metric]) || (!minimize && v > best.Metrics[metric]) {
			best, found = p, true
		}
	}
	return best, found
}

// Label formats the parameters of a point in name order.
func (p Point) Label() string {
	names := make([]string, 0, len(p.Params))
	for name := range p.Params {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s=%g", name, p.Params[name])
	}
	return strings.Join(parts, " ")
}
