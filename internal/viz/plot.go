package viz

import (
	"fmt"
	"strings"

	"github.com/guptarohit/asciigraph"
)

type PlotOptions struct {
	Height int
	Width  int
}

func (o PlotOptions) graph(caption string, n int) []asciigraph.Option {
	if o.Height == 0 {
		o.Height = 12
	}
	if o.Width == 0 {
		o.Width = 60
	}
	return []asciigraph.Option{
		asciigraph.Height(o.Height),
		asciigraph.Width(o.Width),
		asciigraph.Caption(caption),
		asciigraph.SeriesColors(CurrentTheme.ansi(n)...),
	}
}

// ProfilePlot draws one line per profile, bottom of the column on the left
// and the surface on the right, followed by a colored legend.
func ProfilePlot(caption string, names []string, profiles [][]float64, opts PlotOptions) string {
	data := make([][]float64, 0, len(profiles))
	for _, p := range profiles {
		if len(p) > 0 {
			data = append(data, p)
		}
	}
	if len(data) == 0 {
		return ""
	}
	chart := asciigraph.PlotMany(data, opts.graph(caption+" (bottom → surface)", len(data))...)
	return chart + "\n" + Legend(names)
}

// SeriesPlot draws a single time series.
func SeriesPlot(caption string, values []float64, opts PlotOptions) string {
	if len(values) == 0 {
		return ""
	}
	return asciigraph.Plot(values, opts.graph(caption, 1)...)
}

// Summary tabulates the surface, bottom and extreme values of each profile.
func Summary(names []string, profiles [][]float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-14s %12s %12s %12s %12s\n", "", "bottom", "surface", "min", "max")
	for i, p := range profiles {
		if i >= len(names) || len(p) == 0 {
			continue
		}
		lo, hi := p[0], p[0]
		for _, v := range p {
			lo, hi = min(lo, v), max(hi, v)
		}
		fmt.Fprintf(&b, "%-14s %12.4g %12.4g %12.4g %12.4g\n", names[i], p[0], p[len(p)-1], lo, hi)
	}
	return b.String()
}
