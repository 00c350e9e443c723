package export

import (
	"fmt"
	"image/color"
	"io"
	"math"

	"github.com/mfjansen/mocsim/internal/viz"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// ProfilesPlot builds a gonum plot of each profile against depth. NaN
// samples are dropped from their line.
func ProfilesPlot(title, xLabel string, z []float64, names []string, profiles [][]float64) (*plot.Plot, error) {
	if len(z) < 2 || len(profiles) == 0 {
		return nil, fmt.Errorf("export: need at least two levels and one profile")
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = "z (m)"
	p.Legend.Top = true

	for i, prof := range profiles {
		xy := make(plotter.XYs, 0, len(prof))
		for k, v := range prof {
			if k >= len(z) || math.IsNaN(v) {
				continue
			}
			xy = append(xy, plotter.XY{X: v, Y: z[k]})
		}
		if len(xy) == 0 {
			continue
		}
		line, err := plotter.NewLine(xy)
		if err != nil {
			return nil, err
		}
		line.Color = curveColor(i)
		line.Width = vg.Points(1.5)
		p.Add(line)
		if i < len(names) {
			p.Legend.Add(names[i], line)
		}
	}
	p.Add(plotter.NewGrid())
	return p, nil
}

// WriteProfilesPNG renders ProfilesPlot at the given size in inches.
func WriteProfilesPNG(w io.Writer, title, xLabel string, z []float64, names []string, profiles [][]float64, width, height float64) error {
	p, err := ProfilesPlot(title, xLabel, z, names, profiles)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(vg.Length(width)*vg.Inch, vg.Length(height)*vg.Inch, "png")
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}

// curveColor maps the theme's hex colors onto image colors, falling back
// to black for anything that does not parse.
func curveColor(i int) color.Color {
	hex := string(viz.CurrentTheme.Curves[i%len(viz.CurrentTheme.Curves)])
	var r, g, b uint8
	if _, err := fmt.Sscanf(hex, "#%02x%02x%02x", &r, &g, &b); err != nil {
		return color.Black
	}
	return color.RGBA{R: r, G: g, B: b, A: 0xff}
}
