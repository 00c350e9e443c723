// Package export renders profiles as standalone SVG documents and as PNG
// images.
package export

import (
	"fmt"
	"math"
	"strings"

	"github.com/mfjansen/mocsim/internal/viz"
)

const margin = 40.0

// ProfilesSVG draws each profile against depth z, one path per profile,
// with the surface at the top. Colors cycle through the current theme.
func ProfilesSVG(title string, z []float64, names []string, profiles [][]float64, width, height int) string {
	if len(z) < 2 || len(profiles) == 0 {
		return ""
	}
	b := viz.BoundsOf(z, profiles...)
	w, h := float64(width), float64(height)
	project := func(x, y float64) (float64, float64) {
		px := margin + (x-b.XMin)/(b.XMax-b.XMin)*(w-2*margin)
		py := margin + (b.YMax-y)/(b.YMax-b.YMin)*(h-2*margin)
		return px, py
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<text x="%.0f" y="%.0f" fill="#e0f0ff" font-family="monospace" font-size="14">%s</text>
`, width, height, width, height, margin, margin/2, escape(title))

	x0, y0 := project(b.XMin, b.YMin)
	x1, y1 := project(b.XMax, b.YMax)
	fmt.Fprintf(&sb, `<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="none" stroke="#444466"/>
`, x0, y1, x1-x0, y0-y1)
	fmt.Fprintf(&sb, `<text x="%.1f" y="%.1f" fill="#888899" font-family="monospace" font-size="10">%.4g</text>
<text x="%.1f" y="%.1f" fill="#888899" font-family="monospace" font-size="10" text-anchor="end">%.4g</text>
<text x="%.1f" y="%.1f" fill="#888899" font-family="monospace" font-size="10" text-anchor="end">%.0f m</text>
`, x0, y0+14, b.XMin, x1, y0+14, b.XMax, x0-4, y0, b.YMin)

	for i, p := range profiles {
		color := string(viz.CurrentTheme.Curves[i%len(viz.CurrentTheme.Curves)])
		d := path(p, z, project)
		if d == "" {
			continue
		}
		fmt.Fprintf(&sb, `<path fill="none" stroke="%s" stroke-width="1.5" d="%s"/>
`, color, d)
		if i < len(names) {
			fmt.Fprintf(&sb, `<text x="%.1f" y="%.1f" fill="%s" font-family="monospace" font-size="12">%s</text>
`, x1-100, y1+16*float64(i+1), color, escape(names[i]))
		}
	}

	sb.WriteString("</svg>\n")
	return sb.String()
}

// path joins the finite points of one profile; gaps start a new subpath.
func path(p, z []float64, project func(x, y float64) (float64, float64)) string {
	var sb strings.Builder
	pen := false
	for i := 0; i < len(p) && i < len(z); i++ {
		if math.IsNaN(p[i]) || math.IsInf(p[i], 0) {
			pen = false
			continue
		}
		x, y := project(p[i], z[i])
		cmd := " L"
		if !pen {
			cmd = " M"
		}
		fmt.Fprintf(&sb, "%s%.1f,%.1f", cmd, x, y)
		pen = true
	}
	return strings.TrimSpace(sb.String())
}

func escape(s string) string {
	return strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;").Replace(s)
}
