package viz

import (
	"math"
	"strings"
)

// Braille cells hold 2x4 dots; pixelMap gives the bit of each dot.
//
// Unicode offset 0x2800
var pixelMap = [4][2]int{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

const blank = 0x2800

type Canvas struct {
	Width, Height int
	Grid          [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{Width: w, Height: h, Grid: make([][]rune, h)}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
	}
	c.Clear()
	return c
}

// Set lights the dot at (x, y) in sub-cell coordinates, with y growing
// downward. The canvas is Width*2 by Height*4 dots.
func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 {
		return
	}
	col, row := x/2, y/4
	if col >= c.Width || row >= c.Height {
		return
	}
	c.Grid[row][col] |= rune(pixelMap[y%4][x%2])
}

func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = blank
		}
	}
}

// DrawLine draws a line using Bresenham's algorithm.
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
	dx := absInt(x1 - x0)
	dy := absInt(y1 - y0)
	sx, sy := -1, -1
	if x0 < x1 {
		sx = 1
	}
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy

	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

// Bounds is the data window mapped onto the canvas.
type Bounds struct {
	XMin, XMax float64
	YMin, YMax float64
}

// BoundsOf spans every curve in xs against the shared ys.
func BoundsOf(ys []float64, xs ...[]float64) Bounds {
	b := Bounds{XMin: math.Inf(1), XMax: math.Inf(-1), YMin: math.Inf(1), YMax: math.Inf(-1)}
	for _, y := range ys {
		b.YMin, b.YMax = math.Min(b.YMin, y), math.Max(b.YMax, y)
	}
	for _, curve := range xs {
		for _, x := range curve {
			b.XMin, b.XMax = math.Min(b.XMin, x), math.Max(b.XMax, x)
		}
	}
	if b.XMax <= b.XMin {
		b.XMin, b.XMax = b.XMin-1, b.XMin+1
	}
	if b.YMax <= b.YMin {
		b.YMin, b.YMax = b.YMin-1, b.YMin+1
	}
	return b
}

func (c *Canvas) project(x, y float64, b Bounds) (int, int) {
	w, h := float64(c.Width*2-1), float64(c.Height*4-1)
	px := (x - b.XMin) / (b.XMax - b.XMin) * w
	py := (b.YMax - y) / (b.YMax - b.YMin) * h
	return int(math.Round(px)), int(math.Round(py))
}

// PlotCurve joins the points (xs[i], ys[i]) with straight segments. Points
// that are not finite break the curve.
func (c *Canvas) PlotCurve(xs, ys []float64, b Bounds) {
	n := min(len(xs), len(ys))
	prev := false
	var px, py int
	for i := 0; i < n; i++ {
		if math.IsNaN(xs[i]) || math.IsInf(xs[i], 0) {
			prev = false
			continue
		}
		x, y := c.project(xs[i], ys[i], b)
		if prev {
			c.DrawLine(px, py, x, y)
		} else {
			c.Set(x, y)
		}
		px, py, prev = x, y, true
	}
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row) + "\n")
	}
	return b.String()
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
