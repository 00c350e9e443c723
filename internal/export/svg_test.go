package export

import (
	"math"
	"strings"
	"testing"
)

func TestProfilesSVG(t *testing.T) {
	z := []float64{-4000, -2000, 0}
	out := ProfilesSVG("b <final>", z, []string{"basin", "north"}, [][]float64{
		{-0.001, 0.002, 0.02},
		{-0.001, 0, 0.0004},
	}, 400, 300)

	if !strings.HasPrefix(out, "<?xml") || !strings.HasSuffix(out, "</svg>\n") {
		t.Fatalf("not an SVG document:\n%s", out)
	}
	if got := strings.Count(out, "<path"); got != 2 {
		t.Errorf("expected 2 paths, got %d", got)
	}
	if !strings.Contains(out, "b &lt;final&gt;") {
		t.Error("expected an escaped title")
	}
	if !strings.Contains(out, ">basin<") || !strings.Contains(out, ">north<") {
		t.Error("expected labels for both profiles")
	}
}

func TestProfilesSVG_Empty(t *testing.T) {
	if ProfilesSVG("x", []float64{0}, nil, [][]float64{{1}}, 100, 100) != "" {
		t.Error("expected no output for a single level")
	}
	if ProfilesSVG("x", []float64{-1, 0}, nil, nil, 100, 100) != "" {
		t.Error("expected no output without profiles")
	}
}

func TestPath(t *testing.T) {
	identity := func(x, y float64) (float64, float64) { return x, y }

	got := path([]float64{1, math.NaN(), 3, 4}, []float64{0, 1, 2, 3}, identity)
	want := "M1.0,0.0 M3.0,2.0 L4.0,3.0"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}
