package ocean

import (
	"math"
	"testing"
)

func TestMapToIsopycnal_RoundTrip(t *testing.T) {
	g := Linspace(-4000, 0, 81)
	b := Sample(g, func(z float64) float64 {
		s := (z + 4000) / 4000
		return -0.002 + 0.01*s + 0.005*s*s
	})
	psi := Sample(g, func(z float64) float64 {
		return 12 * math.Sin(math.Pi*(z+4000)/4000)
	})
	psi[0], psi[len(psi)-1] = 0, 0

	bgrid := BGrid(1000, b)
	psib := MapToIsopycnal(psi, b, b, bgrid)

	if psib[0] != 0 {
		t.Errorf("isopycnal transport at the densest level = %v, want 0", psib[0])
	}
	if math.Abs(psib[len(psib)-1]) > 1e-9 {
		t.Errorf("isopycnal transport at the lightest level = %v, want 0", psib[len(psib)-1])
	}

	back, err := MapToDepth(b, bgrid, psib)
	if err != nil {
		t.Fatalf("map to depth failed: %v", err)
	}
	for i := range psi {
		if math.Abs(back[i]-psi[i]) > 1e-2 {
			t.Errorf("round trip at z=%v: got %v, want %v", g[i], back[i], psi[i])
		}
	}
}

func TestMapToIsopycnal_Upstream(t *testing.T) {
	// Positive transport in the lower half carries water of the first
	// profile, the negative return flow in the upper half water of the second.
	psi := Profile{0, 1, 0}
	bPos := Profile{0, 0, 0}
	bNeg := Profile{5, 5, 5}
	bgrid := []float64{-1, 1, 6}

	psib := MapToIsopycnal(psi, bPos, bNeg, bgrid)
	want := []float64{0, 1, 0}
	for i := range want {
		if math.Abs(psib[i]-want[i]) > 1e-12 {
			t.Errorf("psib[%d] = %v, want %v", i, psib[i], want[i])
		}
	}
}

func TestBGrid(t *testing.T) {
	bg := BGrid(11, Profile{0, 0.5}, Profile{-0.5, 1})
	if bg[0] != -0.5 || bg[10] != 1 {
		t.Errorf("BGrid spans [%v, %v], want [-0.5, 1]", bg[0], bg[10])
	}

	flat := BGrid(5, Profile{0.1, 0.1})
	for i := 1; i < len(flat); i++ {
		if flat[i] <= flat[i-1] {
			t.Fatal("BGrid of a uniform profile must still be strictly increasing")
		}
	}
}

func TestInterp_RejectsUnsorted(t *testing.T) {
	if _, err := Interp([]float64{0}, []float64{1, 0}, []float64{0, 1}); err == nil {
		t.Error("expected error for decreasing abscissae")
	}
}
