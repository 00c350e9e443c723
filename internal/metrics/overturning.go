// Package metrics collects per-cycle diagnostics of coupled runs.
package metrics

import (
	"math"

	"github.com/mfjansen/mocsim/internal/coupling"
	"gonum.org/v1/gonum/floats"
)

// MaxOverturning tracks the strongest transport of one link, in Sv, over
// the interior of the water column.
type MaxOverturning struct {
	name    string
	link    string
	current float64
	peak    float64
	samples int
}

func NewMaxOverturning(link string) *MaxOverturning {
	return &MaxOverturning{
		name: "max_overturning:" + link,
		link: link,
	}
}

func (m *MaxOverturning) Name() string { return m.name }

func (m *MaxOverturning) Observe(s coupling.Snapshot) {
	l, ok := s.Link(m.link)
	if !ok || len(l.Psi) == 0 {
		return
	}
	m.current = floats.Max(l.Psi)
	m.peak = math.Max(m.peak, m.current)
	m.samples++
}

// Value is the maximum of the streamfunction at the last observation.
func (m *MaxOverturning) Value() float64 { return m.current }

// Peak is the largest maximum seen since the last Reset.
func (m *MaxOverturning) Peak() float64 { return m.peak }

func (m *MaxOverturning) Reset() {
	m.current = 0
	m.peak = 0
	m.samples = 0
}

// MeanTransport averages the absolute transport of a link over depth and
// over all observations.
type MeanTransport struct {
	name    string
	link    string
	sum     float64
	samples int
}

func NewMeanTransport(link string) *MeanTransport {
	return &MeanTransport{
		name: "mean_transport:" + link,
		link: link,
	}
}

func (m *MeanTransport) Name() string { return m.name }

func (m *MeanTransport) Observe(s coupling.Snapshot) {
	l, ok := s.Link(m.link)
	if !ok || len(l.Psi) == 0 {
		return
	}
	m.sum += floats.Norm(l.Psi, 1) / float64(len(l.Psi))
	m.samples++
}

func (m *MeanTransport) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return m.sum / float64(m.samples)
}

func (m *MeanTransport) Reset() {
	m.sum = 0
	m.samples = 0
}
