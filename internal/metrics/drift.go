package metrics

import (
	"math"

	"github.com/mfjansen/mocsim/internal/coupling"
)

// ContentDrift is the largest change of a column's depth-integrated
// buoyancy from its first observed value. Summed over columns it measures
// the net buoyancy gained through the boundaries.
type ContentDrift struct {
	name     string
	column   string
	initial  float64
	maxDrift float64
	samples  int
}

func NewContentDrift(column string) *ContentDrift {
	return &ContentDrift{
		name:   "content_drift:" + column,
		column: column,
	}
}

func (c *ContentDrift) Name() string { return c.name }

func (c *ContentDrift) Observe(s coupling.Snapshot) {
	col, ok := s.Column(c.column)
	if !ok {
		return
	}
	if c.samples == 0 {
		c.initial = col.Content
	}
	c.samples++
	c.maxDrift = math.Max(c.maxDrift, math.Abs(col.Content-c.initial))
}

func (c *ContentDrift) Value() float64 { return c.maxDrift }

func (c *ContentDrift) Reset() {
	c.initial = 0
	c.maxDrift = 0
	c.samples = 0
}
