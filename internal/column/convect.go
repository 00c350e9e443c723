package column

// Convect removes static instability from the profile. Adjacent layers
// whose buoyancy increases upward by less than N2Min times their separation
// are mixed, thickness weighted, until none remain. Mixing acts on
// b - N2Min*z, so a mixed block keeps exactly the minimum stratification
// and the column buoyancy content is conserved.
//
// Blocks are pooled left to right, so at most len(z)-1 merges happen and
// applying Convect to its own output changes nothing beyond round-off.
func (c *Column) Convect() {
	adjust(c.b, c.z, c.h, c.n2min)
}

type block struct {
	sum, weight float64
	start, end  int
}

func (b block) mean() float64 { return b.sum / b.weight }

func adjust(b, z, h []float64, n2min float64) {
	stack := make([]block, 0, len(b))
	for i := range b {
		cur := block{sum: (b[i] - n2min*z[i]) * h[i], weight: h[i], start: i, end: i}
		for len(stack) > 0 && stack[len(stack)-1].mean() > cur.mean() {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			cur = block{sum: top.sum + cur.sum, weight: top.weight + cur.weight, start: top.start, end: cur.end}
		}
		stack = append(stack, cur)
	}
	if len(stack) == len(b) {
		return
	}
	for _, blk := range stack {
		if blk.start == blk.end {
			continue
		}
		m := blk.mean()
		for i := blk.start; i <= blk.end; i++ {
			b[i] = m + n2min*z[i]
		}
	}
}
