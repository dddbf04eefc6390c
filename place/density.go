package place

import (
	"math"

	"orca/db"
)

// binGrid partitions the core area for density bookkeeping. Movable cells
// contribute their area to the bin holding their center, fixed cells to
// every bin they overlap.
type binGrid struct {
	core     db.Rect
	nx, ny   int
	binW     float64
	binH     float64
	usage    []float64
	capacity []float64

	movableArea float64
}

func newBinGrid(m *model, density float64) *binGrid {
	n := int(math.Round(math.Sqrt(float64(len(m.movable)))))
	if n < 2 {
		n = 2
	}
	if n > 128 {
		n = 128
	}
	g := &binGrid{
		core:     m.core,
		nx:       n,
		ny:       n,
		binW:     float64(m.core.Dx()) / float64(n),
		binH:     float64(m.core.Dy()) / float64(n),
		usage:    make([]float64, n*n),
		capacity: make([]float64, n*n),
	}

	binArea := g.binW * g.binH
	for i := range g.capacity {
		g.capacity[i] = binArea * density
	}

	// fixed blockages reduce capacity in every overlapped bin
	for _, inst := range m.block.Insts {
		if !inst.Status.IsFixed() {
			continue
		}
		g.subtractFixed(inst.Bounds())
	}

	for i, inst := range m.movable {
		area := float64(inst.Master.Area())
		g.movableArea += area
		g.usage[g.binAt(m.x[i], m.y[i])] += area
	}
	return g
}

func (g *binGrid) binIndex(bx, by int) int {
	return by*g.nx + bx
}

func (g *binGrid) binAt(x, y float64) int {
	bx := int((x - float64(g.core.Lo.X)) / g.binW)
	by := int((y - float64(g.core.Lo.Y)) / g.binH)
	bx = min(max(bx, 0), g.nx-1)
	by = min(max(by, 0), g.ny-1)
	return g.binIndex(bx, by)
}

func (g *binGrid) binRect(bx, by int) db.Rect {
	x0 := float64(g.core.Lo.X) + float64(bx)*g.binW
	y0 := float64(g.core.Lo.Y) + float64(by)*g.binH
	return db.NewRect(int64(x0), int64(y0), int64(x0+g.binW), int64(y0+g.binH))
}

func (g *binGrid) subtractFixed(r db.Rect) {
	for by := 0; by < g.ny; by++ {
		for bx := 0; bx < g.nx; bx++ {
			bin := g.binRect(bx, by)
			if !bin.Intersects(r) {
				continue
			}
			ov := bin.Intersection(r)
			i := g.binIndex(bx, by)
			g.capacity[i] -= float64(ov.Area())
			if g.capacity[i] < 0 {
				g.capacity[i] = 0
			}
		}
	}
}

// overflow is the movable area that exceeds bin capacity, normalized by the
// total movable area.
func (g *binGrid) overflow() float64 {
	var over float64
	for i := range g.usage {
		if d := g.usage[i] - g.capacity[i]; d > 0 {
			over += d
		}
	}
	if g.movableArea == 0 {
		return 0
	}
	return over / g.movableArea
}

func (g *binGrid) util(bx, by int) float64 {
	if bx < 0 || bx >= g.nx || by < 0 || by >= g.ny {
		return math.Inf(1) // the core boundary repels
	}
	i := g.binIndex(bx, by)
	if g.capacity[i] <= 0 {
		return math.Inf(1)
	}
	return g.usage[i] / g.capacity[i]
}

// anchors builds spreading anchors for cells sitting in overfull bins. Each
// cell is pulled toward the less crowded side of its bin neighborhood.
func (g *binGrid) anchors(m *model, weight float64) map[bool][]anchor {
	out := map[bool][]anchor{true: nil, false: nil}
	for i := range m.movable {
		bx := int((m.x[i] - float64(g.core.Lo.X)) / g.binW)
		by := int((m.y[i] - float64(g.core.Lo.Y)) / g.binH)
		bx = min(max(bx, 0), g.nx-1)
		by = min(max(by, 0), g.ny-1)

		here := g.util(bx, by)
		if here <= 1 {
			continue
		}
		out[true] = append(out[true], anchor{
			idx:    i,
			target: clamp(m.x[i]+g.shift(here, g.util(bx-1, by), g.util(bx+1, by), g.binW), float64(g.core.Lo.X), float64(g.core.Hi.X)),
			weight: weight,
		})
		out[false] = append(out[false], anchor{
			idx:    i,
			target: clamp(m.y[i]+g.shift(here, g.util(bx, by-1), g.util(bx, by+1), g.binH), float64(g.core.Lo.Y), float64(g.core.Hi.Y)),
			weight: weight,
		})
	}
	return out
}

// shift picks a displacement along one axis away from the more crowded
// neighbor, at most one bin pitch.
func (g *binGrid) shift(here, lo, hi float64, pitch float64) float64 {
	switch {
	case math.IsInf(lo, 1) && math.IsInf(hi, 1):
		return 0
	case math.IsInf(lo, 1):
		return pitch
	case math.IsInf(hi, 1):
		return -pitch
	case lo < hi:
		return -pitch * clamp((here-lo)/(here+1e-9), 0, 1)
	default:
		return pitch * clamp((here-hi)/(here+1e-9), 0, 1)
	}
}
