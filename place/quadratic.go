package place

import (
	"fmt"
	"math"
	"math/rand"

	"orca/common"
	"orca/db"
	"orca/solver"
)

// minPinDistance keeps bound-to-bound weights finite for coincident pins,
// in database units.
const minPinDistance = 10.0

// model holds the continuous placement state: movable instances and their
// cell center coordinates.
type model struct {
	block   *db.Block
	core    db.Rect
	movable []*db.Inst
	index   map[*db.Inst]int
	x, y    []float64
}

func newModel(block *db.Block, seed int64) (*model, error) {
	m := &model{
		block: block,
		core:  block.CoreArea(),
		index: make(map[*db.Inst]int),
	}
	for _, inst := range block.Insts {
		if inst.Status.IsFixed() {
			continue
		}
		m.index[inst] = len(m.movable)
		m.movable = append(m.movable, inst)
	}
	if len(m.movable) == 0 {
		return nil, fmt.Errorf("design has no movable components")
	}
	if m.core.Dx() <= 0 || m.core.Dy() <= 0 {
		return nil, fmt.Errorf("design has no core area")
	}

	// start placed cells where they are, the rest near the core center with
	// a deterministic jitter so symmetric designs do not collapse onto a
	// single point
	rng := rand.New(rand.NewSource(seed))
	cx := float64(m.core.Center().X)
	cy := float64(m.core.Center().Y)
	m.x = make([]float64, len(m.movable))
	m.y = make([]float64, len(m.movable))
	for i, inst := range m.movable {
		if inst.Status.IsPlaced() {
			c := inst.Center()
			m.x[i], m.y[i] = float64(c.X), float64(c.Y)
			continue
		}
		m.x[i] = cx + (rng.Float64()-0.5)*float64(m.core.Dx())*0.05
		m.y[i] = cy + (rng.Float64()-0.5)*float64(m.core.Dy())*0.05
	}
	return m, nil
}

// endpoint is one net connection projected onto an axis. idx is -1 for
// immovable endpoints.
type endpoint struct {
	idx int
	pos float64
}

func (m *model) endpoints(net *db.Net, horizontal bool) []endpoint {
	var out []endpoint
	for _, c := range net.Conns {
		if i, ok := m.index[c.Inst]; ok {
			if horizontal {
				out = append(out, endpoint{idx: i, pos: m.x[i]})
			} else {
				out = append(out, endpoint{idx: i, pos: m.y[i]})
			}
			continue
		}
		p := c.Inst.PinPosition(c.Pin)
		out = append(out, endpoint{idx: -1, pos: axisOf(p, horizontal)})
	}
	for _, t := range net.Terms {
		if t.Status.IsPlaced() {
			out = append(out, endpoint{idx: -1, pos: axisOf(t.Loc, horizontal)})
		}
	}
	return out
}

func axisOf(p db.Point, horizontal bool) float64 {
	if horizontal {
		return float64(p.X)
	}
	return float64(p.Y)
}

// anchor pulls one movable cell toward a target with the given weight.
// Density driven iterations use anchors to spread overcrowded regions.
type anchor struct {
	idx    int
	target float64
	weight float64
}

// solveAxis rebuilds the bound-to-bound system for one axis and solves it,
// updating the model coordinates in place.
func (m *model) solveAxis(horizontal bool, anchors []anchor) error {
	n := len(m.movable)
	b := solver.NewBuilder(n)
	rhs := make([]float64, n)

	for _, net := range m.block.Nets {
		if net.Use.IsSupply() {
			continue
		}
		eps := m.endpoints(net, horizontal)
		if len(eps) < 2 {
			continue
		}
		lo, hi := 0, 0
		for i, e := range eps {
			if e.pos < eps[lo].pos {
				lo = i
			}
			if e.pos > eps[hi].pos {
				hi = i
			}
		}
		if lo == hi {
			hi = (lo + 1) % len(eps)
		}
		scale := 2.0 / float64(len(eps)-1)
		for i, e := range eps {
			if i != lo {
				m.stamp(b, rhs, e, eps[lo], scale)
			}
			if i != hi && lo != hi {
				m.stamp(b, rhs, e, eps[hi], scale)
			}
		}
	}

	for _, a := range anchors {
		b.Add(a.idx, a.idx, a.weight)
		rhs[a.idx] += a.weight * a.target
	}

	// untouched cells (no signal nets) stay where they are
	pos := m.x
	if !horizontal {
		pos = m.y
	}
	for i := range m.movable {
		b.Add(i, i, 1e-6)
		rhs[i] += 1e-6 * pos[i]
	}

	mat := b.Compile()
	out := make([]float64, n)
	copy(out, pos)
	if _, err := mat.SolvePCG(rhs, out, 1e-6, 1000); err != nil {
		return err
	}
	lo, hi := float64(m.core.Lo.X), float64(m.core.Hi.X)
	if !horizontal {
		lo, hi = float64(m.core.Lo.Y), float64(m.core.Hi.Y)
	}
	for i := range out {
		out[i] = clamp(out[i], lo, hi)
	}
	copy(pos, out)
	return nil
}

// stamp adds one bound-to-bound connection between endpoint e and boundary
// endpoint bound.
func (m *model) stamp(b *solver.Builder, rhs []float64, e, bound endpoint, scale float64) {
	if e.idx < 0 && bound.idx < 0 {
		return
	}
	dist := math.Abs(e.pos - bound.pos)
	if dist < minPinDistance {
		dist = minPinDistance
	}
	w := scale / dist
	switch {
	case e.idx >= 0 && bound.idx >= 0:
		b.Add(e.idx, e.idx, w)
		b.Add(bound.idx, bound.idx, w)
		b.Add(e.idx, bound.idx, -w)
		b.Add(bound.idx, e.idx, -w)
	case e.idx >= 0:
		b.Add(e.idx, e.idx, w)
		rhs[e.idx] += w * bound.pos
	default:
		b.Add(bound.idx, bound.idx, w)
		rhs[bound.idx] += w * e.pos
	}
}

// solve runs alternating axis solves until the wirelength settles.
func (m *model) solve(anchors map[bool][]anchor, passes int) error {
	prev := math.Inf(1)
	for pass := 0; pass < passes; pass++ {
		if err := m.solveAxis(true, anchors[true]); err != nil {
			return fmt.Errorf("x axis: %w", err)
		}
		if err := m.solveAxis(false, anchors[false]); err != nil {
			return fmt.Errorf("y axis: %w", err)
		}
		hpwl := m.estimateHPWL()
		if prev-hpwl < prev*1e-3 {
			break
		}
		prev = hpwl
	}
	return nil
}

// estimateHPWL computes the half perimeter wirelength over the continuous
// coordinates.
func (m *model) estimateHPWL() float64 {
	var total float64
	for _, net := range m.block.Nets {
		if net.Use.IsSupply() {
			continue
		}
		xs := m.endpoints(net, true)
		ys := m.endpoints(net, false)
		if len(xs) < 2 {
			continue
		}
		minX, maxX := xs[0].pos, xs[0].pos
		for _, e := range xs[1:] {
			minX = math.Min(minX, e.pos)
			maxX = math.Max(maxX, e.pos)
		}
		minY, maxY := ys[0].pos, ys[0].pos
		for _, e := range ys[1:] {
			minY = math.Min(minY, e.pos)
			maxY = math.Max(maxY, e.pos)
		}
		total += (maxX - minX) + (maxY - minY)
	}
	return total
}

// apply writes the continuous coordinates back into the block.
func (m *model) apply() {
	for i, inst := range m.movable {
		inst.Status = common.PlaceStatusPlaced
		inst.SetCenter(db.Point{X: int64(math.Round(m.x[i])), Y: int64(math.Round(m.y[i]))})
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
