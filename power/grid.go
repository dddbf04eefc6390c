// Package power analyzes static IR drop on a power or ground net. The
// special net's straps become a resistive grid, cells draw current from
// their nearest grid node, voltage sources pin the grid at pad locations
// and the resulting linear system is solved for node voltages.
package power

import (
	"fmt"
	"math"

	"orca/db"
)

// node is one electrical node of the grid: a strap endpoint, a strap
// crossing or a via landing.
type node struct {
	id    int
	layer string
	p     db.Point

	fixed   bool
	voltage float64 // valid when fixed
}

// resistor connects two nodes.
type resistor struct {
	a, b *node
	ohms float64
}

// grid is the extracted network.
type grid struct {
	nodes     []*node
	resistors []*resistor
	byKey     map[nodeKey]*node
}

type nodeKey struct {
	layer string
	x, y  int64
}

func (g *grid) node(layer string, p db.Point) *node {
	key := nodeKey{layer: layer, x: p.X, y: p.Y}
	if n, ok := g.byKey[key]; ok {
		return n
	}
	n := &node{id: len(g.nodes), layer: layer, p: p}
	g.byKey[key] = n
	g.nodes = append(g.nodes, n)
	return n
}

func (g *grid) connect(a, b *node, ohms float64) {
	if a == b {
		return
	}
	if ohms <= 0 {
		ohms = 1e-3
	}
	g.resistors = append(g.resistors, &resistor{a: a, b: b, ohms: ohms})
}

// defaultSheetRes stands in for layers without extracted resistance so the
// grid stays connected rather than ideal.
const defaultSheetRes = 0.05

// buildGrid extracts the resistive network from the special net's straps.
// Wires are axis parallel center lines; a crossing of two wires on
// different layers becomes a via with the configured resistance, crossings
// on the same layer share a node.
func buildGrid(block *db.Block, snet *db.SNet, viaOhms float64) (*grid, error) {
	if len(snet.Wires) == 0 {
		return nil, fmt.Errorf("special net %q has no routed wires", snet.Name)
	}
	g := &grid{byKey: make(map[nodeKey]*node)}

	// per wire: positions along the wire that must become nodes
	breaks := make([][]int64, len(snet.Wires))
	for i, w := range snet.Wires {
		breaks[i] = append(breaks[i], along(w, w.From), along(w, w.To))
	}
	for i, wi := range snet.Wires {
		for j := i + 1; j < len(snet.Wires); j++ {
			wj := snet.Wires[j]
			p, ok := crossing(wi, wj)
			if !ok {
				continue
			}
			breaks[i] = append(breaks[i], along(wi, p))
			breaks[j] = append(breaks[j], along(wj, p))
			if wi.Layer != wj.Layer {
				g.connect(g.node(wi.Layer, p), g.node(wj.Layer, p), viaOhms)
			}
		}
	}

	for i, w := range snet.Wires {
		layer := block.Tech.Layer(w.Layer)
		sheet := defaultSheetRes
		if layer != nil && layer.SheetRes > 0 {
			sheet = layer.SheetRes
		}
		width := w.Width
		if width <= 0 {
			width = 1
		}

		pos := dedupeSorted(breaks[i])
		for k := 1; k < len(pos); k++ {
			a := g.node(w.Layer, pointAt(w, pos[k-1]))
			b := g.node(w.Layer, pointAt(w, pos[k]))
			length := float64(pos[k] - pos[k-1])
			g.connect(a, b, sheet*length/float64(width))
		}
	}

	if len(g.nodes) == 0 {
		return nil, fmt.Errorf("special net %q produced no grid nodes", snet.Name)
	}
	return g, nil
}

// along projects a point onto the wire axis.
func along(w db.SWire, p db.Point) int64 {
	if w.Horizontal() {
		return p.X
	}
	return p.Y
}

func pointAt(w db.SWire, pos int64) db.Point {
	if w.Horizontal() {
		return db.Point{X: pos, Y: w.From.Y}
	}
	return db.Point{X: w.From.X, Y: pos}
}

// crossing returns the intersection point of two perpendicular center
// lines, if any. Parallel wires never cross, overlaps are ignored.
func crossing(a, b db.SWire) (db.Point, bool) {
	if a.Horizontal() == b.Horizontal() {
		return db.Point{}, false
	}
	h, v := a, b
	if !a.Horizontal() {
		h, v = b, a
	}
	x := v.From.X
	y := h.From.Y
	if !within(x, h.From.X, h.To.X) || !within(y, v.From.Y, v.To.Y) {
		return db.Point{}, false
	}
	return db.Point{X: x, Y: y}, true
}

func within(v, a, b int64) bool {
	if a > b {
		a, b = b, a
	}
	return v >= a && v <= b
}

func dedupeSorted(vals []int64) []int64 {
	if len(vals) == 0 {
		return vals
	}
	// insertion sort, break lists are tiny
	for i := 1; i < len(vals); i++ {
		for j := i; j > 0 && vals[j] < vals[j-1]; j-- {
			vals[j], vals[j-1] = vals[j-1], vals[j]
		}
	}
	out := vals[:1]
	for _, v := range vals[1:] {
		if v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}

// unsourced returns a node from a connected component that holds no fixed
// voltage source, nil when every component is sourced. Such islands would
// make the system singular, they have to be reported instead of solved.
func (g *grid) unsourced() *node {
	adj := make([][]int, len(g.nodes))
	for _, r := range g.resistors {
		adj[r.a.id] = append(adj[r.a.id], r.b.id)
		adj[r.b.id] = append(adj[r.b.id], r.a.id)
	}
	seen := make([]bool, len(g.nodes))
	for _, start := range g.nodes {
		if seen[start.id] {
			continue
		}
		comp := []int{start.id}
		seen[start.id] = true
		sourced := false
		for i := 0; i < len(comp); i++ {
			id := comp[i]
			if g.nodes[id].fixed {
				sourced = true
			}
			for _, next := range adj[id] {
				if !seen[next] {
					seen[next] = true
					comp = append(comp, next)
				}
			}
		}
		if !sourced {
			return start
		}
	}
	return nil
}

// nearest returns the grid node closest to a point, by Manhattan distance.
func (g *grid) nearest(p db.Point) *node {
	var (
		best *node
		dist = int64(math.MaxInt64)
	)
	for _, n := range g.nodes {
		d := absInt64(n.p.X-p.X) + absInt64(n.p.Y-p.Y)
		if d < dist || (d == dist && best != nil && n.id < best.id) {
			best, dist = n, d
		}
	}
	return best
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
