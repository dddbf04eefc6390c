package power

import (
	"context"
	"fmt"
	"slices"

	"github.com/maruel/natural"
	"go.uber.org/zap"

	"orca/common"
	"orca/db"
	"orca/liberty"
	"orca/sdc"
	"orca/solver"
)

// leakScale converts Liberty leakage power (nanowatts in the libraries the
// flow consumes) to watts, capScale converts femtofarads to farads and
// nsScale clock periods to seconds.
const (
	leakScale = 1e-9
	capScale  = 1e-15
	nsScale   = 1e-9
)

// Options control the analysis.
type Options struct {
	Net            string  // power or ground net to analyze
	ViaResistance  float64 // ohms per strap crossing
	ActivityFactor float64 // switching probability for dynamic current
	SolverIters    int
	SolverTol      float64
}

// NodeVoltage is the solved voltage of one grid node.
type NodeVoltage struct {
	Layer   string
	Loc     db.Point
	Voltage float64
}

// InstVoltage is the supply voltage seen by one placed component.
type InstVoltage struct {
	Inst    string
	Voltage float64
	Drop    float64
}

// Result carries the outcome of one IR drop analysis.
type Result struct {
	Net       string
	Ground    bool
	Supply    float64 // reference source voltage
	WorstDrop float64
	WorstLoc  db.Point
	AvgDrop   float64
	TotalCurr float64 // total drawn current, amperes
	Sources   int
	Solver    solver.Result
	Nodes     []NodeVoltage
	Insts     []InstVoltage
}

// Run performs static IR drop analysis of one supply net.
func Run(ctx context.Context, block *db.Block, cat *liberty.Catalog, cons *sdc.Constraints, sources []Source, opts Options, log *zap.Logger) (*Result, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("power")

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if opts.Net == "" {
		return nil, fmt.Errorf("no target net")
	}
	snet := block.SNet(opts.Net)
	if snet == nil {
		return nil, fmt.Errorf("special net %q not found", opts.Net)
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("no voltage sources for net %q", opts.Net)
	}

	g, err := buildGrid(block, snet, opts.ViaResistance)
	if err != nil {
		return nil, err
	}

	var supply float64
	for _, src := range sources {
		n := g.nearest(src.Loc)
		if d := absInt64(n.p.X-src.Loc.X) + absInt64(n.p.Y-src.Loc.Y); d > 0 {
			limit := int64(0)
			if layer := block.Tech.Layer(n.layer); layer != nil {
				limit = layer.Pitch
			}
			if d > limit {
				log.Warn("Voltage source is far from the grid, snapping to nearest node",
					zap.Int64("source_x", src.Loc.X), zap.Int64("source_y", src.Loc.Y),
					zap.Int64("node_x", n.p.X), zap.Int64("node_y", n.p.Y),
					zap.Int64("distance", d))
			}
		}
		n.fixed = true
		n.voltage = src.Voltage
		supply += src.Voltage
	}
	supply /= float64(len(sources))

	if n := g.unsourced(); n != nil {
		return nil, fmt.Errorf("grid of net %q has an island without a voltage source near ( %.4f %.4f ) on %s",
			opts.Net, block.Tech.DBUToMicrons(n.p.X), block.Tech.DBUToMicrons(n.p.Y), n.layer)
	}

	res := &Result{
		Net:     opts.Net,
		Ground:  snet.Use == common.PinUseGround,
		Supply:  supply,
		Sources: len(sources),
	}

	// characteristic voltage for converting power to current; a ground net
	// is referenced to the library supply
	vchar := supply
	if vchar <= 0 {
		vchar = cat.NomVoltage()
	}
	if vchar <= 0 {
		return nil, fmt.Errorf("cannot determine supply voltage for net %q", opts.Net)
	}

	var period float64
	if len(cons.Clocks) > 0 {
		period = cons.Clocks[0].Period
	}

	currents := make([]float64, len(g.nodes))
	type instNode struct {
		inst *db.Inst
		n    *node
	}
	var taps []instNode
	for _, inst := range block.Insts {
		if !inst.Status.IsPlaced() {
			continue
		}
		cell := cat.Cell(inst.Master.Name)
		if cell == nil {
			log.Warn("No library cell for component, skipping its current",
				zap.String("component", inst.Name),
				zap.String("macro", inst.Master.Name))
			continue
		}
		power := cell.LeakagePower * leakScale
		if period > 0 && opts.ActivityFactor > 0 {
			var load float64
			for _, pin := range cell.Pins {
				if pin.Dir == common.DirectionInput {
					load += pin.Cap
				}
			}
			power += opts.ActivityFactor * load * capScale * vchar * vchar / (period * nsScale)
		}
		n := g.nearest(inst.Center())
		currents[n.id] += power / vchar
		res.TotalCurr += power / vchar
		taps = append(taps, instNode{inst: inst, n: n})
	}

	voltages, solve, err := solveGrid(g, currents, supply, res.Ground, opts)
	if err != nil {
		return nil, err
	}
	res.Solver = solve

	var sum float64
	for _, n := range g.nodes {
		v := voltages[n.id]
		drop := supply - v
		if res.Ground {
			drop = v - supply
		}
		sum += drop
		if drop > res.WorstDrop {
			res.WorstDrop = drop
			res.WorstLoc = n.p
		}
		res.Nodes = append(res.Nodes, NodeVoltage{Layer: n.layer, Loc: n.p, Voltage: v})
	}
	res.AvgDrop = sum / float64(len(g.nodes))

	for _, tap := range taps {
		v := voltages[tap.n.id]
		drop := supply - v
		if res.Ground {
			drop = v - supply
		}
		res.Insts = append(res.Insts, InstVoltage{Inst: tap.inst.Name, Voltage: v, Drop: drop})
	}
	slices.SortFunc(res.Insts, func(a, b InstVoltage) int {
		if natural.Less(a.Inst, b.Inst) {
			return -1
		}
		if natural.Less(b.Inst, a.Inst) {
			return 1
		}
		return 0
	})

	log.Debug("IR drop solved",
		zap.Int("nodes", len(g.nodes)),
		zap.Int("resistors", len(g.resistors)),
		zap.Float64("supply", supply),
		zap.Float64("worst_drop", res.WorstDrop),
		zap.Float64("avg_drop", res.AvgDrop),
		zap.Int("iterations", res.Solver.Iterations))
	return res, nil
}

// solveGrid assembles the conductance matrix over free nodes, eliminating
// fixed nodes into the right hand side, and solves it.
func solveGrid(g *grid, currents []float64, supply float64, ground bool, opts Options) ([]float64, solver.Result, error) {
	freeIdx := make([]int, len(g.nodes))
	free := 0
	for _, n := range g.nodes {
		if n.fixed {
			freeIdx[n.id] = -1
			continue
		}
		freeIdx[n.id] = free
		free++
	}

	voltages := make([]float64, len(g.nodes))
	for _, n := range g.nodes {
		if n.fixed {
			voltages[n.id] = n.voltage
		}
	}
	if free == 0 {
		return voltages, solver.Result{}, nil
	}

	b := solver.NewBuilder(free)
	rhs := make([]float64, free)
	for _, r := range g.resistors {
		cond := 1.0 / r.ohms
		ia, ib := freeIdx[r.a.id], freeIdx[r.b.id]
		switch {
		case ia >= 0 && ib >= 0:
			b.Add(ia, ia, cond)
			b.Add(ib, ib, cond)
			b.Add(ia, ib, -cond)
			b.Add(ib, ia, -cond)
		case ia >= 0:
			b.Add(ia, ia, cond)
			rhs[ia] += cond * r.b.voltage
		case ib >= 0:
			b.Add(ib, ib, cond)
			rhs[ib] += cond * r.a.voltage
		}
	}
	for id, amps := range currents {
		i := freeIdx[id]
		if i < 0 || amps == 0 {
			continue
		}
		// cells drain a power net and dump into a ground net
		if ground {
			rhs[i] += amps
		} else {
			rhs[i] -= amps
		}
	}
	x := make([]float64, free)
	for i := range x {
		x[i] = supply
	}
	solve, err := b.Compile().SolvePCG(rhs, x, opts.SolverTol, opts.SolverIters)
	if err != nil {
		return nil, solve, fmt.Errorf("grid solve: %w", err)
	}
	for _, n := range g.nodes {
		if i := freeIdx[n.id]; i >= 0 {
			voltages[n.id] = x[i]
		}
	}
	return voltages, solve, nil
}
