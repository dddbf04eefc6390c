// Package place implements global placement: an initial quadratic solve
// over the bound-to-bound net model followed by density driven spreading
// and a row legalization pass.
package place

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"orca/db"
)

// Options control the placement run. All fields must be set, the
// configuration layer supplies defaults.
type Options struct {
	Density         float64 // target bin utilization, 0 < d <= 1
	TargetOverflow  float64 // stop spreading below this overflow
	MaxIterations   int     // density iteration cap
	InitIterations  int     // bound-to-bound refresh passes of the initial solve
	Seed            int64
	PaddingSites    int // empty sites kept between legalized cells
	DivergenceRatio float64
}

// Stats summarizes a placement run.
type Stats struct {
	Movable     int
	Iterations  int
	Overflow    float64
	InitialHPWL int64
	FinalHPWL   int64
	Diverged    bool
}

// Run places all movable components of the block. On success every movable
// component is placed on a row and site boundary.
func Run(ctx context.Context, block *db.Block, opts Options, log *zap.Logger) (Stats, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("place")

	if opts.Density <= 0 || opts.Density > 1 {
		return Stats{}, fmt.Errorf("placement density %g out of range (0,1]", opts.Density)
	}

	m, err := newModel(block, opts.Seed)
	if err != nil {
		return Stats{}, err
	}
	stats := Stats{Movable: len(m.movable)}

	if err := m.solve(nil, max(opts.InitIterations, 1)); err != nil {
		return stats, fmt.Errorf("initial placement: %w", err)
	}
	stats.InitialHPWL = int64(m.estimateHPWL())
	log.Debug("Initial placement solved",
		zap.Int("movable", stats.Movable),
		zap.Int64("hpwl", stats.InitialHPWL))

	best := m.snapshot()
	bestHPWL := float64(stats.InitialHPWL)
	bestOverflow := 2.0
	penalty := 1e-4

	for iter := 0; iter < opts.MaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		grid := newBinGrid(m, opts.Density)
		overflow := grid.overflow()
		hpwl := m.estimateHPWL()
		stats.Iterations = iter
		stats.Overflow = overflow
		log.Debug("Density iteration",
			zap.Int("iteration", iter),
			zap.Float64("overflow", overflow),
			zap.Float64("hpwl", hpwl))

		if overflow < bestOverflow {
			best, bestOverflow = m.snapshot(), overflow
		}
		if hpwl < bestHPWL {
			bestHPWL = hpwl
		}
		if overflow <= opts.TargetOverflow {
			break
		}
		if opts.DivergenceRatio > 1 && hpwl > bestHPWL*opts.DivergenceRatio {
			log.Warn("Placement diverged, rolling back to best iteration",
				zap.Float64("hpwl", hpwl),
				zap.Float64("best_hpwl", bestHPWL))
			m.restore(best)
			stats.Overflow = bestOverflow
			stats.Diverged = true
			break
		}

		anchors := grid.anchors(m, penalty)
		if len(anchors[true]) == 0 && len(anchors[false]) == 0 {
			break
		}
		if err := m.solve(anchors, 2); err != nil {
			return stats, fmt.Errorf("density iteration %d: %w", iter, err)
		}
		penalty *= 1.15
	}

	m.apply()
	if err := legalize(block, opts.PaddingSites); err != nil {
		return stats, err
	}
	stats.FinalHPWL = block.HPWL()
	log.Debug("Placement legalized", zap.Int64("hpwl", stats.FinalHPWL))
	return stats, nil
}

type placementSnapshot struct {
	x, y []float64
}

func (m *model) snapshot() placementSnapshot {
	s := placementSnapshot{
		x: make([]float64, len(m.x)),
		y: make([]float64, len(m.y)),
	}
	copy(s.x, m.x)
	copy(s.y, m.y)
	return s
}

func (m *model) restore(s placementSnapshot) {
	copy(m.x, s.x)
	copy(m.y, s.y)
}
