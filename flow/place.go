package flow

import (
	"context"
	"errors"
	"fmt"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"orca/common"
	"orca/db"
	"orca/place"
	"orca/state"
)

// Place is the cli action behind "orca place".
func Place(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	env := state.EnvFromContext(ctx)
	log := env.Log.Named("place")

	src := cmd.Args().Get(0)
	if src == "" {
		return errors.New("no source DEF has been specified")
	}
	dst := cmd.Args().Get(1)
	if dst == "" {
		dst = derivedPath(src, "-placed")
	}
	if cmd.Args().Len() > 2 {
		log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}

	opts := place.Options{
		Density:         env.Cfg.Placement.Density,
		TargetOverflow:  env.Cfg.Placement.TargetOverflow,
		MaxIterations:   env.Cfg.Placement.MaxIterations,
		InitIterations:  env.Cfg.Placement.InitIterations,
		Seed:            env.Cfg.Placement.Seed,
		PaddingSites:    env.Cfg.Placement.PaddingSites,
		DivergenceRatio: env.Cfg.Placement.DivergenceRatio,
	}
	if cmd.IsSet("density") {
		opts.Density = cmd.Float("density")
	}
	if cmd.IsSet("overflow") {
		opts.TargetOverflow = cmd.Float("overflow")
	}
	if cmd.IsSet("max-iters") {
		opts.MaxIterations = cmd.Int("max-iters")
	}
	if cmd.IsSet("seed") {
		opts.Seed = cmd.Int64("seed")
	}

	log.Info("Placement starting", zap.String("source", src), zap.String("destination", dst))
	defer func(start time.Time) {
		log.Info("Placement completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	return runPlace(ctx, env, placeParams{
		src:         src,
		dst:         dst,
		opts:        opts,
		incremental: cmd.Bool("incremental"),
		snapshot:    cmd.String("snapshot"),
		bundle:      cmd.String("bundle"),
	}, log)
}

type placeParams struct {
	src         string
	dst         string
	opts        place.Options
	incremental bool
	snapshot    string
	bundle      string
}

func runPlace(ctx context.Context, env *state.LocalEnv, p placeParams, log *zap.Logger) error {
	tech, err := loadTech(env, log)
	if err != nil {
		return err
	}
	block, err := loadBlock(env, tech, p.src, log)
	if err != nil {
		return err
	}

	// incremental runs keep already placed components where they are
	var pinned []*db.Inst
	if p.incremental {
		for _, inst := range block.Insts {
			if inst.Status == common.PlaceStatusPlaced {
				inst.Status = common.PlaceStatusFixed
				pinned = append(pinned, inst)
			}
		}
		log.Debug("Incremental placement", zap.Int("kept", len(pinned)))
	}

	stats, err := place.Run(ctx, block, p.opts, log)
	for _, inst := range pinned {
		inst.Status = common.PlaceStatusPlaced
	}
	if err != nil {
		return fmt.Errorf("placement failed: %w", err)
	}

	log.Info("Placement results",
		zap.Int("movable", stats.Movable),
		zap.Int("iterations", stats.Iterations),
		zap.Float64("overflow", stats.Overflow),
		zap.Int64("initial_hpwl", stats.InitialHPWL),
		zap.Int64("final_hpwl", stats.FinalHPWL))

	if err := saveBlock(env, block, p.dst); err != nil {
		return err
	}
	if env.Rpt != nil {
		_ = env.Rpt.StoreCopy("results/"+p.dst, p.dst)
	}

	saveMetrics(env, "place", block.Name, map[string]float64{
		"movable":      float64(stats.Movable),
		"iterations":   float64(stats.Iterations),
		"overflow":     stats.Overflow,
		"initial_hpwl": float64(stats.InitialHPWL),
		"final_hpwl":   float64(stats.FinalHPWL),
	}, log)

	if p.snapshot != "" {
		if err := writeSnapshot(env, block, p.snapshot, log); err != nil {
			return err
		}
	}
	if p.bundle != "" {
		files := []bundleFile{{name: "out.def", path: p.dst}}
		if p.snapshot != "" {
			files = append(files, bundleFile{name: "snapshot.png", path: p.snapshot})
		}
		if err := writeBundle(p.bundle, files, log); err != nil {
			return err
		}
	}
	return nil
}
