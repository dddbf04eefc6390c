package flow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"orca/common"
	"orca/db"
	"orca/pin"
	"orca/state"
)

// Pins is the cli action behind "orca pins".
func Pins(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	env := state.EnvFromContext(ctx)
	log := env.Log.Named("pins")

	src := cmd.Args().Get(0)
	if src == "" {
		return errors.New("no source DEF has been specified")
	}
	dst := cmd.Args().Get(1)
	if dst == "" {
		dst = derivedPath(src, "-pins")
	}
	if cmd.Args().Len() > 2 {
		log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}

	log.Info("Pin placement starting", zap.String("source", src), zap.String("destination", dst))
	defer func(start time.Time) {
		log.Info("Pin placement completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	tech, err := loadTech(env, log)
	if err != nil {
		return err
	}
	block, err := loadBlock(env, tech, src, log)
	if err != nil {
		return err
	}

	opts, err := pinOptions(cmd, env, tech)
	if err != nil {
		return err
	}

	stats, err := pin.Run(ctx, block, opts, log)
	if err != nil {
		return fmt.Errorf("pin placement failed: %w", err)
	}
	log.Info("Pin placement results",
		zap.Int("slots", stats.Slots),
		zap.Int("placed", stats.Placed),
		zap.Int("groups", stats.Groups))

	if err := saveBlock(env, block, dst); err != nil {
		return err
	}
	if env.Rpt != nil {
		_ = env.Rpt.StoreCopy("results/"+dst, dst)
	}

	saveMetrics(env, "pins", block.Name, map[string]float64{
		"slots":  float64(stats.Slots),
		"placed": float64(stats.Placed),
		"groups": float64(stats.Groups),
	}, log)
	return nil
}

func pinOptions(cmd *cli.Command, env *state.LocalEnv, tech *db.Tech) (pin.Options, error) {
	opts := pin.Options{
		HorLayers:       splitList(cmd.String("hor-layers")),
		VerLayers:       splitList(cmd.String("ver-layers")),
		CornerAvoidance: tech.MicronsToDBU(env.Cfg.Pins.CornerAvoidance),
		MinDistance:     tech.MicronsToDBU(env.Cfg.Pins.MinDistance),
	}
	if cmd.IsSet("corner-avoidance") {
		opts.CornerAvoidance = tech.MicronsToDBU(cmd.Float("corner-avoidance"))
	}
	if cmd.IsSet("min-distance") {
		opts.MinDistance = tech.MicronsToDBU(cmd.Float("min-distance"))
	}
	for _, group := range cmd.StringSlice("group-pins") {
		names := strings.Fields(group)
		if len(names) == 0 {
			return pin.Options{}, fmt.Errorf("empty pin group")
		}
		opts.Groups = append(opts.Groups, names)
	}
	for _, spec := range cmd.StringSlice("exclude") {
		ex, err := parseExclude(spec, tech)
		if err != nil {
			return pin.Options{}, err
		}
		opts.Excludes = append(opts.Excludes, ex)
	}
	return opts, nil
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// parseExclude understands "edge:lo-hi" with coordinates in microns and
// "edge:*" for a whole edge.
func parseExclude(spec string, tech *db.Tech) (pin.Exclude, error) {
	edgeName, interval, ok := strings.Cut(spec, ":")
	if !ok {
		return pin.Exclude{}, fmt.Errorf("malformed exclusion %q, want EDGE:RANGE", spec)
	}
	edge, err := common.ParseEdge(strings.ToLower(strings.TrimSpace(edgeName)))
	if err != nil {
		return pin.Exclude{}, fmt.Errorf("malformed exclusion %q: %w", spec, err)
	}
	interval = strings.TrimSpace(interval)
	if interval == "*" {
		return pin.Exclude{Edge: edge, Lo: -1, Hi: -1}, nil
	}

	loStr, hiStr, ok := strings.Cut(interval, "-")
	if !ok {
		return pin.Exclude{}, fmt.Errorf("malformed exclusion %q, want EDGE:LO-HI", spec)
	}
	var lo, hi float64
	if _, err := fmt.Sscanf(loStr, "%g", &lo); err != nil {
		return pin.Exclude{}, fmt.Errorf("malformed exclusion %q: %w", spec, err)
	}
	if _, err := fmt.Sscanf(hiStr, "%g", &hi); err != nil {
		return pin.Exclude{}, fmt.Errorf("malformed exclusion %q: %w", spec, err)
	}
	if hi <= lo {
		return pin.Exclude{}, fmt.Errorf("empty exclusion interval %q", spec)
	}
	return pin.Exclude{Edge: edge, Lo: tech.MicronsToDBU(lo), Hi: tech.MicronsToDBU(hi)}, nil
}
