package flow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"orca/archive"
	"orca/common"
	"orca/power"
	"orca/render"
	"orca/state"
)

// Power is the cli action behind "orca power".
func Power(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	env := state.EnvFromContext(ctx)
	log := env.Log.Named("power")

	src := cmd.Args().Get(0)
	if src == "" {
		return errors.New("no source DEF has been specified")
	}
	if cmd.Args().Len() > 1 {
		log.Warn("Malformed command line, too many arguments", zap.Strings("ignoring", cmd.Args().Slice()[1:]))
	}
	net := cmd.String("net")
	if net == "" {
		return errors.New("no supply net has been specified, use --net")
	}

	log.Info("Power analysis starting", zap.String("source", src), zap.String("net", net))
	defer func(start time.Time) {
		log.Info("Power analysis completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	tech, err := loadTech(env, log)
	if err != nil {
		return err
	}
	block, err := loadBlock(env, tech, src, log)
	if err != nil {
		return err
	}
	cat, err := loadLiberty(env, cmd.String("corner"), log)
	if err != nil {
		return err
	}
	cons, err := loadConstraints(env, log)
	if err != nil {
		return err
	}

	snet := block.SNet(net)
	if snet == nil {
		return fmt.Errorf("special net %q not found in design %q", net, block.Name)
	}

	var sources []power.Source
	if vsrc := cmd.String("vsrc"); vsrc != "" {
		data, err := archive.ReadInput(vsrc, "", env.CodePage)
		if err != nil {
			return fmt.Errorf("unable to read %s: %w", vsrc, err)
		}
		if sources, err = power.ParseVsrc(data, tech); err != nil {
			return fmt.Errorf("%s: %w", vsrc, err)
		}
		if env.Rpt != nil {
			env.Rpt.Store(filepath.Join("inputs", filepath.Base(vsrc)), vsrc)
		}
	} else {
		voltage := 0.0
		if snet.Use != common.PinUseGround {
			if voltage = cat.NomVoltage(); voltage <= 0 {
				return errors.New("no vsrc file and no library voltage, cannot synthesize sources")
			}
		}
		if sources, err = power.DefaultSources(block, snet, voltage); err != nil {
			return err
		}
		log.Info("Using synthesized voltage sources",
			zap.Int("count", len(sources)), zap.Float64("voltage", voltage))
	}

	opts := power.Options{
		Net:            net,
		ViaResistance:  env.Cfg.Power.ViaResistance,
		ActivityFactor: env.Cfg.Power.ActivityFactor,
		SolverIters:    env.Cfg.Power.SolverIters,
		SolverTol:      env.Cfg.Power.SolverTolerance,
	}
	res, err := power.Run(ctx, block, cat, cons, sources, opts, log)
	if err != nil {
		return fmt.Errorf("power analysis failed: %w", err)
	}

	log.Info("Power analysis results",
		zap.Float64("supply", res.Supply),
		zap.Float64("worst_drop", res.WorstDrop),
		zap.Float64("avg_drop", res.AvgDrop),
		zap.Float64("total_current", res.TotalCurr),
		zap.String("worst_x", fmt.Sprintf("%.4f", tech.DBUToMicrons(res.WorstLoc.X))),
		zap.String("worst_y", fmt.Sprintf("%.4f", tech.DBUToMicrons(res.WorstLoc.Y))))

	var bundled []bundleFile
	if out := cmd.String("voltage-file"); out != "" {
		if err := writeResultFile(env, out, func(w io.Writer) error { return res.WriteVoltages(w, tech) }); err != nil {
			return err
		}
		log.Info("Voltage file written", zap.String("file", out))
		bundled = append(bundled, bundleFile{name: "voltages.txt", path: out})
	}
	if out := cmd.String("report"); out != "" {
		if err := writeResultFile(env, out, func(w io.Writer) error { return res.WriteXML(w, tech) }); err != nil {
			return err
		}
		log.Info("XML report written", zap.String("file", out))
		bundled = append(bundled, bundleFile{name: "drop.xml", path: out})
	}
	if out := cmd.String("snapshot"); out != "" {
		svg, err := render.HeatmapSVG(block, res)
		if err != nil {
			return err
		}
		img, err := render.Rasterize(svg, env.Cfg.Snapshot.Width, env.Cfg.Snapshot.Height)
		if err != nil {
			return err
		}
		if err := render.SavePNG(out, img); err != nil {
			return err
		}
		log.Info("Heatmap written", zap.String("file", out))
		if env.Rpt != nil {
			_ = env.Rpt.StoreCopy("results/"+filepath.Base(out), out)
		}
		bundled = append(bundled, bundleFile{name: "heatmap.png", path: out})
	}

	saveMetrics(env, "power", block.Name, map[string]float64{
		"supply":        res.Supply,
		"worst_drop":    res.WorstDrop,
		"avg_drop":      res.AvgDrop,
		"total_current": res.TotalCurr,
		"nodes":         float64(len(res.Nodes)),
	}, log)

	if out := cmd.String("bundle"); out != "" {
		if len(bundled) == 0 {
			return errors.New("nothing to bundle, request a voltage file, report or snapshot")
		}
		if err := writeBundle(out, bundled, log); err != nil {
			return err
		}
	}
	return nil
}

func writeResultFile(env *state.LocalEnv, path string, write func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unable to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("unable to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	if env.Rpt != nil {
		_ = env.Rpt.StoreCopy("results/"+filepath.Base(path), path)
	}
	return nil
}
