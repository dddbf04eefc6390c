package flow

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"orca/db"
	"orca/render"
	"orca/report"
	"orca/state"
)

// Snapshot is the cli action behind "orca snapshot".
func Snapshot(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	env := state.EnvFromContext(ctx)
	log := env.Log.Named("snapshot")

	src := cmd.Args().Get(0)
	if src == "" {
		return errors.New("no source DEF has been specified")
	}
	if cmd.Args().Len() > 2 {
		log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}

	log.Info("Snapshot starting", zap.String("source", src))
	defer func(start time.Time) {
		log.Info("Snapshot completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	tech, err := loadTech(env, log)
	if err != nil {
		return err
	}
	block, err := loadBlock(env, tech, src, log)
	if err != nil {
		return err
	}

	dst := cmd.Args().Get(1)
	if dst == "" {
		if dst, err = snapshotName(env, block.Name, "snapshot"); err != nil {
			return err
		}
		dst = filepath.Join(filepath.Dir(src), dst)
	}
	return writeSnapshot(env, block, dst, log)
}

// snapshotName expands the configured naming template and slugs the result
// into a portable file name.
func snapshotName(env *state.LocalEnv, design, command string) (string, error) {
	name, err := report.ExpandName(env.Cfg.Snapshot.NameTemplate, report.Values{
		Design:  design,
		Command: command,
	})
	if err != nil {
		return "", err
	}
	return render.FileName(name), nil
}

func writeSnapshot(env *state.LocalEnv, block *db.Block, path string, log *zap.Logger) error {
	svg, err := render.LayoutSVG(block)
	if err != nil {
		return err
	}
	img, err := render.Rasterize(svg, env.Cfg.Snapshot.Width, env.Cfg.Snapshot.Height)
	if err != nil {
		return err
	}
	if err := render.SavePNG(path, img); err != nil {
		return err
	}
	log.Info("Snapshot written", zap.String("file", path),
		zap.Int("width", img.Bounds().Dx()), zap.Int("height", img.Bounds().Dy()))
	if env.Rpt != nil {
		_ = env.Rpt.StoreCopy("results/"+filepath.Base(path), path)
	}
	return nil
}
