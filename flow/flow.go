// Package flow connects the CLI commands to the engine: it loads
// technology and design files, runs one operation and writes results,
// recording metrics and debug artifacts along the way.
package flow

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"orca/archive"
	"orca/db"
	"orca/def"
	"orca/lef"
	"orca/liberty"
	"orca/metrics"
	"orca/report"
	"orca/sdc"
	"orca/state"
)

// loadTech reads every LEF file from the environment into one technology.
func loadTech(env *state.LocalEnv, log *zap.Logger) (*db.Tech, error) {
	if len(env.LefFiles) == 0 {
		return nil, fmt.Errorf("no technology files, use --lef")
	}
	tech := db.NewTech()
	for _, path := range env.LefFiles {
		data, err := archive.ReadInput(path, ".lef", env.CodePage)
		if err != nil {
			return nil, fmt.Errorf("unable to read %s: %w", path, err)
		}
		if err := lef.Parse(data, tech, log); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if env.Rpt != nil {
			env.Rpt.Store(filepath.Join("inputs", filepath.Base(path)), path)
		}
	}
	return tech, nil
}

// loadLiberty reads timing libraries. A non empty corner keeps only the
// library with that name. The catalog may end up empty, power analysis
// checks for what it needs.
func loadLiberty(env *state.LocalEnv, corner string, log *zap.Logger) (*liberty.Catalog, error) {
	cat := &liberty.Catalog{}
	for _, path := range env.LibFiles {
		data, err := archive.ReadInput(path, ".lib", env.CodePage)
		if err != nil {
			return nil, fmt.Errorf("unable to read %s: %w", path, err)
		}
		lib, err := liberty.Parse(data, log)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if corner != "" && lib.Name != corner {
			log.Debug("Skipping library, corner does not match",
				zap.String("library", lib.Name), zap.String("corner", corner))
			continue
		}
		cat.Add(lib)
		if env.Rpt != nil {
			env.Rpt.Store(filepath.Join("inputs", filepath.Base(path)), path)
		}
	}
	if corner != "" && len(cat.Libs) == 0 {
		return nil, fmt.Errorf("no library matches corner %q", corner)
	}
	return cat, nil
}

// loadConstraints reads SDC files in order into one constraint set.
func loadConstraints(env *state.LocalEnv, log *zap.Logger) (*sdc.Constraints, error) {
	cons := sdc.New()
	for _, path := range env.SdcFiles {
		data, err := archive.ReadInput(path, ".sdc", env.CodePage)
		if err != nil {
			return nil, fmt.Errorf("unable to read %s: %w", path, err)
		}
		if err := sdc.Parse(data, cons, log); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if env.Rpt != nil {
			env.Rpt.Store(filepath.Join("inputs", filepath.Base(path)), path)
		}
	}
	return cons, nil
}

func loadBlock(env *state.LocalEnv, tech *db.Tech, path string, log *zap.Logger) (*db.Block, error) {
	data, err := archive.ReadInput(path, ".def", env.CodePage)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", path, err)
	}
	block, err := def.Parse(data, tech, log)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if env.Rpt != nil {
		env.Rpt.Store(filepath.Join("inputs", filepath.Base(path)), path)
	}
	return block, nil
}

func saveBlock(env *state.LocalEnv, block *db.Block, path string) error {
	if !env.Overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("destination %s already exists, use --overwrite", path)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unable to create %s: %w", path, err)
	}
	if err := def.Write(f, block); err != nil {
		f.Close()
		return fmt.Errorf("unable to write %s: %w", path, err)
	}
	return f.Close()
}

// derivedPath builds a destination next to the source when none was given:
// design.def becomes design-placed.def.
func derivedPath(src, suffix string) string {
	ext := filepath.Ext(src)
	if strings.EqualFold(ext, ".gz") || strings.EqualFold(ext, ".zip") {
		src = strings.TrimSuffix(src, ext)
		ext = filepath.Ext(src)
	}
	if !strings.EqualFold(ext, ".def") {
		ext = ".def"
	}
	return strings.TrimSuffix(src, filepath.Ext(src)) + suffix + ext
}

type bundleFile struct {
	name string
	path string
}

// writeBundle archives result files in the given order.
func writeBundle(dest string, files []bundleFile, log *zap.Logger) error {
	b := report.NewBundle()
	for _, f := range files {
		if err := b.AddFile(f.name, f.path); err != nil {
			return err
		}
	}
	if err := b.Save(dest); err != nil {
		return fmt.Errorf("unable to write result bundle: %w", err)
	}
	log.Info("Result bundle written", zap.String("file", dest), zap.Int("entries", b.Len()))
	return nil
}

// saveMetrics stores run numbers when a metrics database is configured.
func saveMetrics(env *state.LocalEnv, command, design string, values map[string]float64, log *zap.Logger) {
	dest := env.Cfg.Metrics.Destination
	if dest == "" {
		return
	}
	store, err := metrics.Open(dest)
	if err != nil {
		log.Warn("Unable to open metrics store", zap.String("destination", dest), zap.Error(err))
		return
	}
	defer store.Close()
	id, err := store.Save(command, design, values)
	if err != nil {
		log.Warn("Unable to store metrics", zap.Error(err))
		return
	}
	log.Debug("Metrics stored", zap.String("run", id), zap.String("destination", dest))
}
