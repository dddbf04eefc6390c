package flow

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"orca/common"
	"orca/config"
	"orca/db"
	"orca/place"
	"orca/state"
)

const sampleLEF = `
VERSION 5.8 ;
UNITS
  DATABASE MICRONS 2000 ;
END UNITS
LAYER metal1
  TYPE ROUTING ;
  DIRECTION HORIZONTAL ;
  PITCH 0.19 ;
  WIDTH 0.07 ;
END metal1
SITE core
  SIZE 0.19 BY 1.4 ;
END core
MACRO BUF_X1
  CLASS CORE ;
  SIZE 0.38 BY 1.4 ;
  SITE core ;
  PIN A
    DIRECTION INPUT ;
    PORT
      LAYER metal1 ;
        RECT 0.0 0.6 0.07 0.8 ;
    END
  END A
  PIN Z
    DIRECTION OUTPUT ;
    PORT
      LAYER metal1 ;
        RECT 0.31 0.6 0.38 0.8 ;
    END
  END Z
END BUF_X1
END LIBRARY
`

const sampleDEF = `
VERSION 5.8 ;
DESIGN smoke ;
UNITS DISTANCE MICRONS 2000 ;
DIEAREA ( 0 0 ) ( 20000 14000 ) ;
ROW ROW_0 core 0 0 N DO 52 BY 1 STEP 380 0 ;
ROW ROW_1 core 0 2800 FS DO 52 BY 1 STEP 380 0 ;
ROW ROW_2 core 0 5600 N DO 52 BY 1 STEP 380 0 ;
ROW ROW_3 core 0 8400 FS DO 52 BY 1 STEP 380 0 ;
ROW ROW_4 core 0 11200 N DO 52 BY 1 STEP 380 0 ;
COMPONENTS 4 ;
 - u1 BUF_X1 + UNPLACED ;
 - u2 BUF_X1 + UNPLACED ;
 - u3 BUF_X1 + UNPLACED ;
 - u4 BUF_X1 + UNPLACED ;
END COMPONENTS
PINS 2 ;
 - in1 + NET n0 + DIRECTION INPUT + USE SIGNAL
   + LAYER metal1 ( -70 -70 ) ( 70 70 )
   + PLACED ( 0 7000 ) N ;
 - out1 + NET n4 + DIRECTION OUTPUT + USE SIGNAL
   + LAYER metal1 ( -70 -70 ) ( 70 70 )
   + PLACED ( 20000 7000 ) N ;
END PINS
NETS 5 ;
 - n0 ( PIN in1 ) ( u1 A ) ;
 - n1 ( u1 Z ) ( u2 A ) ;
 - n2 ( u2 Z ) ( u3 A ) ;
 - n3 ( u3 Z ) ( u4 A ) ;
 - n4 ( u4 Z ) ( PIN out1 ) ;
END NETS
END DESIGN
`

func setupTestEnv(t *testing.T) (context.Context, *state.LocalEnv) {
	t.Helper()
	cfg, err := config.LoadConfiguration("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	cfg.Metrics.Destination = "" // keep tests hermetic
	ctx := state.ContextWithEnv(context.Background())
	env := state.EnvFromContext(ctx)
	env.Log = zaptest.NewLogger(t)
	env.Cfg = cfg
	return ctx, env
}

func writeInput(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadTechAndBlock(t *testing.T) {
	_, env := setupTestEnv(t)
	dir := t.TempDir()
	env.LefFiles = []string{writeInput(t, dir, "tech.lef", sampleLEF)}

	tech, err := loadTech(env, env.Log)
	if err != nil {
		t.Fatalf("tech: %v", err)
	}
	if tech.DBUPerMicron != 2000 || tech.Master("BUF_X1") == nil {
		t.Fatalf("tech not loaded: %+v", tech)
	}

	block, err := loadBlock(env, tech, writeInput(t, dir, "smoke.def", sampleDEF), env.Log)
	if err != nil {
		t.Fatalf("block: %v", err)
	}
	if block.Name != "smoke" || len(block.Insts) != 4 {
		t.Fatalf("block = %q with %d components", block.Name, len(block.Insts))
	}
}

func TestLoadTechMissing(t *testing.T) {
	_, env := setupTestEnv(t)
	if _, err := loadTech(env, env.Log); err == nil {
		t.Fatal("expected error without --lef")
	}
}

func TestRunPlaceEndToEnd(t *testing.T) {
	ctx, env := setupTestEnv(t)
	dir := t.TempDir()
	env.LefFiles = []string{writeInput(t, dir, "tech.lef", sampleLEF)}
	src := writeInput(t, dir, "smoke.def", sampleDEF)
	dst := filepath.Join(dir, "smoke-placed.def")
	snap := filepath.Join(dir, "smoke.png")

	err := runPlace(ctx, env, placeParams{
		src: src,
		dst: dst,
		opts: place.Options{
			Density:         0.7,
			TargetOverflow:  0.2,
			MaxIterations:   64,
			InitIterations:  8,
			Seed:            1,
			DivergenceRatio: 10,
		},
		snapshot: snap,
	}, env.Log)
	if err != nil {
		t.Fatalf("place: %v", err)
	}

	out, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read result: %v", err)
	}
	if strings.Contains(string(out), "UNPLACED") {
		t.Fatalf("components left unplaced:\n%s", out)
	}
	if !strings.Contains(string(out), "+ PLACED") {
		t.Fatalf("no placed components:\n%s", out)
	}

	png, err := os.ReadFile(snap)
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if !strings.HasPrefix(string(png), "\x89PNG") {
		t.Fatal("snapshot is not a png")
	}
}

func TestSaveBlockOverwriteGuard(t *testing.T) {
	_, env := setupTestEnv(t)
	dir := t.TempDir()
	env.LefFiles = []string{writeInput(t, dir, "tech.lef", sampleLEF)}

	tech, err := loadTech(env, env.Log)
	if err != nil {
		t.Fatalf("tech: %v", err)
	}
	block, err := loadBlock(env, tech, writeInput(t, dir, "smoke.def", sampleDEF), env.Log)
	if err != nil {
		t.Fatalf("block: %v", err)
	}

	dst := filepath.Join(dir, "out.def")
	if err := saveBlock(env, block, dst); err != nil {
		t.Fatalf("first save: %v", err)
	}
	err = saveBlock(env, block, dst)
	if err == nil {
		t.Fatal("expected error for existing destination")
	}
	if !strings.Contains(err.Error(), "--overwrite") {
		t.Fatalf("error does not point at the flag: %v", err)
	}

	env.Overwrite = true
	if err := saveBlock(env, block, dst); err != nil {
		t.Fatalf("overwrite save: %v", err)
	}
}

func TestDerivedPath(t *testing.T) {
	for in, want := range map[string]string{
		"design.def":        "design-placed.def",
		"design.def.gz":     "design-placed.def",
		"path/to/input.zip": "path/to/input-placed.def",
	} {
		if got := derivedPath(in, "-placed"); got != want {
			t.Errorf("derivedPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" metal2, metal4 ,,metal6 ")
	want := []string{"metal2", "metal4", "metal6"}
	if len(got) != len(want) {
		t.Fatalf("split = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("split = %v, want %v", got, want)
		}
	}
	if splitList(" , ") != nil {
		t.Fatal("blank list must be empty")
	}
}

func TestParseExclude(t *testing.T) {
	tech := db.NewTech()
	tech.DBUPerMicron = 2000

	ex, err := parseExclude("top:0.5-40.2", tech)
	if err != nil {
		t.Fatalf("exclude: %v", err)
	}
	if ex.Edge != common.EdgeTop || ex.Lo != 1000 || ex.Hi != 80400 {
		t.Fatalf("exclude = %+v", ex)
	}

	ex, err = parseExclude("LEFT:*", tech)
	if err != nil {
		t.Fatalf("exclude: %v", err)
	}
	if ex.Edge != common.EdgeLeft || ex.Lo != -1 || ex.Hi != -1 {
		t.Fatalf("exclude = %+v", ex)
	}

	for _, bad := range []string{"top", "middle:*", "top:5-1", "top:a-b"} {
		if _, err := parseExclude(bad, tech); err == nil {
			t.Errorf("parseExclude(%q) did not fail", bad)
		}
	}
}
