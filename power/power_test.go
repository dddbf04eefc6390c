package power

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"orca/common"
	"orca/db"
	"orca/liberty"
	"orca/regress"
	"orca/sdc"
)

func testTech(t *testing.T) *db.Tech {
	t.Helper()
	tech := db.NewTech()
	for _, l := range []*db.Layer{
		{Name: "metal1", Type: common.LayerTypeRouting, Dir: common.LayerDirHorizontal, Width: 100, SheetRes: 0.1},
		{Name: "metal4", Type: common.LayerTypeRouting, Dir: common.LayerDirVertical, Width: 100, SheetRes: 0.1},
	} {
		if err := tech.AddLayer(l); err != nil {
			t.Fatal(err)
		}
	}
	m := &db.Master{Name: "BUF_X1", Width: 400, Height: 1000}
	if err := m.AddPin(&db.MPin{Name: "A", Dir: common.DirectionInput}); err != nil {
		t.Fatal(err)
	}
	if err := tech.AddMaster(m); err != nil {
		t.Fatal(err)
	}
	return tech
}

func testCatalog(t *testing.T, leakageNW float64) *liberty.Catalog {
	t.Helper()
	data := fmt.Sprintf(`library (lib) {
  nom_voltage : 1.1;
  voltage_map (VDD, 1.1);
  cell (BUF_X1) {
    cell_leakage_power : %g;
    pin (A) {
      direction : input;
      capacitance : 1.0;
    }
  }
}`, leakageNW)
	lib, err := liberty.Parse([]byte(data), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("library: %v", err)
	}
	cat := &liberty.Catalog{}
	cat.Add(lib)
	return cat
}

func singleStrapBlock(t *testing.T, use common.PinUse) *db.Block {
	t.Helper()
	block := db.NewBlock(testTech(t), "top")
	block.Die = db.NewRect(0, 0, 10000, 1000)

	name := "VDD"
	if use == common.PinUseGround {
		name = "VSS"
	}
	snet := &db.SNet{Name: name, Use: use}
	snet.Wires = append(snet.Wires, db.SWire{
		Layer: "metal1", Width: 100,
		From: db.Point{X: 0, Y: 500}, To: db.Point{X: 10000, Y: 500},
		Shape: common.WireShapeStripe,
	})
	if err := block.AddSNet(snet); err != nil {
		t.Fatal(err)
	}

	inst := &db.Inst{
		Name: "u1", Master: block.Tech.Master("BUF_X1"),
		Status: common.PlaceStatusPlaced, Loc: db.Point{X: 9800, Y: 0},
	}
	if err := block.AddInst(inst); err != nil {
		t.Fatal(err)
	}
	return block
}

func testOptions(net string) Options {
	return Options{
		Net:            net,
		ViaResistance:  2.0,
		ActivityFactor: 0,
		SolverIters:    10000,
		SolverTol:      1e-12,
	}
}

func TestRunSingleStrapDrop(t *testing.T) {
	block := singleStrapBlock(t, common.PinUsePower)
	sources := []Source{{Loc: db.Point{X: 0, Y: 500}, Voltage: 1.1}}

	// the cell attaches to the far end of a 10 ohm strap
	res, err := Run(context.Background(), block, testCatalog(t, 1e6), sdc.New(), sources, testOptions("VDD"), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	current := 1e-3 / 1.1 // 1 mW of leakage at 1.1 V
	wantDrop := current * 10.0
	if math.Abs(res.WorstDrop-wantDrop) > 1e-5 {
		t.Fatalf("worst drop = %g, want about %g", res.WorstDrop, wantDrop)
	}
	if res.WorstLoc != (db.Point{X: 10000, Y: 500}) {
		t.Fatalf("worst location = %+v", res.WorstLoc)
	}
	if math.Abs(res.TotalCurr-current) > 1e-9 {
		t.Fatalf("total current = %g, want %g", res.TotalCurr, current)
	}
	if len(res.Insts) != 1 || res.Insts[0].Inst != "u1" {
		t.Fatalf("instances = %+v", res.Insts)
	}
	if math.Abs(res.Insts[0].Drop-wantDrop) > 1e-5 {
		t.Fatalf("instance drop = %g", res.Insts[0].Drop)
	}
}

func TestRunGroundBounce(t *testing.T) {
	block := singleStrapBlock(t, common.PinUseGround)
	sources := []Source{{Loc: db.Point{X: 0, Y: 500}, Voltage: 0}}

	res, err := Run(context.Background(), block, testCatalog(t, 1e6), sdc.New(), sources, testOptions("VSS"), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !res.Ground {
		t.Fatal("net not recognized as ground")
	}
	// current flows into the ground net, lifting the far node above 0
	current := 1e-3 / 1.1
	if math.Abs(res.WorstDrop-current*10.0) > 1e-5 {
		t.Fatalf("ground bounce = %g", res.WorstDrop)
	}
}

func TestRunDynamicCurrent(t *testing.T) {
	block := singleStrapBlock(t, common.PinUsePower)
	sources := []Source{{Loc: db.Point{X: 0, Y: 500}, Voltage: 1.1}}

	cons := sdc.New()
	if err := sdc.Parse([]byte("create_clock -name clk -period 2.0 [get_ports clk]"), cons, zaptest.NewLogger(t)); err != nil {
		t.Fatalf("constraints: %v", err)
	}

	opts := testOptions("VDD")
	opts.ActivityFactor = 0.1
	res, err := Run(context.Background(), block, testCatalog(t, 1e6), cons, sources, opts, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	// dynamic adder: 0.1 * 1 fF * 1.1^2 / 2 ns on top of 1 mW leakage
	dynamic := 0.1 * 1.0 * capScale * 1.1 * 1.1 / (2.0 * nsScale)
	want := (1e-3 + dynamic) / 1.1
	if math.Abs(res.TotalCurr-want) > 1e-9 {
		t.Fatalf("total current = %g, want %g", res.TotalCurr, want)
	}
}

func TestGridCrossingCreatesVia(t *testing.T) {
	block := db.NewBlock(testTech(t), "top")
	snet := &db.SNet{Name: "VDD", Use: common.PinUsePower}
	snet.Wires = append(snet.Wires,
		db.SWire{Layer: "metal1", Width: 100, From: db.Point{X: 0, Y: 500}, To: db.Point{X: 1000, Y: 500}},
		db.SWire{Layer: "metal4", Width: 100, From: db.Point{X: 500, Y: 0}, To: db.Point{X: 500, Y: 1000}},
	)
	g, err := buildGrid(block, snet, 2.0)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	// each strap splits at the crossing: 3 nodes per strap, one via
	if len(g.nodes) != 6 {
		t.Fatalf("nodes = %d", len(g.nodes))
	}
	vias := 0
	for _, r := range g.resistors {
		if r.a.layer != r.b.layer {
			vias++
			if r.ohms != 2.0 {
				t.Fatalf("via resistance = %g", r.ohms)
			}
		}
	}
	if vias != 1 {
		t.Fatalf("vias = %d", vias)
	}
}

func TestRunErrors(t *testing.T) {
	block := singleStrapBlock(t, common.PinUsePower)
	sources := []Source{{Loc: db.Point{X: 0, Y: 500}, Voltage: 1.1}}
	log := zaptest.NewLogger(t)

	if _, err := Run(context.Background(), block, testCatalog(t, 1), sdc.New(), sources, testOptions("VCC"), log); err == nil {
		t.Fatal("expected error for unknown net")
	}
	if _, err := Run(context.Background(), block, testCatalog(t, 1), sdc.New(), nil, testOptions("VDD"), log); err == nil {
		t.Fatal("expected error without sources")
	}

	empty := db.NewBlock(testTech(t), "top")
	if err := empty.AddSNet(&db.SNet{Name: "VDD", Use: common.PinUsePower}); err != nil {
		t.Fatal(err)
	}
	if _, err := Run(context.Background(), empty, testCatalog(t, 1), sdc.New(), sources, testOptions("VDD"), log); err == nil {
		t.Fatal("expected error for unrouted net")
	}
}

func TestParseVsrc(t *testing.T) {
	tech := testTech(t)
	data := `
# pad locations
0.0   0.25 1.1
5.0   0.25 1.1
`
	sources, err := ParseVsrc([]byte(data), tech)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(sources) != 2 {
		t.Fatalf("sources = %d", len(sources))
	}
	if sources[0].Loc != (db.Point{X: 0, Y: 250}) || sources[0].Voltage != 1.1 {
		t.Fatalf("source = %+v", sources[0])
	}
	if sources[1].Loc.X != 5000 {
		t.Fatalf("source x = %d", sources[1].Loc.X)
	}

	if _, err := ParseVsrc([]byte("1.0 2.0"), tech); err == nil {
		t.Fatal("expected error for truncated line")
	}
	if _, err := ParseVsrc(nil, tech); err == nil {
		t.Fatal("expected error for empty file")
	}
	if _, err := ParseVsrc([]byte("0 0 -1"), tech); err == nil {
		t.Fatal("expected error for negative voltage")
	}
}

func TestWriteReports(t *testing.T) {
	block := singleStrapBlock(t, common.PinUsePower)
	sources := []Source{{Loc: db.Point{X: 0, Y: 500}, Voltage: 1.1}}
	res, err := Run(context.Background(), block, testCatalog(t, 1e6), sdc.New(), sources, testOptions("VDD"), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	var txt bytes.Buffer
	if err := res.WriteVoltages(&txt, block.Tech); err != nil {
		t.Fatalf("voltages: %v", err)
	}
	// one line per grid node in microns, source node first
	if !strings.Contains(txt.String(), "0.0000 0.5000 1.100000") {
		t.Fatalf("voltage file missing source node:\n%s", txt.String())
	}

	var xml bytes.Buffer
	if err := res.WriteXML(&xml, block.Tech); err != nil {
		t.Fatalf("xml: %v", err)
	}
	for _, want := range []string{`net="VDD"`, "worst-drop", `kind="power"`, `name="u1"`} {
		if !strings.Contains(xml.String(), want) {
			t.Fatalf("xml report missing %q:\n%s", want, xml.String())
		}
	}
}

func TestWriteVoltagesGolden(t *testing.T) {
	block := singleStrapBlock(t, common.PinUsePower)
	sources := []Source{{Loc: db.Point{X: 0, Y: 500}, Voltage: 1.1}}
	res, err := Run(context.Background(), block, testCatalog(t, 1e6), sdc.New(), sources, testOptions("VDD"), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	out := regress.ResultFile(t, "vdd-voltages.txt")
	f, err := os.Create(out)
	if err != nil {
		t.Fatal(err)
	}
	if err := res.WriteVoltages(f, block.Tech); err != nil {
		t.Fatalf("voltages: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	d := regress.Differ{Tolerance: 1e-5}
	if err := d.DiffFiles(out, filepath.Join("testdata", "vdd-voltages.golden")); err != nil {
		t.Fatalf("diff: %v", err)
	}
}

func TestRunRejectsUnsourcedIsland(t *testing.T) {
	block := singleStrapBlock(t, common.PinUsePower)
	snet := block.SNet("VDD")
	// a second strap that never crosses the first, electrically floating
	snet.Wires = append(snet.Wires, db.SWire{
		Layer: "metal1", Width: 100,
		From: db.Point{X: 0, Y: 900}, To: db.Point{X: 10000, Y: 900},
		Shape: common.WireShapeStripe,
	})
	sources := []Source{{Loc: db.Point{X: 0, Y: 500}, Voltage: 1.1}}

	_, err := Run(context.Background(), block, testCatalog(t, 1e6), sdc.New(), sources, testOptions("VDD"), zaptest.NewLogger(t))
	if err == nil {
		t.Fatal("expected error for floating grid island")
	}
	if !strings.Contains(err.Error(), "island") {
		t.Fatalf("error does not name the island: %v", err)
	}
	if !strings.Contains(err.Error(), "0.9000") {
		t.Fatalf("error does not locate the island: %v", err)
	}
}

func TestRunWarnsAboutFarSource(t *testing.T) {
	block := singleStrapBlock(t, common.PinUsePower)
	core, logs := observer.New(zap.WarnLevel)
	sources := []Source{{Loc: db.Point{X: 5000, Y: 0}, Voltage: 1.1}}

	if _, err := Run(context.Background(), block, testCatalog(t, 1e6), sdc.New(), sources, testOptions("VDD"), zap.New(core)); err != nil {
		t.Fatalf("run: %v", err)
	}
	if logs.FilterMessageSnippet("snapping").Len() == 0 {
		t.Fatal("no warning for a source far from the grid")
	}
}
