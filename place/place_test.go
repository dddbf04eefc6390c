package place

import (
	"context"
	"testing"

	"go.uber.org/zap/zaptest"

	"orca/common"
	"orca/db"
)

func testOptions() Options {
	return Options{
		Density:         0.7,
		TargetOverflow:  0.2,
		MaxIterations:   64,
		InitIterations:  8,
		Seed:            1,
		PaddingSites:    0,
		DivergenceRatio: 10,
	}
}

// buildDesign makes a small design: a 20000 x 10000 core with 10 rows, two
// fixed terminals on opposite edges and a chain of cells between them.
func buildDesign(t *testing.T, cells int) *db.Block {
	t.Helper()

	tech := db.NewTech()
	if err := tech.AddSite(&db.Site{Name: "core", Width: 200, Height: 1000}); err != nil {
		t.Fatal(err)
	}
	m := &db.Master{Name: "BUF_X1", Class: "CORE", Site: "core", Width: 400, Height: 1000}
	for _, p := range []*db.MPin{
		{Name: "A", Dir: common.DirectionInput, Shapes: []db.LayerRect{{Layer: "metal1", Rect: db.NewRect(0, 400, 100, 600)}}},
		{Name: "Z", Dir: common.DirectionOutput, Shapes: []db.LayerRect{{Layer: "metal1", Rect: db.NewRect(300, 400, 400, 600)}}},
	} {
		if err := m.AddPin(p); err != nil {
			t.Fatal(err)
		}
	}
	if err := tech.AddMaster(m); err != nil {
		t.Fatal(err)
	}

	block := db.NewBlock(tech, "chain")
	block.Die = db.NewRect(0, 0, 20000, 10000)
	for r := 0; r < 10; r++ {
		orient := common.OrientN
		if r%2 == 1 {
			orient = common.OrientFS
		}
		block.Rows = append(block.Rows, &db.Row{
			Name: "row" + string(rune('0'+r)), Site: "core",
			Origin: db.Point{X: 0, Y: int64(r) * 1000},
			Orient: orient, NumX: 100, NumY: 1, StepX: 200,
		})
	}

	in := &db.Term{Name: "in", Dir: common.DirectionInput, Status: common.PlaceStatusFixed, Loc: db.Point{X: 0, Y: 5000}}
	out := &db.Term{Name: "out", Dir: common.DirectionOutput, Status: common.PlaceStatusFixed, Loc: db.Point{X: 20000, Y: 5000}}
	for _, term := range []*db.Term{in, out} {
		if err := block.AddTerm(term); err != nil {
			t.Fatal(err)
		}
	}

	insts := make([]*db.Inst, cells)
	for i := range insts {
		insts[i] = &db.Inst{Name: "u" + string(rune('a'+i/26)) + string(rune('a'+i%26)), Master: m, Status: common.PlaceStatusUnplaced}
		if err := block.AddInst(insts[i]); err != nil {
			t.Fatal(err)
		}
	}
	for i := 0; i <= cells; i++ {
		net := &db.Net{Name: "n" + string(rune('a'+i/26)) + string(rune('a'+i%26))}
		switch {
		case i == 0:
			net.Terms = append(net.Terms, in)
			net.Conns = append(net.Conns, db.NetConn{Inst: insts[0], Pin: m.Pin("A")})
		case i == cells:
			net.Conns = append(net.Conns, db.NetConn{Inst: insts[cells-1], Pin: m.Pin("Z")})
			net.Terms = append(net.Terms, out)
		default:
			net.Conns = append(net.Conns,
				db.NetConn{Inst: insts[i-1], Pin: m.Pin("Z")},
				db.NetConn{Inst: insts[i], Pin: m.Pin("A")})
		}
		if err := block.AddNet(net); err != nil {
			t.Fatal(err)
		}
	}
	return block
}

func TestRunPlacesEverything(t *testing.T) {
	block := buildDesign(t, 30)
	stats, err := Run(context.Background(), block, testOptions(), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if stats.Movable != 30 {
		t.Fatalf("movable = %d", stats.Movable)
	}
	if stats.FinalHPWL <= 0 {
		t.Fatalf("final hpwl = %d", stats.FinalHPWL)
	}

	core := block.CoreArea()
	for _, inst := range block.Insts {
		if !inst.Status.IsPlaced() {
			t.Fatalf("%s not placed", inst.Name)
		}
		b := inst.Bounds()
		if b.Lo.X < core.Lo.X || b.Hi.X > core.Hi.X || b.Lo.Y < core.Lo.Y || b.Hi.Y > core.Hi.Y {
			t.Fatalf("%s placed outside core: %+v", inst.Name, b)
		}
		if (inst.Loc.X-core.Lo.X)%200 != 0 {
			t.Fatalf("%s off site grid: %+v", inst.Name, inst.Loc)
		}
		if (inst.Loc.Y-core.Lo.Y)%1000 != 0 {
			t.Fatalf("%s off row grid: %+v", inst.Name, inst.Loc)
		}
	}
}

func TestRunProducesNoOverlaps(t *testing.T) {
	block := buildDesign(t, 40)
	if _, err := Run(context.Background(), block, testOptions(), zaptest.NewLogger(t)); err != nil {
		t.Fatalf("place: %v", err)
	}
	for i, a := range block.Insts {
		for _, b := range block.Insts[i+1:] {
			if a.Bounds().Intersects(b.Bounds()) {
				t.Fatalf("%s overlaps %s", a.Name, b.Name)
			}
		}
	}
}

func TestRunIsDeterministic(t *testing.T) {
	first := buildDesign(t, 20)
	second := buildDesign(t, 20)
	if _, err := Run(context.Background(), first, testOptions(), zaptest.NewLogger(t)); err != nil {
		t.Fatal(err)
	}
	if _, err := Run(context.Background(), second, testOptions(), zaptest.NewLogger(t)); err != nil {
		t.Fatal(err)
	}
	for _, a := range first.Insts {
		b := second.Inst(a.Name)
		if a.Loc != b.Loc || a.Orient != b.Orient {
			t.Fatalf("%s differs between runs: %+v vs %+v", a.Name, a.Loc, b.Loc)
		}
	}
}

func TestRunKeepsFixedCells(t *testing.T) {
	block := buildDesign(t, 10)
	fixed := block.Inst("uaa")
	fixed.Status = common.PlaceStatusFixed
	fixed.Loc = db.Point{X: 400, Y: 2000}

	if _, err := Run(context.Background(), block, testOptions(), zaptest.NewLogger(t)); err != nil {
		t.Fatalf("place: %v", err)
	}
	if fixed.Loc != (db.Point{X: 400, Y: 2000}) || fixed.Status != common.PlaceStatusFixed {
		t.Fatalf("fixed cell moved: %+v", fixed)
	}
	for _, inst := range block.Insts {
		if inst != fixed && inst.Bounds().Intersects(fixed.Bounds()) {
			t.Fatalf("%s overlaps the fixed cell", inst.Name)
		}
	}
}

func TestRunRejectsBadDensity(t *testing.T) {
	block := buildDesign(t, 5)
	opts := testOptions()
	opts.Density = 0
	if _, err := Run(context.Background(), block, opts, zaptest.NewLogger(t)); err == nil {
		t.Fatal("expected density range error")
	}
}

func TestRunRejectsRowlessDesign(t *testing.T) {
	block := buildDesign(t, 5)
	block.Rows = nil
	if _, err := Run(context.Background(), block, testOptions(), zaptest.NewLogger(t)); err == nil {
		t.Fatal("expected error for design without rows")
	}
}

func TestRunHonorsCancellation(t *testing.T) {
	block := buildDesign(t, 5)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Run(ctx, block, testOptions(), zaptest.NewLogger(t)); err == nil {
		t.Fatal("expected context error")
	}
}

func TestLegalizeSnapUp(t *testing.T) {
	if got := snapUp(450, 0, 200); got != 600 {
		t.Fatalf("snapUp(450) = %d", got)
	}
	if got := snapUp(-10, 0, 200); got != 0 {
		t.Fatalf("snapUp(-10) = %d", got)
	}
	if got := snapUp(600, 0, 200); got != 600 {
		t.Fatalf("snapUp(600) = %d", got)
	}
}
