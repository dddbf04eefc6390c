package pin

import (
	"context"
	"testing"

	"go.uber.org/zap/zaptest"

	"orca/common"
	"orca/db"
)

func buildDesign(t *testing.T, termNames []string) *db.Block {
	t.Helper()

	tech := db.NewTech()
	for _, l := range []*db.Layer{
		{Name: "metal2", Type: common.LayerTypeRouting, Dir: common.LayerDirHorizontal, Pitch: 400, Width: 140},
		{Name: "metal3", Type: common.LayerTypeRouting, Dir: common.LayerDirVertical, Pitch: 400, Width: 140},
		{Name: "via1", Type: common.LayerTypeCut},
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

	block := db.NewBlock(tech, "top")
	block.Die = db.NewRect(0, 0, 40000, 40000)

	anchor := &db.Inst{Name: "u1", Master: m, Status: common.PlaceStatusPlaced, Loc: db.Point{X: 1000, Y: 20000}}
	if err := block.AddInst(anchor); err != nil {
		t.Fatal(err)
	}
	for _, name := range termNames {
		term := &db.Term{Name: name, Dir: common.DirectionInput}
		if err := block.AddTerm(term); err != nil {
			t.Fatal(err)
		}
		net := &db.Net{Name: name}
		net.Terms = append(net.Terms, term)
		net.Conns = append(net.Conns, db.NetConn{Inst: anchor, Pin: m.Pin("A")})
		term.Net = net
		if err := block.AddNet(net); err != nil {
			t.Fatal(err)
		}
	}
	return block
}

func testOptions() Options {
	return Options{
		HorLayers:       []string{"metal2"},
		VerLayers:       []string{"metal3"},
		CornerAvoidance: 2000,
		MinDistance:     400,
	}
}

func TestRunPlacesAllTerminals(t *testing.T) {
	block := buildDesign(t, []string{"a", "b", "c", "d"})
	stats, err := Run(context.Background(), block, testOptions(), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stats.Placed != 4 {
		t.Fatalf("placed = %d", stats.Placed)
	}
	for _, term := range block.Terms {
		if !term.Status.IsPlaced() {
			t.Fatalf("%s not placed", term.Name)
		}
		onBoundary := term.Loc.X == 0 || term.Loc.X == 40000 || term.Loc.Y == 0 || term.Loc.Y == 40000
		if !onBoundary {
			t.Fatalf("%s not on the die boundary: %+v", term.Name, term.Loc)
		}
		if term.Layer == "" {
			t.Fatalf("%s has no layer", term.Name)
		}
	}
}

func TestRunUsesEdgeMatchingLayers(t *testing.T) {
	block := buildDesign(t, []string{"a"})
	if _, err := Run(context.Background(), block, testOptions(), zaptest.NewLogger(t)); err != nil {
		t.Fatal(err)
	}
	term := block.Term("a")
	// the anchor cell sits near the left edge, the pin should follow it there
	if term.Loc.X != 0 {
		t.Fatalf("pin not on left edge: %+v", term.Loc)
	}
	if term.Layer != "metal2" {
		t.Fatalf("left edge pin on %q, want horizontal layer metal2", term.Layer)
	}
}

func TestRunCornerAvoidance(t *testing.T) {
	block := buildDesign(t, []string{"a", "b", "c"})
	opts := testOptions()
	opts.CornerAvoidance = 15000
	if _, err := Run(context.Background(), block, opts, zaptest.NewLogger(t)); err != nil {
		t.Fatal(err)
	}
	for _, term := range block.Terms {
		along := term.Loc.X
		if term.Loc.X == 0 || term.Loc.X == 40000 {
			along = term.Loc.Y
		}
		if along < 15000 || along > 40000-15000 {
			t.Fatalf("%s inside corner keep-out: %+v", term.Name, term.Loc)
		}
	}
}

func TestRunMinDistance(t *testing.T) {
	block := buildDesign(t, []string{"a", "b", "c", "d", "e"})
	opts := testOptions()
	opts.MinDistance = 1200
	if _, err := Run(context.Background(), block, opts, zaptest.NewLogger(t)); err != nil {
		t.Fatal(err)
	}
	for i, a := range block.Terms {
		for _, b := range block.Terms[i+1:] {
			sameEdge := (a.Loc.X == b.Loc.X && (a.Loc.X == 0 || a.Loc.X == 40000)) ||
				(a.Loc.Y == b.Loc.Y && (a.Loc.Y == 0 || a.Loc.Y == 40000))
			if !sameEdge {
				continue
			}
			if d := abs64(a.Loc.X-b.Loc.X) + abs64(a.Loc.Y-b.Loc.Y); d < 1200 {
				t.Fatalf("%s and %s are %d apart, want at least 1200", a.Name, b.Name, d)
			}
		}
	}
}

func TestRunGroupsAreContiguous(t *testing.T) {
	block := buildDesign(t, []string{"req[0]", "req[1]", "req[2]", "req[10]", "x"})
	opts := testOptions()
	opts.Groups = [][]string{{"req[1]", "req[10]", "req[0]", "req[2]"}}
	stats, err := Run(context.Background(), block, opts, zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	if stats.Groups != 1 {
		t.Fatalf("groups = %d", stats.Groups)
	}

	// all four group members follow the anchor to the left edge and sit on
	// adjacent slots in bus order, bottom to top along the walk
	var ys []int64
	for _, name := range []string{"req[0]", "req[1]", "req[2]", "req[10]"} {
		term := block.Term(name)
		if term.Loc.X != 0 {
			t.Fatalf("%s left the group edge: %+v", name, term.Loc)
		}
		ys = append(ys, term.Loc.Y)
	}
	for i := 1; i < len(ys); i++ {
		// left edge is walked downward, so bus order decreases in y; slots
		// sit two layer pitches apart
		if ys[i-1]-ys[i] != 800 {
			t.Fatalf("group not contiguous in order: %v", ys)
		}
	}
}

func TestBuildSlotsUniqueCorners(t *testing.T) {
	block := buildDesign(t, nil)
	opts := testOptions()
	opts.CornerAvoidance = 0

	hor := []*db.Layer{block.Tech.Layer("metal2")}
	ver := []*db.Layer{block.Tech.Layer("metal3")}
	slots := buildSlots(block.Die, hor, ver, opts)

	seen := make(map[db.Point]int)
	for _, s := range slots {
		seen[s.pos]++
	}
	for p, n := range seen {
		if n > 1 {
			t.Fatalf("slot position %+v appears %d times", p, n)
		}
	}
	// 51 positions per 40000 edge at step 800, the four corner points shared
	// between adjacent edges counted once
	if len(slots) != 4*51-4 {
		t.Fatalf("slots = %d", len(slots))
	}
}

func TestRunZeroCornerAvoidanceSpacing(t *testing.T) {
	block := buildDesign(t, []string{"a", "b", "c", "d", "e", "f"})
	opts := testOptions()
	opts.CornerAvoidance = 0
	if _, err := Run(context.Background(), block, opts, zaptest.NewLogger(t)); err != nil {
		t.Fatal(err)
	}
	for i, a := range block.Terms {
		for _, b := range block.Terms[i+1:] {
			if a.Loc == b.Loc {
				t.Fatalf("%s and %s share position %+v", a.Name, b.Name, a.Loc)
			}
		}
	}
}

func TestRunExcludes(t *testing.T) {
	block := buildDesign(t, []string{"a", "b"})
	opts := testOptions()
	opts.Excludes = []Exclude{
		{Edge: common.EdgeLeft, Lo: -1, Hi: -1},
		{Edge: common.EdgeBottom, Lo: 0, Hi: 20000},
	}
	if _, err := Run(context.Background(), block, opts, zaptest.NewLogger(t)); err != nil {
		t.Fatal(err)
	}
	for _, term := range block.Terms {
		if term.Loc.X == 0 {
			t.Fatalf("%s placed on excluded left edge", term.Name)
		}
		if term.Loc.Y == 0 && term.Loc.X <= 20000 {
			t.Fatalf("%s placed in excluded bottom interval: %+v", term.Name, term.Loc)
		}
	}
}

func TestRunErrors(t *testing.T) {
	t.Run("missing layers", func(t *testing.T) {
		block := buildDesign(t, []string{"a"})
		if _, err := Run(context.Background(), block, Options{}, zaptest.NewLogger(t)); err == nil {
			t.Fatal("expected error without layers")
		}
	})
	t.Run("unknown layer", func(t *testing.T) {
		block := buildDesign(t, []string{"a"})
		opts := testOptions()
		opts.HorLayers = []string{"metal9"}
		if _, err := Run(context.Background(), block, opts, zaptest.NewLogger(t)); err == nil {
			t.Fatal("expected error for unknown layer")
		}
	})
	t.Run("cut layer", func(t *testing.T) {
		block := buildDesign(t, []string{"a"})
		opts := testOptions()
		opts.VerLayers = []string{"via1"}
		if _, err := Run(context.Background(), block, opts, zaptest.NewLogger(t)); err == nil {
			t.Fatal("expected error for non-routing layer")
		}
	})
	t.Run("unknown group pin", func(t *testing.T) {
		block := buildDesign(t, []string{"a"})
		opts := testOptions()
		opts.Groups = [][]string{{"nope"}}
		if _, err := Run(context.Background(), block, opts, zaptest.NewLogger(t)); err == nil {
			t.Fatal("expected error for unknown group pin")
		}
	})
	t.Run("too many pins", func(t *testing.T) {
		block := buildDesign(t, []string{"a", "b", "c", "d", "e", "f"})
		opts := testOptions()
		opts.CornerAvoidance = 19900 // one slot per edge at most
		if _, err := Run(context.Background(), block, opts, zaptest.NewLogger(t)); err == nil {
			t.Fatal("expected error when pins outnumber slots")
		}
	})
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
