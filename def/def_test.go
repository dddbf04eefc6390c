package def

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"orca/common"
	"orca/db"
	"orca/regress"
)

const gcdDEF = `
VERSION 5.8 ;
DIVIDERCHAR "/" ;
BUSBITCHARS "[]" ;
DESIGN gcd ;
UNITS DISTANCE MICRONS 2000 ;
DIEAREA ( 0 0 ) ( 200260 201600 ) ;
ROW ROW_0 core 20140 22400 FS DO 420 BY 1 STEP 380 0 ;
ROW ROW_1 core 20140 25200 N DO 420 BY 1 STEP 380 0 ;
TRACKS X 190 DO 527 STEP 380 LAYER metal1 ;
TRACKS Y 140 DO 720 STEP 280 LAYER metal1 ;
GCELLGRID X 0 DO 27 STEP 7600 ;
GCELLGRID Y 0 DO 27 STEP 7600 ;
COMPONENTS 3 ;
 - _297_ AND2_X1 + PLACED ( 100700 95200 ) N ;
 - _298_ AND2_X1 + FIXED ( 20140 22400 ) FS ;
 - _299_ AND2_X1 + UNPLACED ;
END COMPONENTS
PINS 2 ;
 - clk + NET clk + DIRECTION INPUT + USE CLOCK
   + LAYER metal2 ( -70 0 ) ( 70 140 )
   + PLACED ( 100130 0 ) N ;
 - resp_msg[0] + NET resp_msg[0] + DIRECTION OUTPUT + USE SIGNAL ;
END PINS
NETS 2 ;
 - clk ( _297_ A1 ) ( _298_ A1 ) ;
 - resp_msg[0] ( PIN resp_msg[0] ) ( _297_ ZN ) ;
END NETS
SPECIALNETS 1 ;
 - VDD ( * VDD ) + USE POWER
   + ROUTED metal4 480 + SHAPE STRIPE ( 100 500 ) ( 199000 * )
     NEW metal4 480 + SHAPE STRIPE ( 500 100 ) ( * 200000 ) ;
END SPECIALNETS
END DESIGN
`

func testTech(t *testing.T) *db.Tech {
	t.Helper()

	tech := db.NewTech()
	tech.DBUPerMicron = 2000
	if err := tech.AddSite(&db.Site{Name: "core", Width: 380, Height: 2800}); err != nil {
		t.Fatal(err)
	}
	m := &db.Master{Name: "AND2_X1", Class: "CORE", Site: "core", Width: 1520, Height: 2800}
	for _, p := range []*db.MPin{
		{Name: "A1", Dir: common.DirectionInput},
		{Name: "ZN", Dir: common.DirectionOutput},
		{Name: "VDD", Dir: common.DirectionInout, Use: common.PinUsePower},
	} {
		if err := m.AddPin(p); err != nil {
			t.Fatal(err)
		}
	}
	if err := tech.AddMaster(m); err != nil {
		t.Fatal(err)
	}
	return tech
}

func parseGCD(t *testing.T) *db.Block {
	t.Helper()
	block, err := Parse([]byte(gcdDEF), testTech(t), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return block
}

func TestParseHeader(t *testing.T) {
	block := parseGCD(t)
	if block.Name != "gcd" {
		t.Fatalf("design = %q", block.Name)
	}
	if block.Units != 2000 {
		t.Fatalf("units = %d", block.Units)
	}
	if block.Die != db.NewRect(0, 0, 200260, 201600) {
		t.Fatalf("die = %+v", block.Die)
	}
	if len(block.Rows) != 2 || len(block.Tracks) != 2 || len(block.GCells) != 2 {
		t.Fatalf("rows/tracks/gcells = %d/%d/%d", len(block.Rows), len(block.Tracks), len(block.GCells))
	}
	row := block.Rows[0]
	if row.Orient != common.OrientFS || row.NumX != 420 || row.StepX != 380 {
		t.Fatalf("row = %+v", row)
	}
	track := block.Tracks[0]
	if track.Dir != common.LayerDirVertical || track.Start != 190 || track.Num != 527 || track.Layer != "metal1" {
		t.Fatalf("track = %+v", track)
	}
}

func TestParseComponents(t *testing.T) {
	block := parseGCD(t)
	if len(block.Insts) != 3 {
		t.Fatalf("components = %d", len(block.Insts))
	}

	placed := block.Inst("_297_")
	if placed.Status != common.PlaceStatusPlaced || placed.Loc != (db.Point{X: 100700, Y: 95200}) {
		t.Fatalf("placed = %+v", placed)
	}
	fixed := block.Inst("_298_")
	if fixed.Status != common.PlaceStatusFixed || fixed.Orient != common.OrientFS {
		t.Fatalf("fixed = %+v", fixed)
	}
	if block.Inst("_299_").Status != common.PlaceStatusUnplaced {
		t.Fatal("expected unplaced component")
	}
}

func TestParseTermsAndNets(t *testing.T) {
	block := parseGCD(t)

	clk := block.Term("clk")
	if clk == nil || clk.Dir != common.DirectionInput || clk.Use != common.PinUseClock {
		t.Fatalf("clk = %+v", clk)
	}
	if clk.Layer != "metal2" || clk.Shape != db.NewRect(-70, 0, 70, 140) {
		t.Fatalf("clk shape = %+v", clk.Shape)
	}
	if clk.Loc != (db.Point{X: 100130, Y: 0}) || !clk.Status.IsPlaced() {
		t.Fatalf("clk placement = %+v", clk)
	}
	if clk.Net == nil || clk.Net.Name != "clk" {
		t.Fatal("clk terminal not bound to its net")
	}

	net := block.Net("clk")
	if len(net.Conns) != 2 {
		t.Fatalf("clk conns = %d", len(net.Conns))
	}
	out := block.Net("resp_msg[0]")
	if len(out.Terms) != 1 || out.Terms[0].Name != "resp_msg[0]" {
		t.Fatalf("resp_msg[0] terms = %+v", out.Terms)
	}
}

func TestParseSpecialNets(t *testing.T) {
	block := parseGCD(t)
	vdd := block.SNet("VDD")
	if vdd == nil || vdd.Use != common.PinUsePower {
		t.Fatalf("VDD = %+v", vdd)
	}
	if len(vdd.Wires) != 2 {
		t.Fatalf("wires = %d", len(vdd.Wires))
	}
	h := vdd.Wires[0]
	if !h.Horizontal() || h.Width != 480 || h.Shape != common.WireShapeStripe {
		t.Fatalf("first wire = %+v", h)
	}
	// the "*" coordinate repeats the previous value
	if h.To != (db.Point{X: 199000, Y: 500}) {
		t.Fatalf("wildcard expansion = %+v", h.To)
	}
	v := vdd.Wires[1]
	if v.Horizontal() || v.To != (db.Point{X: 500, Y: 200000}) {
		t.Fatalf("second wire = %+v", v)
	}
}

func TestWriteRoundTrip(t *testing.T) {
	block := parseGCD(t)

	var buf bytes.Buffer
	if err := Write(&buf, block); err != nil {
		t.Fatalf("write: %v", err)
	}

	again, err := Parse(buf.Bytes(), testTech(t), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("reparse: %v\n%s", err, buf.String())
	}
	if again.Name != block.Name || len(again.Insts) != len(block.Insts) || len(again.Nets) != len(block.Nets) {
		t.Fatal("round trip lost records")
	}
	if again.Inst("_297_").Loc != block.Inst("_297_").Loc {
		t.Fatal("round trip moved a component")
	}
	if len(again.SNet("VDD").Wires) != 2 {
		t.Fatal("round trip lost special wiring")
	}

	var buf2 bytes.Buffer
	if err := Write(&buf2, again); err != nil {
		t.Fatalf("second write: %v", err)
	}
	if !bytes.Equal(buf.Bytes(), buf2.Bytes()) {
		t.Fatal("writer output is not deterministic")
	}
}

func TestWriteGolden(t *testing.T) {
	block := parseGCD(t)

	out := regress.ResultFile(t, "gcd-out.def")
	f, err := os.Create(out)
	if err != nil {
		t.Fatal(err)
	}
	if err := Write(f, block); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	if err := (regress.Differ{}).DiffFiles(out, filepath.Join("testdata", "gcd-out.def")); err != nil {
		t.Fatalf("diff: %v", err)
	}
}

func TestParseRejectsUnknownMacro(t *testing.T) {
	src := strings.Replace(gcdDEF, "AND2_X1 + PLACED", "NAND9_X9 + PLACED", 1)
	if _, err := Parse([]byte(src), testTech(t), zaptest.NewLogger(t)); err == nil {
		t.Fatal("expected error for unknown macro")
	}
}
