package def

import (
	"bufio"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/maruel/natural"

	"orca/common"
	"orca/db"
)

// Write serializes a block in DEF 5.8 format. Components, pins and nets are
// emitted in natural name order so two writes of the same design are byte
// identical.
func Write(out io.Writer, block *db.Block) error {
	w := bufio.NewWriter(out)

	fmt.Fprintf(w, "VERSION 5.8 ;\n")
	fmt.Fprintf(w, "DIVIDERCHAR \"/\" ;\n")
	fmt.Fprintf(w, "BUSBITCHARS \"[]\" ;\n")
	fmt.Fprintf(w, "DESIGN %s ;\n", block.Name)
	fmt.Fprintf(w, "UNITS DISTANCE MICRONS %d ;\n", block.Units)
	fmt.Fprintf(w, "DIEAREA ( %d %d ) ( %d %d ) ;\n", block.Die.Lo.X, block.Die.Lo.Y, block.Die.Hi.X, block.Die.Hi.Y)

	for _, row := range block.Rows {
		fmt.Fprintf(w, "ROW %s %s %d %d %s DO %d BY %d STEP %d %d ;\n",
			row.Name, row.Site, row.Origin.X, row.Origin.Y, row.Orient,
			row.NumX, row.NumY, row.StepX, row.StepY)
	}
	for _, track := range block.Tracks {
		fmt.Fprintf(w, "TRACKS %s %d DO %d STEP %d LAYER %s ;\n",
			axisOf(track.Dir), track.Start, track.Num, track.Step, track.Layer)
	}
	for _, g := range block.GCells {
		fmt.Fprintf(w, "GCELLGRID %s %d DO %d STEP %d ;\n", axisOf(g.Dir), g.Start, g.Num, g.Step)
	}

	writeComponents(w, block)
	writeTerms(w, block)
	writeNets(w, block)
	writeSNets(w, block)

	fmt.Fprintf(w, "END DESIGN\n")
	return w.Flush()
}

// axisOf maps the preferred routing direction back to a DEF track axis:
// vertical tracks run along Y but are spaced along X.
func axisOf(dir common.LayerDir) string {
	if dir == common.LayerDirVertical {
		return "X"
	}
	return "Y"
}

func statusKeyword(s common.PlaceStatus) string {
	switch s {
	case common.PlaceStatusFixed:
		return "FIXED"
	case common.PlaceStatusCover:
		return "COVER"
	default:
		return "PLACED"
	}
}

func writeComponents(w *bufio.Writer, block *db.Block) {
	insts := block.SortedInsts()
	fmt.Fprintf(w, "COMPONENTS %d ;\n", len(insts))
	for _, inst := range insts {
		if inst.Status.IsPlaced() {
			fmt.Fprintf(w, " - %s %s + %s ( %d %d ) %s ;\n",
				inst.Name, inst.Master.Name, statusKeyword(inst.Status),
				inst.Loc.X, inst.Loc.Y, inst.Orient)
		} else {
			fmt.Fprintf(w, " - %s %s + UNPLACED ;\n", inst.Name, inst.Master.Name)
		}
	}
	fmt.Fprintf(w, "END COMPONENTS\n")
}

func writeTerms(w *bufio.Writer, block *db.Block) {
	terms := block.SortedTerms()
	if len(terms) == 0 {
		return
	}
	fmt.Fprintf(w, "PINS %d ;\n", len(terms))
	for _, t := range terms {
		fmt.Fprintf(w, " - %s", t.Name)
		if t.Net != nil {
			fmt.Fprintf(w, " + NET %s", t.Net.Name)
		}
		fmt.Fprintf(w, " + DIRECTION %s", strings.ToUpper(t.Dir.String()))
		fmt.Fprintf(w, " + USE %s", strings.ToUpper(t.Use.String()))
		if t.Layer != "" {
			fmt.Fprintf(w, "\n   + LAYER %s ( %d %d ) ( %d %d )",
				t.Layer, t.Shape.Lo.X, t.Shape.Lo.Y, t.Shape.Hi.X, t.Shape.Hi.Y)
		}
		if t.Status.IsPlaced() {
			fmt.Fprintf(w, "\n   + %s ( %d %d ) %s", statusKeyword(t.Status), t.Loc.X, t.Loc.Y, t.Orient)
		}
		fmt.Fprintf(w, " ;\n")
	}
	fmt.Fprintf(w, "END PINS\n")
}

func writeNets(w *bufio.Writer, block *db.Block) {
	nets := block.SortedNets()
	fmt.Fprintf(w, "NETS %d ;\n", len(nets))
	for _, n := range nets {
		fmt.Fprintf(w, " - %s", n.Name)
		for _, t := range n.Terms {
			fmt.Fprintf(w, " ( PIN %s )", t.Name)
		}
		for _, c := range n.Conns {
			fmt.Fprintf(w, " ( %s %s )", c.Inst.Name, c.Pin.Name)
		}
		if n.Use != common.PinUseSignal {
			fmt.Fprintf(w, " + USE %s", strings.ToUpper(n.Use.String()))
		}
		fmt.Fprintf(w, " ;\n")
	}
	fmt.Fprintf(w, "END NETS\n")
}

func writeSNets(w *bufio.Writer, block *db.Block) {
	if len(block.SNets) == 0 {
		return
	}
	snets := slices.Clone(block.SNets)
	slices.SortFunc(snets, func(a, b *db.SNet) int {
		if natural.Less(a.Name, b.Name) {
			return -1
		}
		if natural.Less(b.Name, a.Name) {
			return 1
		}
		return 0
	})
	fmt.Fprintf(w, "SPECIALNETS %d ;\n", len(snets))
	for _, n := range snets {
		fmt.Fprintf(w, " - %s ( * %s )", n.Name, n.Name)
		if n.Use != common.PinUseSignal {
			fmt.Fprintf(w, " + USE %s", strings.ToUpper(n.Use.String()))
		}
		for i, wire := range n.Wires {
			if i == 0 {
				fmt.Fprintf(w, "\n   + ROUTED")
			} else {
				fmt.Fprintf(w, "\n     NEW")
			}
			fmt.Fprintf(w, " %s %d", wire.Layer, wire.Width)
			if wire.Shape != common.WireShapeNone {
				fmt.Fprintf(w, " + SHAPE %s", strings.ToUpper(wire.Shape.String()))
			}
			fmt.Fprintf(w, " ( %d %d ) ( %d %d )", wire.From.X, wire.From.Y, wire.To.X, wire.To.Y)
		}
		fmt.Fprintf(w, " ;\n")
	}
	fmt.Fprintf(w, "END SPECIALNETS\n")
}
