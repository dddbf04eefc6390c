package power

import (
	"bufio"
	"cmp"
	"fmt"
	"io"
	"slices"

	"github.com/beevik/etree"

	"orca/db"
)

// WriteVoltages writes solved node voltages as text, one "x y voltage"
// line per grid node with coordinates in microns, sorted by position.
func (r *Result) WriteVoltages(out io.Writer, tech *db.Tech) error {
	nodes := slices.Clone(r.Nodes)
	slices.SortFunc(nodes, func(a, b NodeVoltage) int {
		if c := cmp.Compare(a.Loc.X, b.Loc.X); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Loc.Y, b.Loc.Y); c != 0 {
			return c
		}
		return cmp.Compare(a.Layer, b.Layer)
	})

	w := bufio.NewWriter(out)
	fmt.Fprintf(w, "# net %s supply %.6f\n", r.Net, r.Supply)
	for _, nv := range nodes {
		fmt.Fprintf(w, "%.4f %.4f %.6f\n",
			tech.DBUToMicrons(nv.Loc.X), tech.DBUToMicrons(nv.Loc.Y), nv.Voltage)
	}
	return w.Flush()
}

// WriteXML writes the full analysis report. Coordinates are reported in
// microns.
func (r *Result) WriteXML(out io.Writer, tech *db.Tech) error {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("ir-drop")
	root.CreateAttr("net", r.Net)
	if r.Ground {
		root.CreateAttr("kind", "ground")
	} else {
		root.CreateAttr("kind", "power")
	}

	summary := root.CreateElement("summary")
	summary.CreateAttr("supply", fmt.Sprintf("%.6f", r.Supply))
	summary.CreateAttr("worst-drop", fmt.Sprintf("%.6f", r.WorstDrop))
	summary.CreateAttr("avg-drop", fmt.Sprintf("%.6f", r.AvgDrop))
	summary.CreateAttr("total-current", fmt.Sprintf("%.6e", r.TotalCurr))
	summary.CreateAttr("sources", fmt.Sprintf("%d", r.Sources))
	summary.CreateAttr("nodes", fmt.Sprintf("%d", len(r.Nodes)))
	summary.CreateAttr("solver-iterations", fmt.Sprintf("%d", r.Solver.Iterations))

	worst := root.CreateElement("worst-location")
	worst.CreateAttr("x", formatMicrons(tech, r.WorstLoc.X))
	worst.CreateAttr("y", formatMicrons(tech, r.WorstLoc.Y))

	insts := root.CreateElement("components")
	for _, iv := range r.Insts {
		e := insts.CreateElement("component")
		e.CreateAttr("name", iv.Inst)
		e.CreateAttr("voltage", fmt.Sprintf("%.6f", iv.Voltage))
		e.CreateAttr("drop", fmt.Sprintf("%.6f", iv.Drop))
	}

	doc.Indent(2)
	_, err := doc.WriteTo(out)
	return err
}

func formatMicrons(tech *db.Tech, dbu int64) string {
	return fmt.Sprintf("%.4f", tech.DBUToMicrons(dbu))
}
