// Package render draws design snapshots: an SVG of the floorplan with
// placed components and terminals, rasterized to PNG on request, and an IR
// drop heatmap variant for power analysis results.
package render

import (
	"fmt"

	"github.com/beevik/etree"

	"orca/db"
	"orca/power"
)

// canvas maps design coordinates onto an SVG viewport. DEF has the origin
// in the lower left corner, SVG in the upper left, so y is flipped.
type canvas struct {
	tech *db.Tech
	die  db.Rect
	root *etree.Element
	doc  *etree.Document
}

func newCanvas(block *db.Block) (*canvas, error) {
	if block.Die.Area() <= 0 {
		return nil, fmt.Errorf("design %q has no die area", block.Name)
	}
	c := &canvas{tech: block.Tech, die: block.Die, doc: etree.NewDocument()}
	c.doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	w := c.tech.DBUToMicrons(block.Die.Dx())
	h := c.tech.DBUToMicrons(block.Die.Dy())
	margin := 0.02 * maxf(w, h)

	c.root = c.doc.CreateElement("svg")
	c.root.CreateAttr("xmlns", "http://www.w3.org/2000/svg")
	c.root.CreateAttr("width", fmtF(w+2*margin))
	c.root.CreateAttr("height", fmtF(h+2*margin))
	c.root.CreateAttr("viewBox", fmt.Sprintf("%s %s %s %s",
		fmtF(-margin), fmtF(-margin), fmtF(w+2*margin), fmtF(h+2*margin)))
	return c, nil
}

func (c *canvas) x(v int64) float64 {
	return c.tech.DBUToMicrons(v - c.die.Lo.X)
}

func (c *canvas) y(v int64) float64 {
	return c.tech.DBUToMicrons(c.die.Hi.Y - v)
}

func (c *canvas) rect(r db.Rect, fill, stroke string, strokeW float64) *etree.Element {
	e := c.root.CreateElement("rect")
	e.CreateAttr("x", fmtF(c.x(r.Lo.X)))
	e.CreateAttr("y", fmtF(c.y(r.Hi.Y)))
	e.CreateAttr("width", fmtF(c.tech.DBUToMicrons(r.Dx())))
	e.CreateAttr("height", fmtF(c.tech.DBUToMicrons(r.Dy())))
	e.CreateAttr("fill", fill)
	if stroke != "" {
		e.CreateAttr("stroke", stroke)
		e.CreateAttr("stroke-width", fmtF(strokeW))
	}
	return e
}

func (c *canvas) line(a, b db.Point, stroke string, strokeW float64) {
	e := c.root.CreateElement("line")
	e.CreateAttr("x1", fmtF(c.x(a.X)))
	e.CreateAttr("y1", fmtF(c.y(a.Y)))
	e.CreateAttr("x2", fmtF(c.x(b.X)))
	e.CreateAttr("y2", fmtF(c.y(b.Y)))
	e.CreateAttr("stroke", stroke)
	e.CreateAttr("stroke-width", fmtF(strokeW))
}

func (c *canvas) circle(p db.Point, radius float64, fill string) {
	e := c.root.CreateElement("circle")
	e.CreateAttr("cx", fmtF(c.x(p.X)))
	e.CreateAttr("cy", fmtF(c.y(p.Y)))
	e.CreateAttr("r", fmtF(radius))
	e.CreateAttr("fill", fill)
}

// hairline picks stroke and marker sizes proportional to the die so the
// snapshot looks the same for micron and millimeter scale designs.
func (c *canvas) hairline() float64 {
	return maxf(c.tech.DBUToMicrons(c.die.Dx()), c.tech.DBUToMicrons(c.die.Dy())) / 1000
}

func (c *canvas) bytes() ([]byte, error) {
	c.doc.Indent(2)
	return c.doc.WriteToBytes()
}

// LayoutSVG renders the floorplan: die outline, rows, placed components
// colored by their macro class and placed terminals.
func LayoutSVG(block *db.Block) ([]byte, error) {
	c, err := newCanvas(block)
	if err != nil {
		return nil, err
	}
	hair := c.hairline()

	c.rect(block.Die, "#ffffff", "#202020", 3*hair)
	for _, row := range block.Rows {
		c.rect(rowBounds(block, row), "none", "#d5d5d5", hair)
	}
	for _, inst := range block.Insts {
		if !inst.Status.IsPlaced() {
			continue
		}
		fill := classColor(inst.Master.Class)
		if inst.Status.IsFixed() {
			fill = "#606060"
		}
		c.rect(inst.Bounds(), fill, "#303030", hair)
	}
	for _, term := range block.Terms {
		if !term.Status.IsPlaced() {
			continue
		}
		c.rect(term.Shape.Translate(term.Loc), "#c0392b", "", 0)
	}
	return c.bytes()
}

// HeatmapSVG renders the analyzed power grid: straps in gray, grid nodes
// colored by their share of the worst observed drop.
func HeatmapSVG(block *db.Block, res *power.Result) ([]byte, error) {
	c, err := newCanvas(block)
	if err != nil {
		return nil, err
	}
	hair := c.hairline()

	c.rect(block.Die, "#ffffff", "#202020", 3*hair)
	if snet := block.SNet(res.Net); snet != nil {
		for _, w := range snet.Wires {
			c.line(w.From, w.To, "#b8b8b8", maxf(c.tech.DBUToMicrons(w.Width), hair))
		}
	}
	for _, n := range res.Nodes {
		drop := res.Supply - n.Voltage
		if res.Ground {
			drop = n.Voltage - res.Supply
		}
		frac := 0.0
		if res.WorstDrop > 0 {
			frac = drop / res.WorstDrop
		}
		c.circle(n.Loc, 4*hair, rampColor(frac))
	}
	return c.bytes()
}

func rowBounds(block *db.Block, row *db.Row) db.Rect {
	w, h := int64(0), int64(0)
	if site := block.Tech.Site(row.Site); site != nil {
		w, h = site.Width, site.Height
	}
	dx := int64(row.NumX-1)*row.StepX + w
	dy := int64(row.NumY-1)*row.StepY + h
	return db.NewRect(row.Origin.X, row.Origin.Y, row.Origin.X+max(dx, w), row.Origin.Y+max(dy, h))
}

func classColor(class string) string {
	switch class {
	case "BLOCK":
		return "#8e6bbf"
	case "PAD":
		return "#d98e32"
	case "ENDCAP", "RING":
		return "#5f9e6e"
	default: // CORE and friends
		return "#6699cc"
	}
}

// rampColor maps 0..1 onto a green to yellow to red gradient.
func rampColor(frac float64) string {
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}
	var r, g int
	if frac < 0.5 {
		r = int(255 * frac * 2)
		g = 200
	} else {
		r = 255
		g = int(200 * (1 - frac) * 2)
	}
	return fmt.Sprintf("#%02x%02x00", r, g)
}

func fmtF(v float64) string {
	return fmt.Sprintf("%.3f", v)
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
