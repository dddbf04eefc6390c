package db

import (
	"fmt"
	"slices"

	"github.com/maruel/natural"

	"orca/common"
)

// Inst is a placed (or not yet placed) component from DEF COMPONENTS.
type Inst struct {
	Name   string
	Master *Master
	Status common.PlaceStatus
	Orient common.Orient
	Loc    Point // lower-left corner of the transformed bounding box
}

func (i *Inst) Size() (int64, int64) {
	return TransformSize(i.Master.Width, i.Master.Height, i.Orient)
}

func (i *Inst) Bounds() Rect {
	w, h := i.Size()
	return NewRect(i.Loc.X, i.Loc.Y, i.Loc.X+w, i.Loc.Y+h)
}

func (i *Inst) Center() Point {
	w, h := i.Size()
	return Point{X: i.Loc.X + w/2, Y: i.Loc.Y + h/2}
}

func (i *Inst) SetCenter(p Point) {
	w, h := i.Size()
	i.Loc = Point{X: p.X - w/2, Y: p.Y - h/2}
}

// PinPosition returns the absolute position of a macro pin of this instance.
// Unplaced instances report their current (possibly zero) location.
func (i *Inst) PinPosition(pin *MPin) Point {
	off := TransformOffset(pin.Offset(), i.Master.Width, i.Master.Height, i.Orient)
	return Point{X: i.Loc.X + off.X, Y: i.Loc.Y + off.Y}
}

// Term is a block terminal from DEF PINS.
type Term struct {
	Name   string
	Net    *Net
	Dir    common.Direction
	Use    common.PinUse
	Status common.PlaceStatus
	Loc    Point
	Orient common.Orient
	Layer  string
	Shape  Rect // relative to Loc
}

// NetConn ties an instance pin to a net.
type NetConn struct {
	Inst *Inst
	Pin  *MPin
}

// Net is a signal net from DEF NETS.
type Net struct {
	Name  string
	Use   common.PinUse
	Conns []NetConn
	Terms []*Term
}

// Endpoints returns absolute positions of all connection points that have a
// meaningful location: pins of placed instances and placed terminals.
func (n *Net) Endpoints() []Point {
	var out []Point
	for _, c := range n.Conns {
		if c.Inst.Status.IsPlaced() {
			out = append(out, c.Inst.PinPosition(c.Pin))
		}
	}
	for _, t := range n.Terms {
		if t.Status.IsPlaced() {
			out = append(out, t.Loc)
		}
	}
	return out
}

// HPWL is the half-perimeter wirelength of the net over placed endpoints.
func (n *Net) HPWL() int64 {
	pts := n.Endpoints()
	if len(pts) < 2 {
		return 0
	}
	bbox := NewRect(pts[0].X, pts[0].Y, pts[0].X, pts[0].Y)
	for _, p := range pts[1:] {
		bbox = bbox.Union(NewRect(p.X, p.Y, p.X, p.Y))
	}
	return bbox.Dx() + bbox.Dy()
}

// SWire is one routed segment of a special net. Segments are axis-parallel
// center lines with a width.
type SWire struct {
	Layer string
	Width int64
	From  Point
	To    Point
	Shape common.WireShape
}

func (w SWire) Horizontal() bool {
	return w.From.Y == w.To.Y
}

func (w SWire) Length() int64 {
	if w.Horizontal() {
		if w.To.X > w.From.X {
			return w.To.X - w.From.X
		}
		return w.From.X - w.To.X
	}
	if w.To.Y > w.From.Y {
		return w.To.Y - w.From.Y
	}
	return w.From.Y - w.To.Y
}

// SNet is a special (power or ground) net from DEF SPECIALNETS.
type SNet struct {
	Name  string
	Use   common.PinUse
	Conns []NetConn
	Wires []SWire
}

// Row is a placement row from DEF ROW.
type Row struct {
	Name   string
	Site   string
	Origin Point
	Orient common.Orient
	NumX   int
	NumY   int
	StepX  int64
	StepY  int64
}

// Track is a routing track definition from DEF TRACKS.
type Track struct {
	Layer string
	Dir   common.LayerDir
	Start int64
	Num   int
	Step  int64
}

// GCellGrid mirrors one DEF GCELLGRID statement.
type GCellGrid struct {
	Dir   common.LayerDir
	Start int64
	Num   int
	Step  int64
}

// Block is a single design loaded from DEF.
type Block struct {
	Name  string
	Tech  *Tech
	Units int // DEF distance units per micron
	Die   Rect

	Insts  []*Inst
	Terms  []*Term
	Nets   []*Net
	SNets  []*SNet
	Rows   []*Row
	Tracks []*Track
	GCells []*GCellGrid

	instByName map[string]*Inst
	termByName map[string]*Term
	netByName  map[string]*Net
	snetByName map[string]*SNet
}

func NewBlock(tech *Tech, name string) *Block {
	return &Block{
		Name:       name,
		Tech:       tech,
		Units:      tech.DBUPerMicron,
		instByName: make(map[string]*Inst),
		termByName: make(map[string]*Term),
		netByName:  make(map[string]*Net),
		snetByName: make(map[string]*SNet),
	}
}

func (b *Block) AddInst(inst *Inst) error {
	if _, exists := b.instByName[inst.Name]; exists {
		return fmt.Errorf("duplicate component %q", inst.Name)
	}
	b.instByName[inst.Name] = inst
	b.Insts = append(b.Insts, inst)
	return nil
}

func (b *Block) Inst(name string) *Inst {
	return b.instByName[name]
}

func (b *Block) AddTerm(term *Term) error {
	if _, exists := b.termByName[term.Name]; exists {
		return fmt.Errorf("duplicate pin %q", term.Name)
	}
	b.termByName[term.Name] = term
	b.Terms = append(b.Terms, term)
	return nil
}

func (b *Block) Term(name string) *Term {
	return b.termByName[name]
}

func (b *Block) AddNet(net *Net) error {
	if _, exists := b.netByName[net.Name]; exists {
		return fmt.Errorf("duplicate net %q", net.Name)
	}
	b.netByName[net.Name] = net
	b.Nets = append(b.Nets, net)
	return nil
}

func (b *Block) Net(name string) *Net {
	return b.netByName[name]
}

func (b *Block) AddSNet(net *SNet) error {
	if _, exists := b.snetByName[net.Name]; exists {
		return fmt.Errorf("duplicate special net %q", net.Name)
	}
	b.snetByName[net.Name] = net
	b.SNets = append(b.SNets, net)
	return nil
}

func (b *Block) SNet(name string) *SNet {
	return b.snetByName[name]
}

// CoreArea is the union of all placement rows, falling back to the die area
// for designs without rows.
func (b *Block) CoreArea() Rect {
	if len(b.Rows) == 0 {
		return b.Die
	}
	core := b.rowRect(b.Rows[0])
	for _, row := range b.Rows[1:] {
		core = core.Union(b.rowRect(row))
	}
	return core
}

func (b *Block) rowRect(row *Row) Rect {
	site := b.Tech.Site(row.Site)
	w, h := int64(0), int64(0)
	if site != nil {
		w, h = site.Width, site.Height
	}
	xhi := row.Origin.X + w
	if row.NumX > 1 {
		xhi = row.Origin.X + int64(row.NumX-1)*row.StepX + w
	}
	yhi := row.Origin.Y + h
	if row.NumY > 1 {
		yhi = row.Origin.Y + int64(row.NumY-1)*row.StepY + h
	}
	return NewRect(row.Origin.X, row.Origin.Y, xhi, yhi)
}

// HPWL is the total half-perimeter wirelength over all signal nets.
func (b *Block) HPWL() int64 {
	var total int64
	for _, n := range b.Nets {
		total += n.HPWL()
	}
	return total
}

// SortedInsts returns instances in natural name order for deterministic
// output.
func (b *Block) SortedInsts() []*Inst {
	out := slices.Clone(b.Insts)
	slices.SortFunc(out, func(a, c *Inst) int {
		return naturalCompare(a.Name, c.Name)
	})
	return out
}

// SortedTerms returns terminals in natural name order, which keeps bus bits
// like req_msg[2] and req_msg[10] in human order.
func (b *Block) SortedTerms() []*Term {
	out := slices.Clone(b.Terms)
	slices.SortFunc(out, func(a, c *Term) int {
		return naturalCompare(a.Name, c.Name)
	})
	return out
}

// SortedNets returns signal nets in natural name order.
func (b *Block) SortedNets() []*Net {
	out := slices.Clone(b.Nets)
	slices.SortFunc(out, func(a, c *Net) int {
		return naturalCompare(a.Name, c.Name)
	})
	return out
}

func naturalCompare(a, b string) int {
	if natural.Less(a, b) {
		return -1
	}
	if natural.Less(b, a) {
		return 1
	}
	return 0
}
