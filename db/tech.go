// Package db holds the design database: technology data loaded from LEF and
// the physical netlist loaded from DEF. Engine operations read and mutate
// this state, readers populate it and writers serialize it back.
package db

import (
	"fmt"
	"math"
	"slices"

	"github.com/maruel/natural"

	"orca/common"
)

// Layer describes a single LEF layer. Electrical values are kept in the
// units LEF uses: ohms per square for sheet resistance, picofarads for
// capacitance.
type Layer struct {
	Name       string
	Type       common.LayerType
	Dir        common.LayerDir
	Index      int // position in the routing stack, bottom is 0, -1 for non-routing
	Pitch      int64
	Width      int64
	Spacing    int64
	SheetRes   float64
	EdgeCap    float64
	AreaCap    float64
	CutRes     float64 // cut layers only, ohms per single cut
}

// Site is a LEF placement site.
type Site struct {
	Name   string
	Width  int64
	Height int64
}

// MPin is a macro pin as defined in a LEF MACRO section.
type MPin struct {
	Name   string
	Dir    common.Direction
	Use    common.PinUse
	Shapes []LayerRect
}

// Offset returns the pin center in the master coordinate frame.
func (p *MPin) Offset() Point {
	if len(p.Shapes) == 0 {
		return Point{}
	}
	bbox := p.Shapes[0].Rect
	for _, s := range p.Shapes[1:] {
		bbox = bbox.Union(s.Rect)
	}
	return bbox.Center()
}

// Master is a LEF MACRO: a library cell with pins and obstructions.
type Master struct {
	Name   string
	Class  string
	Site   string
	Width  int64
	Height int64
	Pins   []*MPin
	Obs    []LayerRect

	pins map[string]*MPin
}

func (m *Master) Pin(name string) *MPin {
	return m.pins[name]
}

func (m *Master) AddPin(pin *MPin) error {
	if m.pins == nil {
		m.pins = make(map[string]*MPin)
	}
	if _, exists := m.pins[pin.Name]; exists {
		return fmt.Errorf("duplicate pin %q in macro %q", pin.Name, m.Name)
	}
	m.pins[pin.Name] = pin
	m.Pins = append(m.Pins, pin)
	return nil
}

func (m *Master) Area() int64 {
	return m.Width * m.Height
}

// Tech accumulates technology data from one or more LEF files.
type Tech struct {
	DBUPerMicron      int
	ManufacturingGrid int64

	layers  []*Layer
	sites   []*Site
	masters []*Master

	layerByName  map[string]*Layer
	siteByName   map[string]*Site
	masterByName map[string]*Master
}

func NewTech() *Tech {
	return &Tech{
		DBUPerMicron: 1000,
		layerByName:  make(map[string]*Layer),
		siteByName:   make(map[string]*Site),
		masterByName: make(map[string]*Master),
	}
}

// MicronsToDBU rounds to the nearest database unit.
func (t *Tech) MicronsToDBU(um float64) int64 {
	return int64(math.Round(um * float64(t.DBUPerMicron)))
}

func (t *Tech) DBUToMicrons(dbu int64) float64 {
	return float64(dbu) / float64(t.DBUPerMicron)
}

func (t *Tech) AddLayer(l *Layer) error {
	if _, exists := t.layerByName[l.Name]; exists {
		return fmt.Errorf("layer %q already defined", l.Name)
	}
	if l.Type == common.LayerTypeRouting {
		l.Index = len(t.RoutingLayers())
	} else {
		l.Index = -1
	}
	t.layerByName[l.Name] = l
	t.layers = append(t.layers, l)
	return nil
}

func (t *Tech) Layer(name string) *Layer {
	return t.layerByName[name]
}

func (t *Tech) Layers() []*Layer {
	return t.layers
}

func (t *Tech) RoutingLayers() []*Layer {
	var out []*Layer
	for _, l := range t.layers {
		if l.Type == common.LayerTypeRouting {
			out = append(out, l)
		}
	}
	return out
}

func (t *Tech) AddSite(s *Site) error {
	if _, exists := t.siteByName[s.Name]; exists {
		return fmt.Errorf("site %q already defined", s.Name)
	}
	t.siteByName[s.Name] = s
	t.sites = append(t.sites, s)
	return nil
}

func (t *Tech) Site(name string) *Site {
	return t.siteByName[name]
}

func (t *Tech) AddMaster(m *Master) error {
	if _, exists := t.masterByName[m.Name]; exists {
		return fmt.Errorf("macro %q already defined", m.Name)
	}
	t.masterByName[m.Name] = m
	t.masters = append(t.masters, m)
	return nil
}

func (t *Tech) Master(name string) *Master {
	return t.masterByName[name]
}

// Masters returns all macros in natural name order so iteration is stable
// regardless of LEF file ordering.
func (t *Tech) Masters() []*Master {
	out := slices.Clone(t.masters)
	slices.SortFunc(out, func(a, b *Master) int {
		if natural.Less(a.Name, b.Name) {
			return -1
		}
		if natural.Less(b.Name, a.Name) {
			return 1
		}
		return 0
	})
	return out
}
