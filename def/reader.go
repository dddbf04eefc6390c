// Package def reads and writes design data in DEF format. The reader
// populates a db.Block against an already loaded technology, the writer
// serializes a block back with deterministic ordering so outputs can be
// compared run to run.
package def

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"orca/common"
	"orca/db"
	"orca/lex"
)

type reader struct {
	s     *lex.Scanner
	tech  *db.Tech
	block *db.Block
	log   *zap.Logger

	// terms declaring "+ NET x" before the NETS section is read
	pendingTermNets []termNet
}

type termNet struct {
	term *db.Term
	net  string
}

// Parse reads one DEF file into a new block. Components must reference
// macros already present in tech.
func Parse(data []byte, tech *db.Tech, log *zap.Logger) (*db.Block, error) {
	if log == nil {
		log = zap.NewNop()
	}
	r := &reader{
		s:    lex.NewScanner(data, lex.WithLineComment('#'), lex.WithSymbols("();+")),
		tech: tech,
		log:  log.Named("def"),
	}
	if err := r.run(); err != nil {
		return nil, err
	}
	if r.block == nil {
		return nil, fmt.Errorf("no DESIGN statement found")
	}
	return r.block, nil
}

func (r *reader) run() error {
	for {
		tok, ok := r.s.Next()
		if !ok {
			if r.block != nil {
				r.resolveTermNets()
			}
			return nil
		}
		switch strings.ToUpper(tok) {
		case "VERSION", "DIVIDERCHAR", "BUSBITCHARS", "HISTORY", "TECHNOLOGY":
			r.s.SkipStatement(";")
		case "DESIGN":
			name, ok := r.s.Next()
			if !ok {
				return fmt.Errorf("line %d: DESIGN without name", r.s.Line())
			}
			r.block = db.NewBlock(r.tech, name)
			r.s.SkipStatement(";")
		case "UNITS":
			if err := r.parseUnits(); err != nil {
				return err
			}
		case "DIEAREA":
			if err := r.parseDieArea(); err != nil {
				return err
			}
		case "ROW":
			if err := r.parseRow(); err != nil {
				return err
			}
		case "TRACKS":
			if err := r.parseTracks(); err != nil {
				return err
			}
		case "GCELLGRID":
			if err := r.parseGCellGrid(); err != nil {
				return err
			}
		case "COMPONENTS":
			if err := r.parseSection("COMPONENTS", r.parseComponent); err != nil {
				return err
			}
		case "PINS":
			if err := r.parseSection("PINS", r.parseTerm); err != nil {
				return err
			}
		case "NETS":
			if err := r.parseSection("NETS", r.parseNet); err != nil {
				return err
			}
		case "SPECIALNETS":
			if err := r.parseSection("SPECIALNETS", r.parseSNet); err != nil {
				return err
			}
		case "VIAS", "NONDEFAULTRULES", "REGIONS", "GROUPS", "BLOCKAGES", "FILLS":
			if err := r.skipSection(tok); err != nil {
				return err
			}
		case "END":
			r.s.Next() // DESIGN
			r.resolveTermNets()
			return nil
		default:
			r.log.Warn("Unexpected statement in DEF, ignoring", zap.String("token", tok), zap.Int("line", r.s.Line()))
			r.s.SkipStatement(";")
		}
	}
}

func (r *reader) requireBlock(what string) error {
	if r.block == nil {
		return fmt.Errorf("line %d: %s before DESIGN", r.s.Line(), what)
	}
	return nil
}

func (r *reader) parseUnits() error {
	if err := r.requireBlock("UNITS"); err != nil {
		return err
	}
	if err := r.s.Expect("DISTANCE"); err != nil {
		return err
	}
	if err := r.s.Expect("MICRONS"); err != nil {
		return err
	}
	v, err := r.s.NextInt()
	if err != nil {
		return err
	}
	r.block.Units = int(v)
	if r.tech.DBUPerMicron != 0 && int(v) != r.tech.DBUPerMicron {
		r.log.Warn("DEF distance units differ from LEF database units",
			zap.Int64("def", v), zap.Int("lef", r.tech.DBUPerMicron))
	}
	r.s.SkipStatement(";")
	return nil
}

// parsePoint reads "( x y )". A "*" component repeats the value from prev.
func (r *reader) parsePoint(prev db.Point) (db.Point, error) {
	if err := r.s.Expect("("); err != nil {
		return db.Point{}, err
	}
	p := prev
	xtok, ok := r.s.Next()
	if !ok {
		return db.Point{}, fmt.Errorf("line %d: unterminated point", r.s.Line())
	}
	if xtok != "*" {
		if _, err := fmt.Sscanf(xtok, "%d", &p.X); err != nil {
			return db.Point{}, fmt.Errorf("line %d: bad coordinate %q", r.s.Line(), xtok)
		}
	}
	ytok, ok := r.s.Next()
	if !ok {
		return db.Point{}, fmt.Errorf("line %d: unterminated point", r.s.Line())
	}
	if ytok != "*" {
		if _, err := fmt.Sscanf(ytok, "%d", &p.Y); err != nil {
			return db.Point{}, fmt.Errorf("line %d: bad coordinate %q", r.s.Line(), ytok)
		}
	}
	if err := r.s.Expect(")"); err != nil {
		return db.Point{}, err
	}
	return p, nil
}

func (r *reader) parseDieArea() error {
	if err := r.requireBlock("DIEAREA"); err != nil {
		return err
	}
	lo, err := r.parsePoint(db.Point{})
	if err != nil {
		return err
	}
	hi, err := r.parsePoint(db.Point{})
	if err != nil {
		return err
	}
	r.block.Die = db.NewRect(lo.X, lo.Y, hi.X, hi.Y)
	r.s.SkipStatement(";")
	return nil
}

func (r *reader) parseRow() error {
	if err := r.requireBlock("ROW"); err != nil {
		return err
	}
	row := &db.Row{NumX: 1, NumY: 1}
	var ok bool
	if row.Name, ok = r.s.Next(); !ok {
		return fmt.Errorf("line %d: ROW without name", r.s.Line())
	}
	if row.Site, ok = r.s.Next(); !ok {
		return fmt.Errorf("line %d: ROW %s without site", r.s.Line(), row.Name)
	}
	x, err := r.s.NextInt()
	if err != nil {
		return err
	}
	y, err := r.s.NextInt()
	if err != nil {
		return err
	}
	row.Origin = db.Point{X: x, Y: y}
	otok, _ := r.s.Next()
	if row.Orient, err = common.ParseOrient(otok); err != nil {
		return fmt.Errorf("line %d: row %s: %w", r.s.Line(), row.Name, err)
	}
	// optional DO nx BY ny STEP sx sy
	tok, ok := r.s.Next()
	if ok && strings.ToUpper(tok) == "DO" {
		nx, err := r.s.NextInt()
		if err != nil {
			return err
		}
		if err := r.s.Expect("BY"); err != nil {
			return err
		}
		ny, err := r.s.NextInt()
		if err != nil {
			return err
		}
		if err := r.s.Expect("STEP"); err != nil {
			return err
		}
		sx, err := r.s.NextInt()
		if err != nil {
			return err
		}
		sy, err := r.s.NextInt()
		if err != nil {
			return err
		}
		row.NumX, row.NumY = int(nx), int(ny)
		row.StepX, row.StepY = sx, sy
		r.s.SkipStatement(";")
	} else if tok != ";" {
		r.s.SkipStatement(";")
	}
	r.block.Rows = append(r.block.Rows, row)
	return nil
}

func (r *reader) parseTracks() error {
	if err := r.requireBlock("TRACKS"); err != nil {
		return err
	}
	track := &db.Track{}
	axis, _ := r.s.Next()
	switch strings.ToUpper(axis) {
	case "X":
		track.Dir = common.LayerDirVertical
	case "Y":
		track.Dir = common.LayerDirHorizontal
	default:
		return fmt.Errorf("line %d: TRACKS axis %q", r.s.Line(), axis)
	}
	start, err := r.s.NextInt()
	if err != nil {
		return err
	}
	track.Start = start
	if err := r.s.Expect("DO"); err != nil {
		return err
	}
	num, err := r.s.NextInt()
	if err != nil {
		return err
	}
	track.Num = int(num)
	if err := r.s.Expect("STEP"); err != nil {
		return err
	}
	step, err := r.s.NextInt()
	if err != nil {
		return err
	}
	track.Step = step
	for {
		tok, ok := r.s.Next()
		if !ok || tok == ";" {
			break
		}
		if strings.ToUpper(tok) == "LAYER" {
			layer, _ := r.s.Next()
			track.Layer = layer
		}
	}
	r.block.Tracks = append(r.block.Tracks, track)
	return nil
}

func (r *reader) parseGCellGrid() error {
	if err := r.requireBlock("GCELLGRID"); err != nil {
		return err
	}
	g := &db.GCellGrid{}
	axis, _ := r.s.Next()
	switch strings.ToUpper(axis) {
	case "X":
		g.Dir = common.LayerDirVertical
	case "Y":
		g.Dir = common.LayerDirHorizontal
	default:
		return fmt.Errorf("line %d: GCELLGRID axis %q", r.s.Line(), axis)
	}
	start, err := r.s.NextInt()
	if err != nil {
		return err
	}
	g.Start = start
	if err := r.s.Expect("DO"); err != nil {
		return err
	}
	num, err := r.s.NextInt()
	if err != nil {
		return err
	}
	g.Num = int(num)
	if err := r.s.Expect("STEP"); err != nil {
		return err
	}
	step, err := r.s.NextInt()
	if err != nil {
		return err
	}
	g.Step = step
	r.s.SkipStatement(";")
	r.block.GCells = append(r.block.GCells, g)
	return nil
}

// parseSection handles "SECTION n ; - record ... ; - record ... ; END SECTION".
func (r *reader) parseSection(name string, record func() error) error {
	if err := r.requireBlock(name); err != nil {
		return err
	}
	if _, err := r.s.NextInt(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if err := r.s.Expect(";"); err != nil {
		return err
	}
	for {
		tok, ok := r.s.Next()
		if !ok {
			return fmt.Errorf("line %d: unterminated %s section", r.s.Line(), name)
		}
		switch tok {
		case "-":
			if err := record(); err != nil {
				return err
			}
		case "END":
			if err := r.s.Expect(name); err != nil {
				return err
			}
			return nil
		default:
			return fmt.Errorf("line %d: unexpected %q in %s section", r.s.Line(), tok, name)
		}
	}
}

func (r *reader) skipSection(name string) error {
	for {
		tok, ok := r.s.Next()
		if !ok {
			return fmt.Errorf("line %d: unterminated %s section", r.s.Line(), name)
		}
		if strings.ToUpper(tok) != "END" {
			continue
		}
		next, _ := r.s.Next()
		if strings.ToUpper(next) == name {
			return nil
		}
	}
}

func (r *reader) parsePlacement(status common.PlaceStatus) (common.PlaceStatus, db.Point, common.Orient, error) {
	loc, err := r.parsePoint(db.Point{})
	if err != nil {
		return status, db.Point{}, common.OrientN, err
	}
	otok, _ := r.s.Next()
	orient, err := common.ParseOrient(otok)
	if err != nil {
		return status, db.Point{}, common.OrientN, fmt.Errorf("line %d: %w", r.s.Line(), err)
	}
	return status, loc, orient, nil
}

func (r *reader) parseComponent() error {
	name, ok := r.s.Next()
	if !ok {
		return fmt.Errorf("line %d: component without name", r.s.Line())
	}
	masterName, ok := r.s.Next()
	if !ok {
		return fmt.Errorf("line %d: component %s without master", r.s.Line(), name)
	}
	master := r.tech.Master(masterName)
	if master == nil {
		return fmt.Errorf("line %d: component %s references unknown macro %q", r.s.Line(), name, masterName)
	}
	inst := &db.Inst{Name: name, Master: master, Status: common.PlaceStatusUnplaced, Orient: common.OrientN}
	for {
		tok, ok := r.s.Next()
		if !ok {
			return fmt.Errorf("line %d: unterminated component %s", r.s.Line(), name)
		}
		if tok == ";" {
			break
		}
		if tok != "+" {
			return fmt.Errorf("line %d: unexpected %q in component %s", r.s.Line(), tok, name)
		}
		prop, _ := r.s.Next()
		switch strings.ToUpper(prop) {
		case "PLACED":
			var err error
			if inst.Status, inst.Loc, inst.Orient, err = r.parsePlacement(common.PlaceStatusPlaced); err != nil {
				return err
			}
		case "FIXED", "COVER":
			status := common.PlaceStatusFixed
			if strings.ToUpper(prop) == "COVER" {
				status = common.PlaceStatusCover
			}
			var err error
			if inst.Status, inst.Loc, inst.Orient, err = r.parsePlacement(status); err != nil {
				return err
			}
		case "UNPLACED":
			inst.Status = common.PlaceStatusUnplaced
		case "SOURCE", "WEIGHT", "PROPERTY":
			r.skipProperty()
		default:
			r.log.Warn("Unknown component property, ignoring", zap.String("property", prop), zap.Int("line", r.s.Line()))
			r.skipProperty()
		}
	}
	return r.block.AddInst(inst)
}

// skipProperty consumes tokens of one "+ PROP ..." clause, stopping before
// the next "+" or the terminating ";". Parenthesized values are consumed
// whole.
func (r *reader) skipProperty() {
	depth := 0
	for {
		tok, ok := r.s.Peek()
		if !ok {
			return
		}
		if depth == 0 && (tok == "+" || tok == ";") {
			return
		}
		tok, _ = r.s.Next()
		switch tok {
		case "(":
			depth++
		case ")":
			depth--
		}
	}
}

func (r *reader) parseTerm() error {
	name, ok := r.s.Next()
	if !ok {
		return fmt.Errorf("line %d: pin without name", r.s.Line())
	}
	term := &db.Term{Name: name, Status: common.PlaceStatusUnplaced, Orient: common.OrientN, Use: common.PinUseSignal}
	var netName string
	for {
		tok, ok := r.s.Next()
		if !ok {
			return fmt.Errorf("line %d: unterminated pin %s", r.s.Line(), name)
		}
		if tok == ";" {
			break
		}
		if tok != "+" {
			return fmt.Errorf("line %d: unexpected %q in pin %s", r.s.Line(), tok, name)
		}
		prop, _ := r.s.Next()
		switch strings.ToUpper(prop) {
		case "NET":
			netName, _ = r.s.Next()
		case "DIRECTION":
			val, _ := r.s.Next()
			dir, err := common.ParseDirection(strings.ToLower(val))
			if err != nil {
				return fmt.Errorf("line %d: pin %s: %w", r.s.Line(), name, err)
			}
			term.Dir = dir
		case "USE":
			val, _ := r.s.Next()
			use, err := common.ParsePinUse(strings.ToLower(val))
			if err != nil {
				return fmt.Errorf("line %d: pin %s: %w", r.s.Line(), name, err)
			}
			term.Use = use
		case "LAYER":
			layer, _ := r.s.Next()
			term.Layer = layer
			lo, err := r.parsePoint(db.Point{})
			if err != nil {
				return err
			}
			hi, err := r.parsePoint(db.Point{})
			if err != nil {
				return err
			}
			term.Shape = db.NewRect(lo.X, lo.Y, hi.X, hi.Y)
		case "PLACED", "FIXED", "COVER":
			status := common.PlaceStatusPlaced
			if strings.ToUpper(prop) == "FIXED" {
				status = common.PlaceStatusFixed
			} else if strings.ToUpper(prop) == "COVER" {
				status = common.PlaceStatusCover
			}
			var err error
			if term.Status, term.Loc, term.Orient, err = r.parsePlacement(status); err != nil {
				return err
			}
		default:
			r.log.Warn("Unknown pin property, ignoring", zap.String("property", prop), zap.Int("line", r.s.Line()))
			r.skipProperty()
		}
	}
	if err := r.block.AddTerm(term); err != nil {
		return err
	}
	if netName != "" {
		// net sections normally come later, remember the association then
		r.deferTermNet(term, netName)
	}
	return nil
}

func (r *reader) deferTermNet(term *db.Term, net string) {
	r.pendingTermNets = append(r.pendingTermNets, termNet{term: term, net: net})
}

// resolveTermNets links terminals to their nets once NETS are read. A net
// listing "( PIN x )" already created the link, those are left alone.
func (r *reader) resolveTermNets() {
	for _, p := range r.pendingTermNets {
		if p.term.Net != nil {
			continue
		}
		net := r.block.Net(p.net)
		if net == nil {
			r.log.Warn("Pin references unknown net", zap.String("pin", p.term.Name), zap.String("net", p.net))
			continue
		}
		p.term.Net = net
		net.Terms = append(net.Terms, p.term)
	}
}

func (r *reader) parseNet() error {
	name, ok := r.s.Next()
	if !ok {
		return fmt.Errorf("line %d: net without name", r.s.Line())
	}
	net := &db.Net{Name: name, Use: common.PinUseSignal}
	for {
		tok, ok := r.s.Next()
		if !ok {
			return fmt.Errorf("line %d: unterminated net %s", r.s.Line(), name)
		}
		if tok == ";" {
			break
		}
		switch tok {
		case "(":
			first, _ := r.s.Next()
			second, _ := r.s.Next()
			if err := r.s.Expect(")"); err != nil {
				return err
			}
			if first == "PIN" {
				term := r.block.Term(second)
				if term == nil {
					return fmt.Errorf("line %d: net %s references unknown pin %q", r.s.Line(), name, second)
				}
				term.Net = net
				net.Terms = append(net.Terms, term)
				continue
			}
			inst := r.block.Inst(first)
			if inst == nil {
				return fmt.Errorf("line %d: net %s references unknown component %q", r.s.Line(), name, first)
			}
			pin := inst.Master.Pin(second)
			if pin == nil {
				return fmt.Errorf("line %d: net %s: macro %s has no pin %q", r.s.Line(), name, inst.Master.Name, second)
			}
			net.Conns = append(net.Conns, db.NetConn{Inst: inst, Pin: pin})
		case "+":
			prop, _ := r.s.Next()
			switch strings.ToUpper(prop) {
			case "USE":
				val, _ := r.s.Next()
				use, err := common.ParsePinUse(strings.ToLower(val))
				if err != nil {
					return fmt.Errorf("line %d: net %s: %w", r.s.Line(), name, err)
				}
				net.Use = use
			default:
				r.skipProperty()
			}
		default:
			return fmt.Errorf("line %d: unexpected %q in net %s", r.s.Line(), tok, name)
		}
	}
	return r.block.AddNet(net)
}

func (r *reader) parseSNet() error {
	name, ok := r.s.Next()
	if !ok {
		return fmt.Errorf("line %d: special net without name", r.s.Line())
	}
	snet := &db.SNet{Name: name}
	for {
		tok, ok := r.s.Next()
		if !ok {
			return fmt.Errorf("line %d: unterminated special net %s", r.s.Line(), name)
		}
		if tok == ";" {
			break
		}
		switch tok {
		case "(":
			first, _ := r.s.Next()
			second, _ := r.s.Next()
			if err := r.s.Expect(")"); err != nil {
				return err
			}
			if first == "*" || first == "PIN" {
				// wildcard and terminal connections carry no geometry
				continue
			}
			inst := r.block.Inst(first)
			if inst == nil {
				// special nets may connect cells filtered from COMPONENTS
				r.log.Debug("Special net connection to unknown component", zap.String("net", name), zap.String("component", first))
				continue
			}
			if pin := inst.Master.Pin(second); pin != nil {
				snet.Conns = append(snet.Conns, db.NetConn{Inst: inst, Pin: pin})
			}
		case "+":
			prop, _ := r.s.Next()
			switch strings.ToUpper(prop) {
			case "USE":
				val, _ := r.s.Next()
				use, err := common.ParsePinUse(strings.ToLower(val))
				if err != nil {
					return fmt.Errorf("line %d: special net %s: %w", r.s.Line(), name, err)
				}
				snet.Use = use
			case "ROUTED", "FIXED", "COVER":
				if err := r.parseSWires(snet); err != nil {
					return fmt.Errorf("special net %s: %w", name, err)
				}
			default:
				r.skipProperty()
			}
		default:
			return fmt.Errorf("line %d: unexpected %q in special net %s", r.s.Line(), tok, name)
		}
	}
	return r.block.AddSNet(snet)
}

// parseSWires reads "layer width [+ SHAPE kind] ( x y ) ( x y ) [NEW ...]".
func (r *reader) parseSWires(snet *db.SNet) error {
	for {
		layer, ok := r.s.Next()
		if !ok {
			return fmt.Errorf("line %d: unterminated special wiring", r.s.Line())
		}
		width, err := r.s.NextInt()
		if err != nil {
			return err
		}
		wire := db.SWire{Layer: layer, Width: width}

		tok, ok := r.s.Peek()
		if ok && tok == "+" {
			r.s.Next()
			if err := r.s.Expect("SHAPE"); err != nil {
				return err
			}
			val, _ := r.s.Next()
			shape, err := common.ParseWireShape(strings.ToLower(val))
			if err != nil {
				return fmt.Errorf("line %d: %w", r.s.Line(), err)
			}
			wire.Shape = shape
		}

		if wire.From, err = r.parsePoint(db.Point{}); err != nil {
			return err
		}
		if wire.To, err = r.parsePoint(wire.From); err != nil {
			return err
		}
		snet.Wires = append(snet.Wires, wire)

		tok, ok = r.s.Peek()
		if !ok || strings.ToUpper(tok) != "NEW" {
			return nil
		}
		r.s.Next()
	}
}
