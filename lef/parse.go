// Package lef reads technology and macro data from LEF files into the
// design database.
//
// Only the subset the engine operations need is interpreted: layers, sites
// and macros with pin ports and obstructions. Everything else is skipped
// with a debug note so arbitrary vendor LEF files stay loadable.
package lef

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"orca/common"
	"orca/db"
	"orca/lex"
)

type parser struct {
	s    *lex.Scanner
	tech *db.Tech
	log  *zap.Logger
}

// Parse merges one LEF file into tech. Later files may add macros and sites
// but must not redefine layers.
func Parse(data []byte, tech *db.Tech, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	p := &parser{
		s:    lex.NewScanner(data, lex.WithLineComment('#')),
		tech: tech,
		log:  log.Named("lef"),
	}
	return p.run()
}

func (p *parser) run() error {
	for {
		tok, ok := p.s.Next()
		if !ok {
			return nil
		}
		switch strings.ToUpper(tok) {
		case "VERSION", "BUSBITCHARS", "DIVIDERCHAR", "CLEARANCEMEASURE", "USEMINSPACING", "NOWIREEXTENSIONATPIN":
			p.s.SkipStatement(";")
		case "UNITS":
			if err := p.parseUnits(); err != nil {
				return err
			}
		case "MANUFACTURINGGRID":
			v, err := p.s.NextFloat()
			if err != nil {
				return err
			}
			p.tech.ManufacturingGrid = p.tech.MicronsToDBU(v)
			p.s.SkipStatement(";")
		case "LAYER":
			if err := p.parseLayer(); err != nil {
				return err
			}
		case "SITE":
			if err := p.parseSite(); err != nil {
				return err
			}
		case "MACRO":
			if err := p.parseMacro(); err != nil {
				return err
			}
		case "VIA", "VIARULE":
			if err := p.skipNamedSection(tok); err != nil {
				return err
			}
		case "SPACING", "PROPERTYDEFINITIONS":
			// these close with END <keyword> rather than END <name>
			if err := p.skipUntilEnd(tok, strings.ToUpper(tok)); err != nil {
				return err
			}
		case "END":
			// END LIBRARY
			p.s.Next()
			return nil
		default:
			p.log.Warn("Unexpected statement in LEF, ignoring", zap.String("token", tok), zap.Int("line", p.s.Line()))
			p.s.SkipStatement(";")
		}
	}
}

func (p *parser) parseUnits() error {
	for {
		tok, ok := p.s.Next()
		if !ok {
			return fmt.Errorf("line %d: unterminated UNITS section", p.s.Line())
		}
		switch strings.ToUpper(tok) {
		case "DATABASE":
			if err := p.s.Expect("MICRONS"); err != nil {
				return err
			}
			v, err := p.s.NextInt()
			if err != nil {
				return err
			}
			p.tech.DBUPerMicron = int(v)
			p.s.SkipStatement(";")
		case "END":
			p.s.Next() // UNITS
			return nil
		default:
			p.s.SkipStatement(";")
		}
	}
}

// skipNamedSection consumes a named section up to its matching END <name>.
func (p *parser) skipNamedSection(kind string) error {
	name, ok := p.s.Next()
	if !ok {
		return fmt.Errorf("line %d: unterminated %s", p.s.Line(), kind)
	}
	return p.skipUntilEnd(kind, name)
}

func (p *parser) skipUntilEnd(kind, name string) error {
	for {
		tok, ok := p.s.Next()
		if !ok {
			return fmt.Errorf("line %d: unterminated %s %s", p.s.Line(), kind, name)
		}
		if strings.ToUpper(tok) != "END" {
			continue
		}
		next, _ := p.s.Next()
		if next == name {
			return nil
		}
	}
}

func (p *parser) parseLayer() error {
	name, ok := p.s.Next()
	if !ok {
		return fmt.Errorf("line %d: LAYER without name", p.s.Line())
	}

	layer := &db.Layer{Name: name}
	for {
		tok, ok := p.s.Next()
		if !ok {
			return fmt.Errorf("line %d: unterminated LAYER %s", p.s.Line(), name)
		}
		switch strings.ToUpper(tok) {
		case "TYPE":
			val, _ := p.s.Next()
			lt, err := common.ParseLayerType(strings.ToLower(val))
			if err != nil {
				return fmt.Errorf("line %d: layer %s: %w", p.s.Line(), name, err)
			}
			layer.Type = lt
			p.s.SkipStatement(";")
		case "DIRECTION":
			val, _ := p.s.Next()
			ld, err := common.ParseLayerDir(strings.ToLower(val))
			if err != nil {
				return fmt.Errorf("line %d: layer %s: %w", p.s.Line(), name, err)
			}
			layer.Dir = ld
			p.s.SkipStatement(";")
		case "PITCH":
			v, err := p.s.NextFloat()
			if err != nil {
				return err
			}
			layer.Pitch = p.tech.MicronsToDBU(v)
			p.s.SkipStatement(";")
		case "WIDTH":
			v, err := p.s.NextFloat()
			if err != nil {
				return err
			}
			layer.Width = p.tech.MicronsToDBU(v)
			p.s.SkipStatement(";")
		case "SPACING":
			v, err := p.s.NextFloat()
			if err != nil {
				return err
			}
			layer.Spacing = p.tech.MicronsToDBU(v)
			p.s.SkipStatement(";")
		case "RESISTANCE":
			// routing layers use RESISTANCE RPERSQ <v>, cut layers plain RESISTANCE <v>
			val, _ := p.s.Next()
			if strings.ToUpper(val) == "RPERSQ" {
				v, err := p.s.NextFloat()
				if err != nil {
					return err
				}
				layer.SheetRes = v
			} else {
				v, err := parseFloatToken(val, p.s.Line())
				if err != nil {
					return err
				}
				layer.CutRes = v
			}
			p.s.SkipStatement(";")
		case "CAPACITANCE":
			val, _ := p.s.Next()
			if strings.ToUpper(val) == "CPERSQDIST" {
				v, err := p.s.NextFloat()
				if err != nil {
					return err
				}
				layer.AreaCap = v
			}
			p.s.SkipStatement(";")
		case "EDGECAPACITANCE":
			v, err := p.s.NextFloat()
			if err != nil {
				return err
			}
			layer.EdgeCap = v
			p.s.SkipStatement(";")
		case "END":
			next, _ := p.s.Next()
			if next != name {
				return fmt.Errorf("line %d: LAYER %s terminated by END %s", p.s.Line(), name, next)
			}
			return p.tech.AddLayer(layer)
		default:
			p.s.SkipStatement(";")
		}
	}
}

func (p *parser) parseSite() error {
	name, ok := p.s.Next()
	if !ok {
		return fmt.Errorf("line %d: SITE without name", p.s.Line())
	}
	site := &db.Site{Name: name}
	for {
		tok, ok := p.s.Next()
		if !ok {
			return fmt.Errorf("line %d: unterminated SITE %s", p.s.Line(), name)
		}
		switch strings.ToUpper(tok) {
		case "SIZE":
			w, err := p.s.NextFloat()
			if err != nil {
				return err
			}
			if err := p.s.Expect("BY"); err != nil {
				return err
			}
			h, err := p.s.NextFloat()
			if err != nil {
				return err
			}
			site.Width = p.tech.MicronsToDBU(w)
			site.Height = p.tech.MicronsToDBU(h)
			p.s.SkipStatement(";")
		case "END":
			next, _ := p.s.Next()
			if next != name {
				return fmt.Errorf("line %d: SITE %s terminated by END %s", p.s.Line(), name, next)
			}
			return p.tech.AddSite(site)
		default:
			p.s.SkipStatement(";")
		}
	}
}

func (p *parser) parseMacro() error {
	name, ok := p.s.Next()
	if !ok {
		return fmt.Errorf("line %d: MACRO without name", p.s.Line())
	}
	m := &db.Master{Name: name}
	for {
		tok, ok := p.s.Next()
		if !ok {
			return fmt.Errorf("line %d: unterminated MACRO %s", p.s.Line(), name)
		}
		switch strings.ToUpper(tok) {
		case "CLASS":
			val, _ := p.s.Next()
			m.Class = strings.ToUpper(val)
			p.s.SkipStatement(";")
		case "SIZE":
			w, err := p.s.NextFloat()
			if err != nil {
				return err
			}
			if err := p.s.Expect("BY"); err != nil {
				return err
			}
			h, err := p.s.NextFloat()
			if err != nil {
				return err
			}
			m.Width = p.tech.MicronsToDBU(w)
			m.Height = p.tech.MicronsToDBU(h)
			p.s.SkipStatement(";")
		case "SITE":
			val, _ := p.s.Next()
			m.Site = val
			p.s.SkipStatement(";")
		case "PIN":
			if err := p.parseMacroPin(m); err != nil {
				return err
			}
		case "OBS":
			shapes, err := p.parseShapes("END")
			if err != nil {
				return err
			}
			m.Obs = append(m.Obs, shapes...)
		case "END":
			next, _ := p.s.Next()
			if next != name {
				return fmt.Errorf("line %d: MACRO %s terminated by END %s", p.s.Line(), name, next)
			}
			return p.tech.AddMaster(m)
		default:
			p.s.SkipStatement(";")
		}
	}
}

func (p *parser) parseMacroPin(m *db.Master) error {
	name, ok := p.s.Next()
	if !ok {
		return fmt.Errorf("line %d: PIN without name in MACRO %s", p.s.Line(), m.Name)
	}
	pin := &db.MPin{Name: name, Use: common.PinUseSignal}
	for {
		tok, ok := p.s.Next()
		if !ok {
			return fmt.Errorf("line %d: unterminated PIN %s", p.s.Line(), name)
		}
		switch strings.ToUpper(tok) {
		case "DIRECTION":
			val, _ := p.s.Next()
			dir, err := common.ParseDirection(strings.ToLower(val))
			if err != nil {
				return fmt.Errorf("line %d: pin %s: %w", p.s.Line(), name, err)
			}
			pin.Dir = dir
			p.s.SkipStatement(";")
		case "USE":
			val, _ := p.s.Next()
			use, err := common.ParsePinUse(strings.ToLower(val))
			if err != nil {
				return fmt.Errorf("line %d: pin %s: %w", p.s.Line(), name, err)
			}
			pin.Use = use
			p.s.SkipStatement(";")
		case "PORT":
			shapes, err := p.parseShapes("END")
			if err != nil {
				return err
			}
			pin.Shapes = append(pin.Shapes, shapes...)
		case "END":
			next, _ := p.s.Next()
			if next != name {
				return fmt.Errorf("line %d: PIN %s terminated by END %s", p.s.Line(), name, next)
			}
			return m.AddPin(pin)
		default:
			p.s.SkipStatement(";")
		}
	}
}

// parseShapes reads LAYER/RECT statements until the terminator. Polygons
// and vias inside ports are not interpreted, their statements are skipped.
func (p *parser) parseShapes(terminator string) ([]db.LayerRect, error) {
	var (
		out   []db.LayerRect
		layer string
	)
	for {
		tok, ok := p.s.Next()
		if !ok {
			return nil, fmt.Errorf("line %d: unterminated shape list", p.s.Line())
		}
		switch strings.ToUpper(tok) {
		case "LAYER":
			val, _ := p.s.Next()
			layer = val
			p.s.SkipStatement(";")
		case "RECT":
			vals := make([]float64, 4)
			for i := range vals {
				v, err := p.s.NextFloat()
				if err != nil {
					return nil, err
				}
				vals[i] = v
			}
			p.s.SkipStatement(";")
			if layer == "" {
				p.log.Warn("RECT before LAYER in port, ignoring", zap.Int("line", p.s.Line()))
				continue
			}
			out = append(out, db.LayerRect{
				Layer: layer,
				Rect: db.NewRect(
					p.tech.MicronsToDBU(vals[0]), p.tech.MicronsToDBU(vals[1]),
					p.tech.MicronsToDBU(vals[2]), p.tech.MicronsToDBU(vals[3])),
			})
		case strings.ToUpper(terminator):
			return out, nil
		default:
			p.s.SkipStatement(";")
		}
	}
}

func parseFloatToken(tok string, line int) (float64, error) {
	var v float64
	if _, err := fmt.Sscanf(tok, "%g", &v); err != nil {
		return 0, fmt.Errorf("line %d: bad number %q: %w", line, tok, err)
	}
	return v, nil
}
