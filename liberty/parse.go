// Package liberty reads cell library data in Liberty format. Only the
// attributes the power analysis needs are extracted: supply voltages, cell
// leakage and pin capacitances. Unknown groups are skipped wholesale, a
// Liberty file is mostly timing tables this tool has no use for.
package liberty

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"orca/common"
	"orca/lex"
)

// CellPin is one pin group of a cell.
type CellPin struct {
	Name     string
	Dir      common.Direction
	Cap      float64 // input capacitance in library units
	MaxCap   float64
	Function string
}

// Cell is one library cell.
type Cell struct {
	Name         string
	Area         float64
	LeakagePower float64 // library power units
	Pins         []*CellPin

	pins map[string]*CellPin
}

func (c *Cell) Pin(name string) *CellPin {
	return c.pins[name]
}

func (c *Cell) addPin(p *CellPin) {
	if c.pins == nil {
		c.pins = make(map[string]*CellPin)
	}
	c.pins[p.Name] = p
	c.Pins = append(c.Pins, p)
}

// Library is one parsed Liberty file.
type Library struct {
	Name       string
	NomVoltage float64
	VoltageMap map[string]float64
	TimeUnit   string
	CapUnit    string
	Cells      []*Cell

	cellByName map[string]*Cell
}

func (l *Library) Cell(name string) *Cell {
	return l.cellByName[name]
}

func (l *Library) addCell(c *Cell) error {
	if l.cellByName == nil {
		l.cellByName = make(map[string]*Cell)
	}
	if _, exists := l.cellByName[c.Name]; exists {
		return fmt.Errorf("cell %q already defined in library %q", c.Name, l.Name)
	}
	l.cellByName[c.Name] = c
	l.Cells = append(l.Cells, c)
	return nil
}

// Catalog looks cells up across several libraries in load order.
type Catalog struct {
	Libs []*Library
}

func (c *Catalog) Add(lib *Library) {
	c.Libs = append(c.Libs, lib)
}

func (c *Catalog) Cell(name string) *Cell {
	for _, lib := range c.Libs {
		if cell := lib.Cell(name); cell != nil {
			return cell
		}
	}
	return nil
}

// NomVoltage returns the first nominal voltage declared by any library.
func (c *Catalog) NomVoltage() float64 {
	for _, lib := range c.Libs {
		if lib.NomVoltage > 0 {
			return lib.NomVoltage
		}
	}
	return 0
}

// stmt is one statement of a group body: a simple attribute, a complex
// attribute or the header of a nested group. end marks the closing brace.
type stmt struct {
	key   string
	name  string // first group header argument
	value string
	group bool // scanner is positioned inside the nested group body
	end   bool
}

type parser struct {
	s   *lex.Scanner
	log *zap.Logger
}

// Parse reads one Liberty file.
func Parse(data []byte, log *zap.Logger) (*Library, error) {
	if log == nil {
		log = zap.NewNop()
	}
	p := &parser{
		s:   lex.NewScanner(data, lex.WithSymbols("(){};:,"), lex.WithBlockComments()),
		log: log.Named("liberty"),
	}

	if err := p.s.Expect("library"); err != nil {
		return nil, err
	}
	head, err := p.entryAfterKey("library")
	if err != nil {
		return nil, err
	}
	if !head.group {
		return nil, fmt.Errorf("line %d: library is not a group", p.s.Line())
	}
	lib := &Library{Name: head.name, VoltageMap: make(map[string]float64)}
	if err := p.parseLibraryBody(lib); err != nil {
		return nil, err
	}
	return lib, nil
}

// entry reads the next statement of a group body.
func (p *parser) entry() (stmt, error) {
	tok, ok := p.s.Next()
	if !ok {
		return stmt{}, fmt.Errorf("line %d: unterminated group body", p.s.Line())
	}
	if tok == "}" {
		return stmt{end: true}, nil
	}
	return p.entryAfterKey(tok)
}

func (p *parser) entryAfterKey(key string) (stmt, error) {
	next, ok := p.s.Peek()
	if !ok {
		return stmt{}, fmt.Errorf("line %d: dangling token %q", p.s.Line(), key)
	}
	switch next {
	case ":":
		value, err := p.simpleValue()
		if err != nil {
			return stmt{}, err
		}
		return stmt{key: key, value: value}, nil
	case "(":
		args, err := p.parenArgs()
		if err != nil {
			return stmt{}, err
		}
		if brace, ok := p.s.Peek(); ok && brace == "{" {
			p.s.Next()
			name := ""
			if len(args) > 0 {
				name = args[0]
			}
			return stmt{key: key, name: name, group: true}, nil
		}
		if semi, ok := p.s.Peek(); ok && semi == ";" {
			p.s.Next()
		}
		return stmt{key: key, value: strings.Join(args, ",")}, nil
	default:
		return stmt{}, fmt.Errorf("line %d: unexpected token %q after %q", p.s.Line(), next, key)
	}
}

// parenArgs consumes "( a, b, ... )" and returns the arguments.
func (p *parser) parenArgs() ([]string, error) {
	if err := p.s.Expect("("); err != nil {
		return nil, err
	}
	var args []string
	for {
		tok, ok := p.s.Next()
		if !ok {
			return nil, fmt.Errorf("line %d: unterminated argument list", p.s.Line())
		}
		if tok == ")" {
			return args, nil
		}
		if tok != "," {
			args = append(args, tok)
		}
	}
}

// simpleValue consumes ": value ;". Multi token values are joined with
// spaces, the terminating semicolon is optional at end of line.
func (p *parser) simpleValue() (string, error) {
	if err := p.s.Expect(":"); err != nil {
		return "", err
	}
	var parts []string
	for {
		tok, ok := p.s.Next()
		if !ok {
			return "", fmt.Errorf("line %d: unterminated attribute value", p.s.Line())
		}
		if tok == ";" {
			break
		}
		parts = append(parts, tok)
		if next, ok := p.s.Peek(); !ok || next == "}" {
			break
		}
	}
	return strings.Join(parts, " "), nil
}

// skipGroup consumes a group body after its opening brace was read.
func (p *parser) skipGroup() error {
	depth := 1
	for depth > 0 {
		tok, ok := p.s.Next()
		if !ok {
			return fmt.Errorf("line %d: unterminated group", p.s.Line())
		}
		switch tok {
		case "{":
			depth++
		case "}":
			depth--
		}
	}
	return nil
}

func (p *parser) parseLibraryBody(lib *Library) error {
	for {
		st, err := p.entry()
		if err != nil {
			return err
		}
		if st.end {
			return nil
		}
		switch st.key {
		case "nom_voltage":
			if lib.NomVoltage, err = parseNumber(st.value); err != nil {
				return fmt.Errorf("nom_voltage: %w", err)
			}
		case "time_unit":
			lib.TimeUnit = st.value
		case "capacitive_load_unit":
			lib.CapUnit = st.value
		case "voltage_map":
			parts := strings.Split(st.value, ",")
			if len(parts) != 2 {
				return fmt.Errorf("line %d: malformed voltage_map", p.s.Line())
			}
			v, err := parseNumber(parts[1])
			if err != nil {
				return fmt.Errorf("voltage_map: %w", err)
			}
			lib.VoltageMap[parts[0]] = v
		case "cell":
			cell := &Cell{Name: st.name}
			if err := p.parseCellBody(cell); err != nil {
				return err
			}
			if err := lib.addCell(cell); err != nil {
				return err
			}
		default:
			if st.group {
				if err := p.skipGroup(); err != nil {
					return err
				}
			}
		}
	}
}

func (p *parser) parseCellBody(cell *Cell) error {
	for {
		st, err := p.entry()
		if err != nil {
			return err
		}
		if st.end {
			return nil
		}
		switch st.key {
		case "area":
			if cell.Area, err = parseNumber(st.value); err != nil {
				return fmt.Errorf("cell %s area: %w", cell.Name, err)
			}
		case "cell_leakage_power":
			if cell.LeakagePower, err = parseNumber(st.value); err != nil {
				return fmt.Errorf("cell %s leakage: %w", cell.Name, err)
			}
		case "leakage_power":
			if err := p.parseLeakageGroup(cell); err != nil {
				return err
			}
		case "pin", "pg_pin":
			pin := &CellPin{Name: st.name}
			if err := p.parsePinBody(pin); err != nil {
				return err
			}
			cell.addPin(pin)
		default:
			if st.group {
				if err := p.skipGroup(); err != nil {
					return err
				}
			}
		}
	}
}

// parseLeakageGroup keeps the first unconditional leakage value unless an
// explicit cell_leakage_power attribute was already seen.
func (p *parser) parseLeakageGroup(cell *Cell) error {
	var (
		value       float64
		conditional bool
	)
	for {
		st, err := p.entry()
		if err != nil {
			return err
		}
		if st.end {
			break
		}
		switch st.key {
		case "value":
			if value, err = parseNumber(st.value); err != nil {
				return fmt.Errorf("cell %s leakage_power: %w", cell.Name, err)
			}
		case "when":
			conditional = true
		default:
			if st.group {
				if err := p.skipGroup(); err != nil {
					return err
				}
			}
		}
	}
	if !conditional && cell.LeakagePower == 0 {
		cell.LeakagePower = value
	}
	return nil
}

func (p *parser) parsePinBody(pin *CellPin) error {
	for {
		st, err := p.entry()
		if err != nil {
			return err
		}
		if st.end {
			return nil
		}
		switch st.key {
		case "direction":
			dir, err := common.ParseDirection(st.value)
			if err != nil {
				return fmt.Errorf("pin %s: %w", pin.Name, err)
			}
			pin.Dir = dir
		case "capacitance":
			if pin.Cap, err = parseNumber(st.value); err != nil {
				return fmt.Errorf("pin %s capacitance: %w", pin.Name, err)
			}
		case "max_capacitance":
			if pin.MaxCap, err = parseNumber(st.value); err != nil {
				return fmt.Errorf("pin %s max_capacitance: %w", pin.Name, err)
			}
		case "function":
			pin.Function = st.value
		default:
			if st.group {
				if err := p.skipGroup(); err != nil {
					return err
				}
			}
		}
	}
}

func parseNumber(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("bad number %q", s)
	}
	return v, nil
}
