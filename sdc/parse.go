// Package sdc evaluates the subset of design constraint commands the engine
// operations consume: clocks, port delays and port loads. Constraints are
// Tcl underneath, but the files the flow feeds in stick to plain command
// lines, so a command-per-line reader with bracket expansion is sufficient.
// Commands outside the subset are preserved verbatim for the report.
package sdc

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"orca/lex"
)

// Clock is one create_clock command.
type Clock struct {
	Name   string
	Period float64 // time units of the constraint file
	Ports  []string
}

// PortDelay is one set_input_delay or set_output_delay command. A single "*"
// port stands for every port of the matching direction.
type PortDelay struct {
	Clock string
	Delay float64
	Min   bool
	Max   bool
	Ports []string
}

// Constraints is the evaluated content of one or more constraint files.
type Constraints struct {
	Clocks       []*Clock
	InputDelays  []*PortDelay
	OutputDelays []*PortDelay
	Loads        map[string]float64
	Units        map[string]string // set_units flag name to value
	Unknown      []string          // verbatim unrecognized commands
}

func New() *Constraints {
	return &Constraints{
		Loads: make(map[string]float64),
		Units: make(map[string]string),
	}
}

// Clock returns the named clock.
func (c *Constraints) Clock(name string) *Clock {
	for _, clk := range c.Clocks {
		if clk.Name == name {
			return clk
		}
	}
	return nil
}

// Parse evaluates one constraint file into c, merging with anything already
// loaded.
func Parse(data []byte, c *Constraints, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("sdc")

	for no, line := range logicalLines(string(data)) {
		cmd, _, _ := strings.Cut(line, " ")
		switch cmd {
		case "create_clock", "set_input_delay", "set_output_delay", "set_load", "set_units":
		default:
			// unrecognized commands travel through untouched
			log.Warn("Unsupported constraint command, keeping verbatim", zap.String("command", cmd))
			c.Unknown = append(c.Unknown, line)
			continue
		}

		args, err := splitCommand(line)
		if err != nil {
			return fmt.Errorf("line %d: %s: %w", no+1, cmd, err)
		}
		switch cmd {
		case "create_clock":
			err = parseCreateClock(args[1:], c)
		case "set_input_delay":
			err = parsePortDelay(args[1:], &c.InputDelays)
		case "set_output_delay":
			err = parsePortDelay(args[1:], &c.OutputDelays)
		case "set_load":
			err = parseSetLoad(args[1:], c)
		case "set_units":
			err = parseSetUnits(args[1:], c)
		}
		if err != nil {
			return fmt.Errorf("line %d: %s: %w", no+1, cmd, err)
		}
	}
	return nil
}

// logicalLines splits input into commands, joining backslash continuations
// and dropping comments and blank lines.
func logicalLines(src string) []string {
	var (
		out     []string
		carried string
	)
	for _, raw := range strings.Split(src, "\n") {
		line := strings.TrimSpace(raw)
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = strings.TrimSpace(line[:i])
		}
		if cont := strings.HasSuffix(line, `\`); cont {
			carried += strings.TrimSuffix(line, `\`) + " "
			continue
		}
		line = strings.TrimSpace(carried + line)
		carried = ""
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// splitCommand tokenizes a command line, expanding [get_ports ...] style
// selections into their port list in place.
func splitCommand(line string) ([]string, error) {
	s := lex.NewScanner([]byte(line), lex.WithSymbols("[]{}"))
	var args []string
	for {
		tok, ok := s.Next()
		if !ok {
			return args, nil
		}
		switch tok {
		case "[":
			ports, err := expandSelection(s)
			if err != nil {
				return nil, err
			}
			args = append(args, ports...)
		case "{":
			// a braced list stays a single argument so flag arity survives
			var items []string
			for {
				tok, ok := s.Next()
				if !ok {
					return nil, fmt.Errorf("unterminated list")
				}
				if tok == "}" {
					break
				}
				items = append(items, tok)
			}
			args = append(args, strings.Join(items, " "))
		case "]", "}":
			return nil, fmt.Errorf("unbalanced %q", tok)
		default:
			args = append(args, tok)
		}
	}
}

// expandSelection evaluates a bracketed object query. get_ports and get_pins
// name objects directly, all_inputs and all_outputs become the "*" wildcard
// resolved against the design later.
func expandSelection(s *lex.Scanner) ([]string, error) {
	cmd, ok := s.Next()
	if !ok {
		return nil, fmt.Errorf("unterminated selection")
	}
	var ports []string
	for {
		tok, ok := s.Next()
		if !ok {
			return nil, fmt.Errorf("unterminated selection %q", cmd)
		}
		if tok == "]" {
			break
		}
		if tok == "{" || tok == "}" {
			continue
		}
		ports = append(ports, tok)
	}
	switch cmd {
	case "get_ports", "get_pins", "get_nets":
		if len(ports) == 0 {
			return nil, fmt.Errorf("%s without arguments", cmd)
		}
		return ports, nil
	case "all_inputs", "all_outputs", "all_clocks":
		return []string{"*"}, nil
	default:
		return nil, fmt.Errorf("unsupported selection %q", cmd)
	}
}

func parseCreateClock(args []string, c *Constraints) error {
	clk := &Clock{}
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-name":
			if i++; i >= len(args) {
				return fmt.Errorf("-name needs a value")
			}
			clk.Name = args[i]
		case "-period":
			if i++; i >= len(args) {
				return fmt.Errorf("-period needs a value")
			}
			v, err := strconv.ParseFloat(args[i], 64)
			if err != nil {
				return fmt.Errorf("bad period %q", args[i])
			}
			clk.Period = v
		case "-waveform":
			i++ // edge list, not used
		default:
			clk.Ports = append(clk.Ports, strings.Fields(args[i])...)
		}
	}
	if clk.Period <= 0 {
		return fmt.Errorf("clock without a positive period")
	}
	if clk.Name == "" {
		if len(clk.Ports) == 0 {
			return fmt.Errorf("clock without name or port")
		}
		clk.Name = clk.Ports[0]
	}
	if c.Clock(clk.Name) != nil {
		return fmt.Errorf("clock %q already defined", clk.Name)
	}
	c.Clocks = append(c.Clocks, clk)
	return nil
}

func parsePortDelay(args []string, out *[]*PortDelay) error {
	d := &PortDelay{}
	seenDelay := false
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-clock":
			if i++; i >= len(args) {
				return fmt.Errorf("-clock needs a value")
			}
			d.Clock = args[i]
		case "-min":
			d.Min = true
		case "-max":
			d.Max = true
		case "-add_delay":
			// additive delays are stored like any other
		default:
			if !seenDelay {
				v, err := strconv.ParseFloat(args[i], 64)
				if err != nil {
					return fmt.Errorf("bad delay %q", args[i])
				}
				d.Delay = v
				seenDelay = true
				continue
			}
			d.Ports = append(d.Ports, strings.Fields(args[i])...)
		}
	}
	if !seenDelay {
		return fmt.Errorf("missing delay value")
	}
	if len(d.Ports) == 0 {
		return fmt.Errorf("missing port list")
	}
	*out = append(*out, d)
	return nil
}

func parseSetLoad(args []string, c *Constraints) error {
	var (
		value     float64
		seenValue bool
		ports     []string
	)
	for i := 0; i < len(args); i++ {
		if strings.HasPrefix(args[i], "-") {
			// -pin_load and friends change bookkeeping, not the value
			continue
		}
		if !seenValue {
			v, err := strconv.ParseFloat(args[i], 64)
			if err != nil {
				return fmt.Errorf("bad load %q", args[i])
			}
			value = v
			seenValue = true
			continue
		}
		ports = append(ports, strings.Fields(args[i])...)
	}
	if !seenValue || len(ports) == 0 {
		return fmt.Errorf("set_load needs a value and a port list")
	}
	for _, p := range ports {
		c.Loads[p] = value
	}
	return nil
}

func parseSetUnits(args []string, c *Constraints) error {
	for i := 0; i < len(args); i++ {
		if !strings.HasPrefix(args[i], "-") {
			return fmt.Errorf("unexpected argument %q", args[i])
		}
		flag := strings.TrimPrefix(args[i], "-")
		if i++; i >= len(args) {
			return fmt.Errorf("-%s needs a value", flag)
		}
		c.Units[flag] = args[i]
	}
	return nil
}
