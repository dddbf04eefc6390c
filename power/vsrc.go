package power

import (
	"fmt"

	"orca/db"
	"orca/lex"
)

// Source is one voltage source location, typically a bump or pad.
type Source struct {
	Loc     db.Point
	Voltage float64
}

// ParseVsrc reads a voltage source file. Each line carries "x y voltage"
// with coordinates in microns, blank lines and # comments are ignored.
func ParseVsrc(data []byte, tech *db.Tech) ([]Source, error) {
	s := lex.NewScanner(data, lex.WithLineComment('#'))
	var out []Source
	for {
		if _, ok := s.Peek(); !ok {
			break
		}
		x, err := s.NextFloat()
		if err != nil {
			return nil, err
		}
		y, err := s.NextFloat()
		if err != nil {
			return nil, err
		}
		v, err := s.NextFloat()
		if err != nil {
			return nil, err
		}
		if v < 0 {
			return nil, fmt.Errorf("line %d: negative source voltage %g", s.Line(), v)
		}
		out = append(out, Source{
			Loc:     db.Point{X: tech.MicronsToDBU(x), Y: tech.MicronsToDBU(y)},
			Voltage: v,
		})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no voltage sources defined")
	}
	return out, nil
}

// DefaultSources synthesizes sources when no vsrc file was given: every
// strap endpoint on the net's topmost routed layer is held at the given
// voltage. Power enters a real grid through the top metal anyway.
func DefaultSources(block *db.Block, snet *db.SNet, voltage float64) ([]Source, error) {
	top := -1
	for _, w := range snet.Wires {
		if layer := block.Tech.Layer(w.Layer); layer != nil && layer.Index > top {
			top = layer.Index
		}
	}
	if top < 0 {
		return nil, fmt.Errorf("special net %q has no wires on known routing layers", snet.Name)
	}

	var (
		out  []Source
		seen = make(map[db.Point]bool)
	)
	for _, w := range snet.Wires {
		layer := block.Tech.Layer(w.Layer)
		if layer == nil || layer.Index != top {
			continue
		}
		for _, p := range []db.Point{w.From, w.To} {
			if seen[p] {
				continue
			}
			seen[p] = true
			out = append(out, Source{Loc: p, Voltage: voltage})
		}
	}
	return out, nil
}
