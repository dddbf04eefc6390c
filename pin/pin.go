// Package pin assigns block terminals to legal slots on the die boundary.
// Slots are generated on routing tracks of the requested layers, keeping
// clear of the corners, and terminals are matched to slots in boundary
// order so their nets do not cross.
package pin

import (
	"context"
	"fmt"
	"slices"

	"github.com/maruel/natural"
	"go.uber.org/zap"

	"orca/common"
	"orca/db"
)

// Exclude removes a boundary interval from slot generation. Lo and Hi are
// coordinates along the edge (x for horizontal edges, y for vertical); a
// zero interval with Lo == Hi == -1 excludes the whole edge.
type Exclude struct {
	Edge common.Edge
	Lo   int64
	Hi   int64
}

// Options control pin placement. Layer lists name routing layers from the
// technology: pins on the left and right edges use horizontal layers, pins
// on the top and bottom edges vertical ones.
type Options struct {
	HorLayers       []string
	VerLayers       []string
	CornerAvoidance int64 // keep-out around die corners, database units
	MinDistance     int64 // minimum slot spacing, database units
	Groups          [][]string
	Excludes        []Exclude
}

// Stats summarizes a pin placement run.
type Stats struct {
	Slots  int
	Placed int
	Groups int
}

type slot struct {
	edge  common.Edge
	layer *db.Layer
	pos   db.Point
	t     float64 // position along the boundary walk
	used  bool
}

// Run places every non fixed terminal of the block onto a boundary slot.
func Run(ctx context.Context, block *db.Block, opts Options, log *zap.Logger) (Stats, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("pin")

	if err := ctx.Err(); err != nil {
		return Stats{}, err
	}
	if len(opts.HorLayers) == 0 || len(opts.VerLayers) == 0 {
		return Stats{}, fmt.Errorf("both horizontal and vertical pin layers are required")
	}
	if block.Die.Dx() <= 0 || block.Die.Dy() <= 0 {
		return Stats{}, fmt.Errorf("design has no die area")
	}

	hor, err := resolveLayers(block.Tech, opts.HorLayers)
	if err != nil {
		return Stats{}, err
	}
	ver, err := resolveLayers(block.Tech, opts.VerLayers)
	if err != nil {
		return Stats{}, err
	}

	slots := buildSlots(block.Die, hor, ver, opts)
	if len(slots) == 0 {
		return Stats{}, fmt.Errorf("no pin slots available, check exclusions and corner avoidance")
	}

	jobs, err := collectJobs(block, opts.Groups)
	if err != nil {
		return Stats{}, err
	}
	need := 0
	for _, j := range jobs {
		need += len(j.terms)
	}
	stats := Stats{Slots: len(slots), Groups: len(opts.Groups)}
	if need == 0 {
		return stats, nil
	}
	if need > len(slots) {
		return stats, fmt.Errorf("%d terminals do not fit into %d slots", need, len(slots))
	}

	for _, j := range jobs {
		j.t = desiredT(j, block.Die)
	}
	if err := assignJobs(jobs, slots); err != nil {
		return stats, err
	}
	for _, j := range jobs {
		for _, a := range j.assigned {
			placeTerm(a.term, a.slot, block.Die)
			stats.Placed++
		}
	}
	log.Debug("Terminals placed",
		zap.Int("terminals", stats.Placed),
		zap.Int("slots", stats.Slots),
		zap.Int("groups", stats.Groups))
	return stats, nil
}

func resolveLayers(tech *db.Tech, names []string) ([]*db.Layer, error) {
	var out []*db.Layer
	for _, name := range names {
		l := tech.Layer(name)
		if l == nil {
			return nil, fmt.Errorf("unknown pin layer %q", name)
		}
		if l.Type != common.LayerTypeRouting {
			return nil, fmt.Errorf("pin layer %q is not a routing layer", name)
		}
		out = append(out, l)
	}
	return out, nil
}

// buildSlots walks the die boundary counterclockwise from the lower left
// corner: bottom, right, top, left.
func buildSlots(die db.Rect, hor, ver []*db.Layer, opts Options) []*slot {
	var slots []*slot
	edges := []common.Edge{common.EdgeBottom, common.EdgeRight, common.EdgeTop, common.EdgeLeft}
	seen := make(map[db.Point]bool)
	offset := 0.0
	for _, edge := range edges {
		lo, hi, length := edgeSpan(die, edge)
		layers := ver
		if !edge.Horizontal() {
			layers = hor
		}
		// slot pitch is twice the coarsest layer pitch, never below the
		// requested minimum spacing
		step := opts.MinDistance
		for _, l := range layers {
			if p := 2 * l.Pitch; p > step {
				step = p
			}
		}
		if step <= 0 {
			step = 1
		}
		for k, pos := 0, lo+opts.CornerAvoidance; pos <= hi-opts.CornerAvoidance; k, pos = k+1, pos+step {
			if excluded(opts.Excludes, edge, pos) {
				continue
			}
			// adjacent edges meet at the corners, without a keep-out the
			// corner point would be emitted twice
			p := edgePoint(die, edge, pos)
			if seen[p] {
				continue
			}
			seen[p] = true
			slots = append(slots, &slot{
				edge:  edge,
				layer: layers[k%len(layers)],
				pos:   p,
				t:     offset + walkDistance(edge, pos, lo, hi),
			})
		}
		offset += length
	}
	return slots
}

// edgeSpan returns the coordinate range along an edge and its length.
func edgeSpan(die db.Rect, edge common.Edge) (lo, hi int64, length float64) {
	if edge.Horizontal() {
		return die.Lo.X, die.Hi.X, float64(die.Dx())
	}
	return die.Lo.Y, die.Hi.Y, float64(die.Dy())
}

// walkDistance converts an edge coordinate into the distance walked along
// that edge in counterclockwise direction.
func walkDistance(edge common.Edge, pos, lo, hi int64) float64 {
	switch edge {
	case common.EdgeBottom, common.EdgeRight:
		return float64(pos - lo)
	default: // top and left are walked backwards
		return float64(hi - pos)
	}
}

func edgePoint(die db.Rect, edge common.Edge, pos int64) db.Point {
	switch edge {
	case common.EdgeBottom:
		return db.Point{X: pos, Y: die.Lo.Y}
	case common.EdgeTop:
		return db.Point{X: pos, Y: die.Hi.Y}
	case common.EdgeLeft:
		return db.Point{X: die.Lo.X, Y: pos}
	default:
		return db.Point{X: die.Hi.X, Y: pos}
	}
}

func excluded(excludes []Exclude, edge common.Edge, pos int64) bool {
	for _, e := range excludes {
		if e.Edge != edge {
			continue
		}
		if e.Lo == -1 && e.Hi == -1 {
			return true
		}
		if pos >= e.Lo && pos <= e.Hi {
			return true
		}
	}
	return false
}

// job is one unit of assignment: a single terminal or a group that must
// stay in consecutive slots.
type job struct {
	terms    []*db.Term
	t        float64 // desired boundary position
	assigned []assignment
}

type assignment struct {
	term *db.Term
	slot *slot
}

func collectJobs(block *db.Block, groups [][]string) ([]*job, error) {
	grouped := make(map[string]bool)
	var jobs []*job
	for _, names := range groups {
		j := &job{}
		for _, name := range names {
			term := block.Term(name)
			if term == nil {
				return nil, fmt.Errorf("group references unknown pin %q", name)
			}
			if grouped[name] {
				return nil, fmt.Errorf("pin %q appears in more than one group", name)
			}
			grouped[name] = true
			j.terms = append(j.terms, term)
		}
		// bus bits stay in human order inside the group
		slices.SortFunc(j.terms, func(a, b *db.Term) int {
			if natural.Less(a.Name, b.Name) {
				return -1
			}
			if natural.Less(b.Name, a.Name) {
				return 1
			}
			return 0
		})
		jobs = append(jobs, j)
	}
	for _, term := range block.SortedTerms() {
		if term.Status.IsFixed() || grouped[term.Name] {
			continue
		}
		jobs = append(jobs, &job{terms: []*db.Term{term}})
	}
	return jobs, nil
}

// desiredT estimates where along the boundary a job wants to sit, based on
// the placed cells its nets connect to.
func desiredT(j *job, die db.Rect) float64 {
	var sx, sy float64
	var n int
	for _, term := range j.terms {
		if term.Net == nil {
			continue
		}
		for _, c := range term.Net.Conns {
			if c.Inst.Status.IsPlaced() {
				p := c.Inst.PinPosition(c.Pin)
				sx += float64(p.X)
				sy += float64(p.Y)
				n++
			}
		}
	}
	if n == 0 {
		c := die.Center()
		sx, sy, n = float64(c.X), float64(c.Y), 1
	}
	return boundaryT(die, sx/float64(n), sy/float64(n))
}

// boundaryT projects a point onto the die boundary and returns the
// counterclockwise walk distance of the projection.
func boundaryT(die db.Rect, x, y float64) float64 {
	x0, y0 := float64(die.Lo.X), float64(die.Lo.Y)
	x1, y1 := float64(die.Hi.X), float64(die.Hi.Y)
	w, h := x1-x0, y1-y0

	// distance to each edge decides the projection
	dBottom := y - y0
	dTop := y1 - y
	dLeft := x - x0
	dRight := x1 - x

	m := min(dBottom, dTop, dLeft, dRight)
	switch m {
	case dBottom:
		return clampF(x-x0, 0, w)
	case dRight:
		return w + clampF(y-y0, 0, h)
	case dTop:
		return w + h + clampF(x1-x, 0, w)
	default:
		return w + h + w + clampF(y1-y, 0, h)
	}
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// assignJobs matches jobs to slots in boundary order. Jobs are sorted by
// their desired position, then each takes the nearest run of free slots at
// or after the current cursor, which keeps the relative order crossing
// free.
func assignJobs(jobs []*job, slots []*slot) error {
	slices.SortFunc(jobs, func(a, b *job) int {
		switch {
		case a.t < b.t:
			return -1
		case a.t > b.t:
			return 1
		default:
			return 0
		}
	})

	cursor := 0
	for _, j := range jobs {
		need := len(j.terms)
		start := findRun(slots, cursor, need)
		if start < 0 {
			start = findRun(slots, 0, need)
		}
		if start < 0 {
			return fmt.Errorf("no run of %d consecutive free slots for %q", need, j.terms[0].Name)
		}
		// advance while the next viable run starts closer to the target
		for {
			next := findRun(slots, start+1, need)
			if next < 0 || absF(slots[next].t-j.t) >= absF(slots[start].t-j.t) {
				break
			}
			start = next
		}
		for k := 0; k < need; k++ {
			slots[start+k].used = true
			j.assigned = append(j.assigned, assignment{term: j.terms[k], slot: slots[start+k]})
		}
		cursor = start + need
	}
	return nil
}

// findRun locates the first run of n consecutive free slots at or after
// from. Returns -1 when none is left.
func findRun(slots []*slot, from, n int) int {
	if from < 0 {
		from = 0
	}
	for i := from; i+n <= len(slots); i++ {
		ok := true
		for k := 0; k < n; k++ {
			if slots[i+k].used {
				ok = false
				break
			}
		}
		if ok {
			return i
		}
	}
	return -1
}

func absF(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// placeTerm writes the slot assignment into the terminal. The pin shape is
// a square of the layer width extended one width into the die.
func placeTerm(term *db.Term, s *slot, die db.Rect) {
	term.Status = common.PlaceStatusPlaced
	term.Loc = s.pos
	term.Layer = s.layer.Name
	half := s.layer.Width / 2
	if half <= 0 {
		half = 1
	}
	depth := 4 * half
	switch s.edge {
	case common.EdgeBottom:
		term.Orient = common.OrientN
		term.Shape = db.NewRect(-half, 0, half, depth)
	case common.EdgeTop:
		term.Orient = common.OrientS
		term.Shape = db.NewRect(-half, -depth, half, 0)
	case common.EdgeLeft:
		term.Orient = common.OrientE
		term.Shape = db.NewRect(0, -half, depth, half)
	default:
		term.Orient = common.OrientW
		term.Shape = db.NewRect(-depth, -half, 0, half)
	}
}
