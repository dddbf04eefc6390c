package place

import (
	"fmt"
	"math"
	"slices"

	"orca/common"
	"orca/db"
)

// legalRow is one y position cells can be snapped into. DEF rows with a
// vertical repeat are expanded into one legalRow per repetition.
type legalRow struct {
	y        int64
	h        int64
	x0, x1   int64
	step     int64
	orient   common.Orient
	nextFree int64
	blocked  []db.Rect // fixed footprints overlapping this row, sorted by x
}

func expandRows(block *db.Block) []*legalRow {
	var out []*legalRow
	for _, row := range block.Rows {
		site := block.Tech.Site(row.Site)
		step := row.StepX
		if step == 0 && site != nil {
			step = site.Width
		}
		if step == 0 {
			continue
		}
		height := int64(0)
		if site != nil {
			height = site.Height
		}
		width := int64(row.NumX) * step
		for k := 0; k < max(row.NumY, 1); k++ {
			out = append(out, &legalRow{
				y:        row.Origin.Y + int64(k)*row.StepY,
				h:        height,
				x0:       row.Origin.X,
				x1:       row.Origin.X + width,
				step:     step,
				orient:   row.Orient,
				nextFree: row.Origin.X,
			})
		}
	}
	slices.SortFunc(out, func(a, b *legalRow) int {
		if a.y != b.y {
			return int(a.y - b.y)
		}
		return int(a.x0 - b.x0)
	})
	return out
}

// legalize snaps placed movable cells onto row and site positions without
// overlaps. Cells are processed in x order and packed left to right, each
// into the row minimizing its displacement.
func legalize(block *db.Block, padding int) error {
	rows := expandRows(block)
	if len(rows) == 0 {
		return fmt.Errorf("design has no placement rows")
	}

	var cells []*db.Inst
	for _, inst := range block.Insts {
		if !inst.Status.IsFixed() {
			cells = append(cells, inst)
			continue
		}
		bounds := inst.Bounds()
		for _, row := range rows {
			if bounds.Lo.Y < row.y+row.h && bounds.Hi.Y > row.y {
				row.blocked = append(row.blocked, bounds)
			}
		}
	}
	for _, row := range rows {
		slices.SortFunc(row.blocked, func(a, b db.Rect) int {
			return int(a.Lo.X - b.Lo.X)
		})
	}
	slices.SortFunc(cells, func(a, b *db.Inst) int {
		if a.Loc.X != b.Loc.X {
			return int(a.Loc.X - b.Loc.X)
		}
		if a.Loc.Y != b.Loc.Y {
			return int(a.Loc.Y - b.Loc.Y)
		}
		return cmpName(a.Name, b.Name)
	})

	for _, inst := range cells {
		w, _ := inst.Size()
		var (
			bestRow  *legalRow
			bestX    int64
			bestCost = int64(math.MaxInt64)
		)
		for _, row := range rows {
			x := max(inst.Loc.X, row.nextFree)
			x = snapUp(x, row.x0, row.step)
			for _, blk := range row.blocked {
				if x < blk.Hi.X && x+w > blk.Lo.X {
					x = snapUp(blk.Hi.X, row.x0, row.step)
				}
			}
			if x+w > row.x1 {
				continue
			}
			cost := abs64(x-inst.Loc.X) + abs64(row.y-inst.Loc.Y)
			if cost < bestCost {
				bestRow, bestX, bestCost = row, x, cost
			}
		}
		if bestRow == nil {
			return fmt.Errorf("unable to legalize %q: no row has %d units of free space", inst.Name, w)
		}
		inst.Loc = db.Point{X: bestX, Y: bestRow.y}
		inst.Orient = bestRow.orient
		inst.Status = common.PlaceStatusPlaced
		bestRow.nextFree = bestX + w + int64(padding)*bestRow.step
	}
	return nil
}

func snapUp(x, origin, step int64) int64 {
	if x <= origin {
		return origin
	}
	k := (x - origin + step - 1) / step
	return origin + k*step
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func cmpName(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
