package db

// All geometry is kept in integer database units (DBU). Conversion to and
// from microns happens only at file boundaries.

type Point struct {
	X, Y int64
}

type Rect struct {
	Lo, Hi Point
}

func NewRect(xlo, ylo, xhi, yhi int64) Rect {
	if xhi < xlo {
		xlo, xhi = xhi, xlo
	}
	if yhi < ylo {
		ylo, yhi = yhi, ylo
	}
	return Rect{Lo: Point{X: xlo, Y: ylo}, Hi: Point{X: xhi, Y: yhi}}
}

func (r Rect) Dx() int64 {
	return r.Hi.X - r.Lo.X
}

func (r Rect) Dy() int64 {
	return r.Hi.Y - r.Lo.Y
}

func (r Rect) Area() int64 {
	return r.Dx() * r.Dy()
}

func (r Rect) Center() Point {
	return Point{X: (r.Lo.X + r.Hi.X) / 2, Y: (r.Lo.Y + r.Hi.Y) / 2}
}

func (r Rect) Contains(p Point) bool {
	return p.X >= r.Lo.X && p.X <= r.Hi.X && p.Y >= r.Lo.Y && p.Y <= r.Hi.Y
}

func (r Rect) Intersects(o Rect) bool {
	return r.Lo.X < o.Hi.X && o.Lo.X < r.Hi.X && r.Lo.Y < o.Hi.Y && o.Lo.Y < r.Hi.Y
}

// Intersection returns the overlapping region, empty rect when there is none.
func (r Rect) Intersection(o Rect) Rect {
	out := Rect{
		Lo: Point{X: max(r.Lo.X, o.Lo.X), Y: max(r.Lo.Y, o.Lo.Y)},
		Hi: Point{X: min(r.Hi.X, o.Hi.X), Y: min(r.Hi.Y, o.Hi.Y)},
	}
	if out.Hi.X < out.Lo.X || out.Hi.Y < out.Lo.Y {
		return Rect{}
	}
	return out
}

func (r Rect) Union(o Rect) Rect {
	return Rect{
		Lo: Point{X: min(r.Lo.X, o.Lo.X), Y: min(r.Lo.Y, o.Lo.Y)},
		Hi: Point{X: max(r.Hi.X, o.Hi.X), Y: max(r.Hi.Y, o.Hi.Y)},
	}
}

func (r Rect) Translate(p Point) Rect {
	return Rect{
		Lo: Point{X: r.Lo.X + p.X, Y: r.Lo.Y + p.Y},
		Hi: Point{X: r.Hi.X + p.X, Y: r.Hi.Y + p.Y},
	}
}

// LayerRect is a rectangle bound to a named layer, used for macro pin ports
// and obstructions.
type LayerRect struct {
	Layer string
	Rect  Rect
}
