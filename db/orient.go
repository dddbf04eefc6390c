package db

import (
	"orca/common"
)

// orientSpec decomposes a DEF orientation into a mirror about the Y axis
// (applied first, in the master frame) followed by a number of 90 degree
// counter-clockwise rotations.
type orientSpec struct {
	rot    int
	mirror bool
}

var orientSpecs = map[common.Orient]orientSpec{
	common.OrientN:  {rot: 0},
	common.OrientW:  {rot: 1},
	common.OrientS:  {rot: 2},
	common.OrientE:  {rot: 3},
	common.OrientFN: {rot: 0, mirror: true},
	common.OrientFW: {rot: 1, mirror: true},
	common.OrientFS: {rot: 2, mirror: true},
	common.OrientFE: {rot: 3, mirror: true},
}

// TransformSize returns the bounding box size of a w x h master placed with
// the given orientation.
func TransformSize(w, h int64, o common.Orient) (int64, int64) {
	if orientSpecs[o].rot%2 == 1 {
		return h, w
	}
	return w, h
}

// TransformOffset maps a point in the master frame of a w x h master to the
// placed frame whose origin is the lower-left corner of the transformed
// bounding box.
func TransformOffset(p Point, w, h int64, o common.Orient) Point {
	spec := orientSpecs[o]
	if spec.mirror {
		p.X = w - p.X
	}
	for i := 0; i < spec.rot; i++ {
		// rotate 90 CCW and rebase to keep the box in the first quadrant
		p.X, p.Y = h-p.Y, p.X
		w, h = h, w
	}
	return p
}
