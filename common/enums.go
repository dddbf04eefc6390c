// Shared physical-design enumerations. Kept in a separate package so both
// readers and engine operations can use them without importing the database
// package.
package common

//go:generate go tool github.com/abice/go-enum --marshal

// Component placement status as it appears in DEF COMPONENTS section.
// ENUM(none, unplaced, placed, fixed, cover)
type PlaceStatus int

func (s PlaceStatus) IsPlaced() bool {
	return s == PlaceStatusPlaced || s == PlaceStatusFixed || s == PlaceStatusCover
}

func (s PlaceStatus) IsFixed() bool {
	return s == PlaceStatusFixed || s == PlaceStatusCover
}

// Component/pin orientation.
// ENUM(N, S, W, E, FN, FS, FW, FE)
type Orient int

// Terminal and macro pin direction.
// ENUM(input, output, inout, feedthru)
type Direction int

// Terminal and macro pin use.
// ENUM(signal, power, ground, clock, analog)
type PinUse int

func (u PinUse) IsSupply() bool {
	return u == PinUsePower || u == PinUseGround
}

// LEF layer type.
// ENUM(routing, cut, masterslice, overlap)
type LayerType int

// Preferred routing direction of a layer.
// ENUM(none, horizontal, vertical)
type LayerDir int

// Die boundary edge, counter-clockwise from the bottom.
// ENUM(bottom, right, top, left)
type Edge int

// Horizontal reports whether the edge runs along the x axis.
func (e Edge) Horizontal() bool {
	return e == EdgeBottom || e == EdgeTop
}

// Special net wire shape from DEF SPECIALNETS routing.
// ENUM(none, ring, stripe, followpin, corewire)
type WireShape int
