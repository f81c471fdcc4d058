package sync

import (
	"math"

	"github.com/OpenTraceLab/OpenTraceSync/pkg/kicad/sexp"
)

// Allocator finds non-overlapping positions for newly placed elements.
// It sweeps grid candidates in expanding rings around the configured
// origin and takes the first whose inflated bounding box clears every
// occupied box. The sweep order is a pure function of the existing
// layout, which is what keeps repeated runs placing identical parts at
// identical coordinates.
type Allocator struct {
	cfg      *Config
	occupied []sexp.BoundingBox
}

// NewAllocator seeds an allocator with the boxes already occupied on the
// sheet.
func NewAllocator(cfg *Config, occupied []sexp.BoundingBox) *Allocator {
	return &Allocator{cfg: cfg, occupied: occupied}
}

// Allocate returns a position for an element of the given size (a
// bounding box centered on the element anchor) and marks it occupied so
// subsequent allocations in the same run avoid it. When every candidate
// within the bounded sweep is blocked, the element goes into an overflow
// column past the right edge of everything placed so far.
func (a *Allocator) Allocate(halfW, halfH float64) sexp.Position {
	// Candidates step by whole grid units so placed parts land on grid.
	step := a.cfg.Grid * 2
	origin := sexp.Position{X: a.cfg.PlacementOrigin.X, Y: a.cfg.PlacementOrigin.Y}

	for ring := 0; ring <= a.cfg.MaxPlacementRing; ring++ {
		for _, cand := range ringPositions(origin, step, ring) {
			if a.fits(cand, halfW, halfH) {
				a.take(cand, halfW, halfH)
				return cand
			}
		}
	}

	// Bounded sweep exhausted: place beyond the current extent.
	extent := sexp.NewBoundingBox()
	extent.Expand(origin)
	for _, box := range a.occupied {
		extent.ExpandBox(box)
	}
	over := sexp.Position{
		X: snap(extent.Max.X+a.cfg.Clearance+halfW, a.cfg.Grid),
		Y: snap(origin.Y, a.cfg.Grid),
	}
	for !a.fits(over, halfW, halfH) {
		over.Y += step
	}
	a.take(over, halfW, halfH)
	return over
}

// fits reports whether a box centered at pos keeps the configured
// clearance from every occupied box. The document origin is never valid.
func (a *Allocator) fits(pos sexp.Position, halfW, halfH float64) bool {
	if pos.X == 0 && pos.Y == 0 {
		return false
	}
	box := boxAt(pos, halfW, halfH).Inflate(a.cfg.Clearance)
	for _, other := range a.occupied {
		if box.Intersects(other) {
			return false
		}
	}
	return true
}

func (a *Allocator) take(pos sexp.Position, halfW, halfH float64) {
	a.occupied = append(a.occupied, boxAt(pos, halfW, halfH))
}

func boxAt(pos sexp.Position, halfW, halfH float64) sexp.BoundingBox {
	box := sexp.NewBoundingBox()
	box.Expand(sexp.Position{X: pos.X - halfW, Y: pos.Y - halfH})
	box.Expand(sexp.Position{X: pos.X + halfW, Y: pos.Y + halfH})
	return box
}

// ringPositions enumerates the candidate positions on the square ring at
// the given radius, in a fixed clockwise order starting at the top-left
// corner. Ring 0 is the origin itself.
func ringPositions(origin sexp.Position, step float64, ring int) []sexp.Position {
	if ring == 0 {
		return []sexp.Position{origin}
	}
	var out []sexp.Position
	at := func(dx, dy int) {
		out = append(out, sexp.Position{
			X: origin.X + float64(dx)*step,
			Y: origin.Y + float64(dy)*step,
		})
	}
	for dx := -ring; dx <= ring; dx++ { // top edge
		at(dx, -ring)
	}
	for dy := -ring + 1; dy <= ring; dy++ { // right edge
		at(ring, dy)
	}
	for dx := ring - 1; dx >= -ring; dx-- { // bottom edge
		at(dx, ring)
	}
	for dy := ring - 1; dy >= -ring+1; dy-- { // left edge
		at(-ring, dy)
	}
	return out
}

// snap rounds a coordinate to the nearest grid multiple.
func snap(v, grid float64) float64 {
	return math.Round(v/grid) * grid
}
