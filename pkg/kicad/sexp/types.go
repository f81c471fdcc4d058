package sexp

// Shared value types for the KiCad document layers. Schematic coordinates
// are millimeters with Y growing downward; angles are degrees.

// Position is a 2D coordinate in document units (mm).
type Position struct {
	X float64
	Y float64
}

// Angle is a rotation in degrees (0, 90, 180, 270 for placed symbols).
type Angle float64

// PositionAngle combines position with rotation.
type PositionAngle struct {
	Position
	Angle Angle
}

// Size represents dimensions in mm.
type Size struct {
	Width  float64
	Height float64
}

// UUID is the stable identity token KiCad assigns to every element.
type UUID string

// BoundingBox is an axis-aligned rectangular boundary.
type BoundingBox struct {
	Min Position
	Max Position
}

// NewBoundingBox creates an empty bounding box that any Expand call will
// collapse onto the first point.
func NewBoundingBox() BoundingBox {
	return BoundingBox{
		Min: Position{X: 1e9, Y: 1e9},
		Max: Position{X: -1e9, Y: -1e9},
	}
}

// IsEmpty checks if the bounding box contains no area.
func (bb BoundingBox) IsEmpty() bool {
	return bb.Min.X > bb.Max.X || bb.Min.Y > bb.Max.Y
}

// Expand grows the bounding box to include a position.
func (bb *BoundingBox) Expand(pos Position) {
	if pos.X < bb.Min.X {
		bb.Min.X = pos.X
	}
	if pos.Y < bb.Min.Y {
		bb.Min.Y = pos.Y
	}
	if pos.X > bb.Max.X {
		bb.Max.X = pos.X
	}
	if pos.Y > bb.Max.Y {
		bb.Max.Y = pos.Y
	}
}

// ExpandBox grows the bounding box to include another box.
func (bb *BoundingBox) ExpandBox(other BoundingBox) {
	if !other.IsEmpty() {
		bb.Expand(other.Min)
		bb.Expand(other.Max)
	}
}

// Intersects checks if two bounding boxes overlap.
func (bb BoundingBox) Intersects(other BoundingBox) bool {
	return bb.Min.X <= other.Max.X && bb.Max.X >= other.Min.X &&
		bb.Min.Y <= other.Max.Y && bb.Max.Y >= other.Min.Y
}

// Contains checks if a position lies within the bounding box.
func (bb BoundingBox) Contains(pos Position) bool {
	return pos.X >= bb.Min.X && pos.X <= bb.Max.X &&
		pos.Y >= bb.Min.Y && pos.Y <= bb.Max.Y
}

// Inflate returns the box grown by d on every side. Used for minimum
// clearance checks during placement.
func (bb BoundingBox) Inflate(d float64) BoundingBox {
	return BoundingBox{
		Min: Position{X: bb.Min.X - d, Y: bb.Min.Y - d},
		Max: Position{X: bb.Max.X + d, Y: bb.Max.Y + d},
	}
}

// Width returns the horizontal extent.
func (bb BoundingBox) Width() float64 { return bb.Max.X - bb.Min.X }

// Height returns the vertical extent.
func (bb BoundingBox) Height() float64 { return bb.Max.Y - bb.Min.Y }

// Center returns the center point.
func (bb BoundingBox) Center() Position {
	return Position{
		X: (bb.Min.X + bb.Max.X) / 2.0,
		Y: (bb.Min.Y + bb.Max.Y) / 2.0,
	}
}
