// Package geometry infers a category/subcategory hierarchy from the
// bounding boxes of rendered roadmap elements.
package geometry

import "math"

// Box is an axis-aligned rectangle in page coordinates.
type Box struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (b Box) Right() float64  { return b.X + b.Width }
func (b Box) Bottom() float64 { return b.Y + b.Height }
func (b Box) Area() float64   { return b.Width * b.Height }

// Contains reports whether other lies entirely within b expanded outward
// by tolerance on every side. Boundaries are inclusive.
func (b Box) Contains(other Box, tolerance float64) bool {
	return b.X-tolerance <= other.X &&
		b.Y-tolerance <= other.Y &&
		b.Right()+tolerance >= other.Right() &&
		b.Bottom()+tolerance >= other.Bottom()
}

// OverlapsX reports whether the closed x-ranges of b and other intersect.
func (b Box) OverlapsX(other Box) bool {
	return !(b.Right() < other.X || other.Right() < b.X)
}

// rounded is the integer form of a box used for identity.
type rounded struct {
	X, Y, W, H int64
}

func (b Box) round() rounded {
	return rounded{
		X: int64(math.Round(b.X)),
		Y: int64(math.Round(b.Y)),
		W: int64(math.Round(b.Width)),
		H: int64(math.Round(b.Height)),
	}
}
