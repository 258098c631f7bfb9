package tile

import (
	"image"
	"math"
)

// Area returns the number of pixels covered by r (0 for empty rectangles).
func Area(r image.Rectangle) int64 {
	if r.Empty() {
		return 0
	}
	return int64(r.Dx()) * int64(r.Dy())
}

// Contains reports whether inner lies entirely within outer.
// Unlike image.Rectangle.In, an empty inner is never contained.
func Contains(outer, inner image.Rectangle) bool {
	if inner.Empty() {
		return false
	}
	return inner.Min.X >= outer.Min.X && inner.Min.Y >= outer.Min.Y &&
		inner.Max.X <= outer.Max.X && inner.Max.Y <= outer.Max.Y
}

// Overlap reports whether a and b intersect without being identical.
func Overlap(a, b image.Rectangle) bool {
	return a != b && a.Overlaps(b)
}

// GridAligned reports whether child is a cell of a regular grid laid over parent:
// parent size is a multiple of child size and child offset is a multiple of child size.
func GridAligned(parent, child image.Rectangle) bool {
	if !Contains(parent, child) {
		return false
	}
	w, h := child.Dx(), child.Dy()
	return parent.Dx()%w == 0 && parent.Dy()%h == 0 &&
		(child.Min.X-parent.Min.X)%w == 0 && (child.Min.Y-parent.Min.Y)%h == 0
}

// Distance returns the gap between a and b. Touching rectangles are at distance 0.
// Overlapping rectangles get a negative distance: the opposite of the smallest
// penetration depth along either axis.
func Distance(a, b image.Rectangle) float64 {
	dx := max(b.Min.X-a.Max.X, a.Min.X-b.Max.X)
	dy := max(b.Min.Y-a.Max.Y, a.Min.Y-b.Max.Y)
	if dx < 0 && dy < 0 {
		return float64(max(dx, dy))
	}
	return math.Hypot(float64(max(dx, 0)), float64(max(dy, 0)))
}
