// Package geom provides the small geometric value types shared by the
// placement packages: axis-aligned rectangles, points, and half-perimeter
// wirelength.
//
// All coordinates are float64 in layout units. A [Rect] is anchored at its
// lower-left corner (X, Y) and extends W to the right and H upward.
package geom

import "math"

// Point is a location in the layout plane.
type Point struct {
	X, Y float64
}

// Rect is an axis-aligned rectangle anchored at its lower-left corner.
type Rect struct {
	X, Y float64
	W, H float64
}

// Right returns the x coordinate of the right edge.
func (r Rect) Right() float64 { return r.X + r.W }

// Top returns the y coordinate of the top edge.
func (r Rect) Top() float64 { return r.Y + r.H }

// Center returns the midpoint of the rectangle.
func (r Rect) Center() Point {
	return Point{X: r.X + r.W*0.5, Y: r.Y + r.H*0.5}
}

// Area returns W*H.
func (r Rect) Area() float64 { return r.W * r.H }

// Contains reports whether p lies inside r. The left and bottom edges are
// inclusive, the right and top edges exclusive, so adjacent rectangles
// produced by a cut never both contain a point on the shared edge.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X < r.Right() && p.Y >= r.Y && p.Y < r.Top()
}

// Expand grows r by dx on the left and right and by dy on the bottom and top.
func (r Rect) Expand(dx, dy float64) Rect {
	return Rect{X: r.X - dx, Y: r.Y - dy, W: r.W + 2*dx, H: r.H + 2*dy}
}

// HalfPerimeter returns W+H, the half-perimeter wirelength of a net whose
// terminals span r.
func (r Rect) HalfPerimeter() float64 { return r.W + r.H }

// BoundingBox returns the smallest rectangle containing every point.
// The second result is false when pts is empty, in which case the returned
// rectangle is the zero value and must not be used.
func BoundingBox(pts []Point) (Rect, bool) {
	if len(pts) == 0 {
		return Rect{}, false
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range pts {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}, true
}

// HPWL returns the half-perimeter wirelength of a set of terminal locations.
// An empty set has zero wirelength.
func HPWL(pts []Point) float64 {
	r, ok := BoundingBox(pts)
	if !ok {
		return 0
	}
	return r.HalfPerimeter()
}

// Clamp limits v to [lo, hi]. If lo > hi the midpoint is returned.
func Clamp(v, lo, hi float64) float64 {
	if lo > hi {
		return (lo + hi) * 0.5
	}
	return math.Max(lo, math.Min(hi, v))
}
