package netlist

import "github.com/matzehuels/gordian/pkg/geom"

// CellArea returns the area of the cell's type.
func CellArea(c *Cell) float64 {
	if c == nil || c.Type == nil {
		return 0
	}
	return c.Type.Area()
}

// NetBBox returns the bounding box of the net's terminal centers.
// The second result is false for a net without terminals.
func NetBBox(n *Net) (geom.Rect, bool) {
	pts := make([]geom.Point, 0, len(n.Terms))
	for _, t := range n.Terms {
		if t != nil {
			pts = append(pts, geom.Point{X: t.X, Y: t.Y})
		}
	}
	return geom.BoundingBox(pts)
}

// NetWirelength returns the half-perimeter wirelength of n, or 0 for a net
// without terminals.
func NetWirelength(n *Net) float64 {
	r, ok := NetBBox(n)
	if !ok {
		return 0
	}
	return r.HalfPerimeter()
}

// TotalWirelength returns the sum of [NetWirelength] over all live nets.
func (d *DB) TotalWirelength() float64 {
	total := 0.0
	for _, n := range d.nets[:d.numNets] {
		if n != nil {
			total += NetWirelength(n)
		}
	}
	return total
}

// MovableArea returns the total area of movable (non-fixed, non-pad) cells.
func (d *DB) MovableArea() float64 {
	area := 0.0
	for _, c := range d.cells[:d.numCells] {
		if c != nil && c.Movable() {
			area += CellArea(c)
		}
	}
	return area
}
