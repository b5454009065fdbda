package netlist

import "cmp"

// nilFirst orders nil entries before non-nil ones. The second result is true
// when at least one side is nil and the comparison is decided.
func nilFirst[T any](a, b *T) (int, bool) {
	switch {
	case a == nil && b == nil:
		return 0, true
	case a == nil:
		return -1, true
	case b == nil:
		return 1, true
	}
	return 0, false
}

// CompareCellsByX orders cells by center x.
func CompareCellsByX(a, b *Cell) int {
	if r, ok := nilFirst(a, b); ok {
		return r
	}
	return cmp.Compare(a.X, b.X)
}

// CompareCellsByY orders cells by center y.
func CompareCellsByY(a, b *Cell) int {
	if r, ok := nilFirst(a, b); ok {
		return r
	}
	return cmp.Compare(a.Y, b.Y)
}

// CompareCellsByID orders cells by registry id.
func CompareCellsByID(a, b *Cell) int {
	if r, ok := nilFirst(a, b); ok {
		return r
	}
	return cmp.Compare(a.ID, b.ID)
}

func compareNetEdge(a, b *Net, edge func(r netBox) float64) int {
	if r, ok := nilFirst(a, b); ok {
		return r
	}
	return cmp.Compare(edge(boxOf(a)), edge(boxOf(b)))
}

type netBox struct{ l, r, b, t float64 }

func boxOf(n *Net) netBox {
	bb, ok := NetBBox(n)
	if !ok {
		return netBox{}
	}
	return netBox{l: bb.X, r: bb.Right(), b: bb.Y, t: bb.Top()}
}

// CompareNetsByLeft orders nets by the left edge of their bounding box.
func CompareNetsByLeft(a, b *Net) int {
	return compareNetEdge(a, b, func(r netBox) float64 { return r.l })
}

// CompareNetsByRight orders nets by the right edge of their bounding box.
func CompareNetsByRight(a, b *Net) int {
	return compareNetEdge(a, b, func(r netBox) float64 { return r.r })
}

// CompareNetsByBottom orders nets by the bottom edge of their bounding box.
func CompareNetsByBottom(a, b *Net) int {
	return compareNetEdge(a, b, func(r netBox) float64 { return r.b })
}

// CompareNetsByTop orders nets by the top edge of their bounding box.
func CompareNetsByTop(a, b *Net) int {
	return compareNetEdge(a, b, func(r netBox) float64 { return r.t })
}
