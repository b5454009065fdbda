package place

import (
	"slices"

	"github.com/matzehuels/gordian/pkg/geom"
	"github.com/matzehuels/gordian/pkg/netlist"
)

// axis abstracts one coordinate so the same spreading code serves both
// directions: pos/set access the spread coordinate, strip the other one.
type axis struct {
	pos   func(c *netlist.Cell) float64
	set   func(c *netlist.Cell, v float64)
	size  func(c *netlist.Cell) float64
	strip func(a, b *netlist.Cell) int
	along func(a, b *netlist.Cell) int
	lo    float64
	span  float64
}

func (c *Context) xAxis() axis {
	return axis{
		pos:   func(cell *netlist.Cell) float64 { return cell.X },
		set:   func(cell *netlist.Cell, v float64) { cell.X = v },
		size:  func(cell *netlist.Cell) float64 { return cell.Type.Width },
		strip: netlist.CompareCellsByY,
		along: netlist.CompareCellsByX,
		lo:    c.CoreBounds.X,
		span:  c.CoreBounds.W,
	}
}

func (c *Context) yAxis() axis {
	return axis{
		pos:   func(cell *netlist.Cell) float64 { return cell.Y },
		set:   func(cell *netlist.Cell, v float64) { cell.Y = v },
		size:  func(cell *netlist.Cell) float64 { return cell.Type.Height },
		strip: netlist.CompareCellsByX,
		along: netlist.CompareCellsByY,
		lo:    c.CoreBounds.Y,
		span:  c.CoreBounds.H,
	}
}

// SpreadDensityX cuts the movable cells into bins horizontal strips of equal
// area, then splits each strip into bins runs of equal area. Each run gets a
// slice of the core width proportional to its area and its cells are
// stretched linearly onto that slice. No cell moves more than maxMove.
func (c *Context) SpreadDensityX(bins int, maxMove float64) {
	c.spread(c.xAxis(), bins, maxMove)
}

// SpreadDensityY is [Context.SpreadDensityX] with the axes swapped.
func (c *Context) SpreadDensityY(bins int, maxMove float64) {
	c.spread(c.yAxis(), bins, maxMove)
}

// GlobalFixDensity spreads along x, and along y too when Config.Density.SpreadY
// is set.
func (c *Context) GlobalFixDensity(bins int, maxMove float64) {
	before := c.HPWL()
	c.SpreadDensityX(bins, maxMove)
	if c.Config.Density.SpreadY {
		c.SpreadDensityY(bins, maxMove)
	}
	c.Logger.Debug("density spreading", "bins", bins, "maxMove", maxMove, "hpwl", before, "after", c.HPWL())
}

// chunk splits cells, already sorted, into at most n consecutive runs of
// roughly equal area. A cell belongs to the run its area midpoint falls in.
func chunk(cells []*netlist.Cell, n int) [][]*netlist.Cell {
	total := 0.0
	for _, cell := range cells {
		total += netlist.CellArea(cell)
	}
	if n < 1 || total <= 0 {
		return [][]*netlist.Cell{cells}
	}
	target := total / float64(n)
	var runs [][]*netlist.Cell
	cur, start, acc := -1, 0, 0.0
	for i, cell := range cells {
		a := netlist.CellArea(cell)
		idx := min(n-1, int((acc+a/2)/target))
		if idx != cur && i > start {
			runs = append(runs, cells[start:i])
			start = i
		}
		cur = idx
		acc += a
	}
	return append(runs, cells[start:])
}

func (c *Context) spread(ax axis, bins int, maxMove float64) {
	if bins < 1 || ax.span <= 0 {
		return
	}
	var cells []*netlist.Cell
	for _, cell := range c.DB.Cells() {
		if cell.Movable() {
			cells = append(cells, cell)
		}
	}
	if len(cells) == 0 {
		return
	}
	old := make(map[*netlist.Cell]float64, len(cells))
	for _, cell := range cells {
		old[cell] = ax.pos(cell)
	}

	slices.SortStableFunc(cells, ax.strip)
	for _, strip := range chunk(cells, bins) {
		slices.SortStableFunc(strip, ax.along)
		stripArea := 0.0
		for _, cell := range strip {
			stripArea += netlist.CellArea(cell)
		}
		if stripArea <= 0 {
			continue
		}
		acc := 0.0
		for _, run := range chunk(strip, bins) {
			runArea := 0.0
			for _, cell := range run {
				runArea += netlist.CellArea(cell)
			}
			left := ax.lo + ax.span*acc/stripArea
			right := ax.lo + ax.span*(acc+runArea)/stripArea
			acc += runArea
			stretch(ax, run, left, right)
		}
	}

	for _, cell := range cells {
		o := old[cell]
		v := geom.Clamp(ax.pos(cell), o-maxMove, o+maxMove)
		half := ax.size(cell) / 2
		ax.set(cell, geom.Clamp(v, ax.lo+half, ax.lo+ax.span-half))
	}
}

// stretch maps the run's coordinates linearly onto [left, right], keeping
// the outer cells inside the slot. A single cell is only clamped into it.
func stretch(ax axis, run []*netlist.Cell, left, right float64) {
	first, last := run[0], run[len(run)-1]
	lo := left + ax.size(first)/2
	hi := right - ax.size(last)/2
	if len(run) == 1 {
		ax.set(first, geom.Clamp(ax.pos(first), lo, hi))
		return
	}
	x0, x1 := ax.pos(first), ax.pos(last)
	if lo > hi {
		lo, hi = (lo+hi)/2, (lo+hi)/2
	}
	for _, cell := range run {
		if x1 > x0 {
			ax.set(cell, lo+(ax.pos(cell)-x0)/(x1-x0)*(hi-lo))
		} else {
			ax.set(cell, (lo+hi)/2)
		}
	}
}
