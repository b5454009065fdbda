package place

import (
	"math"

	"github.com/matzehuels/gordian/pkg/errors"
	"github.com/matzehuels/gordian/pkg/geom"
	"github.com/matzehuels/gordian/pkg/netlist"
)

// Preplace sizes the core region for the given utilization and distributes
// the non-fixed pads around it.
//
// The core is made of whole rows whose height comes from the first non-pad
// cell type. Without fixed cells the core's lower-left corner sits one pad
// size from the origin; otherwise it is centered on the fixed cells. Pads are
// split over the north, south, east and west sides in that order and spaced
// evenly along each side.
func (c *Context) Preplace(utilization float64) error {
	if err := errors.ValidateUtilization(utilization); err != nil {
		return err
	}

	var padType, coreType *netlist.AbstractCell
	var pads []*netlist.Cell
	var fixed []geom.Point
	area := 0.0
	for _, cell := range c.DB.Cells() {
		if cell.IsPad() {
			if padType == nil {
				padType = cell.Type
			}
		} else if coreType == nil {
			coreType = cell.Type
		}
		switch {
		case cell.Fixed:
			fixed = append(fixed, geom.Point{X: cell.X, Y: cell.Y})
		case cell.IsPad():
			pads = append(pads, cell)
		default:
			area += netlist.CellArea(cell)
		}
	}
	if padType == nil {
		return errors.New(errors.ErrCodeConfiguration, "no pad cell type in netlist")
	}

	c.RowHeight = 1
	if coreType != nil && coreType.Height > 0 {
		c.RowHeight = coreType.Height
	}

	target := area / utilization
	rows := max(1, math.Ceil(math.Sqrt(target)/c.RowHeight))
	h := rows * c.RowHeight
	w := target / h
	if w <= 0 {
		w = c.RowHeight
	}

	padW, padH := padType.Width, padType.Height
	core := geom.Rect{X: padW, Y: padH, W: w, H: h}
	if box, ok := geom.BoundingBox(fixed); ok {
		ctr := box.Center()
		core.X, core.Y = ctr.X-w/2, ctr.Y-h/2
	}
	c.CoreBounds = core
	c.PadBounds = core.Expand(padW, padH)

	n := len(pads)
	north := n / 4
	rest := n - north
	south := rest / 3
	rest -= south
	east := rest / 2
	west := rest - east

	i := 0
	side := func(count int, pos func(k int) (float64, float64)) {
		for k := range count {
			pads[i].X, pads[i].Y = pos(k)
			i++
		}
	}
	side(north, func(k int) (float64, float64) {
		return core.X + core.W*(float64(k)+0.5)/float64(north), core.Top() + padH/2
	})
	side(south, func(k int) (float64, float64) {
		return core.X + core.W*(float64(k)+0.5)/float64(south), core.Y - padH/2
	})
	side(east, func(k int) (float64, float64) {
		return core.Right() + padW/2, core.Y + core.H*(float64(k)+0.5)/float64(east)
	})
	side(west, func(k int) (float64, float64) {
		return core.X - padW/2, core.Y + core.H*(float64(k)+0.5)/float64(west)
	})

	c.Logger.Info("preplaced pads",
		"pads", n, "core", core, "rows", int(rows), "rowHeight", c.RowHeight, "utilization", utilization)
	return nil
}
