package place

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/gordian/pkg/errors"
	"github.com/matzehuels/gordian/pkg/geom"
	"github.com/matzehuels/gordian/pkg/netlist"
	"github.com/matzehuels/gordian/pkg/observability"
	"github.com/matzehuels/gordian/pkg/partition"
	"github.com/matzehuels/gordian/pkg/qps"
)

// Iteration is one solve of a placement run.
type Iteration struct {
	Index      int
	Partitions int
	HPWL       float64 // after the solve, before any clipping
	Solve      qps.Status
	Duration   time.Duration
}

// Result summarizes a placement run.
type Result struct {
	RunID       string
	InitialHPWL float64
	FinalHPWL   float64
	Trace       []Iteration
	Converged   bool // the last solve converged
	Partitions  int
	Duration    time.Duration
}

// GlobalPlace runs a full placement: a fresh partition tree whose root spans
// the core, repeated solve/refine cycles until every leaf is small, a last
// solve, then [Context.Sanitize] and [Context.GlobalFixDensity].
//
// [Context.Preplace] (or an explicit CoreBounds) must come first.
func (c *Context) GlobalPlace(ctx context.Context) (*Result, error) {
	b, err := c.bisector()
	if err != nil {
		return nil, err
	}
	if err := c.checkCore(); err != nil {
		return nil, err
	}
	c.Tree = partition.New(c.DB, c.CoreBounds, c.Config.Partition, b, c.Logger)
	return c.run(ctx)
}

// GlobalIncremental re-places after cells were added. New movable cells are
// routed into the existing tree and solving starts from the current
// positions. Without a tree it falls back to [Context.GlobalPlace].
func (c *Context) GlobalIncremental(ctx context.Context) (*Result, error) {
	if c.Tree == nil {
		c.Logger.Warn("no partition tree; running full placement")
		return c.GlobalPlace(ctx)
	}
	if err := c.checkCore(); err != nil {
		return nil, err
	}
	c.Tree.Incremental()
	return c.run(ctx)
}

func (c *Context) checkCore() error {
	if c.CoreBounds.W <= 0 || c.CoreBounds.H <= 0 {
		return errors.New(errors.ErrCodeInvalidInput, "core bounds not set; run Preplace first")
	}
	return nil
}

func (c *Context) run(ctx context.Context) (res *Result, err error) {
	start := time.Now()
	c.runID = uuid.NewString()
	res = &Result{RunID: c.runID, InitialHPWL: c.HPWL()}

	hooks := observability.Placement()
	hooks.OnPlaceStart(ctx, c.runID, c.DB.NumCells(), c.DB.NumNets())
	defer func() {
		res.Duration = time.Since(start)
		hooks.OnPlaceComplete(ctx, c.runID, c.HPWL(), res.Duration, err)
	}()

	c.Logger.Info("global placement",
		"run", c.runID, "cells", c.DB.NumCells(), "nets", c.DB.NumNets(), "hpwl", res.InitialHPWL)

	c.ConstructQuadraticProblem()
	solve := func(i int) (qps.Status, error) {
		t0 := time.Now()
		st, err := c.SolveQuadraticProblem(ctx, true)
		if err != nil {
			return st, err
		}
		it := Iteration{
			Index:      i,
			Partitions: c.Tree.NumPartitions(),
			HPWL:       c.HPWL(),
			Solve:      st,
			Duration:   time.Since(t0),
		}
		res.Trace = append(res.Trace, it)
		hooks.OnIteration(ctx, c.runID, i, it.Partitions, it.HPWL)
		c.Logger.Info("iteration", "n", i, "partitions", it.Partitions, "hpwl", it.HPWL)
		return st, nil
	}

	for i := 0; ; i++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if _, err := solve(i); err != nil {
			return res, err
		}
		if c.Config.ReallocatePartitions {
			if err := c.Tree.Realloc(); err != nil {
				return res, err
			}
		}
		done, err := c.Tree.Refine()
		if err != nil {
			return res, err
		}
		if done {
			break
		}
	}

	if err := ctx.Err(); err != nil {
		return res, err
	}
	st, err := solve(len(res.Trace))
	if err != nil {
		return res, err
	}
	res.Converged = st.Converged
	res.Partitions = c.Tree.NumPartitions()

	c.Sanitize()
	c.GlobalFixDensity(c.Config.Density.Bins, c.RowHeight*c.Config.Density.MovementRows)

	res.FinalHPWL = c.HPWL()
	c.Logger.Info("global placement done",
		"run", c.runID, "hpwl", res.FinalHPWL, "partitions", res.Partitions, "elapsed", time.Since(start))
	return res, nil
}

// Sanitize moves every movable cell that extends past the core back inside
// it. A cell overflowing by d ends up 0.5*RowHeight/(1+d) from the border,
// so cells that were farther out stay closer to the edge and their relative
// order survives.
func (c *Context) Sanitize() int {
	core := c.CoreBounds
	margin := 0.5 * c.RowHeight
	moved := 0
	for _, cell := range c.DB.Cells() {
		if !cell.Movable() {
			continue
		}
		hw, hh := cell.Type.Width/2, cell.Type.Height/2
		x := nudge(cell.X, core.X+hw, core.Right()-hw, margin)
		y := nudge(cell.Y, core.Y+hh, core.Top()-hh, margin)
		if x != cell.X || y != cell.Y {
			cell.X, cell.Y = x, y
			moved++
		}
	}
	if moved > 0 {
		c.Logger.Debug("sanitized placement", "moved", moved)
	}
	return moved
}

func nudge(v, lo, hi, margin float64) float64 {
	if lo > hi {
		return (lo + hi) / 2
	}
	switch {
	case v < lo:
		return geom.Clamp(lo+margin/(1+lo-v), lo, hi)
	case v > hi:
		return geom.Clamp(hi-margin/(1+v-hi), lo, hi)
	}
	return v
}

// Update registers new cells and nets (a net with an existing ID replaces
// it) and re-places incrementally.
func (c *Context) Update(ctx context.Context, cells []*netlist.Cell, nets []*netlist.Net) (*Result, error) {
	for _, cell := range cells {
		if err := c.DB.AddCell(cell); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "add cell")
		}
	}
	for _, n := range nets {
		if err := c.DB.AddNet(n); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "add net")
		}
	}
	c.problem = nil
	return c.GlobalIncremental(ctx)
}

// DeleteCell removes a cell from the database, from every net and from the
// partition tree.
func (c *Context) DeleteCell(cell *netlist.Cell) {
	if c.Tree != nil {
		c.Tree.RemoveCell(cell)
	}
	c.DB.DeleteCell(cell)
	c.problem = nil
}
