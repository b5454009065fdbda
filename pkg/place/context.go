// Package place implements GORDIAN-style global placement over a
// [netlist.DB].
//
// A [Context] owns every piece of state a placement run needs: the core and
// pad-ring geometry, the partition tree, and the quadratic problem that is
// rebuilt from the netlist before each solve. Independent contexts share
// nothing and may run concurrently.
//
// # Flow
//
//	ctx := place.New(db, place.DefaultConfig(), logger)
//	if err := ctx.Preplace(0.7); err != nil { ... }
//	res, err := ctx.GlobalPlace(context.Background())
//
// [Context.Preplace] sizes the core from the movable cell area and rings it
// with the I/O pads. [Context.GlobalPlace] alternates quadratic solves under
// center-of-gravity constraints with partition refinement until every leaf is
// small, then clips cells into the core and spreads local density peaks.
//
// After netlist edits, [Context.Update] registers the new cells and nets and
// re-places incrementally on top of the existing partition tree.
package place

import (
	"io"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/gordian/pkg/geom"
	"github.com/matzehuels/gordian/pkg/netlist"
	"github.com/matzehuels/gordian/pkg/partition"
	"github.com/matzehuels/gordian/pkg/qps"
)

// Context is one placement run over a database. It is not safe for
// concurrent use.
type Context struct {
	DB     *netlist.DB
	Config Config
	Logger *log.Logger

	// Bisector overrides the strategy named by Config.Bisector when set.
	Bisector partition.Bisector

	CoreBounds geom.Rect
	PadBounds  geom.Rect
	RowHeight  float64

	// Tree is the partition tree of the last run, nil before the first.
	Tree *partition.Tree

	problem *qps.Problem
	solved  bool
	runID   string
}

// New creates a placement context. Zero config fields take their defaults
// and a nil logger discards output.
func New(db *netlist.DB, cfg Config, logger *log.Logger) *Context {
	cfg.SetDefaults()
	if logger == nil {
		logger = log.New(io.Discard)
	}
	cfg.Solver.Logger = logger
	return &Context{DB: db, Config: cfg, Logger: logger, RowHeight: 1}
}

// Problem returns the quadratic problem built by the last call to
// [Context.ConstructQuadraticProblem], or nil.
func (c *Context) Problem() *qps.Problem { return c.problem }

func (c *Context) bisector() (partition.Bisector, error) {
	if c.Bisector != nil {
		return c.Bisector, nil
	}
	return NewBisector(c.Config.Bisector)
}

// HPWL returns the total half-perimeter wirelength of the database.
func (c *Context) HPWL() float64 { return c.DB.TotalWirelength() }
