package place

import (
	"context"
	"time"

	"github.com/matzehuels/gordian/pkg/netlist"
	"github.com/matzehuels/gordian/pkg/observability"
	"github.com/matzehuels/gordian/pkg/qps"
)

// splitPenalty is the clique-model divisor for an n-terminal net.
func (c *Context) splitPenalty(n int) float64 {
	if n <= 1 {
		return 1
	}
	return 1 + c.Config.CliquePenalty/float64(n-1)
}

// ConstructQuadraticProblem rebuilds the solver input from the current
// netlist.
//
// Every net with 2 to IgnoreNetSize terminals becomes a clique whose edges
// carry weight/splitPenalty(n). Edges between the same pair of cells are
// merged. Fixed cells, pads and empty registry slots are frozen. Movable
// cells start at the core center until the first solve and at their current
// positions afterwards.
func (c *Context) ConstructQuadraticProblem() *qps.Problem {
	slots := c.DB.Slots()
	n := len(slots)
	p := &qps.Problem{
		NumCells: n,
		Connect:  make([][]qps.Edge, n),
		X:        make([]float64, n),
		Y:        make([]float64, n),
		Fixed:    make([]bool, n),
		Area:     make([]float64, n),
	}

	ctr := c.CoreBounds.Center()
	for id, cell := range slots {
		switch {
		case cell == nil:
			p.Fixed[id] = true
		case !cell.Movable():
			p.Fixed[id] = true
			p.X[id], p.Y[id] = cell.X, cell.Y
			p.Area[id] = netlist.CellArea(cell)
		default:
			p.Area[id] = netlist.CellArea(cell)
			if c.solved {
				p.X[id], p.Y[id] = cell.X, cell.Y
			} else {
				p.X[id], p.Y[id] = ctr.X, ctr.Y
			}
		}
	}

	incident := make([][]*netlist.Net, n)
	ignored := 0
	for _, net := range c.DB.Nets() {
		k := len(net.Terms)
		if k < 2 {
			continue
		}
		if k > c.Config.IgnoreNetSize {
			ignored++
			c.Logger.Debug("ignoring large net", "net", net.Label, "terms", k)
			continue
		}
		for _, t := range net.Terms {
			if t != nil && t.ID < n {
				incident[t.ID] = append(incident[t.ID], net)
			}
		}
	}
	if ignored > 0 {
		c.Logger.Info("ignored large nets", "count", ignored, "limit", c.Config.IgnoreNetSize)
	}

	// owner[b] == a means cell a already has an edge to b at index slot[b].
	owner := make([]int, n)
	slot := make([]int, n)
	for i := range owner {
		owner[i] = -1
	}
	for a := range n {
		var list []qps.Edge
		for _, net := range incident[a] {
			w := net.Weight / c.splitPenalty(len(net.Terms))
			for _, t := range net.Terms {
				if t == nil || t.ID == a || t.ID >= n {
					continue
				}
				b := t.ID
				if owner[b] == a {
					list[slot[b]].Weight += w
					continue
				}
				owner[b], slot[b] = a, len(list)
				list = append(list, qps.Edge{To: b, Weight: w})
			}
		}
		p.Connect[a] = list
	}

	c.problem = p
	return p
}

// SolveQuadraticProblem solves the current problem, optionally under the
// center-of-gravity constraints of the partition tree, and copies the
// solved positions back into the movable cells.
func (c *Context) SolveQuadraticProblem(ctx context.Context, useCOG bool) (qps.Status, error) {
	p := c.problem
	if p == nil {
		p = c.ConstructQuadraticProblem()
	}
	p.COG = nil
	if useCOG && c.Tree != nil {
		p.COG = c.GenerateCOGConstraints()
	}

	start := time.Now()
	st, err := qps.Solve(p, c.Config.Solver)
	observability.Placement().OnSolve(ctx, c.runID, st.Converged, st.InnerIterations, time.Since(start))
	if err != nil {
		return st, err
	}
	for id, cell := range c.DB.Slots() {
		if cell != nil && cell.Movable() && id < p.NumCells {
			cell.X, cell.Y = p.X[id], p.Y[id]
		}
	}
	c.solved = true
	c.Logger.Debug("quadratic solve",
		"constraints", len(p.COG), "inner", st.InnerIterations, "converged", st.Converged,
		"objective", st.Objective, "elapsed", time.Since(start))
	return st, nil
}
