package place

import (
	"github.com/matzehuels/gordian/pkg/netlist"
	"github.com/matzehuels/gordian/pkg/partition"
	"github.com/matzehuels/gordian/pkg/qps"
)

// GenerateCOGConstraints emits one center-of-gravity constraint per leaf of
// the partition tree, pinning the area-weighted centroid of the leaf's
// movable, positive-area members to the center of the leaf's region. Leaves
// without such members yield nothing.
//
// With Config.LegacyCOGCount the last constraint is dropped.
func (c *Context) GenerateCOGConstraints() []qps.Group {
	if c.Tree == nil {
		return nil
	}
	var groups []qps.Group
	leaves := 0
	stack := []*partition.Partition{c.Tree.Root}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !p.Leaf {
			stack = append(stack, p.Sub2, p.Sub1)
			continue
		}
		leaves++

		var cells []int
		for _, m := range p.Members {
			if m.Movable() && netlist.CellArea(m) > 0 {
				cells = append(cells, m.ID)
			}
		}
		if len(cells) == 0 {
			continue
		}
		ctr := p.Bounds.Center()
		groups = append(groups, qps.Group{Cells: cells, X: ctr.X, Y: ctr.Y})
	}

	if leaves != c.Tree.NumPartitions() {
		c.Logger.Warn("partition count mismatch", "visited", leaves, "expected", c.Tree.NumPartitions())
	}
	if c.Config.LegacyCOGCount && len(groups) > 0 {
		groups = groups[:len(groups)-1]
	}
	return groups
}
