package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/matzehuels/gordian/pkg/geom"
	"github.com/matzehuels/gordian/pkg/netlist"
	"github.com/matzehuels/gordian/pkg/partition"
)

// Options configures DOT output.
type Options struct {
	// Detailed adds bounds to partition labels and labels to cells.
	Detailed bool

	// Scale converts placement units to Graphviz inches. Zero means 1.
	Scale float64

	// MaxNetDegree limits drawn nets to those with at most this many
	// terminals. Zero means 2.
	MaxNetDegree int
}

func (o Options) scale() float64 {
	if o.Scale <= 0 {
		return 1
	}
	return o.Scale
}

func (o Options) maxDegree() int {
	if o.MaxNetDegree <= 0 {
		return 2
	}
	return o.MaxNetDegree
}

// =============================================================================
// Partition tree
// =============================================================================

// TreeDOT converts a partition tree to a top-down Graphviz digraph. Node ids
// are p0, p1, ... in depth-first order with Sub1 before Sub2.
func TreeDOT(t *partition.Tree, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.4;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	if t == nil || t.Root == nil {
		buf.WriteString("}\n")
		return buf.String()
	}

	ids := make(map[*partition.Partition]string)
	var order []*partition.Partition
	t.Walk(func(p *partition.Partition) bool {
		ids[p] = fmt.Sprintf("p%d", len(order))
		order = append(order, p)
		return true
	})

	for _, p := range order {
		attrs := []string{fmt.Sprintf("label=%q", partLabel(p, opts.Detailed))}
		if p.Leaf {
			attrs = append(attrs, "fillcolor=lightgrey")
		}
		fmt.Fprintf(&buf, "  %s [%s];\n", ids[p], strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, p := range order {
		if p.Leaf {
			continue
		}
		fmt.Fprintf(&buf, "  %s -> %s [label=%q];\n", ids[p], ids[p.Sub1], side(p, true))
		fmt.Fprintf(&buf, "  %s -> %s [label=%q];\n", ids[p], ids[p.Sub2], side(p, false))
	}

	buf.WriteString("}\n")
	return buf.String()
}

func partLabel(p *partition.Partition, detailed bool) string {
	label := fmt.Sprintf("L%d  n=%d  a=%s", p.Level, len(p.Members), num(p.Area))
	if detailed {
		b := p.Bounds
		label += fmt.Sprintf("\n[%s,%s %sx%s]", num(b.X), num(b.Y), num(b.W), num(b.H))
	}
	return label
}

func side(p *partition.Partition, first bool) string {
	switch {
	case p.Vertical && first:
		return "left"
	case p.Vertical:
		return "right"
	case first:
		return "bottom"
	default:
		return "top"
	}
}

// =============================================================================
// Placement
// =============================================================================

// PlacementDOT converts the current cell positions to an undirected graph
// with pinned node positions. Pads are drawn as black squares, fixed cells
// grey and movable cells white. The core is an invisible-edge rectangle of
// four point nodes so the viewport covers it.
func PlacementDOT(db *netlist.DB, core geom.Rect, opts Options) string {
	s := opts.scale()
	var buf bytes.Buffer
	buf.WriteString("graph P {\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  splines=false;\n")
	buf.WriteString("  overlap=true;\n")
	buf.WriteString("  node [shape=box, style=filled, fillcolor=white, fixedsize=true, fontsize=8, label=\"\"];\n")
	buf.WriteString("  edge [color=\"#4a90d9\", penwidth=0.5];\n")
	buf.WriteString("\n")

	if core.W > 0 && core.H > 0 {
		corners := [4]geom.Point{
			{X: core.X, Y: core.Y},
			{X: core.Right(), Y: core.Y},
			{X: core.Right(), Y: core.Top()},
			{X: core.X, Y: core.Top()},
		}
		for i, pt := range corners {
			fmt.Fprintf(&buf, "  core%d [shape=point, width=0.01, pos=\"%s,%s!\"];\n", i, num(pt.X*s), num(pt.Y*s))
		}
		buf.WriteString("  core0 -- core1 -- core2 -- core3 -- core0 [color=red, style=dashed];\n")
		buf.WriteString("\n")
	}

	for _, c := range db.Cells() {
		fmt.Fprintf(&buf, "  c%d [%s];\n", c.ID, strings.Join(cellAttrs(c, s, opts.Detailed), ", "))
	}

	buf.WriteString("\n")
	for _, n := range db.Nets() {
		if len(n.Terms) < 2 || len(n.Terms) > opts.maxDegree() {
			continue
		}
		// Star from the first terminal.
		for _, t := range n.Terms[1:] {
			if t == nil || n.Terms[0] == nil {
				continue
			}
			fmt.Fprintf(&buf, "  c%d -- c%d;\n", n.Terms[0].ID, t.ID)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func cellAttrs(c *netlist.Cell, s float64, detailed bool) []string {
	w, h := 0.1, 0.1
	if c.Type != nil && c.Type.Width > 0 && c.Type.Height > 0 {
		w, h = c.Type.Width*s, c.Type.Height*s
	}
	attrs := []string{
		fmt.Sprintf("pos=\"%s,%s!\"", num(c.X*s), num(c.Y*s)),
		fmt.Sprintf("width=%s", num(w)),
		fmt.Sprintf("height=%s", num(h)),
	}
	switch {
	case c.IsPad():
		attrs = append(attrs, "fillcolor=black")
	case c.Fixed:
		attrs = append(attrs, "fillcolor=grey")
	}
	if detailed && c.Label != "" {
		attrs = append(attrs, fmt.Sprintf("xlabel=%q", c.Label))
	}
	return attrs
}

func num(v float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.4f", v), "0"), ".")
}
