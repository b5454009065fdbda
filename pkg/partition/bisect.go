package partition

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/matzehuels/gordian/pkg/netlist"
)

// ErrInvalidHypergraph is returned by a [Bisector] when the CSR arrays,
// assignment or free mask are inconsistent with each other.
var ErrInvalidHypergraph = errors.New("invalid hypergraph")

// Hypergraph is a weighted hypergraph in compressed sparse row form.
// Hyperedge e connects the vertices EdgeIdx[EdgePtr[e]:EdgePtr[e+1]].
type Hypergraph struct {
	VertexWeights []float64
	EdgePtr       []int
	EdgeIdx       []int
	EdgeWeights   []float64 // nil means unit weights
}

// NumVertices returns the number of vertices.
func (h *Hypergraph) NumVertices() int { return len(h.VertexWeights) }

// NumEdges returns the number of hyperedges.
func (h *Hypergraph) NumEdges() int { return max(0, len(h.EdgePtr)-1) }

// Pins returns the vertices of hyperedge e.
func (h *Hypergraph) Pins(e int) []int { return h.EdgeIdx[h.EdgePtr[e]:h.EdgePtr[e+1]] }

// EdgeWeight returns the weight of hyperedge e.
func (h *Hypergraph) EdgeWeight(e int) float64 {
	if h.EdgeWeights == nil {
		return 1
	}
	return h.EdgeWeights[e]
}

// Validate checks the CSR structure.
func (h *Hypergraph) Validate() error {
	n := h.NumVertices()
	if len(h.EdgePtr) == 0 {
		if len(h.EdgeIdx) != 0 {
			return fmt.Errorf("%w: pins without edge pointers", ErrInvalidHypergraph)
		}
		return nil
	}
	if h.EdgePtr[0] != 0 || h.EdgePtr[len(h.EdgePtr)-1] != len(h.EdgeIdx) {
		return fmt.Errorf("%w: edge pointers do not span pins", ErrInvalidHypergraph)
	}
	for e := range h.NumEdges() {
		if h.EdgePtr[e+1] < h.EdgePtr[e] {
			return fmt.Errorf("%w: edge %d has negative degree", ErrInvalidHypergraph, e)
		}
	}
	for _, v := range h.EdgeIdx {
		if v < 0 || v >= n {
			return fmt.Errorf("%w: pin %d out of range", ErrInvalidHypergraph, v)
		}
	}
	if h.EdgeWeights != nil && len(h.EdgeWeights) != h.NumEdges() {
		return fmt.Errorf("%w: %d edge weights for %d edges", ErrInvalidHypergraph, len(h.EdgeWeights), h.NumEdges())
	}
	return nil
}

// Cut returns the summed weight of hyperedges with pins on both sides.
func (h *Hypergraph) Cut(part []int) float64 {
	cut := 0.0
	for e := range h.NumEdges() {
		var seen [2]bool
		for _, v := range h.Pins(e) {
			seen[part[v]&1] = true
		}
		if seen[0] && seen[1] {
			cut += h.EdgeWeight(e)
		}
	}
	return cut
}

// Bisector improves a two-way assignment of a hypergraph.
//
// part holds the initial side (0 or 1) of every vertex. Only vertices with
// free set may change side. The result must keep the weight of side 0 within
// (50 ± ubfactor)% of the total vertex weight whenever the initial assignment
// does. Implementations return a new slice and leave part untouched.
type Bisector interface {
	Bisect(h *Hypergraph, part []int, free []bool, ubfactor int) ([]int, float64, error)
}

func checkInput(h *Hypergraph, part []int, free []bool) error {
	if err := h.Validate(); err != nil {
		return err
	}
	if len(part) != h.NumVertices() || len(free) != h.NumVertices() {
		return fmt.Errorf("%w: %d vertices, %d assignments, %d free flags",
			ErrInvalidHypergraph, h.NumVertices(), len(part), len(free))
	}
	for v, s := range part {
		if s != 0 && s != 1 {
			return fmt.Errorf("%w: vertex %d on side %d", ErrInvalidHypergraph, v, s)
		}
	}
	return nil
}

// AreaBisector keeps the initial assignment. Used alone it leaves every cut
// where equal-area splitting put it.
type AreaBisector struct{}

// Bisect returns a copy of part and its cut.
func (AreaBisector) Bisect(h *Hypergraph, part []int, free []bool, _ int) ([]int, float64, error) {
	if err := checkInput(h, part, free); err != nil {
		return nil, 0, err
	}
	out := append([]int(nil), part...)
	return out, h.Cut(out), nil
}

// Repartition improves the cut between p's children with the tree's
// bisector and reassigns p's members accordingly.
//
// The hypergraph spans every live cell so that nets leaving p still pull on
// its members. Cells outside p have zero weight and stay on the side of the
// cut they lie on; members keep their current child as the initial side and
// only members close to the cut line may move.
func (t *Tree) Repartition(p *Partition) error {
	if p.Leaf {
		return nil
	}
	slots := t.db.Slots()
	n := len(slots)
	cut := p.Cut()
	extent := p.Bounds.H
	if p.Vertical {
		extent = p.Bounds.W
	}
	pos := func(c *netlist.Cell) float64 {
		if p.Vertical {
			return c.X
		}
		return c.Y
	}

	h := &Hypergraph{VertexWeights: make([]float64, n), EdgePtr: []int{0}}
	for _, net := range t.db.Nets() {
		if len(net.Terms) < 2 {
			continue
		}
		start := len(h.EdgeIdx)
		for _, c := range net.Terms {
			if c != nil && c.ID < n && !slices.Contains(h.EdgeIdx[start:], c.ID) {
				h.EdgeIdx = append(h.EdgeIdx, c.ID)
			}
		}
		h.EdgePtr = append(h.EdgePtr, len(h.EdgeIdx))
		h.EdgeWeights = append(h.EdgeWeights, net.Weight)
	}

	part := make([]int, n)
	free := make([]bool, n)
	for id, c := range slots {
		if c != nil && pos(c) >= cut {
			part[id] = 1
		}
	}
	targets := 0
	for side, sub := range []*Partition{p.Sub1, p.Sub2} {
		for _, c := range sub.Members {
			part[c.ID] = side
			h.VertexWeights[c.ID] = netlist.CellArea(c)
			if math.Abs(pos(c)-cut) < extent*t.cfg.TargetFraction {
				free[c.ID] = true
				targets++
			}
		}
	}

	before := h.Cut(part)
	ub := int(100 * t.cfg.MaxNonsymmetry)
	result, after, err := t.bisector.Bisect(h, part, free, ub)
	if err != nil {
		return fmt.Errorf("repartition level %d: %w", p.Level, err)
	}
	t.logger.Debug("repartitioned", "level", p.Level, "free", targets, "cutBefore", before, "cutAfter", after)

	var lo, hi []*netlist.Cell
	for _, c := range p.Members {
		if result[c.ID] == 0 {
			lo = append(lo, c)
		} else {
			hi = append(hi, c)
		}
	}
	t.assign(p.Sub1, lo)
	t.assign(p.Sub2, hi)
	return nil
}
