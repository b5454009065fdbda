package netlist

import (
	"errors"
	"slices"
)

var (
	// ErrInvalidID is returned by [DB.AddCell] and [DB.AddNet] when the ID is
	// negative. IDs index the dense registry and must be >= 0.
	ErrInvalidID = errors.New("id must be non-negative")

	// ErrNilEntry is returned when a nil cell, net or type is registered.
	ErrNilEntry = errors.New("nil entry")

	// ErrMissingType is returned by [DB.AddCell] when the cell has no AbstractCell.
	ErrMissingType = errors.New("cell has no type")
)

// AbstractCell is a cell type: the dimensions shared by every instance of a
// library cell or I/O pad. It is immutable after creation.
type AbstractCell struct {
	Label  string
	Width  float64
	Height float64
	Pad    bool // I/O pad rather than a core cell
}

// Area returns Width*Height.
func (a *AbstractCell) Area() float64 { return a.Width * a.Height }

// Cell is a placed instance. X and Y are the coordinates of the cell center.
type Cell struct {
	ID    int
	Label string
	Type  *AbstractCell // non-owning, shared with other instances
	Fixed bool
	X, Y  float64

	// Data is scratch space for algorithms that need a per-cell integer.
	Data int
}

// IsPad reports whether the cell is an instance of a pad type.
func (c *Cell) IsPad() bool { return c.Type != nil && c.Type.Pad }

// Movable reports whether placement may move the cell: it is neither fixed
// nor a pad.
func (c *Cell) Movable() bool { return !c.Fixed && !c.IsPad() }

// Net is a hyperedge connecting a set of cells.
type Net struct {
	ID     int
	Label  string
	Terms  []*Cell // non-owning
	Weight float64

	// Data is scratch space for algorithms that need a per-net integer.
	Data int
}

// SetTerms replaces the terminal set. The slice is copied so later changes
// by the caller do not alias the net.
func (n *Net) SetTerms(terms []*Cell) {
	n.Terms = slices.Clone(terms)
}

// DB is the placement database. The zero value is not usable; create one
// with [New].
type DB struct {
	cells    []*Cell
	nets     []*Net
	numCells int
	numNets  int
	types    []*AbstractCell
}

// New creates an empty placement database.
func New() *DB {
	return &DB{}
}

// growLen returns the new backing length for a registry that must hold id.
// Growth is geometric so repeated appends stay amortised O(1).
func growLen(cur, id int) int {
	if id < cur {
		return cur
	}
	return int(1.5*float64(id)) + 20
}

// AddType registers a cell type. Registering the same pointer twice is a no-op.
func (d *DB) AddType(t *AbstractCell) error {
	if t == nil {
		return ErrNilEntry
	}
	if !slices.Contains(d.types, t) {
		d.types = append(d.types, t)
	}
	return nil
}

// Types returns the registered cell types in registration order.
func (d *DB) Types() []*AbstractCell { return slices.Clone(d.types) }

// AddCell inserts c at slot c.ID, growing the registry if needed. An existing
// entry with the same ID is silently replaced. The cell's type is registered
// automatically.
func (d *DB) AddCell(c *Cell) error {
	if c == nil {
		return ErrNilEntry
	}
	if c.ID < 0 {
		return ErrInvalidID
	}
	if c.Type == nil {
		return ErrMissingType
	}
	if n := growLen(len(d.cells), c.ID); n > len(d.cells) {
		d.cells = slices.Grow(d.cells, n-len(d.cells))[:n]
	}
	d.cells[c.ID] = c
	d.numCells = max(d.numCells, c.ID+1)
	return d.AddType(c.Type)
}

// AddNet inserts n at slot n.ID, growing the registry if needed. An existing
// entry with the same ID is silently replaced.
func (d *DB) AddNet(n *Net) error {
	if n == nil {
		return ErrNilEntry
	}
	if n.ID < 0 {
		return ErrInvalidID
	}
	if l := growLen(len(d.nets), n.ID); l > len(d.nets) {
		d.nets = slices.Grow(d.nets, l-len(d.nets))[:l]
	}
	d.nets[n.ID] = n
	d.numNets = max(d.numNets, n.ID+1)
	return nil
}

// DeleteCell removes c from the registry and from the terminal set of every
// live net. The logical cell count shrinks past any trailing holes. Deleting
// a cell that is not registered at its ID is a no-op.
func (d *DB) DeleteCell(c *Cell) {
	if c == nil || c.ID < 0 || c.ID >= d.numCells || d.cells[c.ID] != c {
		return
	}
	for _, n := range d.nets[:d.numNets] {
		if n != nil {
			n.Terms = slices.DeleteFunc(n.Terms, func(t *Cell) bool { return t == c })
		}
	}
	d.cells[c.ID] = nil
	for d.numCells > 0 && d.cells[d.numCells-1] == nil {
		d.numCells--
	}
}

// DeleteNet removes n from the registry. The logical net count shrinks past
// any trailing holes.
func (d *DB) DeleteNet(n *Net) {
	if n == nil || n.ID < 0 || n.ID >= d.numNets || d.nets[n.ID] != n {
		return
	}
	d.nets[n.ID] = nil
	for d.numNets > 0 && d.nets[d.numNets-1] == nil {
		d.numNets--
	}
}

// NumCells returns one past the highest occupied cell slot.
func (d *DB) NumCells() int { return d.numCells }

// NumNets returns one past the highest occupied net slot.
func (d *DB) NumNets() int { return d.numNets }

// Cell returns the cell at slot id, or nil for a hole or out-of-range id.
func (d *DB) Cell(id int) *Cell {
	if id < 0 || id >= d.numCells {
		return nil
	}
	return d.cells[id]
}

// Net returns the net at slot id, or nil for a hole or out-of-range id.
func (d *DB) Net(id int) *Net {
	if id < 0 || id >= d.numNets {
		return nil
	}
	return d.nets[id]
}

// Cells returns the live cells in ID order.
func (d *DB) Cells() []*Cell {
	out := make([]*Cell, 0, d.numCells)
	for _, c := range d.cells[:d.numCells] {
		if c != nil {
			out = append(out, c)
		}
	}
	return out
}

// Nets returns the live nets in ID order.
func (d *DB) Nets() []*Net {
	out := make([]*Net, 0, d.numNets)
	for _, n := range d.nets[:d.numNets] {
		if n != nil {
			out = append(out, n)
		}
	}
	return out
}

// Slots returns the cell registry up to the logical count, holes included.
// The returned slice is a copy.
func (d *DB) Slots() []*Cell { return slices.Clone(d.cells[:d.numCells]) }

// CellByLabel returns the first live cell with the given label.
func (d *DB) CellByLabel(label string) (*Cell, bool) {
	for _, c := range d.cells[:d.numCells] {
		if c != nil && c.Label == label {
			return c, true
		}
	}
	return nil, false
}
