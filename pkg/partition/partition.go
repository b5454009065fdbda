package partition

import (
	"io"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/gordian/pkg/geom"
	"github.com/matzehuels/gordian/pkg/netlist"
)

// Default tree parameters.
const (
	DefaultLargestFinalSize      = 20
	DefaultRepartitionLevelDepth = 4
	DefaultTargetFraction        = 0.15
	DefaultMaxNonsymmetry        = 0.30
)

// Config controls how deep the tree grows and how cuts are improved.
type Config struct {
	// LargestFinalSize is the positive-area member count at or below which
	// a leaf is done.
	LargestFinalSize int `toml:"largest_final_size"`

	// RepartitionLevelDepth limits min-cut improvement to levels shallower
	// than this, so zero or a negative value disables it. Nil selects
	// DefaultRepartitionLevelDepth.
	RepartitionLevelDepth *int `toml:"repartition_level_depth"`

	// TargetFraction is the fraction of the parent's extent around the cut
	// line within which cells are free to change sides.
	TargetFraction float64 `toml:"target_fraction"`

	// MaxNonsymmetry is the allowed area imbalance passed to the bisector.
	MaxNonsymmetry float64 `toml:"max_nonsymmetry"`
}

// DefaultConfig returns the standard tree parameters.
func DefaultConfig() Config {
	var c Config
	c.SetDefaults()
	return c
}

// LevelDepth returns a pointer for Config.RepartitionLevelDepth.
func LevelDepth(n int) *int { return &n }

// RepartitionDepth returns the effective repartition depth.
func (c Config) RepartitionDepth() int {
	if c.RepartitionLevelDepth == nil {
		return DefaultRepartitionLevelDepth
	}
	return *c.RepartitionLevelDepth
}

// SetDefaults fills zero fields with their defaults.
func (c *Config) SetDefaults() {
	if c.LargestFinalSize <= 0 {
		c.LargestFinalSize = DefaultLargestFinalSize
	}
	if c.RepartitionLevelDepth == nil {
		c.RepartitionLevelDepth = LevelDepth(DefaultRepartitionLevelDepth)
	}
	if c.TargetFraction <= 0 {
		c.TargetFraction = DefaultTargetFraction
	}
	if c.MaxNonsymmetry <= 0 {
		c.MaxNonsymmetry = DefaultMaxNonsymmetry
	}
}

// Partition is one node of the bisection tree.
type Partition struct {
	Members []*netlist.Cell
	Area    float64 // summed member area
	Bounds  geom.Rect

	// Vertical partitions are cut by a vertical line, so Sub1 is the left
	// half. Otherwise Sub1 is the bottom half.
	Vertical bool
	Level    int
	Leaf     bool
	Done     bool

	Sub1, Sub2 *Partition

	parent *Partition
}

// Parent returns the enclosing partition, or nil for the root.
func (p *Partition) Parent() *Partition { return p.parent }

// Cut returns the coordinate of the line separating the children.
func (p *Partition) Cut() float64 {
	if p.Leaf {
		return 0
	}
	if p.Vertical {
		return p.Sub2.Bounds.X
	}
	return p.Sub2.Bounds.Y
}

// MovableCount returns the number of members with positive area.
func (p *Partition) MovableCount() int {
	n := 0
	for _, c := range p.Members {
		if netlist.CellArea(c) > 0 {
			n++
		}
	}
	return n
}

// Tree is the recursive bisection of a database's movable cells.
// It is not safe for concurrent use.
type Tree struct {
	Root *Partition

	db       *netlist.DB
	cfg      Config
	bisector Bisector
	logger   *log.Logger

	home     map[int]*Partition // cell id -> deepest partition holding it
	numParts int
}

// New builds a tree whose root spans core and holds every movable cell of db.
// A nil bisector selects [AreaBisector]; a nil logger discards output.
func New(db *netlist.DB, core geom.Rect, cfg Config, b Bisector, logger *log.Logger) *Tree {
	cfg.SetDefaults()
	if b == nil {
		b = AreaBisector{}
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	t := &Tree{
		db:       db,
		cfg:      cfg,
		bisector: b,
		logger:   logger,
		home:     make(map[int]*Partition),
		numParts: 1,
	}
	root := &Partition{Bounds: core, Leaf: true}
	var members []*netlist.Cell
	for _, c := range db.Cells() {
		if c.Movable() {
			members = append(members, c)
		}
	}
	t.assign(root, members)
	t.Root = root
	return t
}

// Config returns the parameters the tree was built with.
func (t *Tree) Config() Config { return t.cfg }

// NumPartitions returns the number of leaves.
func (t *Tree) NumPartitions() int { return t.numParts }

// Contains reports whether the cell with the given id is in the tree.
func (t *Tree) Contains(id int) bool {
	_, ok := t.home[id]
	return ok
}

// Home returns the deepest partition holding the cell, or nil.
func (t *Tree) Home(id int) *Partition { return t.home[id] }

func (t *Tree) assign(p *Partition, cells []*netlist.Cell) {
	p.Members = cells
	p.Area = 0
	for _, c := range cells {
		p.Area += netlist.CellArea(c)
		t.home[c.ID] = p
	}
}

// Walk visits every partition depth first, parents before children, until
// fn returns false.
func (t *Tree) Walk(fn func(p *Partition) bool) {
	stack := []*Partition{t.Root}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(p) {
			return
		}
		if !p.Leaf {
			stack = append(stack, p.Sub2, p.Sub1)
		}
	}
}

// Leaves returns the leaf partitions in depth-first order.
func (t *Tree) Leaves() []*Partition {
	var out []*Partition
	t.Walk(func(p *Partition) bool {
		if p.Leaf {
			out = append(out, p)
		}
		return true
	})
	return out
}

// Refine splits every unfinished leaf once and reports whether the whole
// tree is done.
func (t *Tree) Refine() (bool, error) {
	return t.refine(t.Root)
}

func (t *Tree) refine(p *Partition) (bool, error) {
	if p.Done {
		return true, nil
	}
	if !p.Leaf {
		d1, err := t.refine(p.Sub1)
		if err != nil {
			return false, err
		}
		d2, err := t.refine(p.Sub2)
		if err != nil {
			return false, err
		}
		p.Done = d1 && d2
		return p.Done, nil
	}

	t.numParts++
	p.Sub1 = &Partition{Level: p.Level + 1, Leaf: true, Vertical: !p.Vertical, parent: p}
	p.Sub2 = &Partition{Level: p.Level + 1, Leaf: true, Vertical: !p.Vertical, parent: p}
	p.Leaf = false

	t.EqualArea(p)
	t.Resize(p)
	if p.Level < t.cfg.RepartitionDepth() {
		if err := t.Repartition(p); err != nil {
			return false, err
		}
	}
	t.Resize(p)

	n1, n2 := p.Sub1.MovableCount(), p.Sub2.MovableCount()
	p.Sub1.Done = n1 <= t.cfg.LargestFinalSize
	p.Sub2.Done = n2 <= t.cfg.LargestFinalSize
	if n1 == 0 || n2 == 0 {
		t.logger.Warn("degenerate partition generated", "level", p.Level, "members", len(p.Members))
		t.EqualArea(p)
		t.Resize(p)
		p.Sub1.Done, p.Sub2.Done = true, true
	}

	p.Done = p.Sub1.Done && p.Sub2.Done
	return p.Done, nil
}

// EqualArea sorts p's members along the cut axis and splits them so that
// Sub1 receives members until it holds at least half of p's area.
func (t *Tree) EqualArea(p *Partition) {
	if p.Vertical {
		slices.SortStableFunc(p.Members, netlist.CompareCellsByX)
	} else {
		slices.SortStableFunc(p.Members, netlist.CompareCellsByY)
	}
	half := p.Area * 0.5
	i, area := 0, 0.0
	for ; area < half && i < len(p.Members); i++ {
		area += netlist.CellArea(p.Members[i])
	}
	t.assign(p.Sub1, slices.Clone(p.Members[:i]))
	t.assign(p.Sub2, slices.Clone(p.Members[i:]))
}

// Resize recomputes the child regions of p in proportion to child area.
// A partition without area is cut in half.
func (t *Tree) Resize(p *Partition) {
	f := 0.5
	if p.Area > 0 {
		f = p.Sub1.Area / p.Area
	}
	b := p.Bounds
	if p.Vertical {
		w1 := b.W * f
		p.Sub1.Bounds = geom.Rect{X: b.X, Y: b.Y, W: w1, H: b.H}
		p.Sub2.Bounds = geom.Rect{X: b.X + w1, Y: b.Y, W: b.W - w1, H: b.H}
	} else {
		h1 := b.H * f
		p.Sub1.Bounds = geom.Rect{X: b.X, Y: b.Y, W: b.W, H: h1}
		p.Sub2.Bounds = geom.Rect{X: b.X, Y: b.Y + h1, W: b.W, H: b.H - h1}
	}
}

// Realloc re-partitions the whole tree from the current cell positions,
// keeping its shape.
func (t *Tree) Realloc() error {
	return t.realloc(t.Root)
}

func (t *Tree) realloc(p *Partition) error {
	if p.Leaf {
		return nil
	}
	t.EqualArea(p)
	t.Resize(p)
	if p.Level < t.cfg.RepartitionDepth() {
		if err := t.Repartition(p); err != nil {
			return err
		}
		t.Resize(p)
	}
	if err := t.realloc(p.Sub1); err != nil {
		return err
	}
	return t.realloc(p.Sub2)
}

// Incremental adds movable cells that are in the database but not yet in
// the tree. Each cell descends along the existing cut lines by position;
// no partition is resized or re-split. It returns the number of cells added.
func (t *Tree) Incremental() int {
	var fresh []*netlist.Cell
	for _, c := range t.db.Cells() {
		if c.Movable() && !t.Contains(c.ID) {
			fresh = append(fresh, c)
		}
	}
	t.logger.Info("incremental partitioning", "new", len(fresh))
	if len(fresh) > 0 {
		t.route(t.Root, fresh)
	}
	return len(fresh)
}

func (t *Tree) route(p *Partition, cells []*netlist.Cell) {
	p.Members = append(p.Members, cells...)
	for _, c := range cells {
		p.Area += netlist.CellArea(c)
		t.home[c.ID] = p
	}
	if p.Leaf {
		return
	}
	cut := p.Cut()
	var lo, hi []*netlist.Cell
	for _, c := range cells {
		pos := c.Y
		if p.Vertical {
			pos = c.X
		}
		if pos < cut {
			lo = append(lo, c)
		} else {
			hi = append(hi, c)
		}
	}
	if len(lo) > 0 {
		t.route(p.Sub1, lo)
	}
	if len(hi) > 0 {
		t.route(p.Sub2, hi)
	}
}

// RemoveCell drops c from every partition that holds it and subtracts its
// area along the way. It is a no-op for cells not in the tree.
func (t *Tree) RemoveCell(c *netlist.Cell) {
	p, ok := t.home[c.ID]
	if !ok {
		return
	}
	delete(t.home, c.ID)
	area := netlist.CellArea(c)
	for ; p != nil; p = p.parent {
		i := slices.IndexFunc(p.Members, func(m *netlist.Cell) bool { return m.ID == c.ID })
		if i < 0 {
			continue
		}
		p.Members = slices.Delete(p.Members, i, i+1)
		p.Area -= area
	}
}
