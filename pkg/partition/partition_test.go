package partition

import (
	"fmt"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/matzehuels/gordian/pkg/geom"
	"github.com/matzehuels/gordian/pkg/netlist"
)

var (
	unitType   = &netlist.AbstractCell{Label: "u1", Width: 1, Height: 1}
	doubleType = &netlist.AbstractCell{Label: "u2", Width: 2, Height: 1}
	emptyType  = &netlist.AbstractCell{Label: "zero"}
	padType    = &netlist.AbstractCell{Label: "pad", Width: 1, Height: 1, Pad: true}
	core       = geom.Rect{W: 100, H: 100}
)

// randomDB places n cells of area 1 or 2 uniformly in the core and chains
// them with two-pin nets.
func randomDB(t *testing.T, n int, seed uint64) *netlist.DB {
	t.Helper()
	rng := rand.New(rand.NewPCG(seed, 7))
	db := netlist.New()
	types := []*netlist.AbstractCell{unitType, doubleType}
	for i := range n {
		c := &netlist.Cell{
			ID:    i,
			Label: fmt.Sprintf("c%d", i),
			Type:  types[rng.IntN(2)],
			X:     rng.Float64() * core.W,
			Y:     rng.Float64() * core.H,
		}
		if err := db.AddCell(c); err != nil {
			t.Fatal(err)
		}
	}
	for i := 0; i+1 < n; i++ {
		net := &netlist.Net{ID: i, Weight: 1}
		net.SetTerms([]*netlist.Cell{db.Cell(i), db.Cell(i + 1)})
		if err := db.AddNet(net); err != nil {
			t.Fatal(err)
		}
	}
	return db
}

func refineAll(t *testing.T, tree *Tree) {
	t.Helper()
	for range 64 {
		done, err := tree.Refine()
		if err != nil {
			t.Fatal(err)
		}
		if done {
			return
		}
	}
	t.Fatal("tree not done after 64 refinements")
}

func TestNewSkipsFixedAndPads(t *testing.T) {
	db := randomDB(t, 10, 1)
	db.Cell(0).Fixed = true
	_ = db.AddCell(&netlist.Cell{ID: 10, Label: "p", Type: padType})

	tree := New(db, core, Config{}, nil, nil)
	if got := len(tree.Root.Members); got != 9 {
		t.Errorf("root members = %d, want 9", got)
	}
	if tree.Contains(0) || tree.Contains(10) {
		t.Error("fixed cell or pad in root partition")
	}
	if tree.NumPartitions() != 1 || !tree.Root.Leaf {
		t.Error("new tree should be a single leaf")
	}
	if tree.Root.Bounds != core {
		t.Errorf("root bounds = %+v, want core", tree.Root.Bounds)
	}
}

func TestEqualAreaBalance(t *testing.T) {
	for _, seed := range []uint64{1, 2, 3, 4} {
		t.Run(fmt.Sprint(seed), func(t *testing.T) {
			tree := New(randomDB(t, 300, seed), core, Config{}, AreaBisector{}, nil)
			refineAll(t, tree)
			tree.Walk(func(p *Partition) bool {
				if p.Leaf {
					return true
				}
				if d := math.Abs(p.Sub1.Area-p.Sub2.Area) / p.Area; d > DefaultMaxNonsymmetry {
					t.Errorf("level %d imbalance %.3f", p.Level, d)
				}
				return true
			})
		})
	}
}

func TestRefineCompleteness(t *testing.T) {
	tests := []struct {
		name     string
		bisector Bisector
	}{
		{"area", AreaBisector{}},
		{"fm", FMBisector{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := randomDB(t, 250, 42)
			tree := New(db, core, Config{}, tt.bisector, nil)
			refineAll(t, tree)

			leaves := tree.Leaves()
			if len(leaves) != tree.NumPartitions() {
				t.Errorf("leaves = %d, NumPartitions = %d", len(leaves), tree.NumPartitions())
			}
			total := 0
			for _, l := range leaves {
				if n := l.MovableCount(); n > DefaultLargestFinalSize {
					t.Errorf("leaf at level %d has %d movable members", l.Level, n)
				}
				if !l.Done {
					t.Error("leaf not done")
				}
				total += len(l.Members)
				for _, c := range l.Members {
					if tree.Home(c.ID) != l {
						t.Errorf("home of cell %d is not its leaf", c.ID)
					}
				}
			}
			if total != 250 {
				t.Errorf("leaf members = %d, want 250", total)
			}
			tree.Walk(func(p *Partition) bool {
				if !p.Leaf && (!p.Done || !p.Sub1.Done || !p.Sub2.Done) {
					t.Errorf("internal node at level %d not done", p.Level)
				}
				return true
			})
		})
	}
}

func TestResizeProportional(t *testing.T) {
	tree := New(randomDB(t, 60, 5), core, Config{}, nil, nil)
	if _, err := tree.Refine(); err != nil {
		t.Fatal(err)
	}
	r := tree.Root
	if r.Vertical {
		t.Fatal("root should be cut horizontally")
	}
	if want := core.H * r.Sub1.Area / r.Area; math.Abs(r.Sub1.Bounds.H-want) > 1e-9 {
		t.Errorf("sub1 height = %v, want %v", r.Sub1.Bounds.H, want)
	}
	if math.Abs(r.Sub1.Bounds.H+r.Sub2.Bounds.H-core.H) > 1e-9 {
		t.Error("child heights do not tile the parent")
	}
	if r.Cut() != r.Sub2.Bounds.Y || r.Sub2.Bounds.Y != r.Sub1.Bounds.Top() {
		t.Error("cut line mismatch")
	}
	if !r.Sub1.Vertical || !r.Sub2.Vertical || r.Sub1.Level != 1 {
		t.Error("children should alternate orientation")
	}
}

func TestDegenerateRepair(t *testing.T) {
	db := netlist.New()
	for i := range 30 {
		typ := emptyType
		if i == 15 {
			typ = unitType
		}
		_ = db.AddCell(&netlist.Cell{ID: i, Type: typ, X: 50, Y: float64(i)})
	}
	tree := New(db, core, Config{}, nil, nil)
	done, err := tree.Refine()
	if err != nil {
		t.Fatal(err)
	}
	if !done || !tree.Root.Sub1.Done || !tree.Root.Sub2.Done {
		t.Error("degenerate split should mark both children done")
	}
	if len(tree.Root.Sub1.Members)+len(tree.Root.Sub2.Members) != 30 {
		t.Error("members lost in repair")
	}
}

func TestIncremental(t *testing.T) {
	db := randomDB(t, 120, 9)
	tree := New(db, core, Config{}, nil, nil)
	for range 2 {
		if _, err := tree.Refine(); err != nil {
			t.Fatal(err)
		}
	}
	leavesBefore := tree.NumPartitions()
	bounds := map[*Partition]geom.Rect{}
	tree.Walk(func(p *Partition) bool {
		bounds[p] = p.Bounds
		return true
	})

	added := []*netlist.Cell{
		{ID: 120, Type: unitType, X: 1, Y: 1},
		{ID: 121, Type: unitType, X: 99, Y: 99},
		{ID: 122, Type: doubleType, X: 50, Y: 10},
		{ID: 123, Type: padType, X: 0, Y: 0},
	}
	for _, c := range added {
		_ = db.AddCell(c)
	}
	rootBefore := len(tree.Root.Members)

	if got := tree.Incremental(); got != 3 {
		t.Fatalf("Incremental() = %d, want 3", got)
	}
	if len(tree.Root.Members) != rootBefore+3 {
		t.Error("root membership not extended")
	}
	if tree.NumPartitions() != leavesBefore {
		t.Error("incremental partitioning must not split")
	}
	tree.Walk(func(p *Partition) bool {
		if bounds[p] != p.Bounds {
			t.Errorf("partition at level %d resized", p.Level)
		}
		return true
	})
	for _, c := range added[:3] {
		p := tree.Root
		for !p.Leaf {
			pos := c.Y
			if p.Vertical {
				pos = c.X
			}
			if pos < p.Cut() {
				p = p.Sub1
			} else {
				p = p.Sub2
			}
		}
		if tree.Home(c.ID) != p {
			t.Errorf("cell %d routed to the wrong leaf", c.ID)
		}
	}
	if tree.Incremental() != 0 {
		t.Error("second incremental pass should find nothing")
	}
}

func TestRemoveCell(t *testing.T) {
	db := randomDB(t, 80, 11)
	tree := New(db, core, Config{}, nil, nil)
	refineAll(t, tree)

	victim := db.Cell(17)
	tree.RemoveCell(victim)
	tree.RemoveCell(victim)
	if tree.Contains(17) {
		t.Fatal("cell still indexed")
	}
	tree.Walk(func(p *Partition) bool {
		sum := 0.0
		for _, c := range p.Members {
			if c.ID == 17 {
				t.Errorf("cell 17 still in partition at level %d", p.Level)
			}
			sum += netlist.CellArea(c)
		}
		if math.Abs(sum-p.Area) > 1e-9 {
			t.Errorf("level %d area = %v, members sum %v", p.Level, p.Area, sum)
		}
		return true
	})
}

func TestReallocKeepsShape(t *testing.T) {
	db := randomDB(t, 150, 13)
	tree := New(db, core, Config{}, nil, nil)
	refineAll(t, tree)
	leaves := tree.NumPartitions()

	for _, c := range db.Cells() {
		c.X, c.Y = c.Y, c.X
	}
	if err := tree.Realloc(); err != nil {
		t.Fatal(err)
	}
	if tree.NumPartitions() != leaves || len(tree.Leaves()) != leaves {
		t.Error("realloc changed the tree shape")
	}
	total := 0
	for _, l := range tree.Leaves() {
		total += len(l.Members)
	}
	if total != 150 {
		t.Errorf("leaf members = %d, want 150", total)
	}
}

func TestConfigDefaults(t *testing.T) {
	c := DefaultConfig()
	if c.LargestFinalSize != 20 || c.RepartitionDepth() != 4 ||
		c.TargetFraction != 0.15 || c.MaxNonsymmetry != 0.30 {
		t.Errorf("DefaultConfig() = %+v", c)
	}
	for _, depth := range []int{-1, 0, 2} {
		c = Config{RepartitionLevelDepth: LevelDepth(depth)}
		c.SetDefaults()
		c.SetDefaults()
		if got := c.RepartitionDepth(); got != depth {
			t.Errorf("depth %d became %d after defaulting", depth, got)
		}
	}
}

type countingBisector struct {
	AreaBisector
	calls int
}

func (b *countingBisector) Bisect(h *Hypergraph, part []int, free []bool, ubfactor int) ([]int, float64, error) {
	b.calls++
	return b.AreaBisector.Bisect(h, part, free, ubfactor)
}

func TestZeroDepthDisablesRepartition(t *testing.T) {
	b := &countingBisector{}
	cfg := Config{RepartitionLevelDepth: LevelDepth(0), LargestFinalSize: 5}
	tree := New(randomDB(t, 60, 5), core, cfg, b, nil)
	for {
		done, err := tree.Refine()
		if err != nil {
			t.Fatal(err)
		}
		if done {
			break
		}
	}
	if b.calls != 0 {
		t.Errorf("bisector called %d times with depth 0", b.calls)
	}

	b = &countingBisector{}
	tree = New(randomDB(t, 60, 5), core, Config{LargestFinalSize: 5}, b, nil)
	if _, err := tree.Refine(); err != nil {
		t.Fatal(err)
	}
	if b.calls == 0 {
		t.Error("default depth never repartitioned")
	}
}
