package netlist

import (
	"errors"
	"slices"
	"testing"
)

var stdType = &AbstractCell{Label: "std", Width: 2, Height: 1}

func cellAt(id int, x, y float64) *Cell {
	return &Cell{ID: id, Label: "c", Type: stdType, X: x, Y: y}
}

func TestRegistryIDSparsity(t *testing.T) {
	db := New()
	cells := map[int]*Cell{}
	for _, id := range []int{0, 2, 5} {
		cells[id] = cellAt(id, 0, 0)
		if err := db.AddCell(cells[id]); err != nil {
			t.Fatalf("AddCell(%d): %v", id, err)
		}
	}

	if db.NumCells() != 6 {
		t.Fatalf("NumCells = %d, want 6", db.NumCells())
	}
	for _, hole := range []int{1, 3, 4} {
		if db.Cell(hole) != nil {
			t.Errorf("slot %d should be a hole", hole)
		}
	}

	db.DeleteCell(cells[5])
	if db.NumCells() != 3 {
		t.Errorf("NumCells after delete = %d, want 3", db.NumCells())
	}

	db.DeleteCell(cells[0])
	if db.NumCells() != 3 {
		t.Errorf("deleting a non-top cell must not shrink: got %d", db.NumCells())
	}
	db.DeleteCell(cells[2])
	if db.NumCells() != 0 {
		t.Errorf("NumCells = %d, want 0", db.NumCells())
	}
}

func TestAddCellErrors(t *testing.T) {
	db := New()
	tests := []struct {
		name string
		cell *Cell
		want error
	}{
		{"nil", nil, ErrNilEntry},
		{"negative id", &Cell{ID: -1, Type: stdType}, ErrInvalidID},
		{"no type", &Cell{ID: 1}, ErrMissingType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := db.AddCell(tt.cell); !errors.Is(err, tt.want) {
				t.Errorf("AddCell() error = %v, want %v", err, tt.want)
			}
		})
	}
	if err := db.AddNet(&Net{ID: -3}); !errors.Is(err, ErrInvalidID) {
		t.Errorf("AddNet negative id error = %v", err)
	}
}

func TestAddCellOverwrites(t *testing.T) {
	db := New()
	a, b := cellAt(3, 0, 0), cellAt(3, 1, 1)
	_ = db.AddCell(a)
	_ = db.AddCell(b)
	if db.Cell(3) != b {
		t.Error("re-adding an id should overwrite the slot")
	}
	if len(db.Types()) != 1 {
		t.Errorf("Types() = %d, want 1", len(db.Types()))
	}
}

func TestRegistryGrowth(t *testing.T) {
	db := New()
	for id := 0; id < 500; id += 7 {
		if err := db.AddCell(cellAt(id, float64(id), 0)); err != nil {
			t.Fatal(err)
		}
	}
	if got := len(db.Cells()); got != 72 {
		t.Errorf("live cells = %d, want 72", got)
	}
	if db.Cell(497).X != 497 {
		t.Error("cell 497 not addressable after growth")
	}
}

func TestDeleteCellScrubsNets(t *testing.T) {
	db := New()
	a, b, c := cellAt(0, 0, 0), cellAt(1, 4, 0), cellAt(2, 0, 3)
	for _, x := range []*Cell{a, b, c} {
		_ = db.AddCell(x)
	}
	n := &Net{ID: 0, Weight: 1}
	n.SetTerms([]*Cell{a, b, c})
	_ = db.AddNet(n)

	db.DeleteCell(b)
	if slices.Contains(n.Terms, b) {
		t.Fatal("deleted cell still referenced by net")
	}
	if got := NetWirelength(n); got != 3 {
		t.Errorf("wirelength after scrub = %v, want 3", got)
	}
}

func TestWirelength(t *testing.T) {
	db := New()
	a, b, c := cellAt(0, 0, 0), cellAt(1, 4, 0), cellAt(2, 1, 3)
	for _, x := range []*Cell{a, b, c} {
		_ = db.AddCell(x)
	}
	n0 := &Net{ID: 0, Terms: []*Cell{a, b}, Weight: 1}
	n1 := &Net{ID: 1, Terms: []*Cell{a, b, c}, Weight: 1}
	empty := &Net{ID: 3, Weight: 1}
	_ = db.AddNet(n0)
	_ = db.AddNet(n1)
	_ = db.AddNet(empty)

	if _, ok := NetBBox(empty); ok {
		t.Error("NetBBox of empty net should report !ok")
	}
	if got := db.TotalWirelength(); got != 4+7 {
		t.Errorf("TotalWirelength = %v, want 11", got)
	}
	if db.NumNets() != 4 {
		t.Errorf("NumNets = %d, want 4", db.NumNets())
	}
	db.DeleteNet(empty)
	if db.NumNets() != 2 {
		t.Errorf("NumNets after delete = %d, want 2", db.NumNets())
	}
}

func TestComparatorsNilFirst(t *testing.T) {
	cells := []*Cell{cellAt(2, 5, 1), nil, cellAt(0, 1, 9), cellAt(1, 3, 4), nil}

	byX := slices.Clone(cells)
	slices.SortFunc(byX, CompareCellsByX)
	if byX[0] != nil || byX[1] != nil || byX[2].X != 1 || byX[4].X != 5 {
		t.Errorf("CompareCellsByX order wrong")
	}

	byY := slices.Clone(cells)
	slices.SortFunc(byY, CompareCellsByY)
	if byY[2].Y != 1 || byY[4].Y != 9 {
		t.Errorf("CompareCellsByY order wrong")
	}

	byID := slices.Clone(cells)
	slices.SortFunc(byID, CompareCellsByID)
	for i, want := range []int{0, 1, 2} {
		if byID[i+2].ID != want {
			t.Errorf("byID[%d] = %d, want %d", i+2, byID[i+2].ID, want)
		}
	}
}

func TestNetComparators(t *testing.T) {
	a, b, c, d := cellAt(0, 0, 0), cellAt(1, 10, 10), cellAt(2, 5, 2), cellAt(3, 6, 20)
	wide := &Net{ID: 0, Terms: []*Cell{a, b}}
	narrow := &Net{ID: 1, Terms: []*Cell{c, d}}
	nets := []*Net{narrow, nil, wide}

	tests := []struct {
		name  string
		cmp   func(a, b *Net) int
		first *Net
	}{
		{"left", CompareNetsByLeft, wide},
		{"right", CompareNetsByRight, narrow},
		{"bottom", CompareNetsByBottom, wide},
		{"top", CompareNetsByTop, wide},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := slices.Clone(nets)
			slices.SortFunc(s, tt.cmp)
			if s[0] != nil {
				t.Fatal("nil should sort first")
			}
			if s[1] != tt.first {
				t.Errorf("first net = %d, want %d", s[1].ID, tt.first.ID)
			}
		})
	}
}

func TestMovable(t *testing.T) {
	pad := &AbstractCell{Label: "pad", Width: 1, Height: 1, Pad: true}
	tests := []struct {
		cell *Cell
		want bool
	}{
		{&Cell{Type: stdType}, true},
		{&Cell{Type: stdType, Fixed: true}, false},
		{&Cell{Type: pad}, false},
	}
	for i, tt := range tests {
		if got := tt.cell.Movable(); got != tt.want {
			t.Errorf("case %d: Movable() = %v, want %v", i, got, tt.want)
		}
	}
}
