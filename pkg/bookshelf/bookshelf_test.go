package bookshelf

import (
	"bytes"
	stderrors "errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/gordian/pkg/errors"
	"github.com/matzehuels/gordian/pkg/netlist"
)

const (
	sampleNodes = `UCLA nodes 1.0
# generated
NumNodes : 4
NumTerminals : 1

  p0  1  1  terminal
  a   2  1
  b   2  1
  c   1  1
`
	sampleNets = `UCLA nets 1.0
NumNets : 2
NumPins : 5
NetDegree : 3  n0
  p0 B
  a  I : 0.5 0
  b  O
NetDegree : 2  n1
  b  I
  c  O
`
	samplePl = `UCLA pl 1.0

p0  0    0    : N /FIXED
a   4    2    : N
b   6.5  2    : N
c   10   0.25 : N
`
)

func readSample(t *testing.T) *netlist.DB {
	t.Helper()
	db, err := Read(strings.NewReader(sampleNodes), strings.NewReader(sampleNets), strings.NewReader(samplePl))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	return db
}

func TestRead(t *testing.T) {
	db := readSample(t)
	if db.NumCells() != 4 || db.NumNets() != 2 {
		t.Fatalf("got %d cells, %d nets; want 4, 2", db.NumCells(), db.NumNets())
	}

	p0, _ := db.CellByLabel("p0")
	if !p0.IsPad() || !p0.Fixed {
		t.Errorf("p0: pad=%v fixed=%v, want both", p0.IsPad(), p0.Fixed)
	}
	a, _ := db.CellByLabel("a")
	b, _ := db.CellByLabel("b")
	if a.Type != b.Type {
		t.Error("equal-size nodes do not share a type")
	}
	if a.X != 5 || a.Y != 2.5 {
		t.Errorf("a center = (%v, %v), want (5, 2.5)", a.X, a.Y)
	}
	if n := db.Net(0); len(n.Terms) != 3 || n.Label != "n0" || n.Weight != 1 {
		t.Errorf("net 0 = %+v", n)
	}
}

func TestReadWithoutPlacement(t *testing.T) {
	db, err := Read(strings.NewReader(sampleNodes), strings.NewReader(sampleNets), nil)
	if err != nil {
		t.Fatal(err)
	}
	if c, _ := db.CellByLabel("a"); c.X != 0 || c.Y != 0 {
		t.Errorf("a at (%v, %v), want origin", c.X, c.Y)
	}
}

func TestReadPlacement(t *testing.T) {
	db, err := Read(strings.NewReader(sampleNodes), strings.NewReader(sampleNets), nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := ReadPlacement(db, strings.NewReader(samplePl)); err != nil {
		t.Fatal(err)
	}
	a, _ := db.CellByLabel("a")
	if a.X != 5 || a.Y != 2.5 {
		t.Errorf("a = (%v, %v), want (5, 2.5)", a.X, a.Y)
	}
	if err := ReadPlacement(db, strings.NewReader("zz 1 1\n")); !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("unknown node err = %v", err)
	}
}

func TestReadErrors(t *testing.T) {
	tests := []struct {
		name  string
		nodes string
		nets  string
		pl    string
		line  int
	}{
		{"bad width", "a x 1\n", "", "", 1},
		{"short node", "UCLA nodes 1.0\na 1\n", "", "", 2},
		{"duplicate node", "a 1 1\na 1 1\n", "", "", 2},
		{"unknown pin", "a 1 1\n", "NetDegree : 1\n  z B\n", "", 2},
		{"truncated net", "a 1 1\n", "NetDegree : 2\n  a B\n", "", 2},
		{"stray line", "a 1 1\n", "a B\n", "", 1},
		{"negative degree", "a 1 1\n", "NetDegree : -3\n  a B\n", "", 1},
		{"huge degree", "a 1 1\n", "NetDegree : 999999999999999999\n  a B\n", "", 2},
		{"degree over NumPins", "a 1 1\n", "NumPins : 1\nNetDegree : 5\n  a B\n", "", 2},
		{"unknown placed node", "a 1 1\n", "", "\nz 0 0\n", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.nodes), strings.NewReader(tt.nets), strings.NewReader(tt.pl))
			if !errors.Is(err, errors.ErrCodeInvalidFormat) {
				t.Fatalf("error = %v, want INVALID_FORMAT", err)
			}
			var fe *errors.FormatError
			if !stderrors.As(err, &fe) {
				t.Fatalf("error %v carries no FormatError", err)
			}
			if fe.Line != tt.line {
				t.Errorf("line = %d, want %d", fe.Line, tt.line)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	db := readSample(t)
	var nodes, nets, pl bytes.Buffer
	if err := Write(db, &nodes, &nets, &pl); err != nil {
		t.Fatal(err)
	}
	back, err := Read(&nodes, &nets, &pl)
	if err != nil {
		t.Fatalf("re-read: %v", err)
	}
	assertSameDB(t, db, back)
}

func TestFilesRoundTrip(t *testing.T) {
	db := readSample(t)
	base := filepath.Join(t.TempDir(), "design")
	if err := WriteFiles(db, base); err != nil {
		t.Fatal(err)
	}
	back, err := ReadFiles(base)
	if err != nil {
		t.Fatal(err)
	}
	assertSameDB(t, db, back)

	if _, err := ReadFiles(filepath.Join(t.TempDir(), "missing")); !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("missing files: error = %v, want FILE_NOT_FOUND", err)
	}
}

func assertSameDB(t *testing.T, want, got *netlist.DB) {
	t.Helper()
	if got.NumCells() != want.NumCells() || got.NumNets() != want.NumNets() {
		t.Fatalf("sizes differ: %d/%d cells, %d/%d nets", got.NumCells(), want.NumCells(), got.NumNets(), want.NumNets())
	}
	for _, w := range want.Cells() {
		g, ok := got.CellByLabel(w.Label)
		if !ok {
			t.Errorf("cell %s lost", w.Label)
			continue
		}
		if g.X != w.X || g.Y != w.Y || g.Fixed != w.Fixed || g.IsPad() != w.IsPad() ||
			g.Type.Width != w.Type.Width || g.Type.Height != w.Type.Height {
			t.Errorf("cell %s: got %+v, want %+v", w.Label, g, w)
		}
	}
	for _, w := range want.Nets() {
		g := got.Net(w.ID)
		if g.Label != w.Label || len(g.Terms) != len(w.Terms) {
			t.Errorf("net %s: got %d terms, want %d", w.Label, len(g.Terms), len(w.Terms))
			continue
		}
		for i := range w.Terms {
			if g.Terms[i].Label != w.Terms[i].Label {
				t.Errorf("net %s term %d: %s, want %s", w.Label, i, g.Terms[i].Label, w.Terms[i].Label)
			}
		}
	}
}
