package bookshelf

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/matzehuels/gordian/pkg/errors"
	"github.com/matzehuels/gordian/pkg/netlist"
)

// File extensions of the three design files.
const (
	ExtNodes = ".nodes"
	ExtNets  = ".nets"
	ExtPl    = ".pl"
)

// lines yields the significant lines of a Bookshelf file with their
// 1-based line numbers.
type lines struct {
	name string
	sc   *bufio.Scanner
	n    int
}

func newLines(name string, r io.Reader) *lines {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	return &lines{name: name, sc: sc}
}

func (l *lines) next() ([]string, bool) {
	for l.sc.Scan() {
		l.n++
		line := strings.TrimSpace(l.sc.Text())
		if line == "" || line[0] == '#' || strings.HasPrefix(line, "UCLA") {
			continue
		}
		return strings.Fields(line), true
	}
	return nil, false
}

func (l *lines) err() error {
	if err := l.sc.Err(); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidFormat, err, "read %s", l.name)
	}
	return nil
}

func (l *lines) fail(format string, args ...any) error {
	return errors.Format(l.name, l.n, format, args...)
}

// header parses "Key : value" lines such as NumNodes.
func header(f []string) (string, string, bool) {
	if len(f) == 3 && f[1] == ":" {
		return f[0], f[2], true
	}
	if len(f) == 2 && strings.HasSuffix(f[0], ":") {
		return strings.TrimSuffix(f[0], ":"), f[1], true
	}
	return "", "", false
}

func (l *lines) float(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, l.fail("invalid number %q", s)
	}
	return v, nil
}

type typeKey struct {
	w, h float64
	pad  bool
}

// Read builds a database from the three Bookshelf streams. pl may be nil,
// leaving every cell at the origin. Cells are numbered in .nodes order and
// nets in .nets order, both from zero.
func Read(nodes, nets, pl io.Reader) (*netlist.DB, error) {
	db := netlist.New()
	if err := readNodes(db, newLines("nodes", nodes)); err != nil {
		return nil, err
	}
	if err := readNets(db, newLines("nets", nets)); err != nil {
		return nil, err
	}
	if pl != nil {
		if err := readPl(db, newLines("pl", pl)); err != nil {
			return nil, err
		}
	}
	return db, nil
}

// ReadFiles reads base.nodes, base.nets and, if present, base.pl.
func ReadFiles(base string) (*netlist.DB, error) {
	open := func(ext string, optional bool) (*os.File, error) {
		f, err := os.Open(base + ext)
		if err == nil {
			return f, nil
		}
		if os.IsNotExist(err) {
			if optional {
				return nil, nil
			}
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "%s%s", base, ext)
		}
		return nil, fmt.Errorf("open %s%s: %w", base, ext, err)
	}

	nodes, err := open(ExtNodes, false)
	if err != nil {
		return nil, err
	}
	defer nodes.Close()
	nets, err := open(ExtNets, false)
	if err != nil {
		return nil, err
	}
	defer nets.Close()
	pl, err := open(ExtPl, true)
	if err != nil {
		return nil, err
	}
	if pl == nil {
		return Read(nodes, nets, nil)
	}
	defer pl.Close()
	return Read(nodes, nets, pl)
}

// ReadPlacement applies a .pl stream to the cells of db, matching them by
// label.
func ReadPlacement(db *netlist.DB, r io.Reader) error {
	return readPl(db, newLines("pl", r))
}

func readNodes(db *netlist.DB, l *lines) error {
	types := make(map[typeKey]*netlist.AbstractCell)
	seen := make(map[string]bool)
	id := 0
	for {
		f, ok := l.next()
		if !ok {
			break
		}
		if _, _, ok := header(f); ok {
			continue
		}
		if len(f) < 3 {
			return l.fail("node line needs name, width and height")
		}
		w, err := l.float(f[1])
		if err != nil {
			return err
		}
		h, err := l.float(f[2])
		if err != nil {
			return err
		}
		if w < 0 || h < 0 {
			return l.fail("negative size for %s", f[0])
		}
		pad := len(f) > 3 && strings.HasPrefix(f[3], "terminal")

		key := typeKey{w, h, pad}
		typ, ok := types[key]
		if !ok {
			label := fmt.Sprintf("CELL_%gx%g", w, h)
			if pad {
				label = fmt.Sprintf("PAD_%gx%g", w, h)
			}
			typ = &netlist.AbstractCell{Label: label, Width: w, Height: h, Pad: pad}
			types[key] = typ
		}
		if seen[f[0]] {
			return l.fail("duplicate node %s", f[0])
		}
		seen[f[0]] = true
		if err := db.AddCell(&netlist.Cell{ID: id, Label: f[0], Type: typ}); err != nil {
			return l.fail("%v", err)
		}
		id++
	}
	return l.err()
}

func readNets(db *netlist.DB, l *lines) error {
	byLabel := make(map[string]*netlist.Cell, db.NumCells())
	for _, c := range db.Cells() {
		byLabel[c.Label] = c
	}

	id := 0
	numPins := -1
	for {
		f, ok := l.next()
		if !ok {
			break
		}
		var val string
		var rest []string
		switch {
		case f[0] == "NetDegree" && len(f) >= 3 && f[1] == ":":
			val, rest = f[2], f[3:]
		case f[0] == "NetDegree:" && len(f) >= 2:
			val, rest = f[1], f[2:]
		default:
			if key, v, ok := header(f); ok {
				if key == "NumPins" {
					if n, err := strconv.Atoi(v); err == nil && n >= 0 {
						numPins = n
					}
				}
				continue
			}
			return l.fail("expected NetDegree, got %q", f[0])
		}
		degree, err := strconv.Atoi(val)
		if err != nil || degree < 0 {
			return l.fail("invalid net degree %q", val)
		}
		if numPins >= 0 && degree > numPins {
			return l.fail("net degree %d exceeds NumPins %d", degree, numPins)
		}
		label := fmt.Sprintf("n%d", id)
		if len(rest) > 0 {
			label = rest[0]
		}

		terms := make([]*netlist.Cell, 0, min(degree, 64))
		for range degree {
			pin, ok := l.next()
			if !ok {
				return l.fail("net %s ends after %d of %d pins", label, len(terms), degree)
			}
			c, ok := byLabel[pin[0]]
			if !ok {
				return l.fail("net %s: unknown node %s", label, pin[0])
			}
			terms = append(terms, c)
		}
		n := &netlist.Net{ID: id, Label: label, Weight: 1}
		n.SetTerms(terms)
		if err := db.AddNet(n); err != nil {
			return l.fail("%v", err)
		}
		id++
	}
	return l.err()
}

func readPl(db *netlist.DB, l *lines) error {
	byLabel := make(map[string]*netlist.Cell, db.NumCells())
	for _, c := range db.Cells() {
		byLabel[c.Label] = c
	}
	for {
		f, ok := l.next()
		if !ok {
			break
		}
		if len(f) < 3 {
			return l.fail("placement line needs name, x and y")
		}
		c, ok := byLabel[f[0]]
		if !ok {
			return l.fail("unknown node %s", f[0])
		}
		x, err := l.float(f[1])
		if err != nil {
			return err
		}
		y, err := l.float(f[2])
		if err != nil {
			return err
		}
		c.X = x + c.Type.Width/2
		c.Y = y + c.Type.Height/2
		for _, tok := range f[3:] {
			if tok == "/FIXED" || tok == "/FIXED_NI" {
				c.Fixed = true
			}
		}
	}
	return l.err()
}
