package bookshelf

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/matzehuels/gordian/pkg/netlist"
)

func num(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

func cellName(c *netlist.Cell) string {
	if c.Label != "" {
		return c.Label
	}
	return fmt.Sprintf("c%d", c.ID)
}

// Write emits the database as Bookshelf streams. Unlabeled cells and nets
// are named after their ids.
func Write(db *netlist.DB, nodes, nets, pl io.Writer) error {
	if err := writeNodes(db, nodes); err != nil {
		return fmt.Errorf("write nodes: %w", err)
	}
	if err := writeNets(db, nets); err != nil {
		return fmt.Errorf("write nets: %w", err)
	}
	if err := WritePlacement(db, pl); err != nil {
		return fmt.Errorf("write pl: %w", err)
	}
	return nil
}

// WriteFiles writes base.nodes, base.nets and base.pl.
func WriteFiles(db *netlist.DB, base string) error {
	files := make([]*os.File, 0, 3)
	defer func() {
		for _, f := range files {
			f.Close()
		}
	}()
	for _, ext := range []string{ExtNodes, ExtNets, ExtPl} {
		f, err := os.Create(base + ext)
		if err != nil {
			return fmt.Errorf("create %s%s: %w", base, ext, err)
		}
		files = append(files, f)
	}
	if err := Write(db, files[0], files[1], files[2]); err != nil {
		return err
	}
	for _, f := range files {
		if err := f.Sync(); err != nil {
			return err
		}
	}
	return nil
}

// WritePlacement emits only the .pl stream: lower-left coordinates, with
// fixed cells marked /FIXED.
func WritePlacement(db *netlist.DB, w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "UCLA pl 1.0")
	fmt.Fprintln(bw)
	for _, c := range db.Cells() {
		x := c.X - c.Type.Width/2
		y := c.Y - c.Type.Height/2
		fmt.Fprintf(bw, "%s\t%s\t%s\t: N", cellName(c), num(x), num(y))
		if c.Fixed {
			fmt.Fprint(bw, " /FIXED")
		}
		fmt.Fprintln(bw)
	}
	return bw.Flush()
}

func writeNodes(db *netlist.DB, w io.Writer) error {
	cells := db.Cells()
	terms := 0
	for _, c := range cells {
		if c.IsPad() {
			terms++
		}
	}
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "UCLA nodes 1.0")
	fmt.Fprintln(bw)
	fmt.Fprintf(bw, "NumNodes : %d\n", len(cells))
	fmt.Fprintf(bw, "NumTerminals : %d\n", terms)
	for _, c := range cells {
		fmt.Fprintf(bw, "\t%s\t%s\t%s", cellName(c), num(c.Type.Width), num(c.Type.Height))
		if c.IsPad() {
			fmt.Fprint(bw, "\tterminal")
		}
		fmt.Fprintln(bw)
	}
	return bw.Flush()
}

func writeNets(db *netlist.DB, w io.Writer) error {
	nets := db.Nets()
	pins := 0
	for _, n := range nets {
		pins += len(n.Terms)
	}
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "UCLA nets 1.0")
	fmt.Fprintln(bw)
	fmt.Fprintf(bw, "NumNets : %d\n", len(nets))
	fmt.Fprintf(bw, "NumPins : %d\n", pins)
	for _, n := range nets {
		label := n.Label
		if label == "" {
			label = fmt.Sprintf("n%d", n.ID)
		}
		fmt.Fprintf(bw, "NetDegree : %d\t%s\n", len(n.Terms), label)
		for _, t := range n.Terms {
			fmt.Fprintf(bw, "\t%s\tB\n", cellName(t))
		}
	}
	return bw.Flush()
}
