package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/gordian/pkg/netlist"
	"github.com/matzehuels/gordian/pkg/pipeline"
)

// netlistSummary describes a loaded design.
type netlistSummary struct {
	Design      string  `json:"design"`
	Cells       int     `json:"cells"`
	Movable     int     `json:"movable"`
	Fixed       int     `json:"fixed"`
	Pads        int     `json:"pads"`
	Nets        int     `json:"nets"`
	Pins        int     `json:"pins"`
	MaxDegree   int     `json:"max_degree"`
	MovableArea float64 `json:"movable_area"`
	HPWL        float64 `json:"hpwl"`
}

func summarize(design string, db *netlist.DB) netlistSummary {
	s := netlistSummary{
		Design:      design,
		MovableArea: db.MovableArea(),
		HPWL:        db.TotalWirelength(),
	}
	for _, c := range db.Cells() {
		s.Cells++
		switch {
		case c.IsPad():
			s.Pads++
		case c.Fixed:
			s.Fixed++
		default:
			s.Movable++
		}
	}
	for _, n := range db.Nets() {
		s.Nets++
		s.Pins += len(n.Terms)
		s.MaxDegree = max(s.MaxDegree, len(n.Terms))
	}
	return s
}

// statsCommand creates the stats command.
func (c *CLI) statsCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "stats <design>",
		Short: "Summarize a Bookshelf netlist and its wirelength",
		Long: `Summarize a Bookshelf netlist: cell and net counts, pins and movable area.
HPWL is measured at the positions in <design>.pl, or at the origin when the
design has no placement yet.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := readDesign(args[0])
			if err != nil {
				return err
			}
			prog := newProgress(loggerFromContext(cmd.Context()))
			db, err := pipeline.Load(opts)
			if err != nil {
				return err
			}
			prog.done("Loaded " + opts.Design)

			s := summarize(opts.Design, db)
			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(s)
			}
			printSummary(s, opts.Pl != "")
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the summary as JSON")

	return cmd
}

func printSummary(s netlistSummary, placed bool) {
	printInfo("%s", StyleTitle.Render(s.Design))
	printKeyValue("cells", fmt.Sprintf("%d (%d movable, %d fixed, %d pads)", s.Cells, s.Movable, s.Fixed, s.Pads))
	printKeyValue("nets", fmt.Sprintf("%d (%d pins, max degree %d)", s.Nets, s.Pins, s.MaxDegree))
	printKeyValue("movable area", fmt.Sprintf("%.4g", s.MovableArea))
	if placed {
		printKeyValue("hpwl", StyleNumber.Render(fmt.Sprintf("%.4g", s.HPWL)))
	} else {
		printDetail("no .pl file; run gordian place to measure wirelength")
	}
}
