package render

import (
	"encoding/json"

	"github.com/matzehuels/gordian/pkg/geom"
	"github.com/matzehuels/gordian/pkg/netlist"
	"github.com/matzehuels/gordian/pkg/place"
)

// Placement is the JSON document written by [PlacementJSON].
type Placement struct {
	RunID     string          `json:"run_id,omitempty"`
	Core      geom.Rect       `json:"core"`
	HPWL      float64         `json:"hpwl"`
	Converged bool            `json:"converged"`
	Trace     []TracePoint    `json:"trace,omitempty"`
	Cells     []PlacementCell `json:"cells"`
}

// TracePoint is one solve of the run.
type TracePoint struct {
	Iteration  int     `json:"iteration"`
	Partitions int     `json:"partitions"`
	HPWL       float64 `json:"hpwl"`
}

// PlacementCell is a cell center and size.
type PlacementCell struct {
	ID     int     `json:"id"`
	Label  string  `json:"label,omitempty"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Fixed  bool    `json:"fixed,omitempty"`
	Pad    bool    `json:"pad,omitempty"`
}

// NewPlacement collects the document for db. res may be nil.
func NewPlacement(db *netlist.DB, core geom.Rect, res *place.Result) Placement {
	doc := Placement{Core: core, HPWL: db.TotalWirelength(), Cells: []PlacementCell{}}
	if res != nil {
		doc.RunID = res.RunID
		doc.Converged = res.Converged
		for _, it := range res.Trace {
			doc.Trace = append(doc.Trace, TracePoint{Iteration: it.Index, Partitions: it.Partitions, HPWL: it.HPWL})
		}
	}
	for _, c := range db.Cells() {
		pc := PlacementCell{ID: c.ID, Label: c.Label, X: c.X, Y: c.Y, Fixed: c.Fixed, Pad: c.IsPad()}
		if c.Type != nil {
			pc.Width, pc.Height = c.Type.Width, c.Type.Height
		}
		doc.Cells = append(doc.Cells, pc)
	}
	return doc
}

// PlacementJSON renders [NewPlacement] as indented JSON.
func PlacementJSON(db *netlist.DB, core geom.Rect, res *place.Result) ([]byte, error) {
	return json.MarshalIndent(NewPlacement(db, core, res), "", "  ")
}
