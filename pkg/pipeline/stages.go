package pipeline

import (
	"bytes"
	"context"
	"strings"

	"github.com/matzehuels/gordian/pkg/bookshelf"
	"github.com/matzehuels/gordian/pkg/errors"
	"github.com/matzehuels/gordian/pkg/geom"
	"github.com/matzehuels/gordian/pkg/netlist"
	"github.com/matzehuels/gordian/pkg/partition"
	"github.com/matzehuels/gordian/pkg/place"
	"github.com/matzehuels/gordian/pkg/render"
)

// Load parses the Bookshelf inputs of opts.
func Load(opts Options) (*netlist.DB, error) {
	nodes, nets := strings.NewReader(opts.Nodes), strings.NewReader(opts.Nets)
	if opts.Pl == "" {
		return bookshelf.Read(nodes, nets, nil)
	}
	return bookshelf.Read(nodes, nets, strings.NewReader(opts.Pl))
}

// Place preplaces the pads of db and runs global placement with
// opts.Config. The returned context holds the core bounds and partition tree.
func Place(ctx context.Context, db *netlist.DB, opts Options) (*place.Context, *place.Result, error) {
	pc := place.New(db, opts.Config, opts.Logger)
	if err := pc.Preplace(opts.Config.Utilization); err != nil {
		return nil, nil, err
	}
	res, err := pc.GlobalPlace(ctx)
	if err != nil {
		return nil, nil, err
	}
	return pc, res, nil
}

// placed is the state every export format reads from.
type placed struct {
	db       *netlist.DB
	core     geom.Rect
	result   *place.Result
	tree     *partition.Tree
	treeDOT  string
	detailed bool
}

// export renders one format.
func export(ctx context.Context, p placed, format string) ([]byte, error) {
	opts := render.Options{Detailed: p.detailed}
	switch format {
	case FormatPL:
		var buf bytes.Buffer
		if err := bookshelf.WritePlacement(p.db, &buf); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case FormatJSON:
		return render.PlacementJSON(p.db, p.core, p.result)
	case FormatDOT:
		return []byte(render.PlacementDOT(p.db, p.core, opts)), nil
	case FormatSVG:
		return render.RenderSVG(ctx, render.PlacementDOT(p.db, p.core, opts), render.EngineNeato)
	case FormatTree:
		if p.tree != nil {
			return []byte(render.TreeDOT(p.tree, opts)), nil
		}
		if p.treeDOT == "" {
			return nil, errors.New(errors.ErrCodeUnsupported, "partition tree not available")
		}
		return []byte(p.treeDOT), nil
	default:
		return nil, ValidateFormat(format)
	}
}
