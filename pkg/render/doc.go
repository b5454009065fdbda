// Package render turns placement state into pictures and documents.
//
// # Partition Trees
//
// [TreeDOT] writes the bisection tree of a run as a Graphviz digraph, one box
// per partition labeled with its level, member count and area. Leaves are
// drawn grey.
//
//	dot := render.TreeDOT(ctx.Tree, render.Options{Detailed: true})
//	svg, err := render.RenderSVG(context.Background(), dot, render.EngineDot)
//
// # Placements
//
// [PlacementDOT] pins every cell at its placed center (neato "pos" with the
// "!" suffix) and draws the core outline and two-pin connections. Render it
// with [EngineNeato] so the pinned coordinates are kept.
//
// # JSON
//
// [PlacementJSON] exports cell positions, the core and the HPWL trace of a
// [place.Result] for downstream tools.
package render
