// Package pkg provides the libraries behind the gordian global placer.
//
// # Overview
//
// Gordian places the cells of a standard-cell netlist inside a rectangular
// core so that total half-perimeter wirelength (HPWL) is small. It alternates
// two steps until every partition holds only a few cells:
//
//  1. Solve a quadratic program that minimizes squared wirelength, with each
//     partition's cells held at the partition center by a center-of-gravity
//     constraint.
//  2. Bisect every large partition by a min-cut split of its cells and its
//     region.
//
// A density pass then spreads cells out of crowded bins.
//
// # Architecture
//
//	Bookshelf .nodes/.nets/.pl
//	         ↓
//	    [bookshelf] (parse into a netlist)
//	         ↓
//	    [netlist] (cells, nets, types)
//	         ↓
//	    [place] (pads, QP, partitioning loop, density)
//	      ├── [qps] (constrained conjugate-gradient solver)
//	      └── [partition] (partition tree, FM and area bisectors)
//	         ↓
//	    [render] / [bookshelf] (.pl, JSON, DOT, SVG)
//
// # Quick Start
//
//	db, _ := bookshelf.ReadFiles("designs/ibm01")
//	pc := place.New(db, place.DefaultConfig(), logger)
//	if err := pc.Preplace(0.7); err != nil {
//	    return err
//	}
//	res, _ := pc.GlobalPlace(ctx)
//	fmt.Println(res.FinalHPWL)
//	_ = bookshelf.WriteFiles(db, "out/ibm01")
//
// # Main Packages
//
// [geom] - Rectangles and the split helpers used by partitions.
//
// [netlist] - The placement database: abstract cell types, cells and nets
// with sparse, reusable ids, plus wirelength queries.
//
// [qps] - Quadratic problem builder and solver with linear equality groups.
//
// [partition] - The partition tree, its refinement and the bisectors.
//
// [place] - The placer itself: pad placement, problem construction,
// the global loop, incremental updates and density spreading.
//
// [bookshelf] - Reading and writing the UCLA Bookshelf format.
//
// [config] - TOML configuration files for [place.Config].
//
// ## Infrastructure
//
// [pipeline] - Load, place and export with caching. Used by the CLI and the
// API so that both behave the same.
//
// [cache] - File, Redis and null caches keyed by input hashes.
//
// [archive] - Run history in memory, on disk or in MongoDB.
//
// [api] - HTTP server over the pipeline.
//
// [observability] - Hooks for progress views and metrics.
//
// [errors] - Coded errors shared by every package.
//
// # Testing
//
//	go test ./pkg/...            # All tests
//	go test -short ./pkg/...     # Skip Graphviz rendering
//	go test -run Example ./...   # Examples only
//
// [geom]: https://pkg.go.dev/github.com/matzehuels/gordian/pkg/geom
// [netlist]: https://pkg.go.dev/github.com/matzehuels/gordian/pkg/netlist
// [qps]: https://pkg.go.dev/github.com/matzehuels/gordian/pkg/qps
// [partition]: https://pkg.go.dev/github.com/matzehuels/gordian/pkg/partition
// [place]: https://pkg.go.dev/github.com/matzehuels/gordian/pkg/place
// [place.Config]: https://pkg.go.dev/github.com/matzehuels/gordian/pkg/place#Config
// [bookshelf]: https://pkg.go.dev/github.com/matzehuels/gordian/pkg/bookshelf
// [config]: https://pkg.go.dev/github.com/matzehuels/gordian/pkg/config
// [render]: https://pkg.go.dev/github.com/matzehuels/gordian/pkg/render
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/gordian/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/matzehuels/gordian/pkg/cache
// [archive]: https://pkg.go.dev/github.com/matzehuels/gordian/pkg/archive
// [api]: https://pkg.go.dev/github.com/matzehuels/gordian/pkg/api
// [observability]: https://pkg.go.dev/github.com/matzehuels/gordian/pkg/observability
// [errors]: https://pkg.go.dev/github.com/matzehuels/gordian/pkg/errors
package pkg
