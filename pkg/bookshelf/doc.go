// Package bookshelf reads and writes placement benchmarks in the UCLA
// Bookshelf format.
//
// # Files
//
// A design is three text files sharing a base name:
//
//	design.nodes   cell names, sizes, terminal markers
//	design.nets    hyperedges as NetDegree blocks of pin lines
//	design.pl      lower-left coordinates, optionally /FIXED
//
// Example:
//
//	UCLA nodes 1.0
//	NumNodes : 2
//	NumTerminals : 1
//	  p0  1  1  terminal
//	  a   2  1
//
//	UCLA nets 1.0
//	NumNets : 1
//	NumPins : 2
//	NetDegree : 2  n0
//	  p0 B
//	  a  I : 0.5 0
//
//	UCLA pl 1.0
//	p0  0  0  : N /FIXED
//	a   4  2  : N
//
// Terminal nodes become instances of pad cell types. Cell types are shared
// between nodes of equal size and kind. Header lines, blank lines and lines
// starting with # are skipped. Pin offsets and orientations are accepted and
// ignored, and every net is read with weight 1.
//
// Coordinates in .pl files are lower-left corners; [netlist.Cell] stores
// centers, so both directions convert with half the cell size.
//
// # Errors
//
// Malformed input yields an INVALID_FORMAT error from [errors.Format] naming
// the file and line.
//
// [errors.Format]: github.com/matzehuels/gordian/pkg/errors.Format
package bookshelf
