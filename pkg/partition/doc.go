// Package partition maintains the recursive bisection tree used by global
// placement.
//
// A [Tree] starts as a single root [Partition] that spans the core region and
// holds every movable cell. Pads are never members, fixed or not: they sit on
// the pad ring outside the core and the quadratic solve keeps them frozen, so
// they take no part in centroid constraints or cut balance.
//
// Each call to [Tree.Refine] splits every unfinished leaf in two, alternating
// the cut direction per level. Members are first divided into halves of equal
// area along the cut axis and the child regions are sized in proportion to
// their area. Near the top of the tree the cut is then improved by a
// [Bisector] that trades wirelength cut against balance; this runs at levels
// shallower than [Config.RepartitionDepth], and a depth of zero turns it off.
//
// A leaf is done once it holds no more than [Config.LargestFinalSize] cells of
// positive area. Degenerate splits that leave one side without such cells are
// repaired with a plain equal-area split and frozen.
//
// # Bisectors
//
// The min-cut step is pluggable. [AreaBisector] keeps the equal-area split
// unchanged. [FMBisector] runs Fiduccia-Mattheyses passes that move only the
// cells close to the cut line.
//
// # Incremental use
//
// [Tree.Incremental] routes cells added to the database since the tree was
// built down the existing cut lines without resizing anything, and
// [Tree.RemoveCell] drops a cell from every partition that holds it.
package partition
