// Package netlist provides the placement database: cell types, placed cell
// instances, nets, and the dense id-indexed registry that holds them.
//
// # Overview
//
// A [DB] stores cells and nets in slices indexed by their integer ID. IDs are
// stable logical handles assigned by the caller (typically a network adapter or
// the Bookshelf reader). Deleting an entry leaves a nil hole; the logical count
// returned by [DB.NumCells] shrinks only while the top of the registry is nil.
// No compaction ever happens automatically, so an ID keeps addressing the same
// slot for the lifetime of the entry.
//
//	db := netlist.New()
//	std := &netlist.AbstractCell{Label: "std", Width: 2, Height: 1}
//	_ = db.AddCell(&netlist.Cell{ID: 0, Label: "u0", Type: std})
//	_ = db.AddCell(&netlist.Cell{ID: 5, Label: "u5", Type: std})
//	fmt.Println(db.NumCells()) // 6
//
// # Nets
//
// A [Net] is a hyperedge over cells. Its terminal slice holds non-owning
// pointers; [Net.SetTerms] replaces it wholesale. [DB.DeleteCell] scrubs the
// deleted cell from every live net so no terminal slice is left dangling.
//
// # Ordering
//
// The Compare* functions plug into [slices.SortFunc]. All of them tolerate nil
// entries and sort them first, matching the hole-bearing registry slices.
//
// # Concurrency
//
// DB is not safe for concurrent use. Each placement run owns its database.
package netlist
