// Package qps solves quadratic placement problems: it minimizes the weighted
// sum of squared Euclidean distances between connected cells, subject to
// optional center-of-gravity (COG) equality constraints, cycle-length ("loop")
// inequality constraints and a global bounding box.
//
// # Model
//
// Every non-fixed cell contributes an (x, y) variable pair. Each COG group
// elects its largest-area movable member as a dependent cell whose position is
// eliminated algebraically as the area-weighted complement of the other
// members, so the group's centroid equals the target exactly. The remaining
// independent variables are optimised with a Jacobi-preconditioned
// Polak-Ribière conjugate-gradient method.
//
// Loop and bounding-box constraints are handled with augmented-Lagrangian
// penalties. An outer loop updates the multipliers by projected ascent until
// a complementary-slackness check passes or the iteration and step-size
// limits are reached. Hitting a limit is a soft failure: the best iterate is
// written back and [Status] reports that the solve did not converge.
//
// # Usage
//
//	p := &qps.Problem{
//	    NumCells: 3,
//	    Connect:  [][]qps.Edge{{{To: 1, Weight: 1}}, {{To: 2, Weight: 1}}, nil},
//	    X:        []float64{0, 5, 10},
//	    Y:        []float64{0, 5, 0},
//	    Fixed:    []bool{true, false, true},
//	    Area:     []float64{1, 1, 1},
//	}
//	st, err := qps.Solve(p, qps.DefaultOptions())
package qps

import (
	"errors"
	"fmt"
)

var (
	// ErrSizeMismatch is returned when a per-cell slice does not have NumCells entries.
	ErrSizeMismatch = errors.New("per-cell slice length does not match NumCells")

	// ErrCellIndex is returned when an edge, group or loop references a cell
	// outside [0, NumCells).
	ErrCellIndex = errors.New("cell index out of range")

	// ErrOverlappingCOG is returned when a movable cell belongs to more than one COG group.
	ErrOverlappingCOG = errors.New("cell belongs to more than one COG group")

	// ErrMalformedList is returned by the sentinel-list parsers for a list
	// that is not terminated or has mismatched side arrays.
	ErrMalformedList = errors.New("malformed sentinel-terminated list")
)

// Edge is one entry of a cell's adjacency list.
type Edge struct {
	To     int
	Weight float64
}

// Group is a center-of-gravity equality constraint: the area-weighted
// centroid of Cells must equal (X, Y).
type Group struct {
	Cells []int
	X, Y  float64
}

// Loop is a cycle-length inequality constraint: the sum of squared segment
// lengths around the closed path Cells must not exceed Max.
type Loop struct {
	Cells []int
	Max   float64
}

// Problem is the input and output of [Solve]. X and Y hold initial positions
// on entry and solved positions on return; fixed cells are never modified.
type Problem struct {
	NumCells int
	Connect  [][]Edge // per-cell adjacency; symmetric duplicates are merged
	X, Y     []float64
	Fixed    []bool
	Area     []float64

	COG []Group

	Loops       []Loop
	LoopPenalty float64 // augmented-Lagrangian weight for loops; 0 selects 1

	// MaxEnable confines every movable cell to [0, MaxX] x [0, MaxY].
	MaxEnable  bool
	MaxX, MaxY float64
}

func (p *Problem) validate() error {
	n := p.NumCells
	if len(p.X) != n || len(p.Y) != n || len(p.Fixed) != n || len(p.Area) != n {
		return fmt.Errorf("%w: cells=%d x=%d y=%d fixed=%d area=%d",
			ErrSizeMismatch, n, len(p.X), len(p.Y), len(p.Fixed), len(p.Area))
	}
	if p.Connect != nil && len(p.Connect) != n {
		return fmt.Errorf("%w: connect=%d", ErrSizeMismatch, len(p.Connect))
	}
	for i, list := range p.Connect {
		for _, e := range list {
			if e.To < 0 || e.To >= n {
				return fmt.Errorf("%w: edge %d->%d", ErrCellIndex, i, e.To)
			}
		}
	}
	for gi, g := range p.COG {
		for _, c := range g.Cells {
			if c < 0 || c >= n {
				return fmt.Errorf("%w: group %d cell %d", ErrCellIndex, gi, c)
			}
		}
	}
	for li, l := range p.Loops {
		for _, c := range l.Cells {
			if c < 0 || c >= n {
				return fmt.Errorf("%w: loop %d cell %d", ErrCellIndex, li, c)
			}
		}
	}
	return nil
}

// splitSentinel cuts a -1 terminated list into groups. Every group must be
// terminated, including the last.
func splitSentinel(list []int) ([][]int, error) {
	var out [][]int
	start := 0
	for i, v := range list {
		if v == -1 {
			out = append(out, list[start:i])
			start = i + 1
		}
	}
	if start != len(list) {
		return nil, fmt.Errorf("%w: %d trailing entries", ErrMalformedList, len(list)-start)
	}
	return out, nil
}

// ParseConnect converts a flat adjacency encoding into per-cell edge lists.
// connect holds neighbour ids with -1 closing the current cell's list and
// advancing to the next cell; weights runs parallel to connect and its
// entries at terminator positions are ignored.
func ParseConnect(numCells int, connect []int, weights []float64) ([][]Edge, error) {
	if len(weights) != len(connect) {
		return nil, fmt.Errorf("%w: %d ids, %d weights", ErrMalformedList, len(connect), len(weights))
	}
	lists, err := splitSentinel(connect)
	if err != nil {
		return nil, err
	}
	if len(lists) != numCells {
		return nil, fmt.Errorf("%w: %d lists for %d cells", ErrMalformedList, len(lists), numCells)
	}
	out := make([][]Edge, numCells)
	pos := 0
	for c, ids := range lists {
		for _, id := range ids {
			out[c] = append(out[c], Edge{To: id, Weight: weights[pos]})
			pos++
		}
		pos++ // terminator
	}
	return out, nil
}

// ParseGroups converts a -1 terminated list of COG groups with parallel
// target coordinates into [Group] values.
func ParseGroups(list []int, x, y []float64) ([]Group, error) {
	lists, err := splitSentinel(list)
	if err != nil {
		return nil, err
	}
	if len(lists) != len(x) || len(lists) != len(y) {
		return nil, fmt.Errorf("%w: %d groups, %d targets", ErrMalformedList, len(lists), len(x))
	}
	out := make([]Group, len(lists))
	for i, cells := range lists {
		out[i] = Group{Cells: cells, X: x[i], Y: y[i]}
	}
	return out, nil
}

// ParseLoops converts a -1 terminated list of loops with parallel maxima
// into [Loop] values.
func ParseLoops(list []int, maxLen []float64) ([]Loop, error) {
	lists, err := splitSentinel(list)
	if err != nil {
		return nil, err
	}
	if len(lists) != len(maxLen) {
		return nil, fmt.Errorf("%w: %d loops, %d maxima", ErrMalformedList, len(lists), len(maxLen))
	}
	out := make([]Loop, len(lists))
	for i, cells := range lists {
		out[i] = Loop{Cells: cells, Max: maxLen[i]}
	}
	return out, nil
}
