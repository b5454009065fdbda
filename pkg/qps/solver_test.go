package qps

import (
	"errors"
	"math"
	"testing"
)

func near(a, b, tol float64) bool { return math.Abs(a-b) <= tol }

// chain builds fixed(0) - 1 - ... - n - fixed(n+1) along the x axis.
func chain(n int, right float64) *Problem {
	total := n + 2
	p := &Problem{
		NumCells: total,
		Connect:  make([][]Edge, total),
		X:        make([]float64, total),
		Y:        make([]float64, total),
		Fixed:    make([]bool, total),
		Area:     make([]float64, total),
	}
	for i := range total {
		p.Area[i] = 1
		if i+1 < total {
			p.Connect[i] = append(p.Connect[i], Edge{To: i + 1, Weight: 1})
		}
	}
	p.Fixed[0], p.Fixed[total-1] = true, true
	p.X[total-1] = right
	for i := 1; i < total-1; i++ {
		p.X[i], p.Y[i] = 1, 7
	}
	return p
}

func TestSolveTwoPointEquilibrium(t *testing.T) {
	p := chain(1, 10)
	st, err := Solve(p, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if !st.Converged {
		t.Errorf("status = %+v, want converged", st)
	}
	if !near(p.X[1], 5, 1e-6) || !near(p.Y[1], 0, 1e-6) {
		t.Errorf("cell 1 at (%v, %v), want (5, 0)", p.X[1], p.Y[1])
	}
	if !near(st.Objective, 50, 1e-6) {
		t.Errorf("objective = %v, want 50", st.Objective)
	}
}

func TestSolveChainSpacing(t *testing.T) {
	p := chain(4, 10)
	if _, err := Solve(p, DefaultOptions()); err != nil {
		t.Fatal(err)
	}
	for i := 1; i <= 4; i++ {
		if want := float64(i) * 2; !near(p.X[i], want, 1e-3) {
			t.Errorf("x[%d] = %v, want %v", i, p.X[i], want)
		}
	}
}

func TestSolveKeepsFixedCells(t *testing.T) {
	p := chain(3, 12)
	p.Y[0], p.Y[4] = 3, -2
	if _, err := Solve(p, DefaultOptions()); err != nil {
		t.Fatal(err)
	}
	if p.X[0] != 0 || p.Y[0] != 3 || p.X[4] != 12 || p.Y[4] != -2 {
		t.Errorf("fixed cells moved: (%v,%v) (%v,%v)", p.X[0], p.Y[0], p.X[4], p.Y[4])
	}
}

func TestSolveWithoutPreconditioner(t *testing.T) {
	p := chain(3, 8)
	opts := DefaultOptions()
	opts.Precondition = false
	if _, err := Solve(p, opts); err != nil {
		t.Fatal(err)
	}
	for i := 1; i <= 3; i++ {
		if want := float64(i) * 2; !near(p.X[i], want, 1e-3) {
			t.Errorf("x[%d] = %v, want %v", i, p.X[i], want)
		}
	}
}

func TestSolveCOGCentroid(t *testing.T) {
	p := chain(3, 10)
	p.Area[1], p.Area[2], p.Area[3] = 1, 3, 2
	p.COG = []Group{{Cells: []int{1, 2, 3}, X: 2, Y: 4}}

	if _, err := Solve(p, DefaultOptions()); err != nil {
		t.Fatal(err)
	}
	var ax, ay, a float64
	for _, c := range []int{1, 2, 3} {
		ax += p.Area[c] * p.X[c]
		ay += p.Area[c] * p.Y[c]
		a += p.Area[c]
	}
	if !near(ax/a, 2, 1e-9) || !near(ay/a, 4, 1e-9) {
		t.Errorf("centroid = (%v, %v), want (2, 4)", ax/a, ay/a)
	}
}

func TestSolveCOGWithFixedMember(t *testing.T) {
	p := chain(2, 10)
	p.COG = []Group{{Cells: []int{0, 1, 2}, X: 1, Y: 0}}
	if _, err := Solve(p, DefaultOptions()); err != nil {
		t.Fatal(err)
	}
	if p.X[0] != 0 {
		t.Fatal("fixed group member moved")
	}
	if got := (p.X[0] + p.X[1] + p.X[2]) / 3; !near(got, 1, 1e-9) {
		t.Errorf("centroid x = %v, want 1", got)
	}
}

func TestSolveDropsAllFixedGroup(t *testing.T) {
	p := chain(1, 10)
	p.COG = []Group{{Cells: []int{0, 2}, X: 3, Y: 3}}
	st, err := Solve(p, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if st.DroppedCOG != 1 {
		t.Errorf("DroppedCOG = %d, want 1", st.DroppedCOG)
	}
	if !near(p.X[1], 5, 1e-6) {
		t.Errorf("x[1] = %v, want 5", p.X[1])
	}
}

func TestSolveOverlappingCOG(t *testing.T) {
	p := chain(3, 10)
	p.COG = []Group{
		{Cells: []int{1, 2}, X: 1, Y: 1},
		{Cells: []int{2, 3}, X: 1, Y: 1},
	}
	if _, err := Solve(p, DefaultOptions()); !errors.Is(err, ErrOverlappingCOG) {
		t.Errorf("err = %v, want ErrOverlappingCOG", err)
	}
}

func TestSolveLoopConstraint(t *testing.T) {
	// Unconstrained spacing is 10/3, a loop length of 22.2; Max 8 binds and
	// pulls the pair to a spacing of 2 with multiplier 0.5.
	p := chain(2, 10)
	p.Loops = []Loop{{Cells: []int{1, 2}, Max: 8}}
	p.LoopPenalty = 10

	opts := DefaultOptions()
	s, st, err := newState(p, opts)
	if err != nil {
		t.Fatal(err)
	}
	v := s.initial()
	s.run(v, &st)
	s.expand(v)

	if !st.Converged {
		t.Errorf("status = %+v, want converged", st)
	}
	if st.OuterIterations < 2 {
		t.Errorf("OuterIterations = %d, want multiplier updates", st.OuterIterations)
	}
	if s.lambda[0] <= 0 {
		t.Errorf("lambda = %v, want positive", s.lambda[0])
	}
	if !near(s.lambda[0], 0.5, 0.05) {
		t.Errorf("lambda = %v, want about 0.5", s.lambda[0])
	}
	if l := s.loopLength(p.Loops[0]); l > 8*(1+opts.LoopTol) {
		t.Errorf("loop length = %v, want <= %v", l, 8*(1+opts.LoopTol))
	}
	if dx := s.px[2] - s.px[1]; !near(dx, 2, 0.01) {
		t.Errorf("spacing = %v, want 2", dx)
	}
}

func TestSolveLoopConstraintThroughSolve(t *testing.T) {
	p := chain(2, 10)
	p.Loops = []Loop{{Cells: []int{1, 2}, Max: 8}}
	p.LoopPenalty = 1

	st, err := Solve(p, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if !st.Converged || st.InnerTruncated {
		t.Errorf("status = %+v, want converged", st)
	}
	dx := p.X[2] - p.X[1]
	if l := 2 * dx * dx; l > 8*(1+DefaultLoopTol) {
		t.Errorf("loop length = %v, want <= 8", l)
	}
	if !near(p.X[1]+p.X[2], 10, 1e-2) {
		t.Errorf("pair not centered: x = %v, %v", p.X[1], p.X[2])
	}
}

func TestCGConvergesOnSmallQuadratic(t *testing.T) {
	for _, precondition := range []bool{true, false} {
		p := chain(2, 10)
		opts := DefaultOptions()
		opts.Precondition = precondition
		opts.setDefaults()

		s, _, err := newState(p, opts)
		if err != nil {
			t.Fatal(err)
		}
		v := s.initial()
		it, truncated := s.cg(v)
		if truncated {
			t.Fatalf("precondition=%v: cg truncated", precondition)
		}
		if it > len(v) {
			t.Errorf("precondition=%v: %d iterations, want <= %d", precondition, it, len(v))
		}
		s.expand(v)
		if !near(s.px[1], 10.0/3, 1e-6) || !near(s.px[2], 20.0/3, 1e-6) {
			t.Errorf("precondition=%v: x = %v, %v", precondition, s.px[1], s.px[2])
		}
		if !near(s.py[1], 0, 1e-6) || !near(s.py[2], 0, 1e-6) {
			t.Errorf("precondition=%v: y = %v, %v", precondition, s.py[1], s.py[2])
		}

		st, err := Solve(chain(2, 10), opts)
		if err != nil {
			t.Fatal(err)
		}
		if !st.Converged || st.InnerIterations > len(v) {
			t.Errorf("precondition=%v: status = %+v", precondition, st)
		}
	}
}

func TestSolveBoundingBox(t *testing.T) {
	p := &Problem{
		NumCells:  2,
		Connect:   [][]Edge{{{To: 1, Weight: 1}}, nil},
		X:         []float64{5, 20},
		Y:         []float64{5, 5},
		Fixed:     []bool{false, true},
		Area:      []float64{1, 1},
		MaxEnable: true,
		MaxX:      10,
		MaxY:      10,
	}
	st, err := Solve(p, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if !st.Converged {
		t.Errorf("status = %+v, want converged", st)
	}
	if p.X[0] > 10+DefaultMaxTol+1e-6 || p.X[0] < 9 {
		t.Errorf("x = %v, want clamped near 10", p.X[0])
	}
	if !near(p.Y[0], 5, 1e-3) {
		t.Errorf("y = %v, want 5", p.Y[0])
	}
}

func TestSolveSizeMismatch(t *testing.T) {
	p := chain(1, 10)
	p.Area = p.Area[:2]
	if _, err := Solve(p, Options{}); !errors.Is(err, ErrSizeMismatch) {
		t.Errorf("err = %v, want ErrSizeMismatch", err)
	}
	p = chain(1, 10)
	p.Connect[1] = append(p.Connect[1], Edge{To: 9, Weight: 1})
	if _, err := Solve(p, Options{}); !errors.Is(err, ErrCellIndex) {
		t.Errorf("err = %v, want ErrCellIndex", err)
	}
}

func TestCanonicalEdges(t *testing.T) {
	p := &Problem{
		NumCells: 3,
		Connect: [][]Edge{
			{{To: 1, Weight: 2}, {To: 1, Weight: 1}},
			{{To: 0, Weight: 9}, {To: 2, Weight: 4}, {To: 1, Weight: 5}},
			{{To: 0, Weight: 0}},
		},
		Fixed: []bool{false, false, false},
	}
	got := canonicalEdges(p)
	want := []edge{{0, 1, 3}, {1, 2, 4}}
	if len(got) != len(want) {
		t.Fatalf("edges = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("edge[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestParseConnect(t *testing.T) {
	conn, err := ParseConnect(3,
		[]int{1, 2, -1, -1, 0, -1},
		[]float64{1, 2, 0, 0, 3, 0})
	if err != nil {
		t.Fatal(err)
	}
	if len(conn[0]) != 2 || conn[0][1] != (Edge{To: 2, Weight: 2}) {
		t.Errorf("conn[0] = %v", conn[0])
	}
	if len(conn[1]) != 0 {
		t.Errorf("conn[1] = %v, want empty", conn[1])
	}
	if conn[2][0] != (Edge{To: 0, Weight: 3}) {
		t.Errorf("conn[2] = %v", conn[2])
	}

	tests := []struct {
		name    string
		n       int
		connect []int
		weights []float64
	}{
		{"unterminated", 1, []int{1}, []float64{1}},
		{"weight length", 1, []int{-1}, nil},
		{"cell count", 2, []int{-1}, []float64{0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseConnect(tt.n, tt.connect, tt.weights); !errors.Is(err, ErrMalformedList) {
				t.Errorf("err = %v, want ErrMalformedList", err)
			}
		})
	}
}

func TestParseGroupsAndLoops(t *testing.T) {
	groups, err := ParseGroups([]int{0, 1, -1, 2, -1}, []float64{1, 2}, []float64{3, 4})
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 2 || len(groups[0].Cells) != 2 || groups[1].X != 2 || groups[1].Y != 4 {
		t.Errorf("groups = %+v", groups)
	}
	if _, err := ParseGroups([]int{0, -1}, nil, nil); !errors.Is(err, ErrMalformedList) {
		t.Errorf("err = %v, want ErrMalformedList", err)
	}

	loops, err := ParseLoops([]int{3, 4, 5, -1}, []float64{12})
	if err != nil {
		t.Fatal(err)
	}
	if len(loops) != 1 || len(loops[0].Cells) != 3 || loops[0].Max != 12 {
		t.Errorf("loops = %+v", loops)
	}
	if _, err := ParseLoops([]int{3, 4}, []float64{1}); !errors.Is(err, ErrMalformedList) {
		t.Errorf("err = %v, want ErrMalformedList", err)
	}
}
