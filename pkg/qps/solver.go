package qps

import (
	"cmp"
	"math"
	"slices"
)

// Status reports how a solve ended.
type Status struct {
	// Converged is true when the final CG run met its tolerance and every
	// loop and bounding-box constraint passed the slackness check.
	Converged bool

	InnerIterations int // CG iterations summed over all outer iterations
	OuterIterations int

	// LoopFailed is set when the outer loop stopped on MaxIter or MinStep.
	LoopFailed bool

	// InnerTruncated is set when the last CG run hit its iteration cap.
	InnerTruncated bool

	// Objective is the weighted squared wirelength at the returned positions.
	Objective float64

	// DroppedCOG counts groups without a positive-area movable member.
	DroppedCOG int
}

type edge struct {
	i, j int
	w    float64
}

type cogGroup struct {
	dep     int
	depArea float64
	total   float64
	x, y    float64
	members []int // every member except dep, fixed ones included
}

// state is the private workspace of one solve.
type state struct {
	p    *Problem
	opts Options

	vars    []int // variable index -> cell
	groupOf []int // movable cell -> index in groups, or -1
	groups  []cogGroup
	edges   []edge

	px, py []float64
	gx, gy []float64

	loops  []Loop
	lambda []float64
	rho    float64

	bounded bool
	mu      [][4]float64 // per cell: x low, x high, y low, y high
	rhoB    float64

	diag []float64
}

// Solve minimizes the quadratic wirelength of p and writes the solved
// positions of all movable cells back into p.X and p.Y.
//
// Non-convergence is not an error: the best iterate is kept and reported
// through [Status]. Errors are returned only for structurally invalid input.
func Solve(p *Problem, opts Options) (Status, error) {
	opts.setDefaults()
	if err := p.validate(); err != nil {
		return Status{}, err
	}
	s, st, err := newState(p, opts)
	if err != nil {
		return Status{}, err
	}
	v := s.initial()
	s.run(v, &st)
	s.expand(v)
	for c := range p.NumCells {
		if !p.Fixed[c] {
			p.X[c], p.Y[c] = s.px[c], s.py[c]
		}
	}
	st.Objective = s.quadratic()
	if !st.Converged {
		opts.Logger.Warn("quadratic solve did not converge",
			"outer", st.OuterIterations, "inner", st.InnerIterations,
			"loopFailed", st.LoopFailed, "truncated", st.InnerTruncated)
	}
	return st, nil
}

func newState(p *Problem, opts Options) (*state, Status, error) {
	n := p.NumCells
	s := &state{
		p:       p,
		opts:    opts,
		groupOf: make([]int, n),
		px:      slices.Clone(p.X),
		py:      slices.Clone(p.Y),
		gx:      make([]float64, n),
		gy:      make([]float64, n),
		rho:     p.LoopPenalty,
		bounded: p.MaxEnable,
		rhoB:    opts.BoundPenalty,
	}
	if s.rho <= 0 {
		s.rho = 1
	}
	var st Status
	for i := range s.groupOf {
		s.groupOf[i] = -1
	}

	for _, g := range p.COG {
		dep, best := -1, 0.0
		for _, c := range g.Cells {
			if p.Fixed[c] {
				continue
			}
			if s.groupOf[c] >= 0 {
				return nil, st, ErrOverlappingCOG
			}
			if p.Area[c] > best {
				dep, best = c, p.Area[c]
			}
		}
		if dep < 0 {
			st.DroppedCOG++
			continue
		}
		cg := cogGroup{dep: dep, depArea: best, x: g.X, y: g.Y}
		for _, c := range g.Cells {
			cg.total += p.Area[c]
			if c != dep {
				cg.members = append(cg.members, c)
			}
		}
		idx := len(s.groups)
		for _, c := range g.Cells {
			if !p.Fixed[c] {
				s.groupOf[c] = idx
			}
		}
		s.groups = append(s.groups, cg)
	}

	for c := range n {
		if p.Fixed[c] {
			continue
		}
		if gi := s.groupOf[c]; gi >= 0 && s.groups[gi].dep == c {
			continue
		}
		s.vars = append(s.vars, c)
	}

	s.edges = canonicalEdges(p)

	for _, l := range p.Loops {
		if len(l.Cells) >= 2 {
			s.loops = append(s.loops, l)
		}
	}
	s.lambda = make([]float64, len(s.loops))
	if s.bounded {
		s.mu = make([][4]float64, n)
	}
	return s, st, nil
}

// canonicalEdges merges the adjacency lists into one upper-triangular edge
// per connected pair. When both endpoints list the pair, the weight from the
// lower-indexed cell wins; repeated entries within one list accumulate.
// Edges between two fixed cells are constant and dropped.
func canonicalEdges(p *Problem) []edge {
	type key struct{ i, j int }
	lower := map[key]float64{}
	upper := map[key]float64{}
	for i, list := range p.Connect {
		for _, e := range list {
			j := e.To
			if j == i || e.Weight == 0 {
				continue
			}
			if i < j {
				lower[key{i, j}] += e.Weight
			} else {
				upper[key{j, i}] += e.Weight
			}
		}
	}
	for k, w := range upper {
		if _, ok := lower[k]; !ok {
			lower[k] = w
		}
	}
	out := make([]edge, 0, len(lower))
	for k, w := range lower {
		if p.Fixed[k.i] && p.Fixed[k.j] {
			continue
		}
		out = append(out, edge{i: k.i, j: k.j, w: w})
	}
	slices.SortFunc(out, func(a, b edge) int {
		if c := cmp.Compare(a.i, b.i); c != 0 {
			return c
		}
		return cmp.Compare(a.j, b.j)
	})
	return out
}

// initial packs the independent variables as [x0..xn, y0..yn].
func (s *state) initial() []float64 {
	nv := len(s.vars)
	v := make([]float64, 2*nv)
	for k, c := range s.vars {
		v[k], v[nv+k] = s.p.X[c], s.p.Y[c]
	}
	return v
}

// expand writes the positions implied by v into px/py, including the
// eliminated COG-dependent cells.
func (s *state) expand(v []float64) {
	nv := len(s.vars)
	for k, c := range s.vars {
		s.px[c], s.py[c] = v[k], v[nv+k]
	}
	for _, g := range s.groups {
		sx, sy := g.total*g.x, g.total*g.y
		for _, m := range g.members {
			a := s.p.Area[m]
			sx -= a * s.px[m]
			sy -= a * s.py[m]
		}
		s.px[g.dep], s.py[g.dep] = sx/g.depArea, sy/g.depArea
	}
}

func (s *state) quadratic() float64 {
	f := 0.0
	for _, e := range s.edges {
		dx, dy := s.px[e.i]-s.px[e.j], s.py[e.i]-s.py[e.j]
		f += e.w * (dx*dx + dy*dy)
	}
	return f
}

func (s *state) loopLength(l Loop) float64 {
	sum := 0.0
	for i, a := range l.Cells {
		b := l.Cells[(i+1)%len(l.Cells)]
		dx, dy := s.px[a]-s.px[b], s.py[a]-s.py[b]
		sum += dx*dx + dy*dy
	}
	return sum
}

// boundSlack returns the four bounding-box constraint values g <= 0 for cell c.
func (s *state) boundSlack(c int) [4]float64 {
	return [4]float64{-s.px[c], s.px[c] - s.p.MaxX, -s.py[c], s.py[c] - s.p.MaxY}
}

// eval returns the penalized objective at v. When grad is non-nil it
// receives the gradient with respect to the independent variables.
func (s *state) eval(v, grad []float64) float64 {
	s.expand(v)
	clear(s.gx)
	clear(s.gy)

	f := 0.0
	for _, e := range s.edges {
		dx, dy := s.px[e.i]-s.px[e.j], s.py[e.i]-s.py[e.j]
		f += e.w * (dx*dx + dy*dy)
		s.gx[e.i] += 2 * e.w * dx
		s.gx[e.j] -= 2 * e.w * dx
		s.gy[e.i] += 2 * e.w * dy
		s.gy[e.j] -= 2 * e.w * dy
	}

	for li, l := range s.loops {
		t := s.loopLength(l) - l.Max + s.lambda[li]/s.rho
		if t <= 0 {
			continue
		}
		f += 0.5 * s.rho * t * t
		coef := 2 * s.rho * t
		for i, a := range l.Cells {
			b := l.Cells[(i+1)%len(l.Cells)]
			dx, dy := s.px[a]-s.px[b], s.py[a]-s.py[b]
			s.gx[a] += coef * dx
			s.gx[b] -= coef * dx
			s.gy[a] += coef * dy
			s.gy[b] -= coef * dy
		}
	}

	if s.bounded {
		sign := [4]float64{-1, 1, -1, 1}
		for c := range s.p.NumCells {
			if s.p.Fixed[c] {
				continue
			}
			g := s.boundSlack(c)
			for k := range 4 {
				t := g[k] + s.mu[c][k]/s.rhoB
				if t <= 0 {
					continue
				}
				f += 0.5 * s.rhoB * t * t
				if k < 2 {
					s.gx[c] += s.rhoB * t * sign[k]
				} else {
					s.gy[c] += s.rhoB * t * sign[k]
				}
			}
		}
	}

	if grad != nil {
		nv := len(s.vars)
		for k, c := range s.vars {
			gx, gy := s.gx[c], s.gy[c]
			if gi := s.groupOf[c]; gi >= 0 {
				g := s.groups[gi]
				r := s.p.Area[c] / g.depArea
				gx -= r * s.gx[g.dep]
				gy -= r * s.gy[g.dep]
			}
			grad[k], grad[nv+k] = gx, gy
		}
	}
	return f
}

// buildPrecon computes the Jacobi preconditioner from summed edge weights
// and the currently active penalty terms.
func (s *state) buildPrecon() {
	nv := len(s.vars)
	if len(s.diag) != 2*nv {
		s.diag = make([]float64, 2*nv)
	}
	if !s.opts.Precondition {
		for i := range s.diag {
			s.diag[i] = 1
		}
		return
	}
	dc := make([]float64, s.p.NumCells)
	for _, e := range s.edges {
		dc[e.i] += 2 * e.w
		dc[e.j] += 2 * e.w
	}
	for li, l := range s.loops {
		w := 4 * (s.rho + s.lambda[li])
		for _, c := range l.Cells {
			dc[c] += w
		}
	}
	if s.bounded {
		for c := range dc {
			dc[c] += s.rhoB
		}
	}
	for k, c := range s.vars {
		d := dc[c]
		if gi := s.groupOf[c]; gi >= 0 {
			g := s.groups[gi]
			r := s.p.Area[c] / g.depArea
			d += r * r * dc[g.dep]
		}
		d += s.opts.PreconEps
		s.diag[k], s.diag[nv+k] = d, d
	}
}

func dot(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// Line search limits: evaluations per CG step, and the fraction of the
// initial directional derivative that counts as a minimum along d.
const (
	lineSearchEvals = 30
	lineSearchCurv  = 1e-2
)

// lineSearch returns a step along the descent direction d at which the
// directional derivative has shrunk to lineSearchCurv of gd. The objective is
// convex along d, so the derivative is nondecreasing; secant steps make the
// search exact for a quadratic after one trial step.
func (s *state) lineSearch(v, d []float64, gd float64, trial, gt []float64) float64 {
	slope := func(a float64) float64 {
		for i := range trial {
			trial[i] = v[i] + a*d[i]
		}
		s.eval(trial, gt)
		return dot(gt, d)
	}

	lo, dlo := 0.0, gd
	hi, dhi := math.Inf(1), 0.0
	a0, d0 := 0.0, gd
	a := 1.0
	side := 0
	for range lineSearchEvals {
		da := slope(a)
		if math.Abs(da) <= -lineSearchCurv*gd {
			return a
		}

		var next float64
		if da < 0 {
			lo, dlo = a, da
			if math.IsInf(hi, 1) {
				next = 2 * a
				if da > d0 {
					next = min(a-da*(a-a0)/(da-d0), 16*a)
				}
				a0, d0 = a, da
				a = next
				continue
			}
			side--
		} else {
			hi, dhi = a, da
			side++
		}
		a0, d0 = a, da

		// Regula falsi on the bracket, bisecting when one end keeps moving.
		if side <= -2 || side >= 2 {
			next = 0.5 * (lo + hi)
			side = 0
		} else {
			next = lo - dlo*(hi-lo)/(dhi-dlo)
		}
		if !(next > lo && next < hi) {
			next = 0.5 * (lo + hi)
		}
		a = next
	}
	if lo > 0 {
		return lo
	}
	return a
}

// cg runs preconditioned Polak-Ribière conjugate gradient from v in place.
// It returns the iteration count and whether the iteration cap was hit.
func (s *state) cg(v []float64) (int, bool) {
	m := len(v)
	if m == 0 {
		return 0, false
	}
	s.buildPrecon()

	g := make([]float64, m)
	gNew := make([]float64, m)
	z := make([]float64, m)
	zNew := make([]float64, m)
	d := make([]float64, m)
	trial := make([]float64, m)

	precon := func(g, z []float64) {
		for i := range g {
			z[i] = g[i] / s.diag[i]
		}
	}

	f := s.eval(v, g)
	precon(g, z)
	for i := range d {
		d[i] = -z[i]
	}
	g0 := dot(g, g)
	if g0 == 0 {
		return 0, false
	}

	eps := s.opts.Tol * s.opts.Tol
	maxIter := max(2*m, 50)
	for it := 1; it <= maxIter; it++ {
		gd := dot(g, d)
		if gd >= 0 {
			for i := range d {
				d[i] = -z[i]
			}
			if gd = dot(g, d); gd >= 0 {
				return it, false
			}
		}

		alpha := s.lineSearch(v, d, gd, trial, gNew)
		step := func(alpha float64) float64 {
			for i := range trial {
				trial[i] = v[i] + alpha*d[i]
			}
			return s.eval(trial, nil)
		}
		fNew := step(alpha)
		for r := 0; fNew > f && r < s.opts.StepRetries; r++ {
			alpha *= 0.5
			fNew = step(alpha)
		}
		if fNew > f {
			return it, false
		}
		copy(v, trial)

		s.eval(v, gNew)
		precon(gNew, zNew)
		beta := 0.0
		if rz := dot(g, z); rz > 0 && it%m != 0 {
			beta = max(0, (dot(gNew, zNew)-dot(gNew, z))/rz)
		}
		for i := range d {
			d[i] = -zNew[i] + beta*d[i]
		}
		g, gNew = gNew, g
		z, zNew = zNew, z

		rel := math.Abs(f-fNew) / math.Max(math.Abs(f), 1e-300)
		f = fNew
		if rel < eps || dot(g, g) <= eps*eps*g0 {
			return it, false
		}
	}
	return maxIter, true
}

// violation measures the total constraint violation and reports whether
// each constraint class passes its complementary-slackness check.
func (s *state) violation() (total float64, loopDone, maxDone bool) {
	loopDone, maxDone = true, true
	for li, l := range s.loops {
		scale := math.Max(l.Max, 1)
		c := s.loopLength(l) - l.Max
		total += max(0, c) / scale
		tol := s.opts.LoopTol * scale
		if c > tol || (s.lambda[li] > s.opts.LoopTol && c < -tol) {
			loopDone = false
		}
	}
	if s.bounded {
		for c := range s.p.NumCells {
			if s.p.Fixed[c] {
				continue
			}
			g := s.boundSlack(c)
			for k := range 4 {
				total += max(0, g[k])
				if g[k] > s.opts.MaxTol || (s.mu[c][k] > s.opts.MaxTol && g[k] < -s.opts.MaxTol) {
					maxDone = false
				}
			}
		}
	}
	return total, loopDone, maxDone
}

func (s *state) updateMultipliers(eps float64) {
	for li, l := range s.loops {
		c := s.loopLength(l) - l.Max
		s.lambda[li] = max(0, s.lambda[li]+eps*s.rho*c)
	}
	if s.bounded {
		for c := range s.p.NumCells {
			if s.p.Fixed[c] {
				continue
			}
			g := s.boundSlack(c)
			for k := range 4 {
				s.mu[c][k] = max(0, s.mu[c][k]+eps*s.rhoB*g[k])
			}
		}
	}
}

func (s *state) run(v []float64, st *Status) {
	if len(s.loops) == 0 && !s.bounded {
		it, truncated := s.cg(v)
		st.InnerIterations = it
		st.InnerTruncated = truncated
		st.Converged = !truncated
		return
	}

	eps := 1.0
	prev := math.Inf(1)
	stalls := 0
	for k := 0; ; k++ {
		it, truncated := s.cg(v)
		st.InnerIterations += it
		st.InnerTruncated = truncated
		st.OuterIterations = k + 1

		s.expand(v)
		viol, loopDone, maxDone := s.violation()
		s.opts.Logger.Debug("qps outer iteration", "k", k, "violation", viol, "eps", eps)
		if loopDone && maxDone {
			st.Converged = !truncated
			return
		}
		if k+1 >= s.opts.MaxIter {
			st.LoopFailed = true
			return
		}

		if viol > (1-s.opts.DecChange)*prev {
			stalls++
		} else {
			stalls = 0
		}
		if k >= s.opts.RelaxIter || stalls >= 2 {
			eps *= 0.5
			stalls = 0
		}
		if eps < s.opts.MinStep {
			st.LoopFailed = true
			return
		}
		prev = viol
		s.updateMultipliers(eps)
	}
}
