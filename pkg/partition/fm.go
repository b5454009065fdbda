package partition

import (
	"container/heap"
	"math/rand/v2"
)

// Default FM parameters.
const (
	DefaultFMPasses = 10
	DefaultFMSeed   = 12261980
)

// FMBisector refines a bisection with Fiduccia-Mattheyses passes.
//
// Each pass tentatively moves every free vertex once, highest gain first,
// skipping moves that would break the balance window, and then rolls back
// to the prefix with the best cumulative gain. Passes stop when a pass
// yields no improvement. Ties are broken by a seeded permutation so results
// are reproducible.
type FMBisector struct {
	Passes int    // 0 selects DefaultFMPasses
	Seed   uint64 // 0 selects DefaultFMSeed
}

type fmEntry struct {
	v       int
	gain    float64
	rank    int
	version int
}

type fmHeap []fmEntry

func (h fmHeap) Len() int { return len(h) }
func (h fmHeap) Less(i, j int) bool {
	if h[i].gain != h[j].gain {
		return h[i].gain > h[j].gain
	}
	return h[i].rank < h[j].rank
}
func (h fmHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *fmHeap) Push(x any)   { *h = append(*h, x.(fmEntry)) }
func (h *fmHeap) Pop() any {
	old := *h
	e := old[len(old)-1]
	*h = old[:len(old)-1]
	return e
}

type fmState struct {
	h       *Hypergraph
	part    []int
	cnt     [][2]int // per edge: pins on each side
	inc     [][]int  // per vertex: incident edges
	weight  [2]float64
	lo, hi  float64 // window for weight[0]
	center  float64
	locked  []bool
	version []int
	rank    []int
}

// Bisect runs FM passes over the free vertices of h.
func (f FMBisector) Bisect(h *Hypergraph, part []int, free []bool, ubfactor int) ([]int, float64, error) {
	if err := checkInput(h, part, free); err != nil {
		return nil, 0, err
	}
	passes := f.Passes
	if passes <= 0 {
		passes = DefaultFMPasses
	}
	seed := f.Seed
	if seed == 0 {
		seed = DefaultFMSeed
	}

	n := h.NumVertices()
	s := &fmState{
		h:       h,
		part:    append([]int(nil), part...),
		cnt:     make([][2]int, h.NumEdges()),
		inc:     make([][]int, n),
		locked:  make([]bool, n),
		version: make([]int, n),
		rank:    make([]int, n),
	}
	total := 0.0
	for v, w := range h.VertexWeights {
		s.weight[s.part[v]] += w
		total += w
	}
	ub := float64(min(max(ubfactor, 0), 50)) / 100
	s.lo, s.hi = total*(0.5-ub), total*(0.5+ub)
	s.center = total / 2
	for e := range h.NumEdges() {
		for _, v := range h.Pins(e) {
			s.inc[v] = append(s.inc[v], e)
		}
	}

	var cand []int
	for v := range n {
		if free[v] {
			cand = append(cand, v)
		}
	}
	rng := rand.New(rand.NewPCG(seed, seed))
	rng.Shuffle(len(cand), func(i, j int) { cand[i], cand[j] = cand[j], cand[i] })
	for r, v := range cand {
		s.rank[v] = r
	}

	for range passes {
		if s.pass(cand) <= 0 {
			break
		}
	}
	return s.part, h.Cut(s.part), nil
}

func (s *fmState) countPins() {
	for e := range s.cnt {
		s.cnt[e] = [2]int{}
		for _, v := range s.h.Pins(e) {
			s.cnt[e][s.part[v]]++
		}
	}
}

// gain is the cut reduction from moving v to the other side.
func (s *fmState) gain(v int) float64 {
	from := s.part[v]
	g := 0.0
	for _, e := range s.inc[v] {
		w := s.h.EdgeWeight(e)
		if s.cnt[e][from] == 1 && s.cnt[e][1-from] > 0 {
			g += w
		}
		if s.cnt[e][1-from] == 0 && s.cnt[e][from] > 1 {
			g -= w
		}
	}
	return g
}

func (s *fmState) balanced(v int) bool {
	w := s.h.VertexWeights[v]
	w0 := s.weight[0]
	if s.part[v] == 0 {
		w0 -= w
	} else {
		w0 += w
	}
	if w0 >= s.lo && w0 <= s.hi {
		return true
	}
	cur := s.weight[0] - s.center
	next := w0 - s.center
	return next*next < cur*cur
}

func (s *fmState) move(v int) {
	from := s.part[v]
	to := 1 - from
	w := s.h.VertexWeights[v]
	s.weight[from] -= w
	s.weight[to] += w
	s.part[v] = to
	for _, e := range s.inc[v] {
		s.cnt[e][from]--
		s.cnt[e][to]++
	}
}

// pass runs one FM pass and returns the cut improvement it kept.
func (s *fmState) pass(cand []int) float64 {
	s.countPins()
	clear(s.locked)
	pq := &fmHeap{}
	for _, v := range cand {
		s.version[v]++
		*pq = append(*pq, fmEntry{v: v, gain: s.gain(v), rank: s.rank[v], version: s.version[v]})
	}
	heap.Init(pq)

	var moves []int
	var blocked []fmEntry
	sum, best, bestLen := 0.0, 0.0, 0
	for pq.Len() > 0 {
		e := heap.Pop(pq).(fmEntry)
		if s.locked[e.v] || e.version != s.version[e.v] {
			continue
		}
		if !s.balanced(e.v) {
			blocked = append(blocked, e)
			continue
		}
		s.move(e.v)
		s.locked[e.v] = true
		moves = append(moves, e.v)
		sum += e.gain
		if sum > best {
			best, bestLen = sum, len(moves)
		}

		for _, edge := range s.inc[e.v] {
			for _, u := range s.h.Pins(edge) {
				if s.locked[u] || s.version[u] == 0 {
					continue
				}
				s.version[u]++
				heap.Push(pq, fmEntry{v: u, gain: s.gain(u), rank: s.rank[u], version: s.version[u]})
			}
		}
		for _, b := range blocked {
			if !s.locked[b.v] && b.version == s.version[b.v] {
				heap.Push(pq, b)
			}
		}
		blocked = blocked[:0]
	}

	for i := len(moves) - 1; i >= bestLen; i-- {
		s.move(moves[i])
	}
	return best
}
