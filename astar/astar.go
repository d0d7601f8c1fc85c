// Package astar implements the best-first search the router runs
// over a navmesh.Mesh, driving a tracer.Navcord one expansion at a
// time. Built on a container/heap min-heap with lazy decrease-key,
// generalized from a single scalar edge weight to a cost that depends
// on actually drawing the candidate geometry.
package astar

import (
	"container/heap"
	"errors"
	"math"

	"topola/core"
	"topola/draw"
	"topola/navmesh"
	"topola/tracer"
)

// ErrNoPath is returned by Step once the open set is exhausted without
// ever reaching the destination navvertex.
var ErrNoPath = errors.New("astar: no path to destination")

// Status is Step's report of progress, mirroring executor's
// Continue/Break contract at the granularity of one A*
// expansion.
type Status int

const (
	Continue Status = iota
	Break
)

// Result is what a successful search produces: the winning path's
// total cost, the navmesh hops that produced it, and the band
// terminating segment the navcord's finish() call committed.
type Result struct {
	Cost        float64
	Path        []tracer.PathStep
	BandTermseg core.SegIndex
}

// Ghost is a diagnostic record of a candidate step that failed to
// draw: the navmesh hop attempted, for display as a "ghost" of the
// shape that would have resulted.
type Ghost struct {
	Vertex int
	CW     bool
}

// Failure pairs a Ghost with the primitive it infringed, when known.
// Obstacle is the zero PrimIndex when the failure was CannotDraw
// (no tangent at all) rather than CannotWrap (infringement).
type Failure struct {
	Ghost    Ghost
	Obstacle core.PrimIndex
}

// item is one open-set entry: a candidate path ending at Vertex, with
// g the path cost accumulated so far (exact for already-validated
// prefixes; an estimate for the final hop until this item is popped
// and the tracer actually redraws it) and h the heuristic to the
// destination.
type item struct {
	vertex int
	path   []tracer.PathStep
	g      float64
	h      float64
}

func (it *item) f() float64 { return it.g + it.h }

type openPQ []*item

func (pq openPQ) Len() int { return len(pq) }

// Less orders by (f, h, vertex) ascending, so ties resolve the same
// way on every run.
func (pq openPQ) Less(i, j int) bool {
	fi, fj := pq[i].f(), pq[j].f()
	if fi != fj {
		return fi < fj
	}
	if pq[i].h != pq[j].h {
		return pq[i].h < pq[j].h
	}
	return pq[i].vertex < pq[j].vertex
}

func (pq openPQ) Swap(i, j int) { pq[i], pq[j] = pq[j], pq[i] }

func (pq *openPQ) Push(x interface{}) { *pq = append(*pq, x.(*item)) }

func (pq *openPQ) Pop() interface{} {
	old := *pq
	n := len(old)
	it := old[n-1]
	*pq = old[:n-1]
	return it
}

// bitset is a packed closed-set over navvertex indices.
type bitset []uint64

func newBitset(n int) bitset { return make(bitset, (n+63)/64) }

func (b bitset) set(i int)      { b[i/64] |= 1 << uint(i%64) }
func (b bitset) get(i int) bool { return b[i/64]&(1<<uint(i%64)) != 0 }

// bendSpanWeight scales the bend-span penalty in the cost function:
// cost(u,v) = euclidean(u,v) + bendSpanWeight*spanAngle(v). A router
// configured with a larger weight prefers fewer, wider detours over
// many tight ones.
const bendSpanWeight = 1.0

// Search is one ratline's A* run: the mesh it searches, the navcord it
// drives, and the open/closed/diagnostic state accumulated across
// Step calls.
type Search struct {
	g           *core.Graph
	mesh        *navmesh.Mesh
	nc          *tracer.Navcord
	destination core.DotIndex

	open     openPQ
	closed   bitset
	gScore   []float64
	failures []Failure

	result *Result
}

// NewSearch seeds a search at mesh's injected origin vertex, targeting
// mesh's injected destination vertex, which finish() will connect to
// destination (a physical dot already present in the graph).
func NewSearch(g *core.Graph, mesh *navmesh.Mesh, nc *tracer.Navcord, destination core.DotIndex) *Search {
	n := len(mesh.Vertices)
	s := &Search{
		g:           g,
		mesh:        mesh,
		nc:          nc,
		destination: destination,
		closed:      newBitset(n),
		gScore:      make([]float64, n),
	}
	for i := range s.gScore {
		s.gScore[i] = math.Inf(1)
	}
	s.gScore[mesh.OriginIndex] = 0
	heap.Push(&s.open, &item{vertex: mesh.OriginIndex, path: nil, g: 0, h: s.heuristic(mesh.OriginIndex)})
	return s
}

// Failures returns the ghost/obstacle diagnostics accumulated so far.
func (s *Search) Failures() []Failure { return s.failures }

func (s *Search) heuristic(v int) float64 {
	return s.mesh.VertexAt(v).Pos.Dist(s.mesh.VertexAt(s.mesh.DestIndex).Pos)
}

// Step performs one A* expansion: pop the best open-set entry, ask the
// navcord to rework to its path, and on success push its neighbors
// (or, if the vertex is the destination, attempt finish() and
// complete the search). On failure the attempt is recorded as a
// diagnostic and the loop continues with the next-best entry.
func (s *Search) Step() (Status, error) {
	if s.result != nil {
		return Break, nil
	}

	for s.open.Len() > 0 {
		it := heap.Pop(&s.open).(*item)
		if s.closed.get(it.vertex) {
			continue
		}

		// Reaching the destination navvertex never adds a wrap hop of
		// its own (the destination is not wraparoundable); it reuses
		// whatever path got it here and attempts finish() directly.
		if it.vertex == s.mesh.DestIndex {
			if err := s.nc.ReworkPath(it.path); err != nil {
				s.recordFailure(it, err)
				continue
			}
			seg, err := s.nc.Finish(s.destination)
			if err != nil {
				s.recordFailure(it, err)
				continue
			}
			s.closed.set(it.vertex)
			s.result = &Result{Cost: it.g, Path: it.path, BandTermseg: seg}
			return Break, nil
		}

		if err := s.nc.ReworkPath(it.path); err != nil {
			s.recordFailure(it, err)
			continue
		}
		s.closed.set(it.vertex)

		exactG := s.exactCost(it)
		s.gScore[it.vertex] = exactG

		for _, tr := range s.mesh.Neighbors(it.vertex) {
			if s.closed.get(tr.To) {
				continue
			}
			neighbor := s.mesh.VertexAt(tr.To)
			if neighbor.IsOrigin {
				continue // never worth revisiting the start
			}
			if neighbor.IsDest {
				// Finishing reuses it.path verbatim; no new hop. A
				// cheaper arrival at the destination can still fail to
				// actually finish() (clearance), and the destination
				// vertex is never marked closed on that failure — so
				// unlike every other vertex, gScore here must not gate
				// whether a candidate gets queued at all, only how it's
				// ordered: otherwise a cheap-but-infeasible attempt
				// would permanently starve a pricier, feasible one.
				estG := exactG + s.mesh.VertexAt(it.vertex).Pos.Dist(neighbor.Pos)
				if estG < s.gScore[tr.To] {
					s.gScore[tr.To] = estG
				}
				heap.Push(&s.open, &item{vertex: tr.To, path: it.path, g: estG, h: 0})
				continue
			}
			candidate := append(append([]tracer.PathStep{}, it.path...), tracer.PathStep{Vertex: tr.To, CW: tr.CW})
			estG := exactG + s.estimateHopCost(it.vertex, tr.To)
			// Unlike a plain shortest-path relaxation, cw and ccw reach
			// the same vertex at the same estimated cost but are not
			// interchangeable: only one side's wrap may actually clear
			// clearance. Pruning only a strictly greater estimate (">"
			// rather than Dijkstra's usual ">=") keeps both candidates
			// live until one of them is actually drawn and found to fail.
			if estG > s.gScore[tr.To] {
				continue
			}
			s.gScore[tr.To] = estG
			heap.Push(&s.open, &item{vertex: tr.To, path: candidate, g: estG, h: s.heuristic(tr.To)})
		}
		return Continue, nil
	}
	return Break, ErrNoPath
}

// estimateHopCost is the priority-ordering estimate used before a hop
// has actually been drawn: Euclidean distance plus a fixed bend-span
// estimate (draw.DefaultWrapAngle, the quantum every SegbendAround
// call wraps by).
func (s *Search) estimateHopCost(from, to int) float64 {
	dist := s.mesh.VertexAt(from).Pos.Dist(s.mesh.VertexAt(to).Pos)
	return dist + bendSpanWeight*draw.DefaultWrapAngle
}

// exactCost recomputes it's real cost once its path has actually been
// drawn: the Euclidean distance to its predecessor (exact either way)
// plus the bend span the navcord's head actually carries now, rather
// than the fixed estimate used when it was enqueued.
func (s *Search) exactCost(it *item) float64 {
	if len(it.path) == 0 {
		return 0
	}
	parent := s.mesh.OriginIndex
	if len(it.path) > 1 {
		parent = it.path[len(it.path)-2].Vertex
	}
	dist := s.mesh.VertexAt(parent).Pos.Dist(s.mesh.VertexAt(it.vertex).Pos)
	span := 0.0
	head := s.nc.Head()
	if head.HasBend {
		if arc, err := s.g.BendShape(head.Bend); err == nil {
			span = arc.SpanAngle()
		}
	}
	return s.gScore[parent] + dist + bendSpanWeight*span
}

// recordFailure logs a diagnostic for a candidate that failed to draw,
// whether the failure came from a wrap (tracer.CannotWrapError) or
// from the final finish_in_dot closing segment (a bare
// core.InfringementError, since Finish calls draw directly rather
// than going through the navcord's Step). An item with an empty path
// (the very first destination attempt, before any wrap) has no hop of
// its own to blame; its ghost names the destination vertex itself.
func (s *Search) recordFailure(it *item, err error) {
	ghost := Ghost{Vertex: it.vertex}
	if len(it.path) > 0 {
		last := it.path[len(it.path)-1]
		ghost = Ghost{Vertex: last.Vertex, CW: last.CW}
	}
	f := Failure{Ghost: ghost}

	var wrapErr *tracer.CannotWrapError
	var infErr *core.InfringementError
	switch {
	case errors.As(err, &wrapErr):
		f.Obstacle = wrapErr.Offender
	case errors.As(err, &infErr):
		f.Obstacle = infErr.Offender
	}
	s.failures = append(s.failures, f)
}

// Finish drives the search to completion, one Step at a time, and
// returns its Result once Break is reached.
func (s *Search) Finish() (Result, error) {
	for {
		status, err := s.Step()
		if err != nil {
			return Result{}, err
		}
		if status == Break {
			if s.result == nil {
				return Result{}, ErrNoPath
			}
			return *s.result, nil
		}
	}
}
