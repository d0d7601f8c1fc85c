// Package navmesh builds the per-ratline vertex graph the tracer and
// astar search over: a Delaunay triangulation of every wraparoundable
// primitive's apex point (plus the injected origin and destination),
// with each triangulation edge exposed as up to two directed,
// side-tagged navmesh transitions.
//
// The triangulation itself is hand-rolled incremental Bowyer–Watson
// over geom.Point.
package navmesh

import (
	"errors"
	"math"
	"sort"

	"topola/core"
	"topola/geom"
)

// ErrDisconnected indicates the built mesh does not connect origin to
// destination within the working envelope.
var ErrDisconnected = errors.New("navmesh: origin and destination are not connected")

// coincidentEpsilon is the tolerance for treating a candidate
// primitive's apex as "the same point" as the injected origin or
// destination.
const coincidentEpsilon = 1e-6

// Vertex is one navmesh node: either a wraparoundable primitive (a
// fixed dot, a fixed bend, or a loose bend) or the injected origin or
// destination point.
type Vertex struct {
	Prim     core.PrimIndex // zero value (KindDot, slot 0, gen 0) for Origin/Destination
	Pos      geom.Point
	IsOrigin bool
	IsDest   bool
}

// Transition is one directed hop out of a vertex: go to To, wrapping
// it on the given side. Each undirected triangulation edge yields up
// to two transitions per direction (cw and ccw), so a vertex may carry
// two Transitions with the same To and opposite CW.
type Transition struct {
	To int
	CW bool
}

// Mesh is the built navmesh for one ratline: a vertex list plus an
// adjacency list of Transitions, indexed by position in Vertices.
type Mesh struct {
	Vertices []Vertex
	adj      [][]Transition

	OriginIndex int
	DestIndex   int
}

// Neighbors returns the directed transitions leaving vertex v.
func (m *Mesh) Neighbors(v int) []Transition {
	return m.adj[v]
}

// VertexAt returns the vertex at index v.
func (m *Mesh) VertexAt(v int) Vertex {
	return m.Vertices[v]
}

// Build collects every wraparoundable primitive whose bounds intersect
// envelope on layer, injects origin and destination as extra vertices,
// triangulates the whole point set, and derives the navmesh edges from
// the triangulation. Returns ErrDisconnected if origin
// and destination land in different connected components — this can
// happen only if envelope itself is too small to bridge them, since
// Delaunay triangulation of a point set is always connected.
func Build(g *core.Graph, envelope geom.AABB, layer int, origin, destination geom.Point) (*Mesh, error) {
	candidates := g.SpatialQuery(envelope)

	vertices := make([]Vertex, 0, len(candidates)+2)
	for _, p := range candidates {
		ok, err := g.IsWraparoundable(p)
		if err != nil || !ok {
			continue
		}
		primLayer, err := g.Layer(p)
		if err != nil || primLayer != layer {
			continue
		}
		pos, err := apexPoint(g, p)
		if err != nil {
			continue
		}
		// A primitive that coincides with the injected origin or
		// destination (typically the physical pad the route starts or
		// ends at) would otherwise duplicate that point, which breaks
		// the triangulation's circumcircle tests.
		if pos.Dist(origin) < coincidentEpsilon || pos.Dist(destination) < coincidentEpsilon {
			continue
		}
		vertices = append(vertices, Vertex{Prim: p, Pos: pos})
	}

	originIdx := len(vertices)
	vertices = append(vertices, Vertex{Pos: origin, IsOrigin: true})
	destIdx := len(vertices)
	vertices = append(vertices, Vertex{Pos: destination, IsDest: true})

	var tris []triangle
	if len(vertices) >= 3 {
		tris = triangulate(vertices)
	}
	var adj [][]Transition
	if len(tris) == 0 {
		// Too few points for a triangle (the degenerate "nothing
		// between origin and destination" case), or every point lies
		// on one line so no triangle survives: connect every pair
		// directly.
		adj = completeGraph(vertices)
	} else {
		adj = buildAdjacency(vertices, tris)
	}

	mesh := &Mesh{Vertices: vertices, adj: adj, OriginIndex: originIdx, DestIndex: destIdx}
	if !connected(mesh, originIdx, destIdx) {
		return nil, ErrDisconnected
	}
	return mesh, nil
}

// apexPoint returns the point a wraparoundable primitive presents to
// triangulation: a dot's center, or a bend's own arc center (the point
// the tracer would wrap around, not a point on the arc itself).
func apexPoint(g *core.Graph, p core.PrimIndex) (geom.Point, error) {
	switch p.Kind {
	case core.KindDot:
		idx, _ := p.AsDot()
		c, err := g.DotShape(idx)
		if err != nil {
			return geom.Point{}, err
		}
		return c.Pos, nil
	case core.KindBend:
		idx, _ := p.AsBend()
		a, err := g.BendShape(idx)
		if err != nil {
			return geom.Point{}, err
		}
		return a.Center, nil
	default:
		return geom.Point{}, core.ErrWrongKind
	}
}

func completeGraph(vertices []Vertex) [][]Transition {
	adj := make([][]Transition, len(vertices))
	for u := range vertices {
		for v := range vertices {
			if u == v {
				continue
			}
			adj[u] = append(adj[u], Transition{To: v, CW: true}, Transition{To: v, CW: false})
		}
	}
	return adj
}

func connected(m *Mesh, from, to int) bool {
	seen := make([]bool, len(m.Vertices))
	stack := []int{from}
	seen[from] = true
	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if v == to {
			return true
		}
		for _, t := range m.adj[v] {
			if !seen[t.To] {
				seen[t.To] = true
				stack = append(stack, t.To)
			}
		}
	}
	return seen[to]
}

// triangle is a Delaunay triangle referencing three vertex indices.
type triangle struct {
	a, b, c int
}

func (t triangle) edges() [3][2]int {
	return [3][2]int{{t.a, t.b}, {t.b, t.c}, {t.c, t.a}}
}

// triangulatePerturbation breaks exact collinearity and coincident
// circumcircles in the input point set: pad/obstacle layouts routinely
// put several anchors on one straight line, which is exactly the
// degenerate case Bowyer–Watson's orientation and circumcircle
// predicates have no robust answer for. Each vertex is nudged by an
// amount tied to its own index, small enough to never change which
// side of a real clearance gap it falls on.
const triangulatePerturbation = 1e-7

// triangulate runs incremental Bowyer–Watson on the point set.
func triangulate(vertices []Vertex) []triangle {
	n := len(vertices)
	if n < 3 {
		return nil
	}

	pts := make([]geom.Point, n)
	for i, v := range vertices {
		d := float64(i+1) * triangulatePerturbation
		pts[i] = geom.Point{X: v.Pos.X + d, Y: v.Pos.Y + d*d}
	}

	superA, superB, superC := superTriangle(pts)
	allPts := append(append([]geom.Point{}, pts...), superA, superB, superC)
	superIdx := [3]int{n, n + 1, n + 2}

	tris := []triangle{{superIdx[0], superIdx[1], superIdx[2]}}

	for pi := 0; pi < n; pi++ {
		p := allPts[pi]
		var bad []triangle
		for _, t := range tris {
			if inCircumcircle(allPts, t, p) {
				bad = append(bad, t)
			}
		}

		boundary := polygonBoundary(bad)

		var kept []triangle
		badSet := make(map[triangle]bool, len(bad))
		for _, t := range bad {
			badSet[t] = true
		}
		for _, t := range tris {
			if !badSet[t] {
				kept = append(kept, t)
			}
		}
		tris = kept

		for _, e := range boundary {
			tris = append(tris, triangle{e[0], e[1], pi})
		}
	}

	result := make([]triangle, 0, len(tris))
	for _, t := range tris {
		if isSuper(t, superIdx) {
			continue
		}
		result = append(result, t)
	}
	return result
}

func isSuper(t triangle, super [3]int) bool {
	for _, s := range super {
		if t.a == s || t.b == s || t.c == s {
			return true
		}
	}
	return false
}

// polygonBoundary returns the edges of bad that are not shared by two
// triangles in bad — the cavity boundary Bowyer–Watson re-triangulates
// from the new point.
func polygonBoundary(bad []triangle) [][2]int {
	type edgeKey struct{ u, v int }
	count := make(map[edgeKey]int)
	orig := make(map[edgeKey][2]int)
	for _, t := range bad {
		for _, e := range t.edges() {
			k := edgeKey{min(e[0], e[1]), max(e[0], e[1])}
			count[k]++
			orig[k] = e
		}
	}
	var boundary [][2]int
	for k, c := range count {
		if c == 1 {
			boundary = append(boundary, orig[k])
		}
	}
	return boundary
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// superTriangle returns a triangle large enough to contain every point
// in pts, as the Bowyer–Watson seed.
func superTriangle(pts []geom.Point) (geom.Point, geom.Point, geom.Point) {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range pts {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	if len(pts) == 0 {
		minX, minY, maxX, maxY = 0, 0, 0, 0
	}
	dx := maxX - minX
	dy := maxY - minY
	d := math.Max(dx, dy) + 10
	midX := (minX + maxX) / 2
	midY := (minY + maxY) / 2
	return geom.Point{X: midX - 20*d, Y: midY - d},
		geom.Point{X: midX, Y: midY + 20*d},
		geom.Point{X: midX + 20*d, Y: midY - d}
}

// inCircumcircle reports whether p lies inside the circumcircle of t.
func inCircumcircle(pts []geom.Point, t triangle, p geom.Point) bool {
	a, b, c := pts[t.a], pts[t.b], pts[t.c]

	ax, ay := a.X-p.X, a.Y-p.Y
	bx, by := b.X-p.X, b.Y-p.Y
	cx, cy := c.X-p.X, c.Y-p.Y

	det := (ax*ax+ay*ay)*(bx*cy-cx*by) -
		(bx*bx+by*by)*(ax*cy-cx*ay) +
		(cx*cx+cy*cy)*(ax*by-bx*ay)

	if orientation(a, b, c) > 0 {
		return det > 0
	}
	return det < 0
}

func orientation(a, b, c geom.Point) float64 {
	return (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
}

// buildAdjacency turns triangulation edges into navmesh transitions:
// each undirected triangle edge u-v becomes, in both directions, a
// pair of Transitions, one per wrap side (cw and ccw).
func buildAdjacency(vertices []Vertex, tris []triangle) [][]Transition {
	adj := make([][]Transition, len(vertices))

	type edgeKey struct{ u, v int }
	seen := make(map[edgeKey]bool)

	addEdge := func(u, v int) {
		k := edgeKey{min(u, v), max(u, v)}
		if seen[k] {
			return
		}
		seen[k] = true
		adj[u] = append(adj[u], Transition{To: v, CW: true}, Transition{To: v, CW: false})
		adj[v] = append(adj[v], Transition{To: u, CW: true}, Transition{To: u, CW: false})
	}

	for _, t := range tris {
		for _, e := range t.edges() {
			addEdge(e[0], e[1])
		}
	}

	for v := range adj {
		sort.Slice(adj[v], func(i, j int) bool {
			if adj[v][i].To != adj[v][j].To {
				return adj[v][i].To < adj[v][j].To
			}
			return !adj[v][i].CW && adj[v][j].CW
		})
	}
	return adj
}
