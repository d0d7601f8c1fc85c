package core

import (
	"github.com/dhconnelly/rtreego"

	"topola/geom"
)

// rtreeEpsilon pads degenerate (zero-area) bounding boxes before
// handing them to rtreego, which rejects rectangles with a non-positive
// side length.
const rtreeEpsilon = 1e-6

// spatialEntry adapts one primitive's bounding box to rtreego.Spatial.
// core keeps one *spatialEntry per live primitive in spatialOf so
// Delete can hand rtreego back the exact pointer it indexed.
type spatialEntry struct {
	prim  PrimIndex
	rect  rtreego.Rect
}

func (s *spatialEntry) Bounds() rtreego.Rect { return s.rect }

func toRect(b geom.AABB) rtreego.Rect {
	w := b.MaxX - b.MinX
	h := b.MaxY - b.MinY
	if w < rtreeEpsilon {
		w = rtreeEpsilon
	}
	if h < rtreeEpsilon {
		h = rtreeEpsilon
	}
	// NewRect only errors on non-positive lengths, which toRect has
	// already ruled out.
	rect, _ := rtreego.NewRect(rtreego.Point{b.MinX, b.MinY}, []float64{w, h})
	return rect
}

// indexPrimitive inserts or refreshes prim's bounding box in the
// R-tree. Call after every mutation that changes a primitive's shape
// or position.
func (g *Graph) indexPrimitive(prim PrimIndex, bounds geom.AABB) {
	if old, ok := g.spatialOf[prim]; ok {
		g.tree.Delete(old)
	}
	entry := &spatialEntry{prim: prim, rect: toRect(bounds)}
	g.spatialOf[prim] = entry
	g.tree.Insert(entry)
}

// unindexPrimitive removes prim from the R-tree.
func (g *Graph) unindexPrimitive(prim PrimIndex) {
	if old, ok := g.spatialOf[prim]; ok {
		g.tree.Delete(old)
		delete(g.spatialOf, prim)
	}
}

// queryBounds returns every live primitive whose indexed bounding box
// intersects bounds. Candidates still need an exact-shape distance
// check; the R-tree only prunes by AABB.
func (g *Graph) queryBounds(bounds geom.AABB) []PrimIndex {
	hits := g.tree.SearchIntersect(toRect(bounds))
	out := make([]PrimIndex, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.(*spatialEntry).prim)
	}
	return out
}
