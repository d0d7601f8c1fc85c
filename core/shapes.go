package core

import "topola/geom"

func fromPt(p ptXY) geom.Point      { return geom.Point{X: p.X, Y: p.Y} }
func toPt(p geom.Point) ptXY        { return ptXY{X: p.X, Y: p.Y} }

// DotShape returns the circle a live dot occupies. Returns
// ErrNotFound if idx is stale.
func (g *Graph) DotShape(idx DotIndex) (geom.Circle, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	e, err := g.dotAt(idx)
	if err != nil {
		return geom.Circle{}, err
	}
	return geom.Circle{Pos: fromPt(e.center), R: e.radius}, nil
}

// SegShape returns the capsule a live seg occupies.
func (g *Graph) SegShape(idx SegIndex) (geom.Capsule, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	e, err := g.segAt(idx)
	if err != nil {
		return geom.Capsule{}, err
	}
	from, err := g.dotAt(e.from)
	if err != nil {
		return geom.Capsule{}, err
	}
	to, err := g.dotAt(e.to)
	if err != nil {
		return geom.Capsule{}, err
	}
	return geom.Capsule{From: fromPt(from.center), To: fromPt(to.center), Width: e.width}, nil
}

// BendShape returns the arc-capsule a live bend occupies. The arc's
// center is the dot or bend it wraps; the radius is the bend's own
// stored wrap radius.
func (g *Graph) BendShape(idx BendIndex) (geom.Arc, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.bendShapeLocked(idx)
}

func (g *Graph) bendShapeLocked(idx BendIndex) (geom.Arc, error) {
	e, err := g.bendAt(idx)
	if err != nil {
		return geom.Arc{}, err
	}
	center, err := g.bendCenterLocked(e)
	if err != nil {
		return geom.Arc{}, err
	}
	from, err := g.dotAt(e.from)
	if err != nil {
		return geom.Arc{}, err
	}
	to, err := g.dotAt(e.to)
	if err != nil {
		return geom.Arc{}, err
	}
	return geom.Arc{
		Center: center,
		R:      e.radius,
		From:   fromPt(from.center),
		To:     fromPt(to.center),
		CW:     e.cw,
		Width:  e.width,
	}, nil
}

// bendCenterLocked resolves the point a bend wraps around: its core
// dot's center, or (recursively) its outer bend's center.
func (g *Graph) bendCenterLocked(e *bendEntry) (geom.Point, error) {
	if e.hasCore {
		dot, err := g.dotAt(e.core)
		if err != nil {
			return geom.Point{}, err
		}
		return fromPt(dot.center), nil
	}
	outer, err := g.bendAt(e.outer)
	if err != nil {
		return geom.Point{}, err
	}
	return g.bendCenterLocked(outer)
}

// CompoundBounds returns the axis-aligned bounds of a compound
// primitive (a via's circle, a zone's polygon bounds, or a
// grouping's empty bounds — groupings carry no shape of their own).
func (g *Graph) CompoundBounds(idx CompoundIndex) (geom.AABB, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	e, err := g.compoundAt(idx)
	if err != nil {
		return geom.AABB{}, err
	}
	return compoundBoundsLocked(e), nil
}

func compoundBoundsLocked(e *compoundEntry) geom.AABB {
	switch e.kind {
	case CompoundVia:
		return geom.Circle{Pos: fromPt(e.center), R: e.radius}.Bounds()
	case CompoundZone:
		if len(e.polygon) == 0 {
			return geom.AABB{}
		}
		b := geom.AABB{MinX: e.polygon[0].X, MinY: e.polygon[0].Y, MaxX: e.polygon[0].X, MaxY: e.polygon[0].Y}
		for _, p := range e.polygon[1:] {
			b = b.Union(geom.AABB{MinX: p.X, MinY: p.Y, MaxX: p.X, MaxY: p.Y})
		}
		return b
	default:
		return geom.AABB{}
	}
}

// Bounds returns the bounding box of any primitive, dispatching on
// its kind. Used by spatial_query callers that hold a heterogeneous
// PrimIndex.
func (g *Graph) Bounds(p PrimIndex) (geom.AABB, error) {
	switch p.Kind {
	case KindDot:
		idx, _ := p.AsDot()
		c, err := g.DotShape(idx)
		if err != nil {
			return geom.AABB{}, err
		}
		return c.Bounds(), nil
	case KindSeg:
		idx, _ := p.AsSeg()
		c, err := g.SegShape(idx)
		if err != nil {
			return geom.AABB{}, err
		}
		return c.Bounds(), nil
	case KindBend:
		idx, _ := p.AsBend()
		a, err := g.BendShape(idx)
		if err != nil {
			return geom.AABB{}, err
		}
		return a.Bounds(), nil
	case KindCompound:
		idx, _ := p.AsCompound()
		return g.CompoundBounds(idx)
	default:
		return geom.AABB{}, ErrWrongKind
	}
}
