package core

import (
	"math"

	"topola/geom"
	"topola/rules"
)

const arcSampleCount = 16

// infringementTolerance absorbs floating-point jitter in tangent
// construction: draw.SegbendAround builds shapes that touch clearance
// exactly by design, so the infringement check needs slack wider than
// geom.Epsilon to avoid spurious rejections at the boundary.
const infringementTolerance = 1e-6

func containsPrim(list []PrimIndex, p PrimIndex) bool {
	for _, x := range list {
		if x == p {
			return true
		}
	}
	return false
}

// checkInfringementLocked runs the insertion dry-run:
// every live primitive on an overlapping layer whose AABB intersects
// bounds must clear the candidate shape by at least the rule oracle's
// clearance, or the insertion is rejected. loLayer..hiLayer is the
// candidate's layer span (a single layer for dots/segs/bends, a range
// for a via barrel); primitives whose own span does not overlap it are
// ignored — clearance is a per-layer concern.
// skip excludes the primitives the candidate is intentionally jointed
// to (its own endpoint dots, and for a bend its core dot or outer
// bend) — touching a joint partner at distance zero is by
// construction, not a clearance violation.
// Caller must hold g.mu.
func (g *Graph) checkInfringementLocked(bounds geom.AABB, shape interface{}, loLayer, hiLayer int, cond rules.Conditions, skip []PrimIndex) error {
	pad := g.oracle.LargestClearance(cond.Net)
	for _, other := range g.queryBounds(bounds.Inflated(pad)) {
		if containsPrim(skip, other) {
			continue
		}
		otherShape, otherLo, otherHi, otherCond, err := g.shapeAndConditionsLocked(other)
		if err != nil {
			continue
		}
		if otherHi < loLayer || otherLo > hiLayer {
			continue
		}
		required := g.oracle.Clearance(cond, otherCond)
		if shapeDistance(shape, otherShape) < required-infringementTolerance {
			return &InfringementError{Offender: other}
		}
	}
	return nil
}

func (g *Graph) shapeAndConditionsLocked(p PrimIndex) (interface{}, int, int, rules.Conditions, error) {
	switch p.Kind {
	case KindDot:
		idx, _ := p.AsDot()
		e, err := g.dotAt(idx)
		if err != nil {
			return nil, 0, 0, rules.Conditions{}, err
		}
		return geom.Circle{Pos: fromPt(e.center), R: e.radius}, e.layer, e.layer, rules.Conditions{Net: e.net}, nil
	case KindSeg:
		idx, _ := p.AsSeg()
		e, err := g.segAt(idx)
		if err != nil {
			return nil, 0, 0, rules.Conditions{}, err
		}
		from, err := g.dotAt(e.from)
		if err != nil {
			return nil, 0, 0, rules.Conditions{}, err
		}
		to, err := g.dotAt(e.to)
		if err != nil {
			return nil, 0, 0, rules.Conditions{}, err
		}
		return geom.Capsule{From: fromPt(from.center), To: fromPt(to.center), Width: e.width}, e.layer, e.layer, rules.Conditions{Net: e.net}, nil
	case KindBend:
		idx, _ := p.AsBend()
		a, err := g.bendShapeLocked(idx)
		if err != nil {
			return nil, 0, 0, rules.Conditions{}, err
		}
		e, _ := g.bendAt(idx)
		return a, e.layer, e.layer, rules.Conditions{Net: e.net}, nil
	default:
		// Compounds present no copper of their own to the clearance
		// check: a via's disc is carried by its per-layer barrel dots,
		// zones and groupings have no inflatable shape here.
		return nil, 0, 0, rules.Conditions{}, ErrWrongKind
	}
}

// shapeDistance returns the gap between two shapes' boundaries (not
// their centerlines): negative when they overlap. Exact for
// circle/capsule combinations; arc-involving pairs fall back to
// dense sampling (geom.Arc.Sample), an approximation whose error
// shrinks with arcSampleCount.
func shapeDistance(a, b interface{}) float64 {
	switch av := a.(type) {
	case geom.Circle:
		switch bv := b.(type) {
		case geom.Circle:
			return av.Pos.Dist(bv.Pos) - av.R - bv.R
		case geom.Capsule:
			return bv.DistToCircle(av) - av.R - bv.Width/2
		case geom.Arc:
			return arcPointDistance(bv, av.Pos) - av.R - bv.Width/2
		}
	case geom.Capsule:
		switch bv := b.(type) {
		case geom.Circle:
			return av.DistToCircle(bv) - bv.R - av.Width/2
		case geom.Capsule:
			return av.DistTo(bv) - av.Width/2 - bv.Width/2
		case geom.Arc:
			return segmentArcDistance(av, bv) - av.Width/2 - bv.Width/2
		}
	case geom.Arc:
		switch bv := b.(type) {
		case geom.Circle:
			return arcPointDistance(av, bv.Pos) - bv.R - av.Width/2
		case geom.Capsule:
			return segmentArcDistance(bv, av) - av.Width/2 - bv.Width/2
		case geom.Arc:
			return arcArcDistance(av, bv) - av.Width/2 - bv.Width/2
		}
	}
	return math.Inf(1)
}

func arcPointDistance(a geom.Arc, p geom.Point) float64 {
	return a.DistToPoint(p)
}

func segmentArcDistance(c geom.Capsule, a geom.Arc) float64 {
	best := math.Inf(1)
	for _, p := range a.Sample(arcSampleCount) {
		if d := geom.DistToSegment(p, c.From, c.To); d < best {
			best = d
		}
	}
	return best
}

func arcArcDistance(a, b geom.Arc) float64 {
	best := math.Inf(1)
	bPts := b.Sample(arcSampleCount)
	for _, p := range a.Sample(arcSampleCount) {
		for _, q := range bPts {
			if d := p.Dist(q); d < best {
				best = d
			}
		}
	}
	return best
}

// Layer returns the layer a primitive lives on. Compound groupings
// have no layer of their own and return 0.
func (g *Graph) Layer(p PrimIndex) (int, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	switch p.Kind {
	case KindDot:
		idx, _ := p.AsDot()
		e, err := g.dotAt(idx)
		if err != nil {
			return 0, err
		}
		return e.layer, nil
	case KindSeg:
		idx, _ := p.AsSeg()
		e, err := g.segAt(idx)
		if err != nil {
			return 0, err
		}
		return e.layer, nil
	case KindBend:
		idx, _ := p.AsBend()
		e, err := g.bendAt(idx)
		if err != nil {
			return 0, err
		}
		return e.layer, nil
	case KindCompound:
		idx, _ := p.AsCompound()
		e, err := g.compoundAt(idx)
		if err != nil {
			return 0, err
		}
		return e.layer, nil
	default:
		return 0, ErrWrongKind
	}
}

// IsWraparoundable reports whether p is a primitive the navmesh
// treats as an obstacle the router may go around: a fixed dot, a
// fixed bend, or a loose bend — notably not a loose
// dot, which is a moving chain endpoint rather than an obstacle.
func (g *Graph) IsWraparoundable(p PrimIndex) (bool, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	switch p.Kind {
	case KindDot:
		idx, _ := p.AsDot()
		e, err := g.dotAt(idx)
		if err != nil {
			return false, err
		}
		return e.fixed, nil
	case KindBend:
		idx, _ := p.AsBend()
		if _, err := g.bendAt(idx); err != nil {
			return false, err
		}
		return true, nil
	default:
		return false, nil
	}
}

// SegKind reports whether a seg is fixed, lone-loose, or seq-loose.
func (g *Graph) SegKind(idx SegIndex) (SegKind, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	e, err := g.segAt(idx)
	if err != nil {
		return 0, err
	}
	return e.kind, nil
}

// SegEnds returns the two dots a seg joins.
func (g *Graph) SegEnds(idx SegIndex) (from, to DotIndex, err error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	e, err := g.segAt(idx)
	if err != nil {
		return DotIndex{}, DotIndex{}, err
	}
	return e.from, e.to, nil
}

// BendEnds returns the two dots a bend joins (its tangent points, not
// its core).
func (g *Graph) BendEnds(idx BendIndex) (from, to DotIndex, err error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	e, err := g.bendAt(idx)
	if err != nil {
		return DotIndex{}, DotIndex{}, err
	}
	return e.from, e.to, nil
}

// DotFixed reports whether a dot is a fixed anchor rather than a
// loose chain joint.
func (g *Graph) DotFixed(idx DotIndex) (bool, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	e, err := g.dotAt(idx)
	if err != nil {
		return false, err
	}
	return e.fixed, nil
}

// Net returns the net pointer recorded for a primitive (nil for an
// unnetted primitive, or for a compound grouping which carries no net
// of its own).
func (g *Graph) Net(p PrimIndex) (*int, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	switch p.Kind {
	case KindDot:
		idx, _ := p.AsDot()
		e, err := g.dotAt(idx)
		if err != nil {
			return nil, err
		}
		return e.net, nil
	case KindSeg:
		idx, _ := p.AsSeg()
		e, err := g.segAt(idx)
		if err != nil {
			return nil, err
		}
		return e.net, nil
	case KindBend:
		idx, _ := p.AsBend()
		e, err := g.bendAt(idx)
		if err != nil {
			return nil, err
		}
		return e.net, nil
	case KindCompound:
		idx, _ := p.AsCompound()
		e, err := g.compoundAt(idx)
		if err != nil {
			return nil, err
		}
		return e.net, nil
	default:
		return nil, ErrWrongKind
	}
}

// SpatialQuery returns every live primitive whose bounding box
// intersects bounds, for callers (navmesh, tracer) that need a
// region's occupants without an exact clearance test.
func (g *Graph) SpatialQuery(bounds geom.AABB) []PrimIndex {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.queryBounds(bounds)
}

// NeighborsByLabel returns the joint-edge neighbors of a dot: the
// segs and bends attached to it.
func (g *Graph) NeighborsByLabel(idx DotIndex) ([]PrimIndex, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	e, err := g.dotAt(idx)
	if err != nil {
		return nil, err
	}
	return append([]PrimIndex(nil), e.joints...), nil
}

// CompoundMembers returns the primitives belonging to a compound.
func (g *Graph) CompoundMembers(idx CompoundIndex) ([]PrimIndex, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	e, err := g.compoundAt(idx)
	if err != nil {
		return nil, err
	}
	return append([]PrimIndex(nil), e.members...), nil
}

// CompoundWeight returns the combined routed length of every seg and
// bend belonging to a compound grouping.
func (g *Graph) CompoundWeight(idx CompoundIndex) (float64, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	e, err := g.compoundAt(idx)
	if err != nil {
		return 0, err
	}
	var total float64
	for _, m := range e.members {
		switch m.Kind {
		case KindSeg:
			segIdx, _ := m.AsSeg()
			se, err := g.segAt(segIdx)
			if err != nil {
				continue
			}
			from, err := g.dotAt(se.from)
			if err != nil {
				continue
			}
			to, err := g.dotAt(se.to)
			if err != nil {
				continue
			}
			total += fromPt(from.center).Dist(fromPt(to.center))
		case KindBend:
			bendIdx, _ := m.AsBend()
			a, err := g.bendShapeLocked(bendIdx)
			if err != nil {
				continue
			}
			total += a.Length()
		}
	}
	return total, nil
}
