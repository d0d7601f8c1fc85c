package core

import (
	"fmt"

	"topola/geom"
	"topola/rules"
)

// looseDotMaxJoints is the degree ceiling for a loose dot: it sits
// between at most two other primitives in its chain. Fixed dots
// (pads, vias) have no ceiling.
const looseDotMaxJoints = 2

// AddFixedDot inserts a fixed dot at center with the given radius,
// layer and net, after checking it does not infringe clearance
// against any already-placed primitive. Returns ErrInfringes if it
// would.
func (g *Graph) AddFixedDot(center geom.Point, radius float64, layer int, net *int) (DotIndex, error) {
	return g.addDot(center, radius, layer, net, true)
}

// AddLooseDot inserts a loose dot, used by draw/tracer as the moving
// endpoint of an in-progress chain.
func (g *Graph) AddLooseDot(center geom.Point, radius float64, layer int, net *int) (DotIndex, error) {
	return g.addDot(center, radius, layer, net, false)
}

func (g *Graph) addDot(center geom.Point, radius float64, layer int, net *int, fixed bool) (DotIndex, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	shape := geom.Circle{Pos: center, R: radius}
	cond := rules.Conditions{Net: net}
	if err := g.checkInfringementLocked(shape.Bounds(), shape, layer, layer, cond, nil); err != nil {
		return DotIndex{}, err
	}

	idx, e := g.allocDot()
	e.fixed = fixed
	e.center = toPt(center)
	e.radius = radius
	e.layer = layer
	e.net = net
	g.indexPrimitive(idx.Prim(), shape.Bounds())
	return idx, nil
}

// AddFixedSeg inserts a fixed capsule seg jointed between from and to.
func (g *Graph) AddFixedSeg(from, to DotIndex, width float64, layer int, net *int) (SegIndex, error) {
	return g.addSeg(from, to, width, layer, net, SegFixed)
}

// AddLoneLooseSeg inserts a single free-floating loose seg.
func (g *Graph) AddLoneLooseSeg(from, to DotIndex, width float64, layer int, net *int) (SegIndex, error) {
	return g.addSeg(from, to, width, layer, net, SegLoneLoose)
}

// AddSeqLooseSeg inserts one link of a loose seg chain being built by
// the tracer.
func (g *Graph) AddSeqLooseSeg(from, to DotIndex, width float64, layer int, net *int) (SegIndex, error) {
	return g.addSeg(from, to, width, layer, net, SegSeqLoose)
}

func (g *Graph) addSeg(from, to DotIndex, width float64, layer int, net *int, kind SegKind) (SegIndex, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	fromE, err := g.dotAt(from)
	if err != nil {
		return SegIndex{}, fmt.Errorf("core: seg endpoint from: %w", err)
	}
	toE, err := g.dotAt(to)
	if err != nil {
		return SegIndex{}, fmt.Errorf("core: seg endpoint to: %w", err)
	}
	if err := checkJointCapacity(fromE); err != nil {
		return SegIndex{}, err
	}
	if err := checkJointCapacity(toE); err != nil {
		return SegIndex{}, err
	}

	shape := geom.Capsule{From: fromPt(fromE.center), To: fromPt(toE.center), Width: width}
	cond := rules.Conditions{Net: net}
	skip := []PrimIndex{from.Prim(), to.Prim()}
	// Primitives already jointed at either endpoint meet this one there.
	skip = append(skip, fromE.joints...)
	skip = append(skip, toE.joints...)
	if err := g.checkInfringementLocked(shape.Bounds(), shape, layer, layer, cond, skip); err != nil {
		return SegIndex{}, err
	}

	idx, e := g.allocSeg()
	e.kind = kind
	e.from = from
	e.to = to
	e.width = width
	e.layer = layer
	e.net = net

	prim := idx.Prim()
	fromE.joints = append(fromE.joints, prim)
	toE.joints = append(toE.joints, prim)
	g.indexPrimitive(prim, shape.Bounds())
	return idx, nil
}

func checkJointCapacity(e *dotEntry) error {
	if !e.fixed && len(e.joints) >= looseDotMaxJoints {
		return ErrDegreeExceeded
	}
	return nil
}

// AddFixedBend inserts a fixed bend wrapping core at the given radius
// between the tangent points from and to.
func (g *Graph) AddFixedBend(from, to, core DotIndex, radius, width float64, cw bool, layer int, net *int) (BendIndex, error) {
	return g.addBend(from, to, core, BendIndex{}, true, radius, width, cw, layer, net, true)
}

// AddLooseBend inserts a loose bend wrapping core, used by the tracer
// while threading a chain around an obstacle.
func (g *Graph) AddLooseBend(from, to, core DotIndex, radius, width float64, cw bool, layer int, net *int) (BendIndex, error) {
	return g.addBend(from, to, core, BendIndex{}, true, radius, width, cw, layer, net, false)
}

// AddFixedBendOnOuter inserts a fixed bend wrapping an existing bend
// (one rail further in toward the same core) rather than a dot
// directly.
func (g *Graph) AddFixedBendOnOuter(from, to DotIndex, outer BendIndex, radius, width float64, cw bool, layer int, net *int) (BendIndex, error) {
	return g.addBend(from, to, DotIndex{}, outer, false, radius, width, cw, layer, net, true)
}

// AddLooseBendOnOuter is AddFixedBendOnOuter's loose counterpart.
func (g *Graph) AddLooseBendOnOuter(from, to DotIndex, outer BendIndex, radius, width float64, cw bool, layer int, net *int) (BendIndex, error) {
	return g.addBend(from, to, DotIndex{}, outer, false, radius, width, cw, layer, net, false)
}

func (g *Graph) addBend(from, to, core DotIndex, outer BendIndex, hasCore bool, radius, width float64, cw bool, layer int, net *int, fixed bool) (BendIndex, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	fromE, err := g.dotAt(from)
	if err != nil {
		return BendIndex{}, fmt.Errorf("core: bend endpoint from: %w", err)
	}
	toE, err := g.dotAt(to)
	if err != nil {
		return BendIndex{}, fmt.Errorf("core: bend endpoint to: %w", err)
	}
	if err := checkJointCapacity(fromE); err != nil {
		return BendIndex{}, err
	}
	if err := checkJointCapacity(toE); err != nil {
		return BendIndex{}, err
	}

	var center geom.Point
	if hasCore {
		coreE, err := g.dotAt(core)
		if err != nil {
			return BendIndex{}, fmt.Errorf("core: bend core: %w", err)
		}
		center = fromPt(coreE.center)
	} else {
		outerE, err := g.bendAt(outer)
		if err != nil {
			return BendIndex{}, fmt.Errorf("core: bend outer: %w", err)
		}
		center, err = g.bendCenterLocked(outerE)
		if err != nil {
			return BendIndex{}, err
		}
	}

	shape := geom.Arc{Center: center, R: radius, From: fromPt(fromE.center), To: fromPt(toE.center), CW: cw, Width: width}
	cond := rules.Conditions{Net: net}
	skip := []PrimIndex{from.Prim(), to.Prim()}
	if hasCore {
		skip = append(skip, core.Prim())
	} else {
		skip = append(skip, outer.Prim())
	}
	skip = append(skip, fromE.joints...)
	skip = append(skip, toE.joints...)
	if err := g.checkInfringementLocked(shape.Bounds(), shape, layer, layer, cond, skip); err != nil {
		return BendIndex{}, err
	}

	idx, e := g.allocBend()
	e.fixed = fixed
	e.from = from
	e.to = to
	e.width = width
	e.layer = layer
	e.net = net
	e.cw = cw
	e.radius = radius
	e.hasCore = hasCore
	if hasCore {
		e.core = core
	} else {
		e.hasOuter = true
		e.outer = outer
	}

	prim := idx.Prim()
	fromE.joints = append(fromE.joints, prim)
	toE.joints = append(toE.joints, prim)
	g.indexPrimitive(prim, shape.Bounds())
	return idx, nil
}

// RemoveSeg deletes a seg and detaches it from its endpoint dots'
// joint lists.
func (g *Graph) RemoveSeg(idx SegIndex) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	e, err := g.segAt(idx)
	if err != nil {
		return err
	}
	prim := idx.Prim()
	g.detachJointLocked(e.from, prim)
	g.detachJointLocked(e.to, prim)
	g.unindexPrimitive(prim)
	g.freeSeg(idx)
	return nil
}

// RemoveBend deletes a bend and detaches it from its endpoint dots.
// Does not cascade to any bend wrapping this one as an outer rail;
// callers (draw.UndoSegbend) must remove rail bends outside-in.
func (g *Graph) RemoveBend(idx BendIndex) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	e, err := g.bendAt(idx)
	if err != nil {
		return err
	}
	prim := idx.Prim()
	g.detachJointLocked(e.from, prim)
	g.detachJointLocked(e.to, prim)
	g.unindexPrimitive(prim)
	g.freeBend(idx)
	return nil
}

// RemoveDot deletes a dot. Returns ErrDanglingSeg if any seg or bend
// is still jointed to it.
func (g *Graph) RemoveDot(idx DotIndex) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	e, err := g.dotAt(idx)
	if err != nil {
		return err
	}
	if len(e.joints) > 0 {
		return ErrDanglingSeg
	}
	g.unindexPrimitive(idx.Prim())
	g.freeDot(idx)
	return nil
}

func (g *Graph) detachJointLocked(dot DotIndex, prim PrimIndex) {
	e, err := g.dotAt(dot)
	if err != nil {
		return
	}
	for i, j := range e.joints {
		if j == prim {
			e.joints = append(e.joints[:i], e.joints[i+1:]...)
			break
		}
	}
}

// AddVia inserts a compound via primitive spanning fromLayer..toLayer,
// together with one fixed barrel dot per spanned layer (its members,
// joined by Adjacency). The barrel dots are what bands actually
// terminate at; the compound carries the through-hole's circle and
// net. The clearance dry-run covers the whole span at once, so the
// member dots are inserted without re-checking each layer.
func (g *Graph) AddVia(center geom.Point, radius float64, fromLayer, toLayer int, net *int) (CompoundIndex, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if fromLayer > toLayer {
		fromLayer, toLayer = toLayer, fromLayer
	}
	shape := geom.Circle{Pos: center, R: radius}
	cond := rules.Conditions{Net: net}
	if err := g.checkInfringementLocked(shape.Bounds(), shape, fromLayer, toLayer, cond, nil); err != nil {
		return CompoundIndex{}, err
	}

	idx, e := g.allocCompound()
	e.kind = CompoundVia
	e.center = toPt(center)
	e.radius = radius
	e.fromLayer = fromLayer
	e.toLayer = toLayer
	e.net = net
	g.indexPrimitive(idx.Prim(), shape.Bounds())

	for layer := fromLayer; layer <= toLayer; layer++ {
		dotIdx, de := g.allocDot()
		de.fixed = true
		de.center = toPt(center)
		de.radius = radius
		de.layer = layer
		de.net = net
		g.indexPrimitive(dotIdx.Prim(), shape.Bounds())
		e.members = append(e.members, dotIdx.Prim())
	}
	return idx, nil
}

// ViaDots returns the via's fixed barrel dots, one per spanned layer
// in layer order. Returns ErrWrongKind for a non-via compound.
func (g *Graph) ViaDots(idx CompoundIndex) ([]DotIndex, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	e, err := g.compoundAt(idx)
	if err != nil {
		return nil, err
	}
	if e.kind != CompoundVia {
		return nil, ErrWrongKind
	}
	dots := make([]DotIndex, 0, len(e.members))
	for _, m := range e.members {
		if d, ok := m.AsDot(); ok {
			dots = append(dots, d)
		}
	}
	return dots, nil
}

// AddZone inserts a compound zone primitive with the given polygon
// boundary on layer.
func (g *Graph) AddZone(polygon []geom.Point, layer int, net *int) (CompoundIndex, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	idx, e := g.allocCompound()
	e.kind = CompoundZone
	e.polygon = make([]ptXY, len(polygon))
	for i, p := range polygon {
		e.polygon[i] = toPt(p)
	}
	e.layer = layer
	e.net = net
	g.indexPrimitive(idx.Prim(), compoundBoundsLocked(e))
	return idx, nil
}

// AddGrouping inserts a named bag of existing primitives with no
// shape of its own.
func (g *Graph) AddGrouping(members []PrimIndex) CompoundIndex {
	g.mu.Lock()
	defer g.mu.Unlock()

	idx, e := g.allocCompound()
	e.kind = CompoundGrouping
	e.members = append([]PrimIndex(nil), members...)
	return idx
}

// RemoveCompound deletes a via, zone or grouping primitive. A via's
// barrel dots are removed with it; if any of them still has a seg or
// bend jointed to it, RemoveCompound fails with ErrDanglingSeg and
// removes nothing.
func (g *Graph) RemoveCompound(idx CompoundIndex) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	e, err := g.compoundAt(idx)
	if err != nil {
		return err
	}
	if e.kind == CompoundVia {
		for _, m := range e.members {
			d, ok := m.AsDot()
			if !ok {
				continue
			}
			de, err := g.dotAt(d)
			if err != nil {
				continue
			}
			if len(de.joints) > 0 {
				return ErrDanglingSeg
			}
		}
		for _, m := range e.members {
			if d, ok := m.AsDot(); ok {
				g.unindexPrimitive(m)
				g.freeDot(d)
			}
		}
	}
	g.unindexPrimitive(idx.Prim())
	g.freeCompound(idx)
	return nil
}
