package core

// Each arena is an append-only slice of slots plus a free-list of
// tombstoned slot numbers available for reuse. Reusing a slot bumps
// its generation counter, so an index captured before the reuse
// fails its generation check instead of silently aliasing the new
// occupant.

func (g *Graph) allocDot() (DotIndex, *dotEntry) {
	if n := len(g.freeDots); n > 0 {
		slot := g.freeDots[n-1]
		g.freeDots = g.freeDots[:n-1]
		e := &g.dots[slot]
		*e = dotEntry{alive: true, gen: e.gen}
		return DotIndex{slot: slot, gen: e.gen}, e
	}
	slot := uint32(len(g.dots))
	g.dots = append(g.dots, dotEntry{alive: true})
	return DotIndex{slot: slot, gen: 0}, &g.dots[slot]
}

func (g *Graph) freeDot(idx DotIndex) {
	e := &g.dots[idx.slot]
	e.alive = false
	e.gen++
	e.joints = nil
	g.freeDots = append(g.freeDots, idx.slot)
}

func (g *Graph) dotAt(idx DotIndex) (*dotEntry, error) {
	if int(idx.slot) >= len(g.dots) {
		return nil, ErrNotFound
	}
	e := &g.dots[idx.slot]
	if !e.alive || e.gen != idx.gen {
		return nil, ErrNotFound
	}
	return e, nil
}

func (g *Graph) allocSeg() (SegIndex, *segEntry) {
	if n := len(g.freeSegs); n > 0 {
		slot := g.freeSegs[n-1]
		g.freeSegs = g.freeSegs[:n-1]
		e := &g.segs[slot]
		*e = segEntry{alive: true, gen: e.gen}
		return SegIndex{slot: slot, gen: e.gen}, e
	}
	slot := uint32(len(g.segs))
	g.segs = append(g.segs, segEntry{alive: true})
	return SegIndex{slot: slot, gen: 0}, &g.segs[slot]
}

func (g *Graph) freeSeg(idx SegIndex) {
	e := &g.segs[idx.slot]
	e.alive = false
	e.gen++
	g.freeSegs = append(g.freeSegs, idx.slot)
}

func (g *Graph) segAt(idx SegIndex) (*segEntry, error) {
	if int(idx.slot) >= len(g.segs) {
		return nil, ErrNotFound
	}
	e := &g.segs[idx.slot]
	if !e.alive || e.gen != idx.gen {
		return nil, ErrNotFound
	}
	return e, nil
}

func (g *Graph) allocBend() (BendIndex, *bendEntry) {
	if n := len(g.freeBends); n > 0 {
		slot := g.freeBends[n-1]
		g.freeBends = g.freeBends[:n-1]
		e := &g.bends[slot]
		*e = bendEntry{alive: true, gen: e.gen}
		return BendIndex{slot: slot, gen: e.gen}, e
	}
	slot := uint32(len(g.bends))
	g.bends = append(g.bends, bendEntry{alive: true})
	return BendIndex{slot: slot, gen: 0}, &g.bends[slot]
}

func (g *Graph) freeBend(idx BendIndex) {
	e := &g.bends[idx.slot]
	e.alive = false
	e.gen++
	g.freeBends = append(g.freeBends, idx.slot)
}

func (g *Graph) bendAt(idx BendIndex) (*bendEntry, error) {
	if int(idx.slot) >= len(g.bends) {
		return nil, ErrNotFound
	}
	e := &g.bends[idx.slot]
	if !e.alive || e.gen != idx.gen {
		return nil, ErrNotFound
	}
	return e, nil
}

func (g *Graph) allocCompound() (CompoundIndex, *compoundEntry) {
	if n := len(g.freeCompounds); n > 0 {
		slot := g.freeCompounds[n-1]
		g.freeCompounds = g.freeCompounds[:n-1]
		e := &g.compounds[slot]
		*e = compoundEntry{alive: true, gen: e.gen}
		return CompoundIndex{slot: slot, gen: e.gen}, e
	}
	slot := uint32(len(g.compounds))
	g.compounds = append(g.compounds, compoundEntry{alive: true})
	return CompoundIndex{slot: slot, gen: 0}, &g.compounds[slot]
}

func (g *Graph) freeCompound(idx CompoundIndex) {
	e := &g.compounds[idx.slot]
	e.alive = false
	e.gen++
	e.members = nil
	g.freeCompounds = append(g.freeCompounds, idx.slot)
}

func (g *Graph) compoundAt(idx CompoundIndex) (*compoundEntry, error) {
	if int(idx.slot) >= len(g.compounds) {
		return nil, ErrNotFound
	}
	e := &g.compounds[idx.slot]
	if !e.alive || e.gen != idx.gen {
		return nil, ErrNotFound
	}
	return e, nil
}
