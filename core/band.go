package core

import "errors"

// ErrBrokenBand indicates a band's loose chain could not be walked to
// completion: a loose dot's joint list did not contain the expected
// next primitive, which should never happen for a chain built entirely
// through draw's invariant-preserving mutations.
var ErrBrokenBand = errors.New("core: band interior is inconsistent")

// BandUid identifies a band by its two terminating seg indices,
// canonicalized with the smaller index first so two different
// discovery orders (walking from either end) produce the same key
//.
type BandUid struct {
	A, B SegIndex
}

// NewBandUid canonicalizes a and b into a BandUid.
func NewBandUid(a, b SegIndex) BandUid {
	if b.Less(a) {
		a, b = b, a
	}
	return BandUid{A: a, B: b}
}

// BandPrimitives walks a band starting from one of its terminating
// segs (a fixed-dot-adjacent lone-loose or seq-loose seg) and returns
// the opposite terminus, the ordered chain of segs/bends between them
// (inclusive of both termini), and the loose dots strung between
// those primitives. A lone-loose seg is its own band: it connects two
// fixed dots directly, so other equals term and interior is empty.
func (g *Graph) BandPrimitives(term SegIndex) (other SegIndex, prims []PrimIndex, looseDots []DotIndex, err error) {
	kind, err := g.SegKind(term)
	if err != nil {
		return SegIndex{}, nil, nil, err
	}
	prims = []PrimIndex{term.Prim()}
	if kind != SegSeqLoose {
		return term, prims, nil, nil
	}

	from, to, err := g.SegEnds(term)
	if err != nil {
		return SegIndex{}, nil, nil, err
	}
	fromFixed, err := g.DotFixed(from)
	if err != nil {
		return SegIndex{}, nil, nil, err
	}
	cur := to
	if !fromFixed {
		cur = from
	}

	prevPrim := term.Prim()
	for {
		looseDots = append(looseDots, cur)

		joints, err := g.NeighborsByLabel(cur)
		if err != nil {
			return SegIndex{}, nil, nil, err
		}
		var next PrimIndex
		found := false
		for _, j := range joints {
			if j == prevPrim {
				continue
			}
			next = j
			found = true
			break
		}
		if !found {
			return SegIndex{}, nil, nil, ErrBrokenBand
		}
		prims = append(prims, next)

		var nextFrom, nextTo DotIndex
		switch next.Kind {
		case KindSeg:
			idx, _ := next.AsSeg()
			nextFrom, nextTo, err = g.SegEnds(idx)
		case KindBend:
			idx, _ := next.AsBend()
			nextFrom, nextTo, err = g.BendEnds(idx)
		default:
			return SegIndex{}, nil, nil, ErrWrongKind
		}
		if err != nil {
			return SegIndex{}, nil, nil, err
		}
		nextDot := nextFrom
		if nextFrom == cur {
			nextDot = nextTo
		}

		isFixed, err := g.DotFixed(nextDot)
		if err != nil {
			return SegIndex{}, nil, nil, err
		}
		if next.Kind == KindSeg && isFixed {
			otherSeg, _ := next.AsSeg()
			return otherSeg, prims, looseDots, nil
		}
		prevPrim = next
		cur = nextDot
	}
}

// BandLength sums the shape lengths of a band's primitives (as
// returned by BandPrimitives) along the chain.
func (g *Graph) BandLength(prims []PrimIndex) (float64, error) {
	var total float64
	for _, p := range prims {
		switch p.Kind {
		case KindSeg:
			idx, _ := p.AsSeg()
			shape, err := g.SegShape(idx)
			if err != nil {
				return 0, err
			}
			total += shape.Length()
		case KindBend:
			idx, _ := p.AsBend()
			shape, err := g.BendShape(idx)
			if err != nil {
				return 0, err
			}
			total += shape.Length()
		}
	}
	return total, nil
}

// RemoveBand deletes every loose primitive belonging to the band
// terminated by term: its loose segs and bends, and the loose dots
// strung between them. The fixed terminal dots at either end are left
// untouched.
func (g *Graph) RemoveBand(term SegIndex) error {
	_, prims, looseDots, err := g.BandPrimitives(term)
	if err != nil {
		return err
	}
	for _, p := range prims {
		switch p.Kind {
		case KindSeg:
			idx, _ := p.AsSeg()
			kind, err := g.SegKind(idx)
			if err != nil {
				return err
			}
			if kind == SegFixed {
				continue
			}
			if err := g.RemoveSeg(idx); err != nil {
				return err
			}
		case KindBend:
			idx, _ := p.AsBend()
			if err := g.RemoveBend(idx); err != nil {
				return err
			}
		}
	}
	for _, d := range looseDots {
		if err := g.RemoveDot(d); err != nil {
			return err
		}
	}
	return nil
}
