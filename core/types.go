// Package core defines the primitive arena: the Dot, Seg, Bend and
// Compound stores that back every board layout topola builds or
// mutates, plus the R-tree mirror used for spatial queries.
//
// Primitives are never referenced by pointer across package
// boundaries; every external reference is a typed, generation-checked
// index (DotIndex, SegIndex, BendIndex, CompoundIndex) so that a stale
// reference held across a removal is detected rather than silently
// aliasing a reused slot.
//
// Graph serializes all mutation behind a single sync.RWMutex:
// primitive insertion always touches both the typed arena and the
// shared R-tree in the same step, so a single lock avoids an
// acquire-order hazard between the two.
package core

import (
	"errors"
	"sync"

	"github.com/dhconnelly/rtreego"

	"topola/rules"
)

// Sentinel errors for core arena operations.
var (
	// ErrNotFound indicates an index referenced a slot that either
	// never existed or has since been removed (generation mismatch).
	ErrNotFound = errors.New("core: primitive not found")

	// ErrWrongKind indicates an index of one kind was used where a
	// different kind was expected (e.g. a SegIndex passed where a
	// BendIndex's core dot was expected).
	ErrWrongKind = errors.New("core: wrong primitive kind")

	// ErrInfringes indicates the candidate primitive would violate
	// clearance against an already-placed primitive and was rejected
	// by the insertion dry-run.
	ErrInfringes = errors.New("core: candidate primitive infringes clearance")

	// ErrDegreeExceeded indicates a dot already carries the maximum
	// number of joint edges its kind allows.
	ErrDegreeExceeded = errors.New("core: joint degree exceeded")

	// ErrDanglingSeg indicates an attempt to remove a dot that still
	// has segs or bends jointed to it.
	ErrDanglingSeg = errors.New("core: dot still has joints")

	// ErrBadInnerRelation indicates a bend was constructed with both,
	// or neither, of a core dot and an outer bend — exactly one must
	// be set.
	ErrBadInnerRelation = errors.New("core: bend must wrap exactly one of a core dot or an outer bend")
)

// InfringementError is the concrete type behind ErrInfringes: it names
// the specific already-placed primitive the candidate insertion failed
// to clear, for callers (astar's diagnostic ghost/obstacle recording)
// that need more than a bare sentinel.
type InfringementError struct {
	Offender PrimIndex
}

func (e *InfringementError) Error() string {
	return "core: candidate primitive infringes clearance"
}

// Is lets errors.Is(err, ErrInfringes) succeed against the concrete
// *InfringementError returned by insertion, matching the sentinel
// without callers needing to know about the wrapper type.
func (e *InfringementError) Is(target error) bool {
	return target == ErrInfringes
}

// Kind tags the dynamic type carried by a PrimIndex, for primitive
// references that can point at any arena.
type Kind uint8

const (
	KindDot Kind = iota
	KindSeg
	KindBend
	KindCompound
)

func (k Kind) String() string {
	switch k {
	case KindDot:
		return "dot"
	case KindSeg:
		return "seg"
	case KindBend:
		return "bend"
	case KindCompound:
		return "compound"
	default:
		return "unknown"
	}
}

// PrimIndex is a type-erased, generation-checked reference to any
// primitive in the arena. Spatial queries and joint/adjacency edges
// use PrimIndex since their targets can be heterogeneous; mutation
// APIs use the typed *Index wrappers below so the compiler catches
// kind mistakes at the call site.
type PrimIndex struct {
	Kind Kind
	slot uint32
	gen  uint32
}

// DotIndex references a slot in the dot arena.
type DotIndex struct {
	slot uint32
	gen  uint32
}

// SegIndex references a slot in the seg arena.
type SegIndex struct {
	slot uint32
	gen  uint32
}

// BendIndex references a slot in the bend arena.
type BendIndex struct {
	slot uint32
	gen  uint32
}

// CompoundIndex references a slot in the compound arena.
type CompoundIndex struct {
	slot uint32
	gen  uint32
}

// Less orders SegIndex values deterministically, for canonicalizing a
// BandUid as the smaller index first regardless of discovery order
//.
func (i SegIndex) Less(j SegIndex) bool {
	if i.slot != j.slot {
		return i.slot < j.slot
	}
	return i.gen < j.gen
}

// Prim converts a typed index into its type-erased form.
func (i DotIndex) Prim() PrimIndex      { return PrimIndex{Kind: KindDot, slot: i.slot, gen: i.gen} }
func (i SegIndex) Prim() PrimIndex      { return PrimIndex{Kind: KindSeg, slot: i.slot, gen: i.gen} }
func (i BendIndex) Prim() PrimIndex     { return PrimIndex{Kind: KindBend, slot: i.slot, gen: i.gen} }
func (i CompoundIndex) Prim() PrimIndex { return PrimIndex{Kind: KindCompound, slot: i.slot, gen: i.gen} }

// AsDot narrows a PrimIndex back to a DotIndex. ok is false if p is
// not a dot reference.
func (p PrimIndex) AsDot() (DotIndex, bool) {
	if p.Kind != KindDot {
		return DotIndex{}, false
	}
	return DotIndex{slot: p.slot, gen: p.gen}, true
}

// AsSeg narrows a PrimIndex back to a SegIndex.
func (p PrimIndex) AsSeg() (SegIndex, bool) {
	if p.Kind != KindSeg {
		return SegIndex{}, false
	}
	return SegIndex{slot: p.slot, gen: p.gen}, true
}

// AsBend narrows a PrimIndex back to a BendIndex.
func (p PrimIndex) AsBend() (BendIndex, bool) {
	if p.Kind != KindBend {
		return BendIndex{}, false
	}
	return BendIndex{slot: p.slot, gen: p.gen}, true
}

// AsCompound narrows a PrimIndex back to a CompoundIndex.
func (p PrimIndex) AsCompound() (CompoundIndex, bool) {
	if p.Kind != KindCompound {
		return CompoundIndex{}, false
	}
	return CompoundIndex{slot: p.slot, gen: p.gen}, true
}

// SegKind distinguishes the three seg lifecycles: a
// fixed seg never moves, a lone loose seg is a single free-floating
// segment, a seq(uence) loose seg is one link in a chain built by the
// tracer.
type SegKind uint8

const (
	SegFixed SegKind = iota
	SegLoneLoose
	SegSeqLoose
)

// CompoundKind distinguishes the compound primitive variants: a via
// connects layers at one point, a zone is a filled keepout/pour
// region, a grouping is a named bag of other primitives with no shape
// of its own.
type CompoundKind uint8

const (
	CompoundVia CompoundKind = iota
	CompoundZone
	CompoundGrouping
)

// dotEntry is a slot in the dot arena.
type dotEntry struct {
	alive  bool
	gen    uint32
	fixed  bool
	center ptXY
	radius float64
	layer  int
	net    *int
	// joints holds the segs/bends whose From or To references this
	// dot. A fixed dot has no joint-count ceiling; a loose dot carries
	// at most two.
	joints []PrimIndex
}

// segEntry is a slot in the seg arena.
type segEntry struct {
	alive bool
	gen   uint32
	kind  SegKind
	from  DotIndex
	to    DotIndex
	width float64
	layer int
	net   *int
}

// bendEntry is a slot in the bend arena.
type bendEntry struct {
	alive bool
	gen   uint32
	fixed bool
	from  DotIndex
	to    DotIndex
	width float64
	layer int
	net   *int
	cw    bool

	// Exactly one of hasCore/hasOuter is true (invariant 1): a bend
	// wraps either a core dot directly, or the bend one rail further in
	// toward the same core (the wrapping bend sits at the larger radius).
	hasCore  bool
	core     DotIndex
	hasOuter bool
	outer    BendIndex

	// radius is the bend's own wrap radius: the arc's distance from
	// its core dot's (or outer bend's) center. Set once at
	// construction by draw.SegbendAround's tangent solve; core itself
	// never recomputes it.
	radius float64
}

// compoundEntry is a slot in the compound arena.
type compoundEntry struct {
	alive   bool
	gen     uint32
	kind    CompoundKind
	net     *int
	members []PrimIndex

	// via-specific
	center     ptXY
	radius     float64
	fromLayer  int
	toLayer    int

	// zone-specific
	polygon []ptXY
	layer   int
}

// ptXY avoids importing geom's Point directly into entry storage so
// the arena's internal layout can change shape without geom churn;
// conversions live in shapes.go.
type ptXY struct{ X, Y float64 }

// Graph owns every primitive arena plus the R-tree spatial mirror. A
// Graph is always built with an Oracle, since insertion validates
// clearance against it on every mutating call.
type Graph struct {
	mu sync.RWMutex

	oracle *rules.Oracle

	dots      []dotEntry
	segs      []segEntry
	bends     []bendEntry
	compounds []compoundEntry

	freeDots      []uint32
	freeSegs      []uint32
	freeBends     []uint32
	freeCompounds []uint32

	tree      *rtreego.Rtree
	spatialOf map[PrimIndex]*spatialEntry
}

// NewGraph creates an empty arena backed by oracle for clearance
// checks. oracle must not be nil.
func NewGraph(oracle *rules.Oracle) *Graph {
	return &Graph{
		oracle:    oracle,
		tree:      rtreego.NewTree(2, 8, 25),
		spatialOf: make(map[PrimIndex]*spatialEntry),
	}
}
