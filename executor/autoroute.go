package executor

import (
	"errors"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"topola/astar"
	"topola/board"
	"topola/core"
	"topola/geom"
	"topola/navmesh"
	"topola/tracer"
)

// wraparoundMargin pads the navmesh envelope around a ratline's
// origin/destination pair when Options.Wraparoundable is set, wide
// enough to pull in obstacles a realistic detour would need to go
// around.
const wraparoundMargin = 50.0

// ErrRatlineUnroutable reports a ratline whose A* search exhausted
// its open set without reaching the destination.
type ErrRatlineUnroutable struct {
	Ratline board.Ratline
	Err     error
}

func (e *ErrRatlineUnroutable) Error() string {
	return fmt.Sprintf("executor: ratline unroutable: %v", e.Err)
}

func (e *ErrRatlineUnroutable) Unwrap() error { return e.Err }

// RatlineResult is one ratline's completed autoroute: the band name
// it was registered under and the terminating seg the navcord
// committed.
type RatlineResult struct {
	Name    board.BandName
	Termseg core.SegIndex
	Length  float64
}

// ratlineRun holds the in-progress state for the ratline Autoroute is
// currently stepping: its navmesh, its navcord, and the A* search
// driving it.
type ratlineRun struct {
	ratline board.Ratline
	name    board.BandName
	mesh    *navmesh.Mesh
	nc      *tracer.Navcord
	search  *astar.Search
}

// Autoroute is the long-operation executor behind the Autoroute
// command: for each selected ratline, build a navmesh, start a
// navcord, and run A* to completion, one expansion per Step call.
// CompareDetours builds on the same per-ratline machinery.
type Autoroute struct {
	b    *board.Board
	opts Options

	queue []board.Ratline
	names []board.BandName // names[i] is queue[i]'s registered band name

	idx     int
	current *ratlineRun

	routedBands []RatlineResult
	failures    []astar.Failure
	done        bool
}

// ResolveSelection maps a pin selection to the subset of b's declared ratlines with
// both endpoints among the selected pins. Shared by NewAutoroute and
// the invoker's construction of Compare/CompareDetours, which also
// start from a pin selection but operate on the resolved ratline list
// directly.
func ResolveSelection(b *board.Board, selection []board.PinRef) []board.Ratline {
	selected := make(map[core.DotIndex]bool, len(selection))
	for _, ref := range selection {
		if dot, ok := b.PadAt(ref); ok {
			selected[dot] = true
		}
	}

	var out []board.Ratline
	for _, r := range b.Ratlines() {
		if selected[r.From] && selected[r.To] {
			out = append(out, r)
		}
	}
	return out
}

func presorted(b *board.Board, ratlines []board.Ratline, mode PresortMode) []board.Ratline {
	if mode != PresortLength {
		return ratlines
	}
	lengths := make([]float64, len(ratlines))
	for i, r := range ratlines {
		lengths[i] = ratlineSpan(b, r)
	}
	idx := make([]int, len(ratlines))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool { return lengths[idx[i]] < lengths[idx[j]] })
	sorted := make([]board.Ratline, len(ratlines))
	for i, j := range idx {
		sorted[i] = ratlines[j]
	}
	return sorted
}

// ValidateSelection rejects a pin selection naming any pin the board
// does not have.
func ValidateSelection(b *board.Board, selection []board.PinRef) error {
	for _, ref := range selection {
		if _, ok := b.PadAt(ref); !ok {
			return fmt.Errorf("%w: %s on %s", ErrUnknownPin, ref.Pin, ref.Layer)
		}
	}
	return nil
}

// NewAutoroute resolves selection to ratlines via ResolveSelection and
// prepares to route them in the order opts.Presort prescribes.
func NewAutoroute(b *board.Board, selection []board.PinRef, opts Options) (*Autoroute, error) {
	if err := ValidateSelection(b, selection); err != nil {
		return nil, err
	}
	queue := presorted(b, ResolveSelection(b, selection), opts.Presort)
	return NewAutorouteFromRatlines(b, queue, opts), nil
}

// NewAutorouteFromRatlines prepares to route exactly the given
// ratlines, in the given order, unsorted — for callers (Compare,
// CompareDetours) that need to run the same ratline set in two
// explicit, opposite orders rather than have Autoroute re-derive an
// order from a pin selection.
func NewAutorouteFromRatlines(b *board.Board, ratlines []board.Ratline, opts Options) *Autoroute {
	queue := append([]board.Ratline(nil), ratlines...)
	names := make([]board.BandName, len(queue))
	for i, r := range queue {
		names[i] = ratlineBandName(b, r)
	}
	return &Autoroute{b: b, opts: opts, queue: queue, names: names}
}

func ratlineSpan(b *board.Board, r board.Ratline) float64 {
	from, err := b.Graph().DotShape(r.From)
	if err != nil {
		return 0
	}
	to, err := b.Graph().DotShape(r.To)
	if err != nil {
		return 0
	}
	return from.Pos.Dist(to.Pos)
}

func ratlineBandName(b *board.Board, r board.Ratline) board.BandName {
	netName, _ := b.NetName(r.Net)
	return board.BandName(fmt.Sprintf("%s:%v:%v", netName, r.From, r.To))
}

// RoutedBands returns the band names and terminating segs committed
// so far.
func (a *Autoroute) RoutedBands() []RatlineResult {
	return append([]RatlineResult(nil), a.routedBands...)
}

// Failures returns every A* diagnostic accumulated across every
// ratline stepped so far.
func (a *Autoroute) Failures() []astar.Failure { return append([]astar.Failure(nil), a.failures...) }

// Step performs one A* expansion of the ratline currently in
// progress, starting the next ratline's navmesh/navcord/search first
// if none is in progress. Planning happens transparently inside the
// same Step call that begins a new ratline, since navmesh
// construction is not itself steppable.
func (a *Autoroute) Step() (Status, error) {
	if a.done {
		return Break, ErrAlreadyDone
	}

	if a.current == nil {
		if a.idx >= len(a.queue) {
			a.done = true
			return Break, nil
		}
		run, err := a.startRatline(a.queue[a.idx], a.names[a.idx])
		if err != nil {
			return Break, err
		}
		a.current = run
	}

	status, err := a.current.search.Step()
	if err != nil {
		ratline := a.current.ratline
		a.failures = append(a.failures, a.current.search.Failures()...)
		a.current = nil
		a.done = true
		return Break, &ErrRatlineUnroutable{Ratline: ratline, Err: err}
	}
	if status == astar.Continue {
		return Continue, nil
	}

	// astar.Break with no error: the ratline's band is committed.
	result, err := a.current.search.Finish()
	a.failures = append(a.failures, a.current.search.Failures()...)
	if err != nil {
		ratline := a.current.ratline
		a.current = nil
		a.done = true
		return Break, &ErrRatlineUnroutable{Ratline: ratline, Err: err}
	}
	a.b.RegisterBand(a.current.name, result.BandTermseg)
	length, err := a.b.BandLength(result.BandTermseg)
	if err != nil {
		a.current = nil
		a.done = true
		return Break, err
	}
	a.routedBands = append(a.routedBands, RatlineResult{Name: a.current.name, Termseg: result.BandTermseg, Length: length})
	log.WithFields(logrus.Fields{"ratline": a.current.name, "length": length}).Info("autoroute: ratline committed")

	a.current = nil
	a.idx++
	if a.idx >= len(a.queue) {
		a.done = true
		return Break, nil
	}
	return Continue, nil
}

func (a *Autoroute) startRatline(r board.Ratline, name board.BandName) (*ratlineRun, error) {
	g := a.b.Graph()
	originShape, err := g.DotShape(r.From)
	if err != nil {
		return nil, err
	}
	destShape, err := g.DotShape(r.To)
	if err != nil {
		return nil, err
	}
	layer, err := g.Layer(r.From.Prim())
	if err != nil {
		return nil, err
	}

	net := int(r.Net)
	envelope := envelopeFor(originShape.Pos, destShape.Pos, a.opts.Wraparoundable, a.b.Oracle().LargestClearance(&net))
	mesh, err := navmesh.Build(g, envelope, layer, originShape.Pos, destShape.Pos)
	if err != nil {
		return nil, err
	}

	nc := tracer.Start(g, a.b.Oracle(), mesh, r.From, mesh.OriginIndex, layer, a.opts.RoutedBandWidth, &net)
	search := astar.NewSearch(g, mesh, nc, r.To)

	return &ratlineRun{ratline: r, name: name, mesh: mesh, nc: nc, search: search}, nil
}

// envelopeFor bounds the navmesh's working region: the
// origin/destination box, padded (when wraparound detours are
// allowed) by the fixed margin plus the largest clearance any
// primitive of the routed net could demand.
func envelopeFor(origin, destination geom.Point, wraparoundable bool, largestClearance float64) geom.AABB {
	minX, maxX := origin.X, destination.X
	if minX > maxX {
		minX, maxX = maxX, minX
	}
	minY, maxY := origin.Y, destination.Y
	if minY > maxY {
		minY, maxY = maxY, minY
	}
	box := geom.AABB{MinX: minX, MinY: minY, MaxX: maxX, MaxY: maxY}
	if !wraparoundable {
		return box
	}
	return box.Inflated(wraparoundMargin + largestClearance)
}

// Finish drives Autoroute to completion, one Step at a time.
func (a *Autoroute) Finish() error {
	for {
		status, err := a.Step()
		if err != nil {
			if errors.Is(err, ErrAlreadyDone) {
				return nil
			}
			return err
		}
		if status == Break {
			return nil
		}
	}
}

// Abort rolls back the ratline currently in progress by unwinding its
// navcord's path (the inverse Drawing operations draw.UndoSegbend
// already records per hop), leaving already-committed ratlines
// untouched; undoing those is Undo's job, not Abort's.
func (a *Autoroute) Abort() {
	if a.current == nil {
		return
	}
	for range a.current.nc.Path() {
		_ = a.current.nc.StepBack()
	}
	a.current = nil
	a.done = true
}
