// Package board is the interchange boundary between design input and
// the routing core: a Board owns the geometry arena and rule oracle,
// plus the name tables and pre-routed/pad inventory recovered from
// design input. Neither the DSN reader that builds a Board nor the
// SES writer that consumes one lives here — board only exposes the
// surface between them.
package board

import (
	"errors"

	"topola/core"
	"topola/rules"
)

// ErrUnknownLayer and ErrUnknownNet are returned when a name lookup
// misses, e.g. a DSN file referencing a layer or net never declared
// in its own structure section.
var (
	ErrUnknownLayer = errors.New("board: unknown layer name")
	ErrUnknownNet   = errors.New("board: unknown net name")
)

// LayerID indexes the board's layer stack (0 is the first declared
// layer, conventionally the top copper layer).
type LayerID int

// NetID is a net's identity, shared with core's *int net pointers and
// rules.Conditions.
type NetID int

// PinRef names one pad on the board: a component pin on a named
// layer, the unit an Autoroute selection is built from.
type PinRef struct {
	Pin   string
	Layer string
}

// Ratline is an unresolved electrical connection between two pads on
// the same net, as read from the design's network/class section
//.
type Ratline struct {
	Net  NetID
	From core.DotIndex
	To   core.DotIndex
}

// Board owns the geometry arena, the rule oracle, and the interchange
// bookkeeping recovered from the input design: layer/net name tables,
// pad positions, and the pre-routed/ratline inventory.
type Board struct {
	graph  *core.Graph
	oracle *rules.Oracle

	layerNames []string
	layerIDs   map[string]LayerID

	netNames []string
	netIDs   map[string]NetID

	pins map[PinRef]core.DotIndex

	prerouted []core.PrimIndex
	ratlines  []Ratline

	bandNames map[BandName]core.SegIndex
}

// BandName is the stable, serializable handle a committed band is
// known by outside the geometry arena — the unit RemoveBands and
// MeasureLength selections are built from. A SegIndex
// carries no meaning across a JSON round-trip (it is regenerated on
// every fresh Board), so commands reference bands by name instead.
type BandName string

// Option configures a Board before construction.
type Option func(*Board)

// WithLayers declares the board's layer stack in the order given.
// Layer 0 is names[0].
func WithLayers(names ...string) Option {
	return func(b *Board) {
		for _, n := range names {
			b.layerIDs[n] = LayerID(len(b.layerNames))
			b.layerNames = append(b.layerNames, n)
		}
	}
}

// WithNets pre-declares net names, assigning sequential NetIDs in the
// order given. A DSN reader may also call DeclareNet lazily as nets
// are encountered.
func WithNets(names ...string) Option {
	return func(b *Board) {
		for _, n := range names {
			b.declareNetLocked(n)
		}
	}
}

// NewBoard creates an empty Board backed by oracle for clearance
// checks. oracle must not be nil.
func NewBoard(oracle *rules.Oracle, opts ...Option) *Board {
	b := &Board{
		graph:    core.NewGraph(oracle),
		oracle:   oracle,
		layerIDs:  make(map[string]LayerID),
		netIDs:    make(map[string]NetID),
		pins:      make(map[PinRef]core.DotIndex),
		bandNames: make(map[BandName]core.SegIndex),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Graph returns the underlying geometry arena, for packages (draw,
// navmesh, tracer, astar, executor) that operate directly on indices.
func (b *Board) Graph() *core.Graph { return b.graph }

// Oracle returns the rule oracle backing this board's clearance/width
// lookups.
func (b *Board) Oracle() *rules.Oracle { return b.oracle }

// LayerCount returns the number of declared layers.
func (b *Board) LayerCount() int { return len(b.layerNames) }

// LayerName resolves a LayerID to its declared name.
func (b *Board) LayerName(id LayerID) (string, error) {
	if int(id) < 0 || int(id) >= len(b.layerNames) {
		return "", ErrUnknownLayer
	}
	return b.layerNames[id], nil
}

// LayerID resolves a declared layer name to its LayerID.
func (b *Board) LayerID(name string) (LayerID, error) {
	id, ok := b.layerIDs[name]
	if !ok {
		return 0, ErrUnknownLayer
	}
	return id, nil
}

// DeclareNet registers name as a net if it has not been seen before,
// returning its NetID either way. Used by a DSN reader encountering
// net names lazily while parsing the network section.
func (b *Board) DeclareNet(name string) NetID {
	if id, ok := b.netIDs[name]; ok {
		return id
	}
	return b.declareNetLocked(name)
}

func (b *Board) declareNetLocked(name string) NetID {
	id := NetID(len(b.netNames))
	b.netIDs[name] = id
	b.netNames = append(b.netNames, name)
	return id
}

// NetName resolves a NetID to its declared name.
func (b *Board) NetName(id NetID) (string, error) {
	if int(id) < 0 || int(id) >= len(b.netNames) {
		return "", ErrUnknownNet
	}
	return b.netNames[id], nil
}

// NetID resolves a declared net name to its NetID.
func (b *Board) NetID(name string) (NetID, error) {
	id, ok := b.netIDs[name]
	if !ok {
		return 0, ErrUnknownNet
	}
	return id, nil
}

// AddPad records center (already inserted into Graph() by the caller,
// net and all) as the dot backing ref, for later PadAt/Pins lookups.
func (b *Board) AddPad(ref PinRef, center core.DotIndex) {
	b.pins[ref] = center
}

// PadAt resolves a PinRef to the dot index the DSN reader created for
// it.
func (b *Board) PadAt(ref PinRef) (core.DotIndex, bool) {
	idx, ok := b.pins[ref]
	return idx, ok
}

// Pins returns every declared pad reference with its dot, as the
// board's own map, so iteration order is not defined: a reader who
// needs a stable order should track it separately (e.g. the DSN
// reader's own declaration order).
func (b *Board) Pins() map[PinRef]core.DotIndex {
	return b.pins
}

// AddPrerouted records a pre-existing fixed seg, bend, or via as part
// of the design's wiring section. The primitive itself must already
// have been inserted into Graph().
func (b *Board) AddPrerouted(p core.PrimIndex) {
	b.prerouted = append(b.prerouted, p)
}

// Prerouted returns every pre-routed primitive recorded by
// AddPrerouted.
func (b *Board) Prerouted() []core.PrimIndex {
	return append([]core.PrimIndex(nil), b.prerouted...)
}

// AddRatline records an unresolved connection from the design's
// network/class section.
func (b *Board) AddRatline(r Ratline) {
	b.ratlines = append(b.ratlines, r)
}

// Ratlines returns every ratline recorded by AddRatline, in
// declaration order — the order Autoroute's default selection uses.
func (b *Board) Ratlines() []Ratline {
	return append([]Ratline(nil), b.ratlines...)
}

// RegisterBand records name as the handle for the band terminated by
// term, so later commands (RemoveBands, MeasureLength) can address it
// without carrying a raw SegIndex across a history file round-trip.
func (b *Board) RegisterBand(name BandName, term core.SegIndex) {
	b.bandNames[name] = term
}

// Bands returns a copy of the band registry: every committed band's
// name and terminating seg. A session writer wanting deterministic
// output should sort the names itself.
func (b *Board) Bands() map[BandName]core.SegIndex {
	out := make(map[BandName]core.SegIndex, len(b.bandNames))
	for name, term := range b.bandNames {
		out[name] = term
	}
	return out
}

// BandByName resolves a previously registered band name back to its
// terminating seg.
func (b *Board) BandByName(name BandName) (core.SegIndex, bool) {
	idx, ok := b.bandNames[name]
	return idx, ok
}

// UnregisterBand removes name from the registry, called once its band
// has actually been removed from the graph.
func (b *Board) UnregisterBand(name BandName) {
	delete(b.bandNames, name)
}
