// Package tracer implements the navcord: the stack of (navvertex,
// side) hops a single ratline's route builds up as A* explores the
// navmesh, plus the drawing-engine head that stack drives.
package tracer

import (
	"errors"

	"topola/core"
	"topola/draw"
	"topola/navmesh"
	"topola/rules"
)

// Sentinel errors surfaced by Step. CannotDraw means no tangent
// exists between the head and the target at all; CannotWrap means a
// tangent exists but the resulting segbend would infringe clearance.
var (
	ErrCannotDraw         = errors.New("tracer: no tangent exists between head and target")
	ErrCannotWrap         = errors.New("tracer: wrap around target infringes clearance")
	ErrNotWraparoundable  = errors.New("tracer: step target is not a wraparoundable navvertex")
	ErrEmptyNavcord       = errors.New("tracer: step_back on an empty navcord")
)

// CannotWrapError is the concrete type behind ErrCannotWrap: it names
// the specific primitive the attempted wrap infringed, for astar's
// ghost/obstacle diagnostic recording.
type CannotWrapError struct {
	Offender core.PrimIndex
}

func (e *CannotWrapError) Error() string {
	return "tracer: wrap around target infringes clearance"
}

func (e *CannotWrapError) Is(target error) bool { return target == ErrCannotWrap }

// PathStep names one hop of a navcord's path: visit navmesh vertex
// Vertex, wrapping it on the CW side. The A* edge prescribes CW; the
// tracer never reverses it.
type PathStep struct {
	Vertex int
	CW     bool
}

// navStep is PathStep plus everything Step built, so StepBack can
// reverse it exactly.
type navStep struct {
	PathStep
	result draw.SegbendResult
}

// Navcord is the mutable state of one in-progress ratline trace: the
// drawing head, and the stack of hops that produced it.
type Navcord struct {
	g      *core.Graph
	oracle *rules.Oracle
	mesh   *navmesh.Mesh
	width  float64
	net    *int

	initialHead draw.Head
	head        draw.Head
	path        []navStep
}

// Start begins a navcord anchored at origin (a physical dot already
// in the graph — a pad or via), whose navmesh vertex is originVertex.
func Start(g *core.Graph, oracle *rules.Oracle, mesh *navmesh.Mesh, origin core.DotIndex, originVertex int, layer int, width float64, net *int) *Navcord {
	head := draw.NewHead(origin, layer)
	return &Navcord{
		g:           g,
		oracle:      oracle,
		mesh:        mesh,
		width:       width,
		net:         net,
		initialHead: head,
		head:        head,
	}
}

// Head returns the current drawing head, for astar's cost function to
// measure the bend span a candidate step would introduce.
func (nc *Navcord) Head() draw.Head { return nc.head }

// Path returns the navcord's current hop sequence.
func (nc *Navcord) Path() []PathStep {
	out := make([]PathStep, len(nc.path))
	for i, s := range nc.path {
		out[i] = s.PathStep
	}
	return out
}

// Step extends the navcord by one hop: a tangent from the current head
// to the navmesh vertex toVertex, wrapped on the cw side, pushed onto
// the path. toVertex must reference a wraparoundable primitive (not
// the injected origin or destination).
func (nc *Navcord) Step(toVertex int, cw bool) error {
	v := nc.mesh.VertexAt(toVertex)
	if v.IsOrigin || v.IsDest {
		return ErrNotWraparoundable
	}

	result, err := draw.SegbendAround(nc.g, nc.oracle, nc.head, v.Prim, cw, nc.width, nc.net)
	if err != nil {
		switch {
		case errors.Is(err, draw.ErrCannotDraw):
			return ErrCannotDraw
		case errors.Is(err, core.ErrInfringes):
			var infErr *core.InfringementError
			if errors.As(err, &infErr) {
				return &CannotWrapError{Offender: infErr.Offender}
			}
			return ErrCannotWrap
		default:
			return err
		}
	}

	nc.head = result.NewHead
	nc.path = append(nc.path, navStep{PathStep: PathStep{Vertex: toVertex, CW: cw}, result: result})
	return nil
}

// StepBack undoes the navcord's most recent hop.
func (nc *Navcord) StepBack() error {
	if len(nc.path) == 0 {
		return ErrEmptyNavcord
	}
	last := nc.path[len(nc.path)-1]
	if err := draw.UndoSegbend(nc.g, last.result); err != nil {
		return err
	}
	nc.path = nc.path[:len(nc.path)-1]
	if len(nc.path) == 0 {
		nc.head = nc.initialHead
	} else {
		nc.head = nc.path[len(nc.path)-1].result.NewHead
	}
	return nil
}

// ReworkPath walks the navcord back to the longest common prefix it
// shares with newPath, then re-walks the remainder, so that
// nc.Path() == newPath on success. A failure mid-walk
// leaves the navcord at whatever prefix of newPath it managed to
// re-draw; the caller (astar) treats this step's cost as infinite and
// does not retry within the same search.
func (nc *Navcord) ReworkPath(newPath []PathStep) error {
	prefix := 0
	for prefix < len(nc.path) && prefix < len(newPath) && nc.path[prefix].PathStep == newPath[prefix] {
		prefix++
	}
	for len(nc.path) > prefix {
		if err := nc.StepBack(); err != nil {
			return err
		}
	}
	for i := prefix; i < len(newPath); i++ {
		if err := nc.Step(newPath[i].Vertex, newPath[i].CW); err != nil {
			return err
		}
	}
	return nil
}

// Finish terminates the navcord's chain into destination (a physical
// dot already in the graph), returning the band-terminating seg
//.
func (nc *Navcord) Finish(destination core.DotIndex) (core.SegIndex, error) {
	return draw.FinishInDot(nc.g, nc.head, destination, nc.width, nc.net)
}
