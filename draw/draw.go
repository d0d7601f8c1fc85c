// Package draw implements the drawing engine: the small, stateless
// vocabulary of composite mutations the tracer builds loose chains
// out of. Every function here takes a *core.Graph and a
// *rules.Oracle and leaves the caller (tracer) to hold the chain state
// between calls.
package draw

import (
	"errors"
	"math"

	"topola/core"
	"topola/geom"
	"topola/rules"
)

// ErrCannotDraw is returned when no tangent exists between the head
// and target geometry (one circle contains the other).
var ErrCannotDraw = errors.New("draw: no tangent exists between head and target")

// DefaultWrapAngle is how far a single SegbendAround call wraps around
// its target: the bend always ends this angle past the tangent point.
// The exit point is not adjusted to whatever is drawn next, so a
// following SegbendAround or FinishInDot whose straight run passes back
// within the target's keepout fails with an infringement.
const DefaultWrapAngle = math.Pi / 6

// Head describes the moving end of an in-progress loose chain: the
// current anchor dot, and — if the chain is currently wrapped around
// something — the innermost bend carrying it.
type Head struct {
	Dot     core.DotIndex
	Bend    core.BendIndex
	HasBend bool
	Layer   int
}

// NewHead starts a chain at a fixed anchor with no wrap yet.
func NewHead(dot core.DotIndex, layer int) Head {
	return Head{Dot: dot, Layer: layer}
}

// SegbendResult is everything SegbendAround created, kept together so
// UndoSegbend can reverse exactly this call.
type SegbendResult struct {
	Seg     core.SegIndex
	Bend    core.BendIndex
	DIn     core.DotIndex
	DOut    core.DotIndex
	NewHead Head
}

// SegbendAround extends the chain by a seg tangent to target, followed
// by a bend wrapping target in the cw direction. target
// must be a dot or a bend (a wraparoundable primitive); any other kind
// returns core.ErrWrongKind.
func SegbendAround(g *core.Graph, oracle *rules.Oracle, head Head, target core.PrimIndex, cw bool, width float64, net *int) (SegbendResult, error) {
	clearance := oracle.Clearance(rules.Conditions{Net: net}, rules.Conditions{Net: net})

	fromCircle, err := headKeepoutCircle(g, head, width, clearance)
	if err != nil {
		return SegbendResult{}, err
	}
	targetCircle, err := wraparoundableCircle(g, target)
	if err != nil {
		return SegbendResult{}, err
	}
	toCircle := targetCircle.Inflated(clearance + width/2)

	t1, t2, ok := geom.OuterTangents(fromCircle, toCircle)
	if !ok {
		return SegbendResult{}, ErrCannotDraw
	}
	tangent := t1
	if geom.TangentSide(fromCircle, toCircle, t1) != cw {
		tangent = t2
	}

	dIn, err := g.AddLooseDot(tangent.OnB, 0, head.Layer, net)
	if err != nil {
		return SegbendResult{}, err
	}

	seg, err := g.AddSeqLooseSeg(head.Dot, dIn, width, head.Layer, net)
	if err != nil {
		_ = g.RemoveDot(dIn)
		return SegbendResult{}, err
	}

	exitAngle := DefaultWrapAngle
	if cw {
		exitAngle = -exitAngle
	}
	dOutPos := rotateAround(targetCircle.Pos, tangent.OnB, exitAngle)
	dOut, err := g.AddLooseDot(dOutPos, 0, head.Layer, net)
	if err != nil {
		_ = g.RemoveSeg(seg)
		_ = g.RemoveDot(dIn)
		return SegbendResult{}, err
	}

	bend, err := addWrapBend(g, dIn, dOut, target, toCircle.R, width, cw, head.Layer, net)
	if err != nil {
		_ = g.RemoveDot(dOut)
		_ = g.RemoveSeg(seg)
		_ = g.RemoveDot(dIn)
		return SegbendResult{}, err
	}

	return SegbendResult{
		Seg:     seg,
		Bend:    bend,
		DIn:     dIn,
		DOut:    dOut,
		NewHead: Head{Dot: dOut, Bend: bend, HasBend: true, Layer: head.Layer},
	}, nil
}

func addWrapBend(g *core.Graph, from, to core.DotIndex, target core.PrimIndex, radius, width float64, cw bool, layer int, net *int) (core.BendIndex, error) {
	switch target.Kind {
	case core.KindDot:
		coreDot, _ := target.AsDot()
		return g.AddLooseBend(from, to, coreDot, radius, width, cw, layer, net)
	case core.KindBend:
		outer, _ := target.AsBend()
		return g.AddLooseBendOnOuter(from, to, outer, radius, width, cw, layer, net)
	default:
		return core.BendIndex{}, core.ErrWrongKind
	}
}

// FinishInDot connects the chain head to targetDot, producing either a
// lone-loose seg (head has never been wrapped) or a terminating
// seq-loose seg (head is the live end of a chain of bends), and
// returns the band-terminating segment index.
func FinishInDot(g *core.Graph, head Head, targetDot core.DotIndex, width float64, net *int) (core.SegIndex, error) {
	if !head.HasBend {
		return g.AddLoneLooseSeg(head.Dot, targetDot, width, head.Layer, net)
	}
	return g.AddSeqLooseSeg(head.Dot, targetDot, width, head.Layer, net)
}

// UndoSegbend reverses exactly the mutation SegbendAround(...) == r
// performed: removes the bend, the seg, and the two dots it created,
// in dependency order. It is the tracer's step_back primitive.
func UndoSegbend(g *core.Graph, r SegbendResult) error {
	if err := g.RemoveBend(r.Bend); err != nil {
		return err
	}
	if err := g.RemoveSeg(r.Seg); err != nil {
		return err
	}
	if err := g.RemoveDot(r.DOut); err != nil {
		return err
	}
	return g.RemoveDot(r.DIn)
}

// headKeepoutCircle returns the circle SegbendAround's tangent solve
// must clear on the head side: the head dot itself (radius zero,
// tangent degenerates to point-to-circle) if the chain has never been
// wrapped, or the current bend's outer (copper) boundary — the
// next-outer radius — if it has.
func headKeepoutCircle(g *core.Graph, head Head, width, clearance float64) (geom.Circle, error) {
	if !head.HasBend {
		dot, err := g.DotShape(head.Dot)
		if err != nil {
			return geom.Circle{}, err
		}
		return geom.Circle{Pos: dot.Pos, R: 0}, nil
	}
	arc, err := g.BendShape(head.Bend)
	if err != nil {
		return geom.Circle{}, err
	}
	return geom.Circle{Pos: arc.Center, R: arc.R + arc.Width/2 + clearance}, nil
}

// wraparoundableCircle returns the bare (uninflated) circle a dot or
// bend presents to tangent construction.
func wraparoundableCircle(g *core.Graph, target core.PrimIndex) (geom.Circle, error) {
	switch target.Kind {
	case core.KindDot:
		idx, _ := target.AsDot()
		return g.DotShape(idx)
	case core.KindBend:
		idx, _ := target.AsBend()
		arc, err := g.BendShape(idx)
		if err != nil {
			return geom.Circle{}, err
		}
		return geom.Circle{Pos: arc.Center, R: arc.R}, nil
	default:
		return geom.Circle{}, core.ErrWrongKind
	}
}

// rotateAround rotates p by angle radians (positive = counter-clockwise)
// around center.
func rotateAround(center, p geom.Point, angle float64) geom.Point {
	v := p.Sub(center)
	sin, cos := math.Sin(angle), math.Cos(angle)
	return center.Add(geom.Point{X: v.X*cos - v.Y*sin, Y: v.X*sin + v.Y*cos})
}
