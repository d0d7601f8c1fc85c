package board

import (
	"topola/core"
)

// Shape is the union of the two geometry kinds a routed band can
// contribute to a session: a straight capsule segment or a circular
// arc. Exactly one of Seg/Bend is the zero value for any Step.
type Shape struct {
	IsBend bool
	Seg    core.SegIndex
	Bend   core.BendIndex
}

// SessionStep is one (shape, layer) pair in a band's ordered output.
type SessionStep struct {
	Shape Shape
	Layer LayerID
}

// Session is a band's net plus its ordered shape/layer sequence,
// ready for an external .ses writer to emit without needing to touch
// the geometry arena itself.
type Session struct {
	Net   NetID
	Steps []SessionStep
}

// Band walks the band terminated by term (via core.BandPrimitives) and
// packages it as a Session: the ordered primitive chain translated
// into (shape, layer) pairs, net resolved from the terminating seg.
func (b *Board) Band(term core.SegIndex) (Session, error) {
	_, prims, _, err := b.graph.BandPrimitives(term)
	if err != nil {
		return Session{}, err
	}

	sess := Session{}
	for i, p := range prims {
		layer, err := b.graph.Layer(p)
		if err != nil {
			return Session{}, err
		}
		var shape Shape
		switch p.Kind {
		case core.KindSeg:
			idx, _ := p.AsSeg()
			shape = Shape{Seg: idx}
		case core.KindBend:
			idx, _ := p.AsBend()
			shape = Shape{IsBend: true, Bend: idx}
		}
		sess.Steps = append(sess.Steps, SessionStep{Shape: shape, Layer: LayerID(layer)})
		if i == 0 {
			if net, err := b.graph.Net(p); err == nil && net != nil {
				sess.Net = NetID(*net)
			}
		}
	}
	return sess, nil
}

// BandLength sums the routed length of the band terminated by term.
func (b *Board) BandLength(term core.SegIndex) (float64, error) {
	_, prims, _, err := b.graph.BandPrimitives(term)
	if err != nil {
		return 0, err
	}
	return b.graph.BandLength(prims)
}

// RemoveBand deletes the band terminated by term.
func (b *Board) RemoveBand(term core.SegIndex) error {
	return b.graph.RemoveBand(term)
}
