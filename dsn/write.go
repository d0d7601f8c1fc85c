package dsn

import (
	"io"
	"strconv"
	"strings"

	"topola/board"
	"topola/core"
	"topola/geom"
)

// bendSampleCount is how many polyline points a routed bend is
// flattened into for session output: .ses wires are paths, so arcs
// leave the file as chords.
const bendSampleCount = 16

// WriteSession emits a Specctra .ses session for the routed bands
// terminated by terms: each band contributes its net and its ordered
// (shape, layer) sequence, rendered as (wire (path ...)) entries
// grouped under the band's net.
func WriteSession(w io.Writer, name string, b *board.Board, terms []core.SegIndex) error {
	netWires := make(map[board.NetID][]*Node)
	var netOrder []board.NetID

	for _, term := range terms {
		sess, err := b.Band(term)
		if err != nil {
			return err
		}
		if _, seen := netWires[sess.Net]; !seen {
			netOrder = append(netOrder, sess.Net)
		}
		for _, step := range sess.Steps {
			wire, err := wireNode(b, step)
			if err != nil {
				return err
			}
			if wire != nil {
				netWires[sess.Net] = append(netWires[sess.Net], wire)
			}
		}
	}

	network := &Node{Name: "network_out"}
	for _, id := range netOrder {
		netName, err := b.NetName(id)
		if err != nil {
			return err
		}
		network.Children = append(network.Children, &Node{
			Name:     "net",
			Atoms:    []string{netName},
			Children: netWires[id],
		})
	}

	root := &Node{
		Name:  "session",
		Atoms: []string{name},
		Children: []*Node{
			{Name: "routes", Children: []*Node{network}},
		},
	}

	var sb strings.Builder
	writeSexpr(&sb, root, 0)
	_, err := io.WriteString(w, sb.String())
	return err
}

// wireNode renders one band step as a (wire (path ...)) node.
func wireNode(b *board.Board, step board.SessionStep) (*Node, error) {
	layerName, err := b.LayerName(step.Layer)
	if err != nil {
		return nil, err
	}
	var width float64
	var points []geom.Point
	if step.Shape.IsBend {
		arc, err := b.Graph().BendShape(step.Shape.Bend)
		if err != nil {
			return nil, err
		}
		width = arc.Width
		points = arc.Sample(bendSampleCount)
	} else {
		capsule, err := b.Graph().SegShape(step.Shape.Seg)
		if err != nil {
			return nil, err
		}
		width = capsule.Width
		points = []geom.Point{capsule.From, capsule.To}
	}
	if len(points) < 2 {
		return nil, nil
	}

	atoms := []string{layerName, formatNum(width)}
	for _, p := range points {
		atoms = append(atoms, formatNum(p.X), formatNum(p.Y))
	}
	return &Node{
		Name:     "wire",
		Children: []*Node{{Name: "path", Atoms: atoms}},
	}, nil
}

func formatNum(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
