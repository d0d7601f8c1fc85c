package board_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"topola/board"
	"topola/geom"
	"topola/rules"
)

func newBoard() *board.Board {
	return board.NewBoard(rules.NewOracle(0.1),
		board.WithLayers("F.Cu", "In1.Cu", "In2.Cu", "B.Cu"),
		board.WithNets("GND", "VCC"))
}

func TestLayerNameTable(t *testing.T) {
	b := newBoard()
	assert.Equal(t, 4, b.LayerCount())

	want := []string{"F.Cu", "In1.Cu", "In2.Cu", "B.Cu"}
	for i, name := range want {
		got, err := b.LayerName(board.LayerID(i))
		require.NoError(t, err)
		assert.Equal(t, name, got)

		id, err := b.LayerID(name)
		require.NoError(t, err)
		assert.Equal(t, board.LayerID(i), id)
	}

	_, err := b.LayerName(4)
	assert.ErrorIs(t, err, board.ErrUnknownLayer)
	_, err = b.LayerID("Cu.F")
	assert.ErrorIs(t, err, board.ErrUnknownLayer)
}

func TestNetTableAndLazyDeclaration(t *testing.T) {
	b := newBoard()
	gnd, err := b.NetID("GND")
	require.NoError(t, err)
	assert.Equal(t, board.NetID(0), gnd)

	_, err = b.NetID("SCL")
	assert.ErrorIs(t, err, board.ErrUnknownNet)

	scl := b.DeclareNet("SCL")
	assert.Equal(t, board.NetID(2), scl)
	assert.Equal(t, scl, b.DeclareNet("SCL"))

	name, err := b.NetName(scl)
	require.NoError(t, err)
	assert.Equal(t, "SCL", name)
}

func TestPadRegistry(t *testing.T) {
	b := newBoard()
	net := 0
	dot, err := b.Graph().AddFixedDot(geom.Point{X: 1, Y: 2}, 0.5, 0, &net)
	require.NoError(t, err)
	ref := board.PinRef{Pin: "J1-1", Layer: "F.Cu"}
	b.AddPad(ref, dot)

	got, ok := b.PadAt(ref)
	require.True(t, ok)
	assert.Equal(t, dot, got)

	_, ok = b.PadAt(board.PinRef{Pin: "J1-1", Layer: "B.Cu"})
	assert.False(t, ok)
}

func TestBandRegistry(t *testing.T) {
	b := newBoard()
	net := 0
	from, err := b.Graph().AddFixedDot(geom.Point{X: 0, Y: 0}, 0.3, 0, &net)
	require.NoError(t, err)
	to, err := b.Graph().AddFixedDot(geom.Point{X: 10, Y: 0}, 0.3, 0, &net)
	require.NoError(t, err)
	term, err := b.Graph().AddLoneLooseSeg(from, to, 0.2, 0, &net)
	require.NoError(t, err)

	b.RegisterBand("GND:J1-1:J2-1", term)
	got, ok := b.BandByName("GND:J1-1:J2-1")
	require.True(t, ok)
	assert.Equal(t, term, got)
	assert.Len(t, b.Bands(), 1)

	length, err := b.BandLength(term)
	require.NoError(t, err)
	assert.InDelta(t, 10, length, 1e-9)

	require.NoError(t, b.RemoveBand(term))
	b.UnregisterBand("GND:J1-1:J2-1")
	assert.Empty(t, b.Bands())
}

func TestSessionStepsAndNet(t *testing.T) {
	b := newBoard()
	net := 1
	from, err := b.Graph().AddFixedDot(geom.Point{X: 0, Y: 0}, 0.3, 0, &net)
	require.NoError(t, err)
	to, err := b.Graph().AddFixedDot(geom.Point{X: 10, Y: 0}, 0.3, 0, &net)
	require.NoError(t, err)
	term, err := b.Graph().AddLoneLooseSeg(from, to, 0.2, 0, &net)
	require.NoError(t, err)

	sess, err := b.Band(term)
	require.NoError(t, err)
	assert.Equal(t, board.NetID(1), sess.Net)
	require.Len(t, sess.Steps, 1)
	assert.False(t, sess.Steps[0].Shape.IsBend)
	assert.Equal(t, board.LayerID(0), sess.Steps[0].Layer)
}
