package executor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"topola/board"
	"topola/executor"
	"topola/geom"
	"topola/rules"
)

// testBoard builds a one-layer board with two nets of two pads each,
// laid out so both ratlines can route straight across.
func testBoard(t *testing.T) *board.Board {
	t.Helper()
	oracle := rules.NewOracle(0.1)
	b := board.NewBoard(oracle, board.WithLayers("F.Cu"), board.WithNets("GND", "VCC"))

	pads := []struct {
		pin string
		at  geom.Point
		net string
	}{
		{"J1-1", geom.Point{X: -10, Y: 0}, "GND"},
		{"J2-1", geom.Point{X: 10, Y: 0}, "GND"},
		{"J1-2", geom.Point{X: -10, Y: 5}, "VCC"},
		{"J2-2", geom.Point{X: 10, Y: 5}, "VCC"},
	}
	for _, p := range pads {
		id, err := b.NetID(p.net)
		require.NoError(t, err)
		net := int(id)
		dot, err := b.Graph().AddFixedDot(p.at, 0.3, 0, &net)
		require.NoError(t, err)
		b.AddPad(board.PinRef{Pin: p.pin, Layer: "F.Cu"}, dot)
	}

	for _, nets := range [][2]string{{"J1-1", "J2-1"}, {"J1-2", "J2-2"}} {
		from, _ := b.PadAt(board.PinRef{Pin: nets[0], Layer: "F.Cu"})
		to, _ := b.PadAt(board.PinRef{Pin: nets[1], Layer: "F.Cu"})
		net, err := b.Graph().Net(from.Prim())
		require.NoError(t, err)
		b.AddRatline(board.Ratline{Net: board.NetID(*net), From: from, To: to})
	}
	return b
}

func allPins(b *board.Board) []board.PinRef {
	var out []board.PinRef
	for _, pin := range []string{"J1-1", "J2-1", "J1-2", "J2-2"} {
		out = append(out, board.PinRef{Pin: pin, Layer: "F.Cu"})
	}
	return out
}

func routeAll(t *testing.T, b *board.Board) *executor.Autoroute {
	t.Helper()
	auto, err := executor.NewAutoroute(b, allPins(b), executor.Options{RoutedBandWidth: 0.2, Wraparoundable: true})
	require.NoError(t, err)
	require.NoError(t, auto.Finish())
	return auto
}

func TestAutorouteRoutesAllRatlines(t *testing.T) {
	b := testBoard(t)
	auto := routeAll(t, b)

	results := auto.RoutedBands()
	require.Len(t, results, 2)
	assert.Len(t, b.Bands(), 2)

	for _, r := range results {
		length, err := b.BandLength(r.Termseg)
		require.NoError(t, err)
		// Both ratlines run straight across: 20 units pad to pad.
		assert.InDelta(t, 20, length, 0.5)
	}
}

func TestAutorouteRejectsUnknownPin(t *testing.T) {
	b := testBoard(t)
	_, err := executor.NewAutoroute(b, []board.PinRef{{Pin: "J9-9", Layer: "F.Cu"}}, executor.Options{RoutedBandWidth: 0.2})
	assert.ErrorIs(t, err, executor.ErrUnknownPin)
}

func TestAutorouteAbortBeforeCommitLeavesBoardClean(t *testing.T) {
	b := testBoard(t)
	auto, err := executor.NewAutoroute(b, allPins(b), executor.Options{RoutedBandWidth: 0.2, Wraparoundable: true})
	require.NoError(t, err)

	// One expansion starts the first ratline but commits nothing.
	status, err := auto.Step()
	require.NoError(t, err)
	require.Equal(t, executor.Continue, status)
	auto.Abort()

	assert.Empty(t, b.Bands())
	// Only the four pads remain in the spatial index.
	hits := b.Graph().SpatialQuery(geom.AABB{MinX: -100, MinY: -100, MaxX: 100, MaxY: 100})
	assert.Len(t, hits, 4)
}

func TestMeasureLengthSumsSelection(t *testing.T) {
	b := testBoard(t)
	routeAll(t, b)

	var names []board.BandName
	for name := range b.Bands() {
		names = append(names, name)
	}
	m := executor.NewMeasureLength(b, names)
	require.NoError(t, m.Finish())
	assert.InDelta(t, 40, m.Length(), 1.0)
}

func TestMeasureLengthRejectsUnknownBand(t *testing.T) {
	b := testBoard(t)
	m := executor.NewMeasureLength(b, []board.BandName{"no-such-band"})
	assert.ErrorIs(t, m.Finish(), executor.ErrUnknownBand)
}

func TestRemoveBandsDeletesLoosePrimitives(t *testing.T) {
	b := testBoard(t)
	routeAll(t, b)
	require.Len(t, b.Bands(), 2)

	var names []board.BandName
	for name := range b.Bands() {
		names = append(names, name)
	}
	r := executor.NewRemoveBands(b, names[:1])
	require.NoError(t, r.Finish())
	assert.Len(t, b.Bands(), 1)
}

func TestRerouteAfterRemovalIsDeterministic(t *testing.T) {
	b := testBoard(t)
	first := routeAll(t, b)

	lengths := make(map[board.BandName]float64)
	for _, r := range first.RoutedBands() {
		length, err := b.BandLength(r.Termseg)
		require.NoError(t, err)
		lengths[r.Name] = length
	}

	var names []board.BandName
	for name := range b.Bands() {
		names = append(names, name)
	}
	require.NoError(t, executor.NewRemoveBands(b, names).Finish())
	require.Empty(t, b.Bands())

	second := routeAll(t, b)
	for _, r := range second.RoutedBands() {
		length, err := b.BandLength(r.Termseg)
		require.NoError(t, err)
		assert.InDelta(t, lengths[r.Name], length, 1e-6)
	}
}

func TestPlaceViaRejectsInfringingPosition(t *testing.T) {
	oracle := rules.NewOracle(0.5)
	b := board.NewBoard(oracle, board.WithLayers("F.Cu"), board.WithNets("GND"))
	net := 0
	_, err := b.Graph().AddFixedDot(geom.Point{X: 0, Y: 0}, 1, 0, &net)
	require.NoError(t, err)

	p := executor.NewPlaceVia(b, executor.ViaWeight{
		FromLayer: 0, ToLayer: 0,
		Center: geom.Point{X: 1.5, Y: 0}, Radius: 1,
		Net: 42,
	})
	_, err = p.Step()
	assert.ErrorIs(t, err, executor.ErrCouldNotPlaceVia)
}

func TestPlaceViaOnOpenBoard(t *testing.T) {
	oracle := rules.NewOracle(0.5)
	b := board.NewBoard(oracle, board.WithLayers("F.Cu", "B.Cu"), board.WithNets("GND"))

	p := executor.NewPlaceVia(b, executor.ViaWeight{
		FromLayer: 0, ToLayer: 1,
		Center: geom.Point{X: 0, Y: 0}, Radius: 1,
		Net: 0,
	})
	require.NoError(t, p.Finish())

	dots, err := b.Graph().ViaDots(p.Placed())
	require.NoError(t, err)
	assert.Len(t, dots, 2)
}

func TestCompareDetoursSymmetry(t *testing.T) {
	b1 := testBoard(t)
	ratlines := b1.Ratlines()
	c1 := executor.NewCompareDetours(b1, ratlines, executor.Options{RoutedBandWidth: 0.2, Wraparoundable: true})
	require.NoError(t, c1.Finish())
	a1, a2 := c1.Totals()

	b2 := testBoard(t)
	swapped := []board.Ratline{b2.Ratlines()[1], b2.Ratlines()[0]}
	c2 := executor.NewCompareDetours(b2, swapped, executor.Options{RoutedBandWidth: 0.2, Wraparoundable: true})
	require.NoError(t, c2.Finish())
	s1, s2 := c2.Totals()

	assert.InDelta(t, a1, s2, 1e-6)
	assert.InDelta(t, a2, s1, 1e-6)
}

func TestCompareDetoursRewindsBothRuns(t *testing.T) {
	b := testBoard(t)
	c := executor.NewCompareDetours(b, b.Ratlines(), executor.Options{RoutedBandWidth: 0.2, Wraparoundable: true})
	require.NoError(t, c.Finish())

	total1, total2 := c.Totals()
	assert.Greater(t, total1, 0.0)
	assert.Greater(t, total2, 0.0)
	// Both runs' bands were rewound; nothing loose remains.
	assert.Empty(t, b.Bands())
	hits := b.Graph().SpatialQuery(geom.AABB{MinX: -100, MinY: -100, MaxX: 100, MaxY: 100})
	assert.Len(t, hits, 4)
}

func TestCompareDelta(t *testing.T) {
	b := testBoard(t)
	ratlines := b.Ratlines()
	c, err := executor.NewCompare(b, ratlines[0], ratlines[1], executor.Options{RoutedBandWidth: 0.2, Wraparoundable: true})
	require.NoError(t, err)
	require.NoError(t, c.Finish())
	// The two ratlines are congruent, so neither order detours.
	assert.InDelta(t, 0, c.Delta(), 1e-6)
}
