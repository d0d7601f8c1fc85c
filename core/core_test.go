package core_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"topola/core"
	"topola/geom"
	"topola/rules"
)

func newGraph(clearance float64) *core.Graph {
	return core.NewGraph(rules.NewOracle(clearance))
}

func TestAddFixedDotAndShape(t *testing.T) {
	g := newGraph(0.2)
	idx, err := g.AddFixedDot(geom.Point{X: 1, Y: 1}, 0.5, 0, nil)
	require.NoError(t, err)

	shape, err := g.DotShape(idx)
	require.NoError(t, err)
	assert.Equal(t, geom.Point{X: 1, Y: 1}, shape.Pos)
	assert.InDelta(t, 0.5, shape.R, 1e-9)
}

func TestAddFixedDotInfringes(t *testing.T) {
	g := newGraph(0.5)
	_, err := g.AddFixedDot(geom.Point{X: 0, Y: 0}, 1, 0, nil)
	require.NoError(t, err)

	_, err = g.AddFixedDot(geom.Point{X: 1.4, Y: 0}, 1, 0, nil)
	assert.ErrorIs(t, err, core.ErrInfringes)
}

func TestAddFixedDotClearOfOthers(t *testing.T) {
	g := newGraph(0.1)
	_, err := g.AddFixedDot(geom.Point{X: 0, Y: 0}, 1, 0, nil)
	require.NoError(t, err)

	_, err = g.AddFixedDot(geom.Point{X: 5, Y: 0}, 1, 0, nil)
	assert.NoError(t, err)
}

func TestRemoveDotRejectsDangling(t *testing.T) {
	g := newGraph(0.1)
	a, err := g.AddFixedDot(geom.Point{X: 0, Y: 0}, 0.5, 0, nil)
	require.NoError(t, err)
	b, err := g.AddFixedDot(geom.Point{X: 10, Y: 0}, 0.5, 0, nil)
	require.NoError(t, err)

	_, err = g.AddFixedSeg(a, b, 0.2, 0, nil)
	require.NoError(t, err)

	err = g.RemoveDot(a)
	assert.ErrorIs(t, err, core.ErrDanglingSeg)
}

func TestSegJointAndRemove(t *testing.T) {
	g := newGraph(0.1)
	a, err := g.AddFixedDot(geom.Point{X: 0, Y: 0}, 0.5, 0, nil)
	require.NoError(t, err)
	b, err := g.AddFixedDot(geom.Point{X: 10, Y: 0}, 0.5, 0, nil)
	require.NoError(t, err)

	seg, err := g.AddFixedSeg(a, b, 0.2, 0, nil)
	require.NoError(t, err)

	neighbors, err := g.NeighborsByLabel(a)
	require.NoError(t, err)
	require.Len(t, neighbors, 1)
	assert.Equal(t, seg.Prim(), neighbors[0])

	require.NoError(t, g.RemoveSeg(seg))
	neighbors, err = g.NeighborsByLabel(a)
	require.NoError(t, err)
	assert.Empty(t, neighbors)

	require.NoError(t, g.RemoveDot(a))
	require.NoError(t, g.RemoveDot(b))
}

func TestLooseDotDegreeCeiling(t *testing.T) {
	g := newGraph(0.05)
	center, err := g.AddLooseDot(geom.Point{X: 0, Y: 0}, 0.3, 0, nil)
	require.NoError(t, err)
	left, err := g.AddFixedDot(geom.Point{X: -5, Y: 0}, 0.3, 0, nil)
	require.NoError(t, err)
	right, err := g.AddFixedDot(geom.Point{X: 5, Y: 0}, 0.3, 0, nil)
	require.NoError(t, err)
	up, err := g.AddFixedDot(geom.Point{X: 0, Y: 5}, 0.3, 0, nil)
	require.NoError(t, err)

	_, err = g.AddLoneLooseSeg(center, left, 0.1, 0, nil)
	require.NoError(t, err)
	_, err = g.AddLoneLooseSeg(center, right, 0.1, 0, nil)
	require.NoError(t, err)

	_, err = g.AddLoneLooseSeg(center, up, 0.1, 0, nil)
	assert.ErrorIs(t, err, core.ErrDegreeExceeded)
}

func TestStaleIndexAfterFree(t *testing.T) {
	g := newGraph(0.05)
	a, err := g.AddFixedDot(geom.Point{X: 0, Y: 0}, 0.3, 0, nil)
	require.NoError(t, err)
	require.NoError(t, g.RemoveDot(a))

	_, err = g.DotShape(a)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestBendWrapsCoreDot(t *testing.T) {
	g := newGraph(0.05)
	core1, err := g.AddFixedDot(geom.Point{X: 0, Y: 0}, 1, 0, nil)
	require.NoError(t, err)
	from, err := g.AddLooseDot(geom.Point{X: 2, Y: 0}, 0.2, 0, nil)
	require.NoError(t, err)
	to, err := g.AddLooseDot(geom.Point{X: 0, Y: 2}, 0.2, 0, nil)
	require.NoError(t, err)

	bend, err := g.AddLooseBend(from, to, core1, 2, 0.2, false, 0, nil)
	require.NoError(t, err)

	shape, err := g.BendShape(bend)
	require.NoError(t, err)
	assert.Equal(t, geom.Point{X: 0, Y: 0}, shape.Center)
	assert.InDelta(t, 2, shape.R, 1e-9)
}

func TestInfringementIsPerLayer(t *testing.T) {
	g := newGraph(0.5)
	_, err := g.AddFixedDot(geom.Point{X: 0, Y: 0}, 1, 0, nil)
	require.NoError(t, err)

	// The same disc on another layer shares no copper plane, so it
	// does not infringe.
	_, err = g.AddFixedDot(geom.Point{X: 0, Y: 0}, 1, 1, nil)
	assert.NoError(t, err)

	_, err = g.AddFixedDot(geom.Point{X: 0, Y: 0}, 1, 0, nil)
	assert.ErrorIs(t, err, core.ErrInfringes)
}

func TestViaBarrelDotsSpanLayers(t *testing.T) {
	g := newGraph(0.1)
	net := 7
	via, err := g.AddVia(geom.Point{X: 0, Y: 0}, 1, 0, 2, &net)
	require.NoError(t, err)

	dots, err := g.ViaDots(via)
	require.NoError(t, err)
	require.Len(t, dots, 3)
	for layer, dot := range dots {
		got, err := g.Layer(dot.Prim())
		require.NoError(t, err)
		assert.Equal(t, layer, got)
		fixed, err := g.DotFixed(dot)
		require.NoError(t, err)
		assert.True(t, fixed)
	}

	// A dot overlapping the barrel on a spanned layer infringes; one
	// past the span does not.
	_, err = g.AddFixedDot(geom.Point{X: 1.5, Y: 0}, 1, 1, nil)
	assert.ErrorIs(t, err, core.ErrInfringes)
	_, err = g.AddFixedDot(geom.Point{X: 1.5, Y: 0}, 1, 3, nil)
	assert.NoError(t, err)
}

func TestRemoveCompoundCascadesToBarrelDots(t *testing.T) {
	g := newGraph(0.1)
	via, err := g.AddVia(geom.Point{X: 0, Y: 0}, 1, 0, 1, nil)
	require.NoError(t, err)
	dots, err := g.ViaDots(via)
	require.NoError(t, err)

	require.NoError(t, g.RemoveCompound(via))
	for _, dot := range dots {
		_, err := g.DotShape(dot)
		assert.ErrorIs(t, err, core.ErrNotFound)
	}
}

func TestRemoveCompoundRefusesJointedBarrel(t *testing.T) {
	g := newGraph(0.1)
	via, err := g.AddVia(geom.Point{X: 0, Y: 0}, 0.5, 0, 1, nil)
	require.NoError(t, err)
	dots, err := g.ViaDots(via)
	require.NoError(t, err)

	far, err := g.AddFixedDot(geom.Point{X: 10, Y: 0}, 0.5, 0, nil)
	require.NoError(t, err)
	_, err = g.AddFixedSeg(dots[0], far, 0.2, 0, nil)
	require.NoError(t, err)

	assert.ErrorIs(t, g.RemoveCompound(via), core.ErrDanglingSeg)
}

func TestViaInfringementAgainstDot(t *testing.T) {
	g := newGraph(0.3)
	_, err := g.AddFixedDot(geom.Point{X: 0, Y: 0}, 1, 0, nil)
	require.NoError(t, err)

	_, err = g.AddVia(geom.Point{X: 2.2, Y: 0}, 1, 0, 1, nil)
	assert.ErrorIs(t, err, core.ErrInfringes)
}

func TestCompoundWeight(t *testing.T) {
	g := newGraph(0.05)
	a, err := g.AddFixedDot(geom.Point{X: 0, Y: 0}, 0.2, 0, nil)
	require.NoError(t, err)
	b, err := g.AddFixedDot(geom.Point{X: 3, Y: 4}, 0.2, 0, nil)
	require.NoError(t, err)
	seg, err := g.AddFixedSeg(a, b, 0.1, 0, nil)
	require.NoError(t, err)

	grouping := g.AddGrouping([]core.PrimIndex{seg.Prim()})
	weight, err := g.CompoundWeight(grouping)
	require.NoError(t, err)
	assert.InDelta(t, 5.0, weight, 1e-9)
}

func TestSpatialQueryFindsOverlappingBounds(t *testing.T) {
	g := newGraph(0.05)
	a, err := g.AddFixedDot(geom.Point{X: 0, Y: 0}, 0.5, 0, nil)
	require.NoError(t, err)

	hits := g.SpatialQuery(geom.AABB{MinX: -1, MinY: -1, MaxX: 1, MaxY: 1})
	require.Len(t, hits, 1)
	assert.Equal(t, a.Prim(), hits[0])

	hits = g.SpatialQuery(geom.AABB{MinX: 100, MinY: 100, MaxX: 101, MaxY: 101})
	assert.Empty(t, hits)
}
