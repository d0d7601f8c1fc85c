package astar_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"topola/astar"
	"topola/core"
	"topola/geom"
	"topola/navmesh"
	"topola/rules"
	"topola/tracer"
)

func TestSearchRoutesAroundObstacle(t *testing.T) {
	oracle := rules.NewOracle(0.1)
	g := core.NewGraph(oracle)

	origin, err := g.AddFixedDot(geom.Point{X: -10, Y: 0}, 0.3, 0, nil)
	require.NoError(t, err)
	destination, err := g.AddFixedDot(geom.Point{X: 10, Y: 0}, 0.3, 0, nil)
	require.NoError(t, err)

	// Placed squarely on the straight line between origin and
	// destination: a direct finish_in_dot must fail clearance, forcing
	// the search to find the wrap-around alternative.
	_, err = g.AddFixedDot(geom.Point{X: 0, Y: 0}, 1, 0, nil)
	require.NoError(t, err)

	envelope := geom.AABB{MinX: -20, MinY: -20, MaxX: 20, MaxY: 20}
	mesh, err := navmesh.Build(g, envelope, 0, geom.Point{X: -10, Y: 0}, geom.Point{X: 10, Y: 0})
	require.NoError(t, err)

	nc := tracer.Start(g, oracle, mesh, origin, mesh.OriginIndex, 0, 0.2, nil)
	search := astar.NewSearch(g, mesh, nc, destination)

	result, err := search.Finish()
	require.NoError(t, err)
	assert.NotEmpty(t, result.Path)
	assert.Greater(t, result.Cost, 0.0)

	kind, err := g.SegKind(result.BandTermseg)
	require.NoError(t, err)
	assert.Equal(t, core.SegSeqLoose, kind)

	// The direct straight-line attempt must have failed and been
	// recorded before the wrap-around alternative was found.
	assert.NotEmpty(t, search.Failures())
}

func TestSearchDirectPathWhenUnobstructed(t *testing.T) {
	oracle := rules.NewOracle(0.1)
	g := core.NewGraph(oracle)

	origin, err := g.AddFixedDot(geom.Point{X: -10, Y: 0}, 0.3, 0, nil)
	require.NoError(t, err)
	destination, err := g.AddFixedDot(geom.Point{X: 10, Y: 0}, 0.3, 0, nil)
	require.NoError(t, err)

	envelope := geom.AABB{MinX: -20, MinY: -20, MaxX: 20, MaxY: 20}
	mesh, err := navmesh.Build(g, envelope, 0, geom.Point{X: -10, Y: 0}, geom.Point{X: 10, Y: 0})
	require.NoError(t, err)

	nc := tracer.Start(g, oracle, mesh, origin, mesh.OriginIndex, 0, 0.2, nil)
	search := astar.NewSearch(g, mesh, nc, destination)

	result, err := search.Finish()
	require.NoError(t, err)
	assert.Empty(t, result.Path)
}
