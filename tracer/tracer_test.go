package tracer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"topola/core"
	"topola/geom"
	"topola/navmesh"
	"topola/rules"
	"topola/tracer"
)

func buildScenario(t *testing.T) (*core.Graph, *rules.Oracle, *navmesh.Mesh, core.DotIndex, core.DotIndex) {
	oracle := rules.NewOracle(0.1)
	g := core.NewGraph(oracle)

	origin, err := g.AddFixedDot(geom.Point{X: -10, Y: 0}, 0.3, 0, nil)
	require.NoError(t, err)
	destination, err := g.AddFixedDot(geom.Point{X: 10, Y: 0}, 0.3, 0, nil)
	require.NoError(t, err)
	_, err = g.AddFixedDot(geom.Point{X: 0, Y: 3}, 1, 0, nil)
	require.NoError(t, err)

	envelope := geom.AABB{MinX: -20, MinY: -20, MaxX: 20, MaxY: 20}
	mesh, err := navmesh.Build(g, envelope, 0, geom.Point{X: -10, Y: 0}, geom.Point{X: 10, Y: 0})
	require.NoError(t, err)

	return g, oracle, mesh, origin, destination
}

func obstacleVertex(mesh *navmesh.Mesh) int {
	for i, v := range mesh.Vertices {
		if !v.IsOrigin && !v.IsDest {
			return i
		}
	}
	return -1
}

func TestStepFinishAndStepBack(t *testing.T) {
	g, oracle, mesh, origin, destination := buildScenario(t)
	obstacle := obstacleVertex(mesh)
	require.GreaterOrEqual(t, obstacle, 0)

	nc := tracer.Start(g, oracle, mesh, origin, mesh.OriginIndex, 0, 0.2, nil)
	require.NoError(t, nc.Step(obstacle, true))
	assert.True(t, nc.Head().HasBend)
	assert.Len(t, nc.Path(), 1)

	seg, err := nc.Finish(destination)
	require.NoError(t, err)
	kind, err := g.SegKind(seg)
	require.NoError(t, err)
	assert.Equal(t, core.SegSeqLoose, kind)

	require.NoError(t, nc.StepBack())
	assert.False(t, nc.Head().HasBend)
	assert.Len(t, nc.Path(), 0)
}

func TestReworkPathSharesPrefix(t *testing.T) {
	g, oracle, mesh, origin, _ := buildScenario(t)
	obstacle := obstacleVertex(mesh)
	require.GreaterOrEqual(t, obstacle, 0)

	nc := tracer.Start(g, oracle, mesh, origin, mesh.OriginIndex, 0, 0.2, nil)
	require.NoError(t, nc.Step(obstacle, true))

	// Reworking to the exact same path is a no-op: the existing hop is
	// kept, nothing is popped or redrawn.
	require.NoError(t, nc.ReworkPath([]tracer.PathStep{{Vertex: obstacle, CW: true}}))
	assert.Len(t, nc.Path(), 1)
	assert.Equal(t, obstacle, nc.Path()[0].Vertex)
}

func TestReworkPathDivergesAndReplays(t *testing.T) {
	g, oracle, mesh, origin, _ := buildScenario(t)
	obstacle := obstacleVertex(mesh)
	require.GreaterOrEqual(t, obstacle, 0)

	nc := tracer.Start(g, oracle, mesh, origin, mesh.OriginIndex, 0, 0.2, nil)
	require.NoError(t, nc.Step(obstacle, true))

	// Diverge on the cw flag: the old hop must be undone and redrawn
	// on the other side.
	require.NoError(t, nc.ReworkPath([]tracer.PathStep{{Vertex: obstacle, CW: false}}))
	assert.Len(t, nc.Path(), 1)
	assert.False(t, nc.Path()[0].CW)
}

func TestStepRejectsOriginAndDestinationVertices(t *testing.T) {
	g, oracle, mesh, origin, _ := buildScenario(t)
	nc := tracer.Start(g, oracle, mesh, origin, mesh.OriginIndex, 0, 0.2, nil)
	assert.ErrorIs(t, nc.Step(mesh.DestIndex, true), tracer.ErrNotWraparoundable)
}
