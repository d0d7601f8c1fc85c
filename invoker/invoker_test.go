package invoker_test

import (
	"encoding/json"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"topola/board"
	"topola/executor"
	"topola/geom"
	"topola/invoker"
	"topola/rules"
)

// breakoutFactory reconstructs the same two-net, four-pad board on
// every call, the way a DSN-backed factory rebuilds from the parsed
// design.
func breakoutFactory() *board.Board {
	oracle := rules.NewOracle(0.1)
	b := board.NewBoard(oracle, board.WithLayers("F.Cu"), board.WithNets("GND", "VCC"))

	pads := []struct {
		pin string
		at  geom.Point
		net int
	}{
		{"J1-1", geom.Point{X: -10, Y: 0}, 0},
		{"J2-1", geom.Point{X: 10, Y: 0}, 0},
		{"J1-2", geom.Point{X: -10, Y: 5}, 1},
		{"J2-2", geom.Point{X: 10, Y: 5}, 1},
	}
	for _, p := range pads {
		net := p.net
		dot, err := b.Graph().AddFixedDot(p.at, 0.3, 0, &net)
		if err != nil {
			panic(err)
		}
		b.AddPad(board.PinRef{Pin: p.pin, Layer: "F.Cu"}, dot)
	}
	for _, pair := range [][2]string{{"J1-1", "J2-1"}, {"J1-2", "J2-2"}} {
		from, _ := b.PadAt(board.PinRef{Pin: pair[0], Layer: "F.Cu"})
		to, _ := b.PadAt(board.PinRef{Pin: pair[1], Layer: "F.Cu"})
		net, _ := b.Graph().Net(from.Prim())
		b.AddRatline(board.Ratline{Net: board.NetID(*net), From: from, To: to})
	}
	return b
}

func autorouteAllCommand() invoker.AutorouteCommand {
	return invoker.AutorouteCommand{
		Selection: []board.PinRef{
			{Pin: "J1-1", Layer: "F.Cu"},
			{Pin: "J2-1", Layer: "F.Cu"},
			{Pin: "J1-2", Layer: "F.Cu"},
			{Pin: "J2-2", Layer: "F.Cu"},
		},
		Options: executor.Options{RoutedBandWidth: 0.2, Wraparoundable: true},
	}
}

func bandNames(b *board.Board) []string {
	var names []string
	for name := range b.Bands() {
		names = append(names, string(name))
	}
	sort.Strings(names)
	return names
}

func TestExecuteCommitsToHistory(t *testing.T) {
	inv := invoker.NewInvoker(breakoutFactory)

	exec, err := inv.Execute(autorouteAllCommand())
	require.NoError(t, err)
	msg, err := exec.Finish()
	require.NoError(t, err)
	assert.Equal(t, "finished autorouting", msg)

	assert.Len(t, inv.Board().Bands(), 2)
	done := inv.History().Done()
	require.Len(t, done, 1)
}

func TestUndoRedoRestoresBandSet(t *testing.T) {
	inv := invoker.NewInvoker(breakoutFactory)
	exec, err := inv.Execute(autorouteAllCommand())
	require.NoError(t, err)
	_, err = exec.Finish()
	require.NoError(t, err)

	before := bandNames(inv.Board())
	require.Len(t, before, 2)

	require.NoError(t, inv.Undo())
	assert.Empty(t, inv.Board().Bands())

	require.NoError(t, inv.Redo())
	assert.Equal(t, before, bandNames(inv.Board()))
}

func TestUndoRedoAtStackBounds(t *testing.T) {
	inv := invoker.NewInvoker(breakoutFactory)
	assert.ErrorIs(t, inv.Undo(), invoker.ErrNoPreviousCommand)
	assert.ErrorIs(t, inv.Redo(), invoker.ErrNoNextCommand)
}

func TestOngoingExecutionBlocksOthers(t *testing.T) {
	inv := invoker.NewInvoker(breakoutFactory)
	exec, err := inv.Execute(autorouteAllCommand())
	require.NoError(t, err)

	_, err = inv.Execute(autorouteAllCommand())
	assert.ErrorIs(t, err, invoker.ErrExecutionInProgress)
	assert.ErrorIs(t, inv.Undo(), invoker.ErrExecutionInProgress)

	exec.Abort()
	_, err = inv.Execute(autorouteAllCommand())
	assert.NoError(t, err)
}

func TestReplayAppliesInOrder(t *testing.T) {
	inv := invoker.NewInvoker(breakoutFactory)
	require.NoError(t, inv.Replay([]invoker.Command{autorouteAllCommand()}))
	assert.Len(t, inv.Board().Bands(), 2)
}

func TestCommandJSONRoundTrip(t *testing.T) {
	cmds := []invoker.Command{
		autorouteAllCommand(),
		invoker.PlaceViaCommand{Weight: executor.ViaWeight{
			FromLayer: 0, ToLayer: 1,
			Center: geom.Point{X: 125000, Y: -84000}, Radius: 1000,
			Net: 3,
		}},
		invoker.RemoveBandsCommand{Selection: []board.BandName{"GND:a:b"}},
		invoker.MeasureLengthCommand{Selection: []board.BandName{"GND:a:b"}},
		invoker.CompareDetoursCommand{
			Selection: []board.PinRef{{Pin: "J1-1", Layer: "F.Cu"}},
			Options:   executor.Options{RoutedBandWidth: 0.2, Presort: executor.PresortLength},
		},
	}
	for _, cmd := range cmds {
		raw, err := invoker.MarshalCommand(cmd)
		require.NoError(t, err)
		back, err := invoker.UnmarshalCommand(raw)
		require.NoError(t, err)
		assert.Equal(t, cmd, back)
	}
}

func TestCommandJSONUsesVariantTags(t *testing.T) {
	raw, err := invoker.MarshalCommand(autorouteAllCommand())
	require.NoError(t, err)

	var env map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &env))
	assert.Contains(t, env, "type")
	assert.Contains(t, env, "autoroute")

	var tag string
	require.NoError(t, json.Unmarshal(env["type"], &tag))
	assert.Equal(t, "Autoroute", tag)
}

func TestHistoryFileRoundTrip(t *testing.T) {
	h := invoker.NewHistory()
	h.Do(autorouteAllCommand())
	h.Do(invoker.MeasureLengthCommand{Selection: []board.BandName{"x"}})
	require.NoError(t, h.Undo())

	raw, err := json.Marshal(h)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"done"`)
	assert.Contains(t, string(raw), `"undone"`)

	var back invoker.History
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, h.Done(), back.Done())
	assert.Equal(t, h.Undone(), back.Undone())
}

func TestLoadHistoryReplaysDone(t *testing.T) {
	h := invoker.NewHistory()
	h.Do(autorouteAllCommand())

	inv := invoker.NewInvoker(breakoutFactory)
	require.NoError(t, inv.LoadHistory(h))
	assert.Len(t, inv.Board().Bands(), 2)

	// The loaded history is live: undoing pops the replayed command.
	require.NoError(t, inv.Undo())
	assert.Empty(t, inv.Board().Bands())
}

func TestForwardCommandClearsRedo(t *testing.T) {
	inv := invoker.NewInvoker(breakoutFactory)
	exec, err := inv.Execute(autorouteAllCommand())
	require.NoError(t, err)
	_, err = exec.Finish()
	require.NoError(t, err)
	require.NoError(t, inv.Undo())
	require.Len(t, inv.History().Undone(), 1)

	// A new forward command after an undo discards the redo stack.
	exec, err = inv.Execute(autorouteAllCommand())
	require.NoError(t, err)
	_, err = exec.Finish()
	require.NoError(t, err)
	assert.Empty(t, inv.History().Undone())
	assert.ErrorIs(t, inv.Redo(), invoker.ErrNoNextCommand)
}
