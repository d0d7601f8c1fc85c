package dsn

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"topola/board"
	"topola/core"
	"topola/geom"
	"topola/rules"
)

// breakoutDsn is a two-net resistor breakout in the shape KiCad's
// exporter produces: one copper layer, an 0603 resistor and a 1x2 pin
// header, no pre-routed wiring.
const breakoutDsn = `
(pcb "0603_breakout.dsn"
  (parser
    (string_quote ")
    (space_in_quoted_tokens on)
  )
  (resolution um 10)
  (structure
    (layer F.Cu (type signal))
    (rule (width 25) (clearance 20) (clearance 5 (type smd_smd)))
  )
  (placement
    (component R_0603 (place R1 1000 -1000 front 0))
    (component PinHeader_1x2 (place J1 2000 -1000 front 90))
  )
  (library
    (image R_0603
      (pin Rect_80x90 1 -75 0)
      (pin Rect_80x90 2 75 0)
    )
    (image PinHeader_1x2
      (pin Round_100 1 0 0)
      (pin Round_100 2 0 -254)
    )
    (padstack Round_100 (shape (circle F.Cu 100)) (attach off))
    (padstack Rect_80x90 (shape (rect F.Cu -40 -45 40 45)) (attach off))
  )
  (network
    (net GND (pins R1-1 J1-1))
    (net VCC (pins R1-2 J1-2))
    (class kicad_default GND VCC
      (circuit (use_via Round_100))
      (rule (width 25) (clearance 20))
    )
  )
  (wiring)
)
`

func TestParseDesign(t *testing.T) {
	d, err := ParseDesign(breakoutDsn)
	require.NoError(t, err)

	assert.Equal(t, "0603_breakout.dsn", d.Name)
	assert.Equal(t, "um", d.Unit)
	assert.InDelta(t, 10, d.Resolution, 1e-9)
	assert.Equal(t, []string{"F.Cu"}, d.Layers)
	assert.InDelta(t, 25, d.Rule.Width, 1e-9)
	assert.InDelta(t, 20, d.Rule.Clearance, 1e-9)

	require.Len(t, d.Places, 2)
	assert.Equal(t, "R1", d.Places[0].RefDes)
	assert.True(t, d.Places[0].Front)
	assert.InDelta(t, 90, d.Places[1].Rotate, 1e-9)

	require.Len(t, d.Nets, 2)
	assert.Equal(t, []string{"R1-1", "J1-1"}, d.Nets[0].Pins)

	require.Len(t, d.Classes, 1)
	assert.Equal(t, []string{"GND", "VCC"}, d.Classes[0].Nets)
	assert.Equal(t, "Round_100", d.Classes[0].Via)
}

func TestParseDesignRejectsGarbage(t *testing.T) {
	_, err := ParseDesign("(pcb (structure")
	assert.ErrorIs(t, err, ErrSyntax)

	_, err = ParseDesign("(session x)")
	assert.ErrorIs(t, err, ErrBadDesign)

	_, err = ParseDesign("(pcb no_structure)")
	assert.ErrorIs(t, err, ErrBadDesign)
}

func TestMakeBoardPadsAndRatlines(t *testing.T) {
	d, err := ParseDesign(breakoutDsn)
	require.NoError(t, err)
	b, err := d.MakeBoard()
	require.NoError(t, err)

	assert.Equal(t, 1, b.LayerCount())
	name, err := b.LayerName(0)
	require.NoError(t, err)
	assert.Equal(t, "F.Cu", name)

	// Pin header pin 2 is offset (0, -254) in the image; placed at
	// (2000, -1000) rotated 90 degrees it lands at (2254, -1000).
	j12, ok := b.PadAt(board.PinRef{Pin: "J1-2", Layer: "F.Cu"})
	require.True(t, ok)
	shape, err := b.Graph().DotShape(j12)
	require.NoError(t, err)
	assert.InDelta(t, 2254, shape.Pos.X, 1e-6)
	assert.InDelta(t, -1000, shape.Pos.Y, 1e-6)
	assert.InDelta(t, 50, shape.R, 1e-6)

	ratlines := b.Ratlines()
	require.Len(t, ratlines, 2)

	gnd, err := b.NetID("GND")
	require.NoError(t, err)
	assert.Equal(t, gnd, ratlines[0].Net)

	// The ratline's endpoints are the two GND pads.
	r11, ok := b.PadAt(board.PinRef{Pin: "R1-1", Layer: "F.Cu"})
	require.True(t, ok)
	assert.Equal(t, r11, ratlines[0].From)
}

func TestMakeBoardAppliesClassRules(t *testing.T) {
	d, err := ParseDesign(breakoutDsn)
	require.NoError(t, err)
	b, err := d.MakeBoard()
	require.NoError(t, err)

	gnd, err := b.NetID("GND")
	require.NoError(t, err)
	vcc, err := b.NetID("VCC")
	require.NoError(t, err)

	clearance := b.Oracle().Clearance(rules.ForNet(int(gnd)), rules.ForNet(int(vcc)))
	assert.InDelta(t, 20, clearance, 1e-9)
	assert.InDelta(t, 25, b.Oracle().Width(rules.ForNet(int(gnd))), 1e-9)
}

// wiredDsn carries a pre-routed wire landing exactly on its two pad
// centers, plus a through via, on a two-layer stack.
const wiredDsn = `
(pcb wired.dsn
  (resolution um 10)
  (structure
    (layer F.Cu (type signal))
    (layer B.Cu (type signal))
    (rule (width 25) (clearance 10))
  )
  (placement
    (component Pads_1x2 (place P1 0 0 front 0))
  )
  (library
    (image Pads_1x2
      (pin Round_100 1 0 0)
      (pin Round_100 2 1000 0)
    )
    (padstack Round_100 (shape (circle F.Cu 100)) (attach off))
    (padstack Via_80 (shape (circle signal 80)) (attach off))
  )
  (network
    (net GND (pins P1-1 P1-2))
  )
  (wiring
    (wire (path F.Cu 25 0 0 1000 0) (net GND))
    (via Via_80 500 700 (net GND))
  )
)
`

func TestMakeBoardWiringSharesPadJoints(t *testing.T) {
	d, err := ParseDesign(wiredDsn)
	require.NoError(t, err)
	b, err := d.MakeBoard()
	require.NoError(t, err)

	prerouted := b.Prerouted()
	require.Len(t, prerouted, 2)

	seg, ok := prerouted[0].AsSeg()
	require.True(t, ok)
	from, to, err := b.Graph().SegEnds(seg)
	require.NoError(t, err)

	p11, ok := b.PadAt(board.PinRef{Pin: "P1-1", Layer: "F.Cu"})
	require.True(t, ok)
	p12, ok := b.PadAt(board.PinRef{Pin: "P1-2", Layer: "F.Cu"})
	require.True(t, ok)
	assert.Equal(t, p11, from)
	assert.Equal(t, p12, to)
}

func TestMakeBoardViaSpansLayers(t *testing.T) {
	d, err := ParseDesign(wiredDsn)
	require.NoError(t, err)
	b, err := d.MakeBoard()
	require.NoError(t, err)

	via, ok := b.Prerouted()[1].AsCompound()
	require.True(t, ok)
	dots, err := b.Graph().ViaDots(via)
	require.NoError(t, err)
	require.Len(t, dots, 2)

	for layer, dot := range dots {
		got, err := b.Graph().Layer(dot.Prim())
		require.NoError(t, err)
		assert.Equal(t, layer, got)
		shape, err := b.Graph().DotShape(dot)
		require.NoError(t, err)
		assert.InDelta(t, 40, shape.R, 1e-9)
	}
}

func TestFactoryReconstructsDeterministically(t *testing.T) {
	d, err := ParseDesign(breakoutDsn)
	require.NoError(t, err)
	factory, err := d.Factory()
	require.NoError(t, err)

	b1 := factory()
	b2 := factory()
	require.Len(t, b2.Ratlines(), len(b1.Ratlines()))
	assert.Equal(t, b1.LayerCount(), b2.LayerCount())
}

func TestWriteSession(t *testing.T) {
	oracle := rules.NewOracle(10)
	b := board.NewBoard(oracle, board.WithLayers("F.Cu"), board.WithNets("GND"))

	net := 0
	from, err := b.Graph().AddFixedDot(geom.Point{X: 0, Y: 0}, 50, 0, &net)
	require.NoError(t, err)
	to, err := b.Graph().AddFixedDot(geom.Point{X: 1000, Y: 0}, 50, 0, &net)
	require.NoError(t, err)
	term, err := b.Graph().AddLoneLooseSeg(from, to, 25, 0, &net)
	require.NoError(t, err)

	var sb strings.Builder
	require.NoError(t, WriteSession(&sb, "breakout.ses", b, []core.SegIndex{term}))
	out := sb.String()
	assert.Contains(t, out, "(session breakout.ses")
	assert.Contains(t, out, "(net GND")
	assert.Contains(t, out, "(path F.Cu 25 0 0 1000 0)")
}
