package executor

import (
	"errors"
	"fmt"

	"topola/board"
	"topola/core"
	"topola/geom"
)

// ErrCouldNotPlaceVia is returned when the requested via infringes
// existing copper and cannot be inserted.
var ErrCouldNotPlaceVia = errors.New("executor: could not place via")

// ViaWeight is the PlaceVia command's payload: the layer span,
// circle, and net of the via to insert.
type ViaWeight struct {
	FromLayer board.LayerID `json:"from_layer"`
	ToLayer   board.LayerID `json:"to_layer"`
	Center    geom.Point    `json:"circle_center"`
	Radius    float64       `json:"circle_radius"`
	Net       board.NetID   `json:"net"`
}

// PlaceVia is a one-shot executor; it satisfies Stepper anyway so
// the Invoker can drive every command through the same uniform
// interface, doing all its work on the first Step.
type PlaceVia struct {
	b      *board.Board
	weight ViaWeight
	done   bool
	placed core.CompoundIndex
}

// NewPlaceVia prepares to insert a via of the given weight.
func NewPlaceVia(b *board.Board, weight ViaWeight) *PlaceVia {
	return &PlaceVia{b: b, weight: weight}
}

// Placed returns the via's index, valid only after a successful Step.
func (p *PlaceVia) Placed() core.CompoundIndex { return p.placed }

// Step inserts the via. A PlaceVia executor is Break/done after its
// first Step either way, successful or not.
func (p *PlaceVia) Step() (Status, error) {
	if p.done {
		return Break, ErrAlreadyDone
	}
	p.done = true
	net := int(p.weight.Net)
	idx, err := p.b.Graph().AddVia(p.weight.Center, p.weight.Radius, int(p.weight.FromLayer), int(p.weight.ToLayer), &net)
	if err != nil {
		if errors.Is(err, core.ErrInfringes) {
			return Break, fmt.Errorf("%w: %v", ErrCouldNotPlaceVia, err)
		}
		return Break, err
	}
	p.placed = idx
	log.WithField("net", p.weight.Net).Info("place_via: via placed")
	return Break, nil
}

// Finish drives PlaceVia's single step to completion.
func (p *PlaceVia) Finish() error {
	if p.done {
		return nil
	}
	_, err := p.Step()
	return err
}

// Abort is a no-op once done (the via is either already placed or
// never attempted); PlaceVia never leaves a partial mutation since
// AddVia is atomic.
func (p *PlaceVia) Abort() { p.done = true }
