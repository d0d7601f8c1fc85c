package executor

import (
	"fmt"

	"topola/board"
)

// MeasureLength is the executor behind the MeasureLength command:
// sums the routed length of every band named in the selection. The
// result is cached after the first successful Step.
type MeasureLength struct {
	b         *board.Board
	selection []board.BandName
	length    float64
	done      bool
}

// NewMeasureLength prepares to sum the length of every band in
// selection.
func NewMeasureLength(b *board.Board, selection []board.BandName) *MeasureLength {
	return &MeasureLength{b: b, selection: selection}
}

// Length returns the summed length, valid only after a successful
// Step.
func (m *MeasureLength) Length() float64 { return m.length }

// Step sums the selected bands' lengths.
func (m *MeasureLength) Step() (Status, error) {
	if m.done {
		return Break, ErrAlreadyDone
	}
	m.done = true
	var total float64
	for _, name := range m.selection {
		term, ok := m.b.BandByName(name)
		if !ok {
			return Break, fmt.Errorf("%w: %s", ErrUnknownBand, name)
		}
		length, err := m.b.BandLength(term)
		if err != nil {
			return Break, err
		}
		total += length
	}
	m.length = total
	return Break, nil
}

// Finish drives MeasureLength's single step to completion.
func (m *MeasureLength) Finish() error {
	if m.done {
		return nil
	}
	_, err := m.Step()
	return err
}

// Abort is a no-op: MeasureLength never mutates the board.
func (m *MeasureLength) Abort() { m.done = true }
