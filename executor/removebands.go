package executor

import (
	"fmt"

	"topola/board"
)

// RemoveBands is the executor behind the RemoveBands command: a
// one-shot deletion of every band named in the selection.
type RemoveBands struct {
	b         *board.Board
	selection []board.BandName
	done      bool
}

// NewRemoveBands prepares to remove every band in selection.
func NewRemoveBands(b *board.Board, selection []board.BandName) *RemoveBands {
	return &RemoveBands{b: b, selection: selection}
}

// Step removes every selected band.
func (r *RemoveBands) Step() (Status, error) {
	if r.done {
		return Break, ErrAlreadyDone
	}
	r.done = true
	for _, name := range r.selection {
		term, ok := r.b.BandByName(name)
		if !ok {
			return Break, fmt.Errorf("%w: %s", ErrUnknownBand, name)
		}
		if err := r.b.RemoveBand(term); err != nil {
			return Break, err
		}
		r.b.UnregisterBand(name)
	}
	log.WithField("count", len(r.selection)).Info("remove_bands: selection removed")
	return Break, nil
}

// Finish drives RemoveBands' single step to completion.
func (r *RemoveBands) Finish() error {
	if r.done {
		return nil
	}
	_, err := r.Step()
	return err
}

// Abort is a no-op: RemoveBands only mutates on a completed Step.
func (r *RemoveBands) Abort() { r.done = true }
