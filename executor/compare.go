package executor

import (
	"errors"

	"topola/board"
)

// ErrCompareRequiresTwoRatlines reports a selection that is not
// exactly two ratlines; Compare, unlike CompareDetours, only has a
// meaning for exactly that shape. NewCompare takes its two ratlines as
// separate parameters and never returns it.
var ErrCompareRequiresTwoRatlines = errors.New("executor: compare requires exactly two ratlines")

// Compare autoroutes exactly two ratlines once in each order, and
// reports the single delta: (total length under the first order)
// minus (total length under the second). Distinct from
// CompareDetours, which reports both totals over an arbitrary-sized
// selection.
type Compare struct {
	detours *CompareDetours
	done    bool
}

// NewCompare prepares to compare exactly two ratlines.
func NewCompare(b *board.Board, ratline1, ratline2 board.Ratline, opts Options) (*Compare, error) {
	return &Compare{detours: NewCompareDetours(b, []board.Ratline{ratline1, ratline2}, opts)}, nil
}

// Delta returns total1 - total2, valid only after Step reaches Break.
func (c *Compare) Delta() float64 {
	total1, total2 := c.detours.Totals()
	return total1 - total2
}

// Step delegates to the underlying CompareDetours run; Compare's only
// difference from CompareDetours is the two-ratline-only entry point
// and the single-delta shape of its result.
func (c *Compare) Step() (Status, error) {
	if c.done {
		return Break, ErrAlreadyDone
	}
	status, err := c.detours.Step()
	if status == Break {
		c.done = true
	}
	return status, err
}

// Finish drives Compare to completion, one Step at a time.
func (c *Compare) Finish() error {
	if c.done {
		return nil
	}
	return c.detours.Finish()
}

// Abort rolls back whichever run is mid-flight.
func (c *Compare) Abort() {
	c.detours.Abort()
	c.done = true
}
