package executor

import (
	"topola/board"
)

// CompareDetours autoroutes the same ratline set once in the given
// order and once reversed, summing each run's committed band lengths
// and undoing the placed bands between runs via the same RemoveBand
// mechanism RemoveBands uses. Each total sums over however many
// ratlines were selected, distinct from Compare's fixed two-ratline
// delta.
type CompareDetours struct {
	b        *board.Board
	ratlines []board.Ratline
	opts     Options

	first  *Autoroute
	second *Autoroute

	total1, total2 float64
	onFirst        bool
	done           bool
}

// NewCompareDetours prepares to compare ratlines in their given order
// against their reverse.
func NewCompareDetours(b *board.Board, ratlines []board.Ratline, opts Options) *CompareDetours {
	reversed := make([]board.Ratline, len(ratlines))
	for i, r := range ratlines {
		reversed[len(ratlines)-1-i] = r
	}
	return &CompareDetours{
		b:        b,
		ratlines: ratlines,
		opts:     opts,
		first:    NewAutorouteFromRatlines(b, ratlines, opts),
		second:   NewAutorouteFromRatlines(b, reversed, opts),
		onFirst:  true,
	}
}

// Totals returns the two orders' summed lengths, valid only after
// Step has reached Break.
func (c *CompareDetours) Totals() (float64, float64) { return c.total1, c.total2 }

// Step advances whichever run is currently active by one A* expansion
// (one Autoroute.Step), switching to the second run and rewinding the
// first's bands once the first finishes, and finishing outright once
// the second run completes too.
func (c *CompareDetours) Step() (Status, error) {
	if c.done {
		return Break, ErrAlreadyDone
	}

	run := c.first
	if !c.onFirst {
		run = c.second
	}

	status, err := run.Step()
	if err != nil {
		c.done = true
		return Break, err
	}
	if status == Continue {
		return Continue, nil
	}

	total := sumLengths(run.RoutedBands())
	if c.onFirst {
		c.total1 = total
		if err := rewind(c.b, run.RoutedBands()); err != nil {
			c.done = true
			return Break, err
		}
		c.onFirst = false
		return Continue, nil
	}

	c.total2 = total
	if err := rewind(c.b, run.RoutedBands()); err != nil {
		c.done = true
		return Break, err
	}
	c.done = true
	log.WithField("total1", c.total1).WithField("total2", c.total2).Info("compare_detours: finished")
	return Break, nil
}

func sumLengths(results []RatlineResult) float64 {
	var total float64
	for _, r := range results {
		total += r.Length
	}
	return total
}

// rewind removes every band a run committed, in reverse commit order,
// the same mechanism RemoveBands exposes as a command in its own
// right.
func rewind(b *board.Board, results []RatlineResult) error {
	for i := len(results) - 1; i >= 0; i-- {
		r := results[i]
		if err := b.RemoveBand(r.Termseg); err != nil {
			return err
		}
		b.UnregisterBand(r.Name)
	}
	return nil
}

// Finish drives CompareDetours to completion, one Step at a time.
func (c *CompareDetours) Finish() error {
	for {
		status, err := c.Step()
		if err != nil {
			if err == ErrAlreadyDone {
				return nil
			}
			return err
		}
		if status == Break {
			return nil
		}
	}
}

// Abort rolls back whichever run is mid-flight and marks this
// comparison done without reporting totals. The first run's bands are already rewound by the
// time the second run is active, so only the active run ever needs
// rolling back here.
func (c *CompareDetours) Abort() {
	if c.onFirst {
		c.first.Abort()
	} else {
		c.second.Abort()
	}
	c.done = true
}
