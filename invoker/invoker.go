package invoker

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"topola/board"
	"topola/executor"
)

// ErrExecutionInProgress is returned by Execute/Undo/Redo when an
// Execution from a previous Execute call has not yet reached Break.
var ErrExecutionInProgress = errors.New("invoker: an execution is already in progress")

// BoardFactory produces a fresh, unrouted Board — the same design
// input (pads, pre-routed primitives, ratlines, layer/net tables)
// every time. Undo/Replay call it to reconstruct the board from
// scratch rather than snapshot geometry; board reconstruction is the
// rewind mechanism. Typically a closure over a parsed design input
// that builds a new board.Board on each call.
type BoardFactory func() *board.Board

// Invoker is the command sequencer: it owns the live board, drives
// commands through their executors, and maintains the done/undone
// history those commands replay against.
type Invoker struct {
	factory BoardFactory
	board   *board.Board
	history *History
	ongoing *Execution
}

// NewInvoker constructs an Invoker whose board starts at factory()'s
// initial, unrouted state.
func NewInvoker(factory BoardFactory) *Invoker {
	return &Invoker{factory: factory, board: factory(), history: NewHistory()}
}

// Board returns the live board commands are applied to. Only
// read-only accessors (rendering, inspection) should be used on it
// between Step calls.
func (i *Invoker) Board() *board.Board { return i.board }

// History returns the done/undone command stacks.
func (i *Invoker) History() *History { return i.history }

// build constructs the Stepper for cmd, operating on b. Shared by
// Execute (operates on the live board) and Replay (operates on a
// freshly reconstructed one).
func build(b *board.Board, cmd Command) (executor.Stepper, error) {
	switch c := cmd.(type) {
	case AutorouteCommand:
		step, err := executor.NewAutoroute(b, c.Selection, c.Options)
		if err != nil {
			return nil, err
		}
		return step, nil
	case PlaceViaCommand:
		return executor.NewPlaceVia(b, c.Weight), nil
	case RemoveBandsCommand:
		return executor.NewRemoveBands(b, c.Selection), nil
	case CompareDetoursCommand:
		if err := executor.ValidateSelection(b, c.Selection); err != nil {
			return nil, err
		}
		ratlines := executor.ResolveSelection(b, c.Selection)
		return executor.NewCompareDetours(b, ratlines, c.Options), nil
	case MeasureLengthCommand:
		return executor.NewMeasureLength(b, c.Selection), nil
	default:
		return nil, fmt.Errorf("invoker: unknown command type %T", cmd)
	}
}

// Execute builds the executor for cmd against the live board and
// returns an Execution the caller steps to completion. Only one
// Execution may be in flight at a time.
func (i *Invoker) Execute(cmd Command) (*Execution, error) {
	if i.ongoing != nil {
		return nil, ErrExecutionInProgress
	}
	stepper, err := build(i.board, cmd)
	if err != nil {
		return nil, err
	}
	exec := &Execution{id: uuid.New(), invoker: i, command: cmd, stepper: stepper}
	i.ongoing = exec
	log.WithFields(logrus.Fields{
		"execution": exec.id,
		"command":   cmd.commandType(),
	}).Info("invoker: execution started")
	return exec, nil
}

// commit records cmd as applied, clearing the redo stack only for
// the three commands that actually mutate the board going forward;
// CompareDetours and MeasureLength are net no-ops on the board (the
// former rewinds what it places, the latter never mutates), so a
// pending redo remains valid across them.
func (i *Invoker) commit(cmd Command) {
	switch cmd.(type) {
	case AutorouteCommand, PlaceViaCommand, RemoveBandsCommand:
		i.history.ClearUndone()
	}
	i.history.Do(cmd)
}

// Execution is one command's in-flight run, returned by
// Invoker.Execute: stepping it drives the underlying executor and,
// once it reaches Break, commits the command to history exactly once.
type Execution struct {
	id      uuid.UUID
	invoker *Invoker
	command Command
	stepper executor.Stepper
}

// ID returns the execution's session-unique identifier, stable for
// the lifetime of this run and used to correlate its log entries.
func (e *Execution) ID() uuid.UUID { return e.id }

// Step advances the underlying executor by one unit of progress. On
// error the Invoker's in-flight slot is cleared without committing
// the command.
func (e *Execution) Step() (executor.Status, error) {
	status, err := e.stepper.Step()
	if err != nil {
		e.invoker.ongoing = nil
		return executor.Break, err
	}
	if status == executor.Break {
		e.invoker.commit(e.command)
		e.invoker.ongoing = nil
		log.WithFields(logrus.Fields{
			"execution": e.id,
			"command":   e.command.commandType(),
		}).Info("invoker: command committed")
	}
	return status, nil
}

// Finish drives the Execution to completion and returns the
// command's human-readable result message.
func (e *Execution) Finish() (string, error) {
	for {
		status, err := e.Step()
		if err != nil {
			return "", err
		}
		if status == executor.Break {
			return e.Result(), nil
		}
	}
}

// Abort discards the in-flight executor's partial state without
// committing the command.
func (e *Execution) Abort() {
	e.stepper.Abort()
	e.invoker.ongoing = nil
}

// Result reports the finished message for the command kind, valid
// only once the Execution has reached Break.
func (e *Execution) Result() string {
	switch s := e.stepper.(type) {
	case *executor.Autoroute:
		return "finished autorouting"
	case *executor.PlaceVia:
		return "finished placing via"
	case *executor.RemoveBands:
		return "finished removing bands"
	case *executor.CompareDetours:
		total1, total2 := s.Totals()
		return fmt.Sprintf("total detour lengths are %v and %v", total1, total2)
	case *executor.MeasureLength:
		return fmt.Sprintf("total length of selected bands: %v", s.Length())
	default:
		return ""
	}
}

// Replay re-applies commands in order onto a freshly reconstructed
// board, replacing the Invoker's live board on success. Failure
// aborts replay immediately and surfaces the error without touching
// the live board.
func (i *Invoker) Replay(commands []Command) error {
	fresh := i.factory()
	for _, cmd := range commands {
		stepper, err := build(fresh, cmd)
		if err != nil {
			return err
		}
		if err := stepper.Finish(); err != nil {
			return err
		}
	}
	i.board = fresh
	log.WithField("count", len(commands)).Info("invoker: replay finished")
	return nil
}

// LoadHistory replaces the Invoker's history wholesale and replays
// its done list onto a fresh board, the entry point for opening a
// history file.
func (i *Invoker) LoadHistory(h *History) error {
	if i.ongoing != nil {
		return ErrExecutionInProgress
	}
	if err := i.Replay(h.Done()); err != nil {
		return err
	}
	i.history = h
	return nil
}

// Undo pops the most recent command off done and rebuilds the board
// from scratch, replaying every remaining done command in order —
// board reconstruction is the rewind mechanism, since geometry is
// never snapshotted.
func (i *Invoker) Undo() error {
	if i.ongoing != nil {
		return ErrExecutionInProgress
	}
	if err := i.history.Undo(); err != nil {
		return err
	}
	if err := i.Replay(i.history.Done()); err != nil {
		// The replay of the shortened history itself failed; put the
		// popped command back so the history stacks stay consistent
		// with the (unchanged) live board.
		_ = i.history.Redo()
		return err
	}
	return nil
}

// Redo re-pops the most recently undone command onto done and applies
// it to the live board directly: the board is already in the state
// that command's replay would produce, since Undo just rebuilt it
// without that command.
func (i *Invoker) Redo() error {
	if i.ongoing != nil {
		return ErrExecutionInProgress
	}
	cmd, err := i.history.LastUndone()
	if err != nil {
		return err
	}
	if err := i.history.Redo(); err != nil {
		return err
	}
	stepper, err := build(i.board, cmd)
	if err != nil {
		_ = i.history.Undo()
		return err
	}
	if err := stepper.Finish(); err != nil {
		_ = i.history.Undo()
		return err
	}
	return nil
}

var log = logrus.WithField("component", "invoker")
