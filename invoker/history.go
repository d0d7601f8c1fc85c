package invoker

import (
	"encoding/json"
	"errors"
)

// ErrNoPreviousCommand and ErrNoNextCommand are surfaced verbatim by
// Undo/Redo at stack bounds.
var (
	ErrNoPreviousCommand = errors.New("invoker: no previous command")
	ErrNoNextCommand     = errors.New("invoker: no next command")
)

// History is the Invoker's double stack of applied commands: done
// holds commands applied and not undone, undone holds commands undone
// and not yet redone or superseded by a new forward command.
type History struct {
	done   []Command
	undone []Command
}

// NewHistory returns an empty History.
func NewHistory() *History {
	return &History{}
}

// Do pushes command onto done. Callers are responsible for clearing
// Undone first when command is a new forward operation rather than a
// redo.
func (h *History) Do(command Command) {
	h.done = append(h.done, command)
}

// Undo pops the most recent done command onto undone.
func (h *History) Undo() error {
	if len(h.done) == 0 {
		return ErrNoPreviousCommand
	}
	last := h.done[len(h.done)-1]
	h.done = h.done[:len(h.done)-1]
	h.undone = append(h.undone, last)
	return nil
}

// Redo pops the most recently undone command back onto done.
func (h *History) Redo() error {
	if len(h.undone) == 0 {
		return ErrNoNextCommand
	}
	last := h.undone[len(h.undone)-1]
	h.undone = h.undone[:len(h.undone)-1]
	h.done = append(h.done, last)
	return nil
}

// ClearUndone discards the undone stack, called whenever a new
// forward command is applied after an undo (the classic editor
// invariant: you cannot redo past a new edit).
func (h *History) ClearUndone() {
	h.undone = nil
}

// LastDone returns the most recently applied command.
func (h *History) LastDone() (Command, error) {
	if len(h.done) == 0 {
		return nil, ErrNoPreviousCommand
	}
	return h.done[len(h.done)-1], nil
}

// LastUndone returns the most recently undone command.
func (h *History) LastUndone() (Command, error) {
	if len(h.undone) == 0 {
		return nil, ErrNoNextCommand
	}
	return h.undone[len(h.undone)-1], nil
}

// Done returns every applied command, in application order.
func (h *History) Done() []Command { return append([]Command(nil), h.done...) }

// Undone returns every undone command, most-recently-undone last.
func (h *History) Undone() []Command { return append([]Command(nil), h.undone...) }

// historyFile is the on-disk JSON document shape:
// `{ "done": [Command …], "undone": [Command …] }`.
type historyFile struct {
	Done   []json.RawMessage `json:"done"`
	Undone []json.RawMessage `json:"undone"`
}

// MarshalJSON renders History as the history file format.
func (h *History) MarshalJSON() ([]byte, error) {
	file := historyFile{
		Done:   make([]json.RawMessage, len(h.done)),
		Undone: make([]json.RawMessage, len(h.undone)),
	}
	for i, c := range h.done {
		raw, err := MarshalCommand(c)
		if err != nil {
			return nil, err
		}
		file.Done[i] = raw
	}
	for i, c := range h.undone {
		raw, err := MarshalCommand(c)
		if err != nil {
			return nil, err
		}
		file.Undone[i] = raw
	}
	return json.Marshal(file)
}

// UnmarshalJSON parses the history file format.
func (h *History) UnmarshalJSON(data []byte) error {
	var file historyFile
	if err := json.Unmarshal(data, &file); err != nil {
		return err
	}
	done := make([]Command, len(file.Done))
	for i, raw := range file.Done {
		cmd, err := UnmarshalCommand(raw)
		if err != nil {
			return err
		}
		done[i] = cmd
	}
	undone := make([]Command, len(file.Undone))
	for i, raw := range file.Undone {
		cmd, err := UnmarshalCommand(raw)
		if err != nil {
			return err
		}
		undone[i] = cmd
	}
	h.done = done
	h.undone = undone
	return nil
}
