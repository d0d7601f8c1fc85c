// Package invoker handles command sequencing, undo/redo history, and
// replay, sitting above board and executor. Command is a closed
// interface with an unexported marker method (Go has no sum types),
// and its JSON tagged-union shape is produced by hand in
// MarshalCommand/UnmarshalCommand rather than derived.
package invoker

import (
	"encoding/json"
	"fmt"

	"topola/board"
	"topola/executor"
)

// Command is one of the five value objects the invoker executes:
// Autoroute, PlaceVia, RemoveBands, CompareDetours, MeasureLength.
type Command interface {
	commandType() string
}

// AutorouteCommand autoroutes every ratline between the pins named in
// Selection.
type AutorouteCommand struct {
	Selection []board.PinRef  `json:"selection"`
	Options   executor.Options `json:"options"`
}

func (AutorouteCommand) commandType() string { return "Autoroute" }

// PlaceViaCommand inserts a single via.
type PlaceViaCommand struct {
	Weight executor.ViaWeight `json:"via_weight"`
}

func (PlaceViaCommand) commandType() string { return "PlaceVia" }

// RemoveBandsCommand deletes the named bands.
type RemoveBandsCommand struct {
	Selection []board.BandName `json:"selection"`
}

func (RemoveBandsCommand) commandType() string { return "RemoveBands" }

// CompareDetoursCommand autoroutes the ratlines between the named
// pins once in each order and reports both totals.
type CompareDetoursCommand struct {
	Selection []board.PinRef   `json:"selection"`
	Options   executor.Options `json:"options"`
}

func (CompareDetoursCommand) commandType() string { return "CompareDetours" }

// MeasureLengthCommand sums the routed length of the named bands.
type MeasureLengthCommand struct {
	Selection []board.BandName `json:"selection"`
}

func (MeasureLengthCommand) commandType() string { return "MeasureLength" }

// commandEnvelope is the JSON shape every Command round-trips
// through: a variant-name tag plus exactly one populated payload
// field.
type commandEnvelope struct {
	Type           string                  `json:"type"`
	Autoroute      *AutorouteCommand       `json:"autoroute,omitempty"`
	PlaceVia       *PlaceViaCommand        `json:"place_via,omitempty"`
	RemoveBands    *RemoveBandsCommand     `json:"remove_bands,omitempty"`
	CompareDetours *CompareDetoursCommand  `json:"compare_detours,omitempty"`
	MeasureLength  *MeasureLengthCommand   `json:"measure_length,omitempty"`
}

// MarshalCommand encodes a Command as its tagged-union JSON form.
func MarshalCommand(c Command) ([]byte, error) {
	env := commandEnvelope{Type: c.commandType()}
	switch cmd := c.(type) {
	case AutorouteCommand:
		env.Autoroute = &cmd
	case PlaceViaCommand:
		env.PlaceVia = &cmd
	case RemoveBandsCommand:
		env.RemoveBands = &cmd
	case CompareDetoursCommand:
		env.CompareDetours = &cmd
	case MeasureLengthCommand:
		env.MeasureLength = &cmd
	default:
		return nil, fmt.Errorf("invoker: unknown command type %T", c)
	}
	return json.Marshal(env)
}

// UnmarshalCommand decodes a Command from its tagged-union JSON form.
func UnmarshalCommand(data []byte) (Command, error) {
	var env commandEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	switch env.Type {
	case "Autoroute":
		if env.Autoroute == nil {
			return nil, fmt.Errorf("invoker: Autoroute command missing payload")
		}
		return *env.Autoroute, nil
	case "PlaceVia":
		if env.PlaceVia == nil {
			return nil, fmt.Errorf("invoker: PlaceVia command missing payload")
		}
		return *env.PlaceVia, nil
	case "RemoveBands":
		if env.RemoveBands == nil {
			return nil, fmt.Errorf("invoker: RemoveBands command missing payload")
		}
		return *env.RemoveBands, nil
	case "CompareDetours":
		if env.CompareDetours == nil {
			return nil, fmt.Errorf("invoker: CompareDetours command missing payload")
		}
		return *env.CompareDetours, nil
	case "MeasureLength":
		if env.MeasureLength == nil {
			return nil, fmt.Errorf("invoker: MeasureLength command missing payload")
		}
		return *env.MeasureLength, nil
	default:
		return nil, fmt.Errorf("invoker: unknown command type %q", env.Type)
	}
}
