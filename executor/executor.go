// Package executor implements the stepper contract commands run
// under: long operations (Autoroute, CompareDetours) expose
// step/finish/abort so a host can interleave rendering between units
// of progress, while short one-shot operations (PlaceVia,
// RemoveBands, MeasureLength) run to completion the moment they're
// stepped once. Completion is a Status check rather than a
// coroutine-style control-flow type.
package executor

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Status is one step's progress report.
type Status int

const (
	Continue Status = iota
	Break
)

// ErrAlreadyDone is returned by Step once an executor has already
// reached Break; callers should call Finish's result instead of
// stepping further.
var ErrAlreadyDone = errors.New("executor: already finished")

// ErrUnknownPin and ErrUnknownBand reject an invalid command: a
// selection referencing a pin or band the board does not have is
// surfaced directly, never silently dropped.
var (
	ErrUnknownPin  = errors.New("executor: selection references unknown pin")
	ErrUnknownBand = errors.New("executor: selection references unknown band")
)

// Stepper is the uniform contract every executor satisfies: step,
// finish, abort.
type Stepper interface {
	// Step performs one bounded unit of progress.
	Step() (Status, error)
	// Finish drives the executor to completion, one Step at a time.
	Finish() error
	// Abort discards partial state, leaving the geometry at the last
	// consistent checkpoint.
	Abort()
}

// PresortMode selects the order Autoroute/CompareDetours process their
// ratline selection in.
type PresortMode int

const (
	PresortNone PresortMode = iota
	PresortLength
)

func (m PresortMode) String() string {
	switch m {
	case PresortLength:
		return "length"
	default:
		return "none"
	}
}

// MarshalJSON renders PresortMode as its "none"/"length" token, not
// its underlying int.
func (m PresortMode) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts "none" or "length".
func (m *PresortMode) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "none", "":
		*m = PresortNone
	case "length":
		*m = PresortLength
	default:
		return fmt.Errorf("executor: unknown presort mode %q", s)
	}
	return nil
}

// Options is the routing-command payload shared by Autoroute and
// CompareDetours.
type Options struct {
	RoutedBandWidth float64 `json:"routed_band_width"`
	// Wraparoundable controls how generously Autoroute's per-ratline
	// navmesh envelope is padded around the origin/destination pair:
	// true (the default) pads it enough to pull in nearby obstacles
	// as wraparound candidates; false shrinks the envelope to the
	// bare origin/destination bounding box, so in practice no
	// third-party primitive becomes a navmesh vertex and the tracer
	// can only go direct.
	Wraparoundable bool        `json:"wraparoundable"`
	Presort        PresortMode `json:"presort"`
}

// log is the package-wide structured logger; Autoroute/PlaceVia/etc.
// tag every entry with their own command name.
var log = logrus.WithField("component", "executor")
