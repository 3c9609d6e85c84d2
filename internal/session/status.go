package session

import (
	"errors"
	"fmt"
)

// Status is the lifecycle of the current measurement request.
type Status int

const (
	Idle Status = iota
	Validating
	InFlight
	Succeeded
	Failed
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Validating:
		return "validating"
	case InFlight:
		return "in_flight"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// ErrInvalidTransition is returned when a status change is not in the table.
var ErrInvalidTransition = errors.New("invalid status transition")

// transitions lists the allowed successors of each status. Any status may
// return to Idle when the selection changes.
var transitions = map[Status][]Status{
	Idle:       {Idle, Validating},
	Validating: {Idle, InFlight, Failed},
	InFlight:   {Idle, Succeeded, Failed},
	Succeeded:  {Idle, Validating},
	Failed:     {Idle, Validating},
}

// CanTransition reports whether from -> to is allowed.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
