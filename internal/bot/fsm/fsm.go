package fsm

import "errors"

// State is the bot run state.
type State string

// Run states owned by the bot controller.
const (
	StateIdle    State = "idle"
	StateRunning State = "running"
)

// ErrInvalidTransition is returned by Apply for a move the machine does not allow.
var ErrInvalidTransition = errors.New("invalid state transition")

var transitions = map[State]map[State]struct{}{
	StateIdle:    {StateRunning: {}},
	StateRunning: {StateIdle: {}},
}

// CanTransition returns whether the bot can move from the current state to the target state.
func CanTransition(from, to State) bool {
	if from == to {
		return true
	}
	allowed, ok := transitions[from]
	if !ok {
		return false
	}
	_, ok = allowed[to]
	return ok
}

// Apply validates the move and returns the new state.
func Apply(from, to State) (State, error) {
	if !CanTransition(from, to) {
		return from, ErrInvalidTransition
	}
	return to, nil
}
