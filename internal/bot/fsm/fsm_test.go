package fsm

import (
	"errors"
	"testing"
)

func TestCanTransition(t *testing.T) {
	if !CanTransition(StateIdle, StateRunning) {
		t.Fatal("expected idle -> running to be allowed")
	}
	if !CanTransition(StateRunning, StateIdle) {
		t.Fatal("expected running -> idle to be allowed")
	}
	if !CanTransition(StateRunning, StateRunning) {
		t.Fatal("expected running -> running to be a no-op")
	}
	if CanTransition(State("paused"), StateRunning) {
		t.Fatal("unexpected transition allowed from unknown state")
	}
}

func TestApply(t *testing.T) {
	next, err := Apply(StateIdle, StateRunning)
	if err != nil || next != StateRunning {
		t.Fatalf("expected running, got %s (%v)", next, err)
	}
	next, err = Apply(State("paused"), StateIdle)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if next != State("paused") {
		t.Fatalf("state must not change on failure, got %s", next)
	}
}
