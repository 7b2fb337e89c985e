// SPDX-License-Identifier: MIT

package render

import (
	"fmt"
	"sync"
)

// State is a render job's lifecycle phase.
type State int

const (
	StatePending State = iota
	StateAssembling
	StateMixing
	StateRendering
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateAssembling:
		return "assembling"
	case StateMixing:
		return "mixing"
	case StateRendering:
		return "rendering"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Terminal reports whether no further transition is allowed.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// transitions lists the allowed forward edges. Failed is reachable from any
// non-terminal state and is therefore handled separately.
var transitions = map[State]State{
	StatePending:    StateAssembling,
	StateAssembling: StateMixing,
	StateMixing:     StateRendering,
	StateRendering:  StateSucceeded,
}

// Tracker serializes state transitions for one job and fans them out to an
// optional observer.
type Tracker struct {
	mu     sync.Mutex
	state  State
	notify func(State)
}

func NewTracker(notify func(State)) *Tracker {
	return &Tracker{state: StatePending, notify: notify}
}

func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// To advances the job to the next phase. Only the defined forward edge and
// the failure edge are legal; anything else is a programming error surfaced
// to the caller.
func (t *Tracker) To(next State) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state.Terminal() {
		return fmt.Errorf("job already %s, cannot enter %s", t.state, next)
	}
	if next != StateFailed && transitions[t.state] != next {
		return fmt.Errorf("illegal transition %s -> %s", t.state, next)
	}
	t.state = next
	if t.notify != nil {
		t.notify(next)
	}
	return nil
}
