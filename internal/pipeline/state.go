// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pipeline

import "fmt"

// State is the progress of one pipeline run.
type State int

const (
	Pending State = iota
	Planned
	Acquired
	Configured
	Built
	Assembled
	Failed
)

var stateNames = [...]string{
	Pending:    "PENDING",
	Planned:    "PLANNED",
	Acquired:   "ACQUIRED",
	Configured: "CONFIGURED",
	Built:      "BUILT",
	Assembled:  "ASSEMBLED",
	Failed:     "FAILED",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == Assembled || s == Failed
}

// StateError reports an illegal transition.
type StateError struct {
	From, To State
}

func (e *StateError) Error() string {
	return fmt.Sprintf("illegal transition %s -> %s", e.From, e.To)
}

// Tracker enforces the pipeline state machine: states advance one step
// at a time, FAILED is reachable from any non-terminal state, and nothing
// leaves a terminal state. A failed run is never resumed.
type Tracker struct {
	state   State
	history []State
	onEnter func(State)
}

// NewTracker returns a Tracker in Pending. onEnter, if not nil, is called
// after every transition.
func NewTracker(onEnter func(State)) *Tracker {
	return &Tracker{history: []State{Pending}, onEnter: onEnter}
}

// State returns the current state.
func (t *Tracker) State() State { return t.state }

// History returns every state entered, in order.
func (t *Tracker) History() []State {
	return append([]State(nil), t.history...)
}

// Advance moves to to.
func (t *Tracker) Advance(to State) error {
	if t.state.Terminal() {
		return &StateError{From: t.state, To: to}
	}
	if to != Failed && to != t.state+1 {
		return &StateError{From: t.state, To: to}
	}
	t.state = to
	t.history = append(t.history, to)
	if t.onEnter != nil {
		t.onEnter(to)
	}
	return nil
}

// Fail moves to Failed unless the run already ended.
func (t *Tracker) Fail() {
	if !t.state.Terminal() {
		t.Advance(Failed)
	}
}
