// file: internal/dispatcher/state.go
package dispatcher

import (
	"context"

	"github.com/dkoosis/lsprpc/internal/fsm"
)

// The three dispatcher lifecycle states, built atop internal/fsm, a thin
// wrapper around looplab/fsm.
const (
	StateRunning   fsm.State = "running"
	StateDraining  fsm.State = "draining"
	StateFinalized fsm.State = "finalized"
)

const (
	eventTeardown fsm.Event = "teardown"
	eventDrained  fsm.Event = "drained"
)

func newLifecycle() fsm.FSM {
	m := fsm.NewFSM(StateRunning, nil)
	m.AddTransition(fsm.Transition{From: []fsm.State{StateRunning}, To: StateDraining, Event: eventTeardown})
	m.AddTransition(fsm.Transition{From: []fsm.State{StateDraining}, To: StateFinalized, Event: eventDrained})
	if err := m.Build(); err != nil {
		// Only reachable if the transition table above is malformed; there
		// is no recovery path for a framework bug like that.
		panic(err)
	}
	return m
}

func (d *Dispatcher) beginTeardown(ctx context.Context) bool {
	return d.lifecycle.Transition(ctx, eventTeardown, nil) == nil
}

func (d *Dispatcher) finishTeardown(ctx context.Context) {
	_ = d.lifecycle.Transition(ctx, eventDrained, nil)
}

func (d *Dispatcher) isTerminal() bool {
	state := d.lifecycle.CurrentState()
	return state == StateDraining || state == StateFinalized
}
