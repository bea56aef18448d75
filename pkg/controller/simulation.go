package controller

import (
	"context"
	"time"

	"github.com/hyperion-energy/hyperion/pkg/types"
)

// transition is the effect a simulation completion has on the session.
type transition int

const (
	// transitionDiscard drops a response from a superseded generation.
	transitionDiscard transition = iota
	// transitionAccept commits the response as the displayed result.
	transitionAccept
	// transitionFail keeps the last accepted result and flags the failure.
	transitionFail
)

func (t transition) String() string {
	switch t {
	case transitionAccept:
		return "accept"
	case transitionFail:
		return "fail"
	default:
		return "discard"
	}
}

// simulationCompletion is the outcome of one simulation request.
type simulationCompletion struct {
	generation types.Generation
	result     types.SimulationResult
	err        error
	took       time.Duration
}

// reconcile decides what a completion does given the latest minted
// generation and the generation of the currently accepted result. Only the
// latest generation may change state and an accepted generation must be
// strictly greater than the one it replaces.
func reconcile(latest, accepted types.Generation, c simulationCompletion) transition {
	if c.generation != latest || c.generation <= accepted {
		return transitionDiscard
	}
	if c.err != nil {
		return transitionFail
	}
	return transitionAccept
}

// simulationTracker owns the generation counter and the last accepted result.
type simulationTracker struct {
	latest   types.Generation
	awaiting bool
	cancel   context.CancelFunc

	accepted types.Generation
	result   *types.SimulationResult
	failure  error
}

// begin mints the next generation. The transport of the request it
// supersedes, if still running, is cancelled; its response would be
// discarded regardless.
func (t *simulationTracker) begin(cancel context.CancelFunc) types.Generation {
	if t.cancel != nil {
		t.cancel()
	}
	t.latest++
	t.awaiting = true
	t.cancel = cancel
	t.failure = nil
	return t.latest
}

// apply reconciles c and commits the resulting transition.
func (t *simulationTracker) apply(c simulationCompletion) transition {
	tr := reconcile(t.latest, t.accepted, c)
	switch tr {
	case transitionAccept:
		res := c.result.Clone()
		t.result = &res
		t.accepted = c.generation
		t.failure = nil
	case transitionFail:
		t.failure = c.err
	default:
		return tr
	}
	t.awaiting = false
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	return tr
}

// view returns the state the aggregator projects.
func (t *simulationTracker) view(debouncing bool) SimulationView {
	return SimulationView{
		Generation: t.accepted,
		Result:     t.result,
		Pending:    debouncing || t.awaiting,
		Err:        t.failure,
	}
}

// stop cancels an in-flight request.
func (t *simulationTracker) stop() {
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	t.awaiting = false
}
