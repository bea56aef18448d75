package controller

import (
	"context"

	"github.com/hyperion-energy/hyperion/pkg/types"
)

// proposalTracker owns the proposal state of a session. It is independent of
// the simulation generation counter.
type proposalTracker struct {
	state  types.ProposalState
	cancel context.CancelFunc
}

func newProposalTracker() *proposalTracker {
	return &proposalTracker{
		state: types.ProposalState{Status: types.ProposalIdle},
	}
}

// begin moves to loading. A second request while loading is refused and the
// in-flight one is left untouched.
func (p *proposalTracker) begin(cancel context.CancelFunc) error {
	if p.state.Status == types.ProposalLoading {
		return ErrProposalInFlight
	}
	p.state = types.ProposalState{Status: types.ProposalLoading}
	p.cancel = cancel
	return nil
}

// resolve records the outcome of the in-flight request.
func (p *proposalTracker) resolve(text string, err error) {
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	if err != nil {
		p.state = types.ProposalState{
			Status: types.ProposalFailed,
			Error:  err.Error(),
		}
		return
	}
	p.state = types.ProposalState{
		Status: types.ProposalReady,
		Text:   &text,
	}
}

func (p *proposalTracker) stop() {
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}
