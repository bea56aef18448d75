package controller

import (
	"github.com/hyperion-energy/hyperion/pkg/types"
)

// SimulationView is the simulation sub-state handed to Project.
type SimulationView struct {
	// Generation of Result, 0 when nothing was accepted yet.
	Generation types.Generation
	Result     *types.SimulationResult
	Pending    bool
	Err        error
}

// Project combines the session's sub-states into the ViewState consumed by
// the presentation layer. It performs no I/O, never modifies its arguments and
// returns copies, so repeated calls with the same arguments are equal.
func Project(inputs types.Inputs, sim SimulationView, proposal types.ProposalState) types.ViewState {
	v := types.ViewState{
		Inputs:     inputs,
		Charts:     []types.SimulationFrame{},
		Generation: sim.Generation,
		Pending:    sim.Pending,
		Proposal:   types.ProposalState{Status: proposal.Status, Error: proposal.Error},
	}
	if v.Proposal.Status == "" {
		v.Proposal.Status = types.ProposalIdle
	}
	if proposal.Text != nil {
		text := *proposal.Text
		v.Proposal.Text = &text
	}
	if sim.Result != nil {
		v.Charts = append(v.Charts, sim.Result.Charts...)
		kpis := sim.Result.KPIs
		v.KPIs = &kpis
	}
	if sim.Err != nil {
		v.SimulationError = sim.Err.Error()
	}
	return v
}
