package types

// ProposalStatus is the lifecycle stage of a proposal request.
type ProposalStatus string

const (
	ProposalIdle    ProposalStatus = "idle"
	ProposalLoading ProposalStatus = "loading"
	ProposalReady   ProposalStatus = "ready"
	ProposalFailed  ProposalStatus = "failed"
)

// ProposalState is the state of the on-demand proposal workflow. Text is only
// set when Status is ProposalReady.
type ProposalState struct {
	Status ProposalStatus `json:"status"`
	Text   *string        `json:"text"`
	Error  string         `json:"error,omitempty"`
}

// ViewState is the read-only projection handed to the presentation layer.
type ViewState struct {
	Version uint64 `json:"version"`

	Inputs Inputs            `json:"inputs"`
	Charts []SimulationFrame `json:"charts"`
	KPIs   *SimulationKPIs   `json:"kpis"`

	// Generation is the generation Charts and KPIs came from, 0 if none.
	Generation Generation `json:"generation"`
	// Pending is true while a recompute is waiting on the debounce timer or
	// the simulation service.
	Pending bool `json:"pending"`
	// SimulationError is set when the latest simulation request failed. The
	// charts and KPIs still show the last accepted result.
	SimulationError string `json:"simulation_error,omitempty"`

	Proposal ProposalState `json:"proposal"`
}
