package controller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hyperion-energy/hyperion/pkg/metrics"
	"github.com/hyperion-energy/hyperion/pkg/types"
	"github.com/levenlabs/go-lflag"
)

// DefaultDebounceDelay is the quiet period after the last edit before a
// simulation is requested.
const DefaultDebounceDelay = 300 * time.Millisecond

var (
	// ErrClosed is returned by session operations after Close.
	ErrClosed = errors.New("session closed")

	// ErrProposalInFlight is returned by GenerateProposal while a previous
	// proposal request has not resolved yet.
	ErrProposalInFlight = errors.New("proposal already in flight")
)

// Simulator is the energy simulation service.
type Simulator interface {
	// Simulate returns the 24-hour dispatch profile and KPIs for inputs.
	Simulate(ctx context.Context, inputs types.Inputs) (types.SimulationResult, error)
}

// Proposer is the proposal generation service.
type Proposer interface {
	// GenerateProposal returns the narrative proposal for inputs.
	GenerateProposal(ctx context.Context, inputs types.Inputs) (string, error)
}

// Options tunes new sessions.
type Options struct {
	// Initial is the configuration a session starts with.
	Initial types.Inputs
	// DebounceDelay defaults to DefaultDebounceDelay when zero.
	DebounceDelay time.Duration
	// Metrics is optional.
	Metrics *metrics.Controller
}

// Controller creates configurator sessions that share the same services.
type Controller struct {
	simulator Simulator
	proposer  Proposer
	opts      Options
}

// NewController creates a new Controller.
func NewController(sim Simulator, prop Proposer, opts Options) *Controller {
	if opts.DebounceDelay <= 0 {
		opts.DebounceDelay = DefaultDebounceDelay
	}
	return &Controller{
		simulator: sim,
		proposer:  prop,
		opts:      opts,
	}
}

// Configured creates a Controller whose options come from flags.
func Configured(sim Simulator, prop Proposer, m *metrics.Controller) *Controller {
	c := NewController(sim, prop, Options{
		Initial: types.DefaultInputs(),
		Metrics: m,
	})

	delay := lflag.Duration("debounce-delay", DefaultDebounceDelay, "Quiet period after the last edit before a simulation is requested")
	initial := types.DefaultInputs()
	lflag.JSON(&initial, "initial-inputs", initial, "JSON object with the inputs new sessions start with")

	lflag.Do(func() {
		if *delay <= 0 {
			panic(fmt.Sprintf("debounce-delay must be positive: %s", *delay))
		}
		c.opts.DebounceDelay = *delay
		c.opts.Initial = initial.Clamped()
	})

	return c
}

// NewSession starts a new session. The context's values (such as the logger)
// are inherited but its cancellation is not; call Close to end the session.
func (c *Controller) NewSession(ctx context.Context) *Session {
	return newSession(ctx, c.simulator, c.proposer, c.opts)
}

// Initial returns the configuration new sessions start with.
func (c *Controller) Initial() types.Inputs {
	return c.opts.Initial
}
