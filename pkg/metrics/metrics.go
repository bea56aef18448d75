package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Outcome classifies how a completed simulation request was handled.
type Outcome string

const (
	OutcomeAccepted Outcome = "accepted"
	OutcomeFailed   Outcome = "failed"
	OutcomeStale    Outcome = "stale"
)

// Controller records the activity of configurator sessions.
type Controller struct {
	simRequests     metric.Int64Counter
	simCompletions  metric.Int64Counter
	simDuration     metric.Float64Histogram
	proposals       metric.Int64Counter
	proposalsDenied metric.Int64Counter
	sessionsActive  metric.Int64UpDownCounter
}

// NewController creates the instruments on the global meter provider.
func NewController() (*Controller, error) {
	return NewControllerWithMeter(otel.Meter("hyperion/controller"))
}

// NewControllerWithMeter creates the instruments on the given meter.
func NewControllerWithMeter(meter metric.Meter) (*Controller, error) {
	simRequests, err := meter.Int64Counter(
		"hyperion.simulation.requests",
		metric.WithDescription("Simulation requests issued"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	simCompletions, err := meter.Int64Counter(
		"hyperion.simulation.completions",
		metric.WithDescription("Simulation responses by outcome (accepted, failed, stale)"),
		metric.WithUnit("{response}"),
	)
	if err != nil {
		return nil, err
	}

	simDuration, err := meter.Float64Histogram(
		"hyperion.simulation.duration",
		metric.WithDescription("Round trip time of simulation requests in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	proposals, err := meter.Int64Counter(
		"hyperion.proposal.completions",
		metric.WithDescription("Proposal requests by final status"),
		metric.WithUnit("{proposal}"),
	)
	if err != nil {
		return nil, err
	}

	proposalsDenied, err := meter.Int64Counter(
		"hyperion.proposal.rejected",
		metric.WithDescription("Proposal requests rejected because one was already in flight"),
		metric.WithUnit("{proposal}"),
	)
	if err != nil {
		return nil, err
	}

	sessionsActive, err := meter.Int64UpDownCounter(
		"hyperion.sessions.active",
		metric.WithDescription("Number of open configurator sessions"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		return nil, err
	}

	return &Controller{
		simRequests:     simRequests,
		simCompletions:  simCompletions,
		simDuration:     simDuration,
		proposals:       proposals,
		proposalsDenied: proposalsDenied,
		sessionsActive:  sessionsActive,
	}, nil
}

// RecordSimulationRequest records a newly issued simulation request.
func (c *Controller) RecordSimulationRequest(ctx context.Context) {
	if c == nil {
		return
	}
	c.simRequests.Add(ctx, 1)
}

// RecordSimulationCompletion records how a simulation response was handled.
func (c *Controller) RecordSimulationCompletion(ctx context.Context, outcome Outcome, took time.Duration) {
	if c == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("outcome", string(outcome)))
	c.simCompletions.Add(ctx, 1, attrs)
	c.simDuration.Record(ctx, took.Seconds(), attrs)
}

// RecordProposal records a finished proposal request with its final status.
func (c *Controller) RecordProposal(ctx context.Context, status string) {
	if c == nil {
		return
	}
	c.proposals.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

// RecordProposalRejected records a proposal request refused while another
// was loading.
func (c *Controller) RecordProposalRejected(ctx context.Context) {
	if c == nil {
		return
	}
	c.proposalsDenied.Add(ctx, 1)
}

// RecordSessionOpened increments the active session gauge.
func (c *Controller) RecordSessionOpened(ctx context.Context) {
	if c == nil {
		return
	}
	c.sessionsActive.Add(ctx, 1)
}

// RecordSessionClosed decrements the active session gauge.
func (c *Controller) RecordSessionClosed(ctx context.Context) {
	if c == nil {
		return
	}
	c.sessionsActive.Add(ctx, -1)
}
