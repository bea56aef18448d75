package simulation

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/hyperion-energy/hyperion/pkg/common"
	"github.com/hyperion-energy/hyperion/pkg/log"
	"github.com/hyperion-energy/hyperion/pkg/types"
	"github.com/levenlabs/go-lflag"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// HTTP calls a remote simulation service that accepts Inputs as a JSON POST
// body and answers with a SimulationResult.
type HTTP struct {
	apiURL string
	client *http.Client
}

// NewHTTP creates an HTTP provider posting to apiURL.
func NewHTTP(apiURL string, client *http.Client) *HTTP {
	return &HTTP{
		apiURL: apiURL,
		client: client,
	}
}

// configuredHTTP sets up flags for the HTTP provider and returns the instance.
func configuredHTTP() *HTTP {
	h := &HTTP{}
	apiURL := lflag.String("simulation-api-url", "http://localhost:8000/api/calculate", "URL of the simulation service calculate endpoint")
	timeout := lflag.Duration("simulation-timeout", 30*time.Second, "Timeout for a single simulation request")

	lflag.Do(func() {
		h.apiURL = *apiURL
		h.client = common.HTTPClient(*timeout)
	})

	return h
}

// Validate ensures the configuration is valid.
func (h *HTTP) Validate() error {
	if h.apiURL == "" {
		return fmt.Errorf("simulation-api-url is required")
	}
	if _, err := url.Parse(h.apiURL); err != nil {
		return fmt.Errorf("failed to parse simulation url (%s): %w", h.apiURL, err)
	}
	return nil
}

// Simulate implements Provider. A response without exactly one frame per hour
// is treated as a failure.
func (h *HTTP) Simulate(ctx context.Context, in types.Inputs) (types.SimulationResult, error) {
	ctx, span := tracer.Start(ctx, "simulation.http", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(inputAttributes(in)...)

	var res types.SimulationResult
	err := common.PostJSON(ctx, h.client, h.apiURL, in, &res)
	if err == nil {
		err = res.Validate()
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Ctx(ctx).DebugContext(ctx, "simulation request failed", slog.String("url", h.apiURL), slog.Any("error", err))
		return types.SimulationResult{}, fmt.Errorf("simulation request failed: %w", err)
	}
	span.SetAttributes(
		attribute.Float64("kpis.total_capex_usd", res.KPIs.TotalCapexUSD),
		attribute.Float64("kpis.lcoe_cents_kwh", res.KPIs.LCOECentsKWH),
	)
	return res, nil
}
