package simulation

import (
	"context"
	"fmt"
	"time"

	"github.com/hyperion-energy/hyperion/pkg/engine"
	"github.com/hyperion-energy/hyperion/pkg/types"
	"github.com/levenlabs/go-lflag"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("hyperion/simulation")

// Provider is the energy simulation service.
type Provider interface {
	// Simulate returns the 24-hour dispatch profile and KPIs for inputs.
	Simulate(ctx context.Context, inputs types.Inputs) (types.SimulationResult, error)
}

// Configured sets up the simulation Provider based on flags. The local
// provider runs e in-process.
func Configured(e *engine.Engine) Provider {
	provider := lflag.String("simulation-provider", "local", "Simulation service to use (available: local, http)")

	h := configuredHTTP()

	var p struct{ Provider }
	lflag.Do(func() {
		switch *provider {
		case "local":
			p.Provider = NewLocal(e)
		case "http":
			if err := h.Validate(); err != nil {
				panic(fmt.Sprintf("simulation http validation failed: %v", err))
			}
			p.Provider = h
		default:
			panic(fmt.Sprintf("unknown simulation provider: %s", *provider))
		}
	})

	return &p
}

// Local runs the reference engine in-process.
type Local struct {
	engine *engine.Engine
}

// NewLocal creates a Local provider.
func NewLocal(e *engine.Engine) *Local {
	return &Local{engine: e}
}

// Simulate implements Provider.
func (l *Local) Simulate(ctx context.Context, in types.Inputs) (types.SimulationResult, error) {
	ctx, span := tracer.Start(ctx, "simulation.local")
	defer span.End()

	start := time.Now()
	res, err := l.engine.Simulate(ctx, in)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return types.SimulationResult{}, err
	}
	span.SetAttributes(attribute.Int64("simulation.duration_us", time.Since(start).Microseconds()))
	return res, nil
}

func inputAttributes(in types.Inputs) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int("inputs.num_engines", in.NumEngines),
		attribute.Float64("inputs.solar_mw", in.SolarMW),
		attribute.Float64("inputs.battery_mwh", in.BatteryMWH),
		attribute.Float64("inputs.latitude", in.Latitude),
	}
}
