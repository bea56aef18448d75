package proposal

import (
	"context"
	"fmt"

	"github.com/hyperion-energy/hyperion/pkg/engine"
	"github.com/hyperion-energy/hyperion/pkg/types"
	"github.com/levenlabs/go-lflag"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("hyperion/proposal")

// Provider is the proposal generation service.
type Provider interface {
	// GenerateProposal returns the narrative proposal for inputs.
	GenerateProposal(ctx context.Context, inputs types.Inputs) (string, error)
}

// Configured sets up the proposal Provider based on flags. The local provider
// drafts the text from a template using e for the KPIs.
func Configured(e *engine.Engine) Provider {
	provider := lflag.String("proposal-provider", "local", "Proposal service to use (available: local, http)")

	h := configuredHTTP()

	var p struct{ Provider }
	lflag.Do(func() {
		switch *provider {
		case "local":
			p.Provider = NewWriter(e)
		case "http":
			if err := h.Validate(); err != nil {
				panic(fmt.Sprintf("proposal http validation failed: %v", err))
			}
			p.Provider = h
		default:
			panic(fmt.Sprintf("unknown proposal provider: %s", *provider))
		}
	})

	return &p
}
