package proposal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hyperion-energy/hyperion/pkg/common"
	"github.com/hyperion-energy/hyperion/pkg/types"
	"github.com/levenlabs/go-lflag"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrEmptyProposal is returned when the service answers without any text.
var ErrEmptyProposal = errors.New("empty proposal text")

// Response is the body returned by the proposal service.
type Response struct {
	ProposalText string `json:"proposal_text"`
}

// HTTP calls a remote proposal service.
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

func configuredHTTP() *HTTP {
	h := &HTTP{}
	apiURL := lflag.String("proposal-api-url", "http://localhost:8000/api/generate-proposal", "URL of the proposal service endpoint")
	// text generation is slow so this is much longer than the simulation timeout
	timeout := lflag.Duration("proposal-timeout", 2*time.Minute, "Timeout for a single proposal request")

	lflag.Do(func() {
		h.apiURL = *apiURL
		h.client = common.HTTPClient(*timeout)
	})

	return h
}

// Validate ensures the configuration is valid.
func (h *HTTP) Validate() error {
	if h.apiURL == "" {
		return fmt.Errorf("proposal-api-url is required")
	}
	if _, err := url.Parse(h.apiURL); err != nil {
		return fmt.Errorf("failed to parse proposal url (%s): %w", h.apiURL, err)
	}
	return nil
}

// GenerateProposal implements Provider.
func (h *HTTP) GenerateProposal(ctx context.Context, in types.Inputs) (string, error) {
	ctx, span := tracer.Start(ctx, "proposal.http", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.Int("inputs.num_engines", in.NumEngines),
		attribute.Float64("inputs.latitude", in.Latitude),
	)

	var resp Response
	err := common.PostJSON(ctx, h.client, h.apiURL, in, &resp)
	if err == nil && strings.TrimSpace(resp.ProposalText) == "" {
		err = ErrEmptyProposal
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("proposal request failed: %w", err)
	}
	span.SetAttributes(attribute.Int("proposal.length", len(resp.ProposalText)))
	return resp.ProposalText, nil
}
