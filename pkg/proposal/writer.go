package proposal

import (
	"context"
	"fmt"
	"math"
	"strings"
	"text/template"

	"github.com/hyperion-energy/hyperion/pkg/engine"
	"github.com/hyperion-energy/hyperion/pkg/types"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/codes"
)

// highLatitude is where seasonal solar variability becomes worth mentioning.
const highLatitude = 45.0

// equatorialBand is the latitude band with consistent irradiance.
const equatorialBand = 15.0

var summaryTemplate = template.Must(template.New("summary").Parse(
	`Executive Summary: This hybrid power plant pairs {{.Engines}} with {{.SolarMW}} MW of solar PV ` +
		`and a {{.BatteryMWH}} MWh battery energy storage system at a site latitude of {{.Latitude}}°. ` +
		`{{.SiteNote}} ` +
		`Flexible generation from fast-start industrial gas engines balances the solar curve, ` +
		`ramping up as irradiance fades and covering the evening peak alongside the battery, ` +
		`so the plant stays reliable despite solar intermittency. ` +
		`The configuration requires a total CAPEX of ${{.CapexMillions}} million, ` +
		`delivers electricity at a levelized cost of {{.LCOE}} cents/kWh ` +
		`and avoids {{.CO2}} tons of CO2 per year compared to a coal baseline.`,
))

type summaryData struct {
	Engines       string
	SolarMW       string
	BatteryMWH    string
	Latitude      string
	SiteNote      string
	CapexMillions string
	LCOE          string
	CO2           string
}

// Writer drafts proposals from a fixed template, pricing the plant with the
// reference engine.
type Writer struct {
	engine *engine.Engine
}

// NewWriter creates a Writer.
func NewWriter(e *engine.Engine) *Writer {
	return &Writer{engine: e}
}

// GenerateProposal implements Provider.
func (w *Writer) GenerateProposal(ctx context.Context, in types.Inputs) (string, error) {
	ctx, span := tracer.Start(ctx, "proposal.local")
	defer span.End()

	res, err := w.engine.Simulate(ctx, in)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("failed to simulate plant for proposal: %w", err)
	}

	var sb strings.Builder
	if err := summaryTemplate.Execute(&sb, summaryData{
		Engines:       enginesPhrase(in.NumEngines),
		SolarMW:       formatNumber(in.SolarMW, 0),
		BatteryMWH:    formatNumber(in.BatteryMWH, 0),
		Latitude:      formatNumber(in.Latitude, 0),
		SiteNote:      siteNote(in.Latitude),
		CapexMillions: formatNumber(res.KPIs.TotalCapexUSD/1e6, 1),
		LCOE:          formatNumber(res.KPIs.LCOECentsKWH, 2),
		CO2:           formatNumber(res.KPIs.AnnualCO2SavingsTons, 1),
	}); err != nil {
		return "", fmt.Errorf("failed to render proposal: %w", err)
	}
	return sb.String(), nil
}

func enginesPhrase(n int) string {
	switch n {
	case 0:
		return "no gas engines"
	case 1:
		return "1 industrial gas engine"
	default:
		return fmt.Sprintf("%d industrial gas engines", n)
	}
}

func siteNote(latitude float64) string {
	abs := math.Abs(latitude)
	switch {
	case abs > highLatitude:
		return "At this high latitude solar output varies strongly between seasons, which makes dispatchable capacity essential through the darker months."
	case abs <= equatorialBand:
		return "Close to the equator the site enjoys consistently high irradiance all year round."
	default:
		return "The site sees moderate seasonal swings in solar irradiance."
	}
}

// formatNumber renders v with the given decimal places and thousands
// separators.
func formatNumber(v float64, places int32) string {
	s := decimal.NewFromFloat(v).StringFixed(places)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := b.String()
	if frac != "" {
		out += "." + frac
	}
	if neg {
		out = "-" + out
	}
	return out
}
