package types

import (
	"fmt"
	"math"
)

// HoursPerDay is the number of frames in a simulation result.
const HoursPerDay = 24

// SimulationFrame is one hour of the dispatch profile. Power values are in MW.
type SimulationFrame struct {
	Hour      int     `json:"hour"`
	SolarMW   float64 `json:"solar_mw"`
	EngineMW  float64 `json:"engine_mw"`
	BatteryMW float64 `json:"battery_mw"`
	LoadMW    float64 `json:"load_mw"`
	TotalMW   float64 `json:"total_mw"`
}

// SimulationKPIs summarizes a simulated configuration.
type SimulationKPIs struct {
	TotalCapexUSD        float64 `json:"total_capex_usd"`
	AnnualCO2SavingsTons float64 `json:"annual_co2_savings_tons"`
	LCOECentsKWH         float64 `json:"lcoe_cents_kwh"`
}

// SimulationResult is the response of the energy simulation service. The
// frames and KPIs are produced and replaced together.
type SimulationResult struct {
	KPIs   SimulationKPIs    `json:"kpis"`
	Charts []SimulationFrame `json:"charts"`
}

// Validate checks the result holds one frame per hour in order and that no
// power or KPI value is negative or NaN.
func (r SimulationResult) Validate() error {
	if len(r.Charts) != HoursPerDay {
		return fmt.Errorf("expected %d frames, got %d", HoursPerDay, len(r.Charts))
	}
	for i, f := range r.Charts {
		if f.Hour != i {
			return fmt.Errorf("frame %d has hour %d", i, f.Hour)
		}
		for name, v := range map[string]float64{
			"solar_mw":   f.SolarMW,
			"engine_mw":  f.EngineMW,
			"battery_mw": f.BatteryMW,
			"load_mw":    f.LoadMW,
			"total_mw":   f.TotalMW,
		} {
			if err := nonNegative(v); err != nil {
				return fmt.Errorf("frame %d %s: %w", i, name, err)
			}
		}
	}
	for name, v := range map[string]float64{
		"total_capex_usd":         r.KPIs.TotalCapexUSD,
		"annual_co2_savings_tons": r.KPIs.AnnualCO2SavingsTons,
		"lcoe_cents_kwh":          r.KPIs.LCOECentsKWH,
	} {
		if err := nonNegative(v); err != nil {
			return fmt.Errorf("kpi %s: %w", name, err)
		}
	}
	return nil
}

func nonNegative(v float64) error {
	if math.IsNaN(v) || v < 0 {
		return fmt.Errorf("invalid value %v", v)
	}
	return nil
}

// Clone returns a deep copy of r.
func (r SimulationResult) Clone() SimulationResult {
	if r.Charts != nil {
		r.Charts = append([]SimulationFrame(nil), r.Charts...)
	}
	return r
}

// Generation tags a simulation request. Generations are minted in increasing
// order; a larger generation is always the fresher request.
type Generation uint64
