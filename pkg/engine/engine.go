package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/hyperion-energy/hyperion/pkg/log"
	"github.com/hyperion-energy/hyperion/pkg/types"
	"github.com/levenlabs/go-lflag"
	"github.com/shopspring/decimal"
)

const (
	// BaseLoadMW is the flat site demand.
	BaseLoadMW = 50.0
	// tons of CO2 per MWh
	co2GridIntensity = 0.5
	co2GasIntensity  = 0.2

	solarPeakHour  = 12.0
	solarSpreadHrs = 2.5

	// the battery discharges over 4 hours in the evening peak
	batteryDischargeHours = 4.0
	batteryStartHour      = 18
	batteryEndHour        = 21

	defaultEngineCapexPerKW  = 800.0
	defaultSolarCapexPerKW   = 700.0
	defaultBatteryCapexPerKW = 350.0

	amortizationYears  = 20.0
	fuelCostDollarsMWH = 50.0
	daysPerYear        = 365.0
)

// Engine computes the reference 24-hour dispatch of a hybrid plant.
type Engine struct {
	catalog Catalog
}

// New creates an Engine pricing plants with the given catalog.
func New(catalog Catalog) *Engine {
	return &Engine{catalog: catalog}
}

// Configured creates an Engine whose catalog is loaded from the file named by
// flags, falling back to the embedded catalog.
func Configured() *Engine {
	e := &Engine{}
	path := lflag.String("catalog-file", "", "YAML equipment catalog to price plants with (default is the embedded catalog)")

	lflag.Do(func() {
		c, err := LoadCatalog(*path)
		if err != nil {
			panic(fmt.Sprintf("failed to load catalog: %v", err))
		}
		e.catalog = c
	})

	return e
}

// Catalog returns the equipment the engine uses.
func (e *Engine) Catalog() Catalog {
	return e.catalog
}

// Simulate dispatches solar first, then the evening battery block, and fills
// the rest of the load with engines up to their combined capacity.
func (e *Engine) Simulate(ctx context.Context, in types.Inputs) (types.SimulationResult, error) {
	engineProduct, ok := e.catalog.First(CategoryEngine)
	if !ok {
		return types.SimulationResult{}, fmt.Errorf("no engine data available")
	}
	nominalMW := engineProduct.Spec("nominal_power_mw", 0)
	engineCapacityMW := float64(in.NumEngines) * nominalMW

	var dischargeMW float64
	if in.BatteryMWH > 0 {
		dischargeMW = in.BatteryMWH / batteryDischargeHours
	}

	charts := make([]types.SimulationFrame, 0, types.HoursPerDay)
	var solarMWH, engineMWH, batteryMWH float64
	for h := 0; h < types.HoursPerDay; h++ {
		dh := float64(h) - solarPeakHour
		solar := math.Max(0, in.SolarMW*math.Exp(-(dh*dh)/(2*solarSpreadHrs*solarSpreadHrs)))

		var battery float64
		if h >= batteryStartHour && h <= batteryEndHour {
			battery = dischargeMW
		}

		net := BaseLoadMW - (solar + battery)
		engine := math.Min(math.Max(net, 0), engineCapacityMW)

		charts = append(charts, types.SimulationFrame{
			Hour:      h,
			SolarMW:   solar,
			EngineMW:  engine,
			BatteryMW: battery,
			LoadMW:    BaseLoadMW,
			TotalMW:   solar + engine + battery,
		})
		solarMWH += solar
		engineMWH += engine
		batteryMWH += battery
	}
	genMWH := solarMWH + engineMWH + batteryMWH

	solarCapex := defaultSolarCapexPerKW
	if p, ok := e.catalog.First(CategorySolar); ok {
		solarCapex = p.Spec("capex_per_kw", solarCapex)
	}
	batteryCapex := defaultBatteryCapexPerKW
	if p, ok := e.catalog.First(CategoryBattery); ok {
		batteryCapex = p.Spec("capex_per_kwh", batteryCapex)
	}

	capex := float64(in.NumEngines)*nominalMW*1000*engineProduct.Spec("capex_per_kw", defaultEngineCapexPerKW) +
		in.SolarMW*1000*solarCapex +
		in.BatteryMWH*1000*batteryCapex

	baselineCO2 := BaseLoadMW * types.HoursPerDay * co2GridIntensity
	co2Savings := (baselineCO2 - engineMWH*co2GasIntensity) * daysPerYear

	var lcoe float64
	if annualGen := genMWH * daysPerYear; annualGen > 0 {
		lcoe = (capex/amortizationYears + engineMWH*daysPerYear*fuelCostDollarsMWH) / annualGen * 100
	}

	log.Ctx(ctx).DebugContext(
		ctx,
		"simulated plant",
		slog.Float64("solarMWH", solarMWH),
		slog.Float64("engineMWH", engineMWH),
		slog.Float64("batteryMWH", batteryMWH),
	)

	return types.SimulationResult{
		KPIs: types.SimulationKPIs{
			TotalCapexUSD:        round(capex, 2),
			AnnualCO2SavingsTons: round(co2Savings, 1),
			LCOECentsKWH:         round(lcoe, 2),
		},
		Charts: charts,
	}, nil
}

// round rounds half away from zero on the decimal value so binary float
// artifacts do not leak into the KPIs.
func round(v float64, places int32) float64 {
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}
