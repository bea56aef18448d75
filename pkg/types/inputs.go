package types

import (
	"errors"
	"fmt"
	"math"
)

// ErrUnknownField is returned when an edit names a field Inputs does not have.
var ErrUnknownField = errors.New("unknown input field")

// Field names one adjustable parameter of Inputs. The value matches the JSON key.
type Field string

const (
	FieldNumEngines Field = "num_engines"
	FieldSolarMW    Field = "solar_mw"
	FieldBatteryMWH Field = "battery_mwh"
	FieldLatitude   Field = "latitude"
)

// Fields lists every adjustable field in display order.
var Fields = []Field{FieldLatitude, FieldNumEngines, FieldSolarMW, FieldBatteryMWH}

// FieldRange describes the bounds and granularity of a field.
type FieldRange struct {
	Field Field   `json:"field"`
	Label string  `json:"label"`
	Unit  string  `json:"unit,omitempty"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Step  float64 `json:"step"`
}

var fieldRanges = map[Field]FieldRange{
	FieldNumEngines: {Field: FieldNumEngines, Label: "Industrial Gas Engine Units", Min: 0, Max: 10, Step: 1},
	FieldSolarMW:    {Field: FieldSolarMW, Label: "Solar Capacity", Unit: "MW", Min: 0, Max: 100, Step: 5},
	FieldBatteryMWH: {Field: FieldBatteryMWH, Label: "Battery Storage", Unit: "MWh", Min: 0, Max: 100, Step: 5},
	FieldLatitude:   {Field: FieldLatitude, Label: "Site Latitude", Unit: "°", Min: -60, Max: 60, Step: 5},
}

// Range returns the range for the given field.
func Range(f Field) (FieldRange, error) {
	r, ok := fieldRanges[f]
	if !ok {
		return FieldRange{}, fmt.Errorf("%w: %s", ErrUnknownField, f)
	}
	return r, nil
}

// Ranges returns the ranges of all fields in display order.
func Ranges() []FieldRange {
	out := make([]FieldRange, 0, len(Fields))
	for _, f := range Fields {
		out = append(out, fieldRanges[f])
	}
	return out
}

// Clamp snaps v onto the field's step grid and bounds it to [Min, Max].
// NaN becomes Min.
func (r FieldRange) Clamp(v float64) float64 {
	if math.IsNaN(v) {
		return r.Min
	}
	if r.Step > 0 {
		v = r.Min + math.Round((v-r.Min)/r.Step)*r.Step
	}
	return math.Max(r.Min, math.Min(r.Max, v))
}

// Inputs is an immutable snapshot of the plant configuration. Methods never
// modify the receiver; edits return a new value.
type Inputs struct {
	NumEngines int     `json:"num_engines"`
	SolarMW    float64 `json:"solar_mw"`
	BatteryMWH float64 `json:"battery_mwh"`
	Latitude   float64 `json:"latitude"`
}

// DefaultInputs returns the configuration a new session starts with.
func DefaultInputs() Inputs {
	return Inputs{
		NumEngines: 4,
		SolarMW:    20,
		BatteryMWH: 10,
		Latitude:   0,
	}
}

// With returns a copy of i with field f set to v. The value is not range
// checked; num_engines is rounded to the nearest integer.
func (i Inputs) With(f Field, v float64) (Inputs, error) {
	switch f {
	case FieldNumEngines:
		i.NumEngines = int(math.Round(v))
	case FieldSolarMW:
		i.SolarMW = v
	case FieldBatteryMWH:
		i.BatteryMWH = v
	case FieldLatitude:
		i.Latitude = v
	default:
		return i, fmt.Errorf("%w: %s", ErrUnknownField, f)
	}
	return i, nil
}

// Get returns the value of field f.
func (i Inputs) Get(f Field) (float64, error) {
	switch f {
	case FieldNumEngines:
		return float64(i.NumEngines), nil
	case FieldSolarMW:
		return i.SolarMW, nil
	case FieldBatteryMWH:
		return i.BatteryMWH, nil
	case FieldLatitude:
		return i.Latitude, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnknownField, f)
	}
}

// Clamped returns a copy of i with every field clamped to its range.
func (i Inputs) Clamped() Inputs {
	for _, f := range Fields {
		// Fields only contains known fields so neither call can fail
		v, _ := i.Get(f)
		i, _ = i.With(f, fieldRanges[f].Clamp(v))
	}
	return i
}
