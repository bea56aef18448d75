package types

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInputsWith(t *testing.T) {
	in := DefaultInputs()

	t.Run("sets one field", func(t *testing.T) {
		out, err := in.With(FieldSolarMW, 35)
		require.NoError(t, err)
		assert.Equal(t, Inputs{NumEngines: 4, SolarMW: 35, BatteryMWH: 10, Latitude: 0}, out)
		// the receiver is untouched
		assert.Equal(t, DefaultInputs(), in)
	})

	t.Run("rounds engines", func(t *testing.T) {
		out, err := in.With(FieldNumEngines, 6.6)
		require.NoError(t, err)
		assert.Equal(t, 7, out.NumEngines)
	})

	t.Run("does not range check", func(t *testing.T) {
		out, err := in.With(FieldLatitude, 95)
		require.NoError(t, err)
		assert.Equal(t, 95.0, out.Latitude)
	})

	t.Run("unknown field", func(t *testing.T) {
		out, err := in.With(Field("wind_mw"), 1)
		assert.ErrorIs(t, err, ErrUnknownField)
		assert.Equal(t, in, out)
	})
}

func TestInputsGet(t *testing.T) {
	in := Inputs{NumEngines: 2, SolarMW: 15, BatteryMWH: 40, Latitude: -30}
	for f, want := range map[Field]float64{
		FieldNumEngines: 2,
		FieldSolarMW:    15,
		FieldBatteryMWH: 40,
		FieldLatitude:   -30,
	} {
		got, err := in.Get(f)
		require.NoError(t, err)
		assert.Equal(t, want, got, f)
	}

	_, err := in.Get(Field("wind_mw"))
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestFieldRangeClamp(t *testing.T) {
	solar, err := Range(FieldSolarMW)
	require.NoError(t, err)
	lat, err := Range(FieldLatitude)
	require.NoError(t, err)

	tests := []struct {
		name string
		r    FieldRange
		in   float64
		want float64
	}{
		{"on grid", solar, 20, 20},
		{"snaps down", solar, 22, 20},
		{"snaps up", solar, 23, 25},
		{"below min", solar, -10, 0},
		{"above max", solar, 250, 100},
		{"NaN", solar, math.NaN(), 0},
		{"negative range", lat, -47, -45},
		{"negative below min", lat, -90, -60},
		{"infinity", lat, math.Inf(1), 60},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.r.Clamp(tt.in))
		})
	}
}

func TestRanges(t *testing.T) {
	rs := Ranges()
	require.Len(t, rs, len(Fields))
	for i, f := range Fields {
		assert.Equal(t, f, rs[i].Field)
		assert.Less(t, rs[i].Min, rs[i].Max)
		assert.Positive(t, rs[i].Step)
	}

	_, err := Range(Field("wind_mw"))
	assert.ErrorIs(t, err, ErrUnknownField)

	// defaults are valid slider positions
	assert.Equal(t, DefaultInputs(), DefaultInputs().Clamped())
}

func TestInputsClamped(t *testing.T) {
	in := Inputs{NumEngines: 14, SolarMW: 12, BatteryMWH: -5, Latitude: 61}
	assert.Equal(t, Inputs{NumEngines: 10, SolarMW: 10, BatteryMWH: 0, Latitude: 60}, in.Clamped())
}

func TestSimulationResultValidate(t *testing.T) {
	frames := make([]SimulationFrame, HoursPerDay)
	for h := range frames {
		frames[h].Hour = h
	}
	assert.NoError(t, SimulationResult{Charts: frames}.Validate())
	assert.ErrorContains(t, SimulationResult{Charts: frames[:23]}.Validate(), "expected 24 frames")

	shuffled := append([]SimulationFrame(nil), frames...)
	shuffled[3], shuffled[4] = shuffled[4], shuffled[3]
	assert.ErrorContains(t, SimulationResult{Charts: shuffled}.Validate(), "frame 3 has hour 4")

	negative := append([]SimulationFrame(nil), frames...)
	negative[7].EngineMW = -12
	assert.ErrorContains(t, SimulationResult{Charts: negative}.Validate(), "frame 7 engine_mw")

	nan := append([]SimulationFrame(nil), frames...)
	nan[0].TotalMW = math.NaN()
	assert.ErrorContains(t, SimulationResult{Charts: nan}.Validate(), "frame 0 total_mw")

	assert.ErrorContains(t, SimulationResult{
		KPIs:   SimulationKPIs{LCOECentsKWH: -0.5},
		Charts: frames,
	}.Validate(), "kpi lcoe_cents_kwh")
}

func TestSimulationResultClone(t *testing.T) {
	r := SimulationResult{
		KPIs:   SimulationKPIs{TotalCapexUSD: 1},
		Charts: []SimulationFrame{{Hour: 0, SolarMW: 1}},
	}
	c := r.Clone()
	c.Charts[0].SolarMW = 99
	c.KPIs.TotalCapexUSD = 2
	assert.Equal(t, 1.0, r.Charts[0].SolarMW)
	assert.Equal(t, 1.0, r.KPIs.TotalCapexUSD)

	assert.Nil(t, SimulationResult{}.Clone().Charts)
}
