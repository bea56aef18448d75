package server

import (
	"context"
	"net/http"
	"testing"

	"github.com/hyperion-energy/hyperion/pkg/engine"
	"github.com/hyperion-energy/hyperion/pkg/proposal"
	"github.com/hyperion-energy/hyperion/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReference(t *testing.T) {
	srv := newTestServer(t, nil)
	h := srv.setupHandler()

	t.Run("Calculate", func(t *testing.T) {
		w := doRequest(t, h, http.MethodPost, "/api/calculate", `{"num_engines":4,"solar_mw":50,"battery_mwh":10,"latitude":0}`)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		res := decodeBody[types.SimulationResult](t, w)
		assert.NoError(t, res.Validate())
		assert.Equal(t, 76900000.0, res.KPIs.TotalCapexUSD)
	})

	t.Run("Calculate Out Of Range", func(t *testing.T) {
		w := doRequest(t, h, http.MethodPost, "/api/calculate", `{"num_engines":-1,"solar_mw":-20,"battery_mwh":500,"latitude":0}`)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		res := decodeBody[types.SimulationResult](t, w)
		assert.NoError(t, res.Validate())
		for _, f := range res.Charts {
			assert.GreaterOrEqual(t, f.EngineMW, 0.0)
			assert.GreaterOrEqual(t, f.SolarMW, 0.0)
		}

		want, err := srv.engine.Simulate(context.Background(), types.Inputs{NumEngines: 0, SolarMW: 0, BatteryMWH: 100})
		require.NoError(t, err)
		assert.Equal(t, want.KPIs, res.KPIs)
	})

	t.Run("Calculate Bad Body", func(t *testing.T) {
		w := doRequest(t, h, http.MethodPost, "/api/calculate", `[]`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Generate Proposal", func(t *testing.T) {
		w := doRequest(t, h, http.MethodPost, "/api/generate-proposal", `{"num_engines":2,"solar_mw":30,"battery_mwh":20,"latitude":50}`)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		resp := decodeBody[proposal.Response](t, w)
		assert.Contains(t, resp.ProposalText, "2 industrial gas engines")
		assert.Contains(t, resp.ProposalText, "varies strongly between seasons")
	})

	t.Run("Products", func(t *testing.T) {
		w := doRequest(t, h, http.MethodGet, "/api/products", "")
		require.Equal(t, http.StatusOK, w.Code)
		resp := decodeBody[productsResponse](t, w)
		require.Len(t, resp.Products, 3)
		assert.Equal(t, engine.CategoryEngine, resp.Products[0].Category)
	})

	t.Run("Fields", func(t *testing.T) {
		w := doRequest(t, h, http.MethodGet, "/api/fields", "")
		require.Equal(t, http.StatusOK, w.Code)
		resp := decodeBody[fieldsResponse](t, w)
		assert.Equal(t, types.Ranges(), resp.Fields)
		assert.Equal(t, types.DefaultInputs(), resp.Defaults)
	})
}
