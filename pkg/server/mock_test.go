package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hyperion-energy/hyperion/pkg/controller"
	"github.com/hyperion-energy/hyperion/pkg/engine"
	"github.com/hyperion-energy/hyperion/pkg/types"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockProposer struct {
	mock.Mock
}

func (m *mockProposer) GenerateProposal(ctx context.Context, in types.Inputs) (string, error) {
	args := m.Called(ctx, in)
	return args.String(0), args.Error(1)
}

// newTestServer returns a server whose sessions simulate with the reference
// engine and settle after a millisecond.
func newTestServer(t *testing.T, prop controller.Proposer) *Server {
	t.Helper()
	e := engine.New(engine.DefaultCatalog())
	if prop == nil {
		prop = &mockProposer{}
	}
	c := controller.NewController(e, prop, controller.Options{
		Initial:       types.DefaultInputs(),
		DebounceDelay: time.Millisecond,
	})
	srv := newServer(c, e)
	t.Cleanup(srv.sessions.closeAll)
	return srv
}

func doRequest(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

// createSession creates a session and waits for its first simulation.
func createSession(t *testing.T, h http.Handler) string {
	t.Helper()
	w := doRequest(t, h, http.MethodPost, "/api/sessions", "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	resp := decodeBody[createSessionResponse](t, w)
	require.NotEmpty(t, resp.ID)

	require.Eventually(t, func() bool {
		w := doRequest(t, h, http.MethodGet, "/api/sessions/"+resp.ID, "")
		return decodeBody[types.ViewState](t, w).Generation > 0
	}, 2*time.Second, 5*time.Millisecond)
	return resp.ID
}
