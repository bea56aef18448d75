package controller

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/hyperion-energy/hyperion/pkg/types"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type simReply struct {
	result types.SimulationResult
	err    error
}

// simCall is one outstanding request to fakeSimulator.
type simCall struct {
	inputs types.Inputs
	ctx    context.Context
	reply  chan simReply
}

func (c *simCall) succeed(res types.SimulationResult) {
	c.reply <- simReply{result: res}
}

func (c *simCall) fail(err error) {
	c.reply <- simReply{err: err}
}

// fakeSimulator hands every request to the test, which answers it explicitly.
type fakeSimulator struct {
	calls chan *simCall
	// ignoreCancel makes requests wait for an answer even after their context
	// was cancelled, like a transport that cannot abort.
	ignoreCancel bool
}

func newFakeSimulator() *fakeSimulator {
	return &fakeSimulator{calls: make(chan *simCall, 32)}
}

func (f *fakeSimulator) Simulate(ctx context.Context, in types.Inputs) (types.SimulationResult, error) {
	c := &simCall{inputs: in, ctx: ctx, reply: make(chan simReply, 1)}
	f.calls <- c
	if f.ignoreCancel {
		r := <-c.reply
		return r.result, r.err
	}
	select {
	case r := <-c.reply:
		return r.result, r.err
	case <-ctx.Done():
		return types.SimulationResult{}, ctx.Err()
	}
}

// next returns the oldest unread request, failing if there is none.
func (f *fakeSimulator) next(t *testing.T) *simCall {
	t.Helper()
	select {
	case c := <-f.calls:
		return c
	default:
		require.FailNow(t, "expected a simulation request")
		return nil
	}
}

// pending returns how many requests were made but not yet read by next.
func (f *fakeSimulator) pending() int {
	return len(f.calls)
}

type mockProposer struct {
	mock.Mock
}

func (m *mockProposer) GenerateProposal(ctx context.Context, in types.Inputs) (string, error) {
	args := m.Called(ctx, in)
	return args.String(0), args.Error(1)
}

// makeResult builds a distinguishable result; marker ends up in the KPIs.
func makeResult(marker float64) types.SimulationResult {
	charts := make([]types.SimulationFrame, types.HoursPerDay)
	for h := range charts {
		charts[h] = types.SimulationFrame{
			Hour:     h,
			SolarMW:  marker,
			EngineMW: 50 - marker,
			LoadMW:   50,
			TotalMW:  50,
		}
	}
	return types.SimulationResult{
		KPIs: types.SimulationKPIs{
			TotalCapexUSD:        marker * 1e6,
			AnnualCO2SavingsTons: marker * 100,
			LCOECentsKWH:         marker,
		},
		Charts: charts,
	}
}

// settle advances the fake clock past the debounce window and waits for the
// session to go idle.
func settle(t *testing.T) {
	t.Helper()
	time.Sleep(DefaultDebounceDelay + time.Millisecond)
	waitIdle()
}

var errUnavailable = fmt.Errorf("simulation service unavailable")
