package controller

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hyperion-energy/hyperion/pkg/log"
	"github.com/hyperion-energy/hyperion/pkg/metrics"
	"github.com/hyperion-energy/hyperion/pkg/types"
)

// Session is the configurator state of one user. All state transitions run on
// a single loop goroutine; service calls run on their own goroutines and hand
// their results back to the loop. View, Subscribe and Close may be called from
// any goroutine.
type Session struct {
	simulator Simulator
	proposer  Proposer
	metrics   *metrics.Controller

	// ctx carries the session logger and is cancelled on Close, which also
	// cancels every in-flight service call.
	ctx    context.Context
	cancel context.CancelFunc

	events    chan func()
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once

	// owned by the loop goroutine
	store     *Store
	debouncer *Debouncer
	sim       simulationTracker
	proposal  *proposalTracker
	version   uint64

	view atomic.Pointer[types.ViewState]

	subMu  sync.Mutex
	subs   map[chan types.ViewState]struct{}
	closed bool
}

func newSession(ctx context.Context, sim Simulator, prop Proposer, opts Options) *Session {
	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s := &Session{
		simulator: sim,
		proposer:  prop,
		metrics:   opts.Metrics,
		ctx:       ctx,
		cancel:    cancel,
		events:    make(chan func()),
		done:      make(chan struct{}),
		stopped:   make(chan struct{}),
		store:     NewStore(opts.Initial),
		proposal:  newProposalTracker(),
		subs:      make(map[chan types.ViewState]struct{}),
	}
	s.debouncer = NewDebouncer(opts.DebounceDelay, func(seq uint64) {
		s.post(func() { s.onDebounceExpired(seq) })
	})
	s.store.Subscribe(func(in types.Inputs) {
		s.debouncer.Arm(in)
		s.publish()
	})

	s.metrics.RecordSessionOpened(ctx)

	// the first simulation goes through the debouncer like any edit
	s.store.Replace(opts.Initial)

	go s.run()
	return s
}

func (s *Session) run() {
	defer close(s.stopped)
	for {
		// teardown wins over pending events
		select {
		case <-s.done:
			s.teardown()
			return
		default:
		}
		select {
		case fn := <-s.events:
			fn()
		case <-s.done:
			s.teardown()
			return
		}
	}
}

func (s *Session) teardown() {
	s.debouncer.Stop()
	s.sim.stop()
	s.proposal.stop()
	s.cancel()

	s.subMu.Lock()
	s.closed = true
	for ch := range s.subs {
		close(ch)
		delete(s.subs, ch)
	}
	s.subMu.Unlock()

	s.metrics.RecordSessionClosed(s.ctx)
	log.Ctx(s.ctx).DebugContext(s.ctx, "session closed")
}

// post hands fn to the loop. It returns false if the session is closed.
func (s *Session) post(fn func()) bool {
	select {
	case s.events <- fn:
		return true
	case <-s.done:
		return false
	}
}

// do runs fn on the loop and waits for it to finish.
func (s *Session) do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	select {
	case s.events <- func() {
		fn()
		close(finished)
	}:
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	// the loop runs fn as soon as it receives it
	<-finished
	return nil
}

// Edit sets one field of the inputs and schedules a recompute. It returns the
// new inputs.
func (s *Session) Edit(ctx context.Context, f types.Field, v float64) (types.Inputs, error) {
	var (
		in  types.Inputs
		err error
	)
	if derr := s.do(ctx, func() { in, err = s.store.Edit(f, v) }); derr != nil {
		return types.Inputs{}, derr
	}
	return in, err
}

// Replace swaps the whole inputs snapshot and schedules a recompute.
func (s *Session) Replace(ctx context.Context, in types.Inputs) (types.Inputs, error) {
	var out types.Inputs
	if err := s.do(ctx, func() { out = s.store.Replace(in) }); err != nil {
		return types.Inputs{}, err
	}
	return out, nil
}

// Update replaces the inputs with fn applied to the current ones and
// schedules a recompute. fn runs on the session loop, so no concurrent edit
// can land between reading and writing the inputs.
func (s *Session) Update(ctx context.Context, fn func(types.Inputs) types.Inputs) (types.Inputs, error) {
	var out types.Inputs
	if err := s.do(ctx, func() { out = s.store.Replace(fn(s.store.Inputs())) }); err != nil {
		return types.Inputs{}, err
	}
	return out, nil
}

// GenerateProposal requests a proposal for the inputs as they are right now.
// It returns once the request is issued; the outcome shows up in the view.
// ErrProposalInFlight is returned while a previous request is loading.
func (s *Session) GenerateProposal(ctx context.Context) error {
	var err error
	if derr := s.do(ctx, func() { err = s.startProposal() }); derr != nil {
		return derr
	}
	return err
}

// View returns the latest published view.
func (s *Session) View() types.ViewState {
	return *s.view.Load()
}

// Subscribe returns a channel receiving every published view, starting with
// the current one. A slow reader only ever misses intermediate views, never
// the latest. The channel is closed by the returned cancel func or Close.
func (s *Session) Subscribe() (<-chan types.ViewState, func()) {
	ch := make(chan types.ViewState, 1)

	s.subMu.Lock()
	if s.closed {
		s.subMu.Unlock()
		close(ch)
		return ch, func() {}
	}
	s.subs[ch] = struct{}{}
	ch <- s.View()
	s.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subMu.Lock()
			defer s.subMu.Unlock()
			if _, ok := s.subs[ch]; ok {
				delete(s.subs, ch)
				close(ch)
			}
		})
	}
}

// Done is closed once Close has been called.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Close cancels the debounce timer without emitting, cancels in-flight
// requests and stops the loop. It is safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
	<-s.stopped
}

func (s *Session) onDebounceExpired(seq uint64) {
	in, ok := s.debouncer.Expire(seq)
	if !ok {
		return
	}
	s.triggerRecompute(in)
}

func (s *Session) triggerRecompute(in types.Inputs) {
	reqCtx, cancel := context.WithCancel(s.ctx)
	gen := s.sim.begin(cancel)
	reqCtx = log.WithAttrs(reqCtx, slog.Uint64("generation", uint64(gen)))

	log.Ctx(reqCtx).DebugContext(
		reqCtx,
		"requesting simulation",
		slog.Int("numEngines", in.NumEngines),
		slog.Float64("solarMW", in.SolarMW),
		slog.Float64("batteryMWH", in.BatteryMWH),
		slog.Float64("latitude", in.Latitude),
	)
	s.metrics.RecordSimulationRequest(reqCtx)

	go func() {
		start := time.Now()
		res, err := s.simulator.Simulate(reqCtx, in)
		c := simulationCompletion{
			generation: gen,
			result:     res,
			err:        err,
			took:       time.Since(start),
		}
		s.post(func() { s.onSimulationDone(reqCtx, c) })
	}()

	s.publish()
}

func (s *Session) onSimulationDone(ctx context.Context, c simulationCompletion) {
	tr := s.sim.apply(c)
	switch tr {
	case transitionAccept:
		log.Ctx(ctx).DebugContext(ctx, "simulation accepted", slog.Duration("took", c.took))
		s.metrics.RecordSimulationCompletion(ctx, metrics.OutcomeAccepted, c.took)
	case transitionFail:
		log.Ctx(ctx).WarnContext(ctx, "simulation failed, keeping last result", slog.Any("error", c.err))
		s.metrics.RecordSimulationCompletion(ctx, metrics.OutcomeFailed, c.took)
	default:
		log.Ctx(ctx).DebugContext(
			ctx,
			"discarding stale simulation response",
			slog.Uint64("latest", uint64(s.sim.latest)),
			slog.Bool("failed", c.err != nil),
		)
		s.metrics.RecordSimulationCompletion(ctx, metrics.OutcomeStale, c.took)
		return
	}
	s.publish()
}

func (s *Session) startProposal() error {
	reqCtx, cancel := context.WithCancel(s.ctx)
	if err := s.proposal.begin(cancel); err != nil {
		cancel()
		s.metrics.RecordProposalRejected(s.ctx)
		return err
	}

	// the snapshot is taken now, later edits do not affect this request
	in := s.store.Inputs()
	log.Ctx(reqCtx).DebugContext(reqCtx, "requesting proposal")

	go func() {
		text, err := s.proposer.GenerateProposal(reqCtx, in)
		s.post(func() { s.onProposalDone(reqCtx, text, err) })
	}()

	s.publish()
	return nil
}

func (s *Session) onProposalDone(ctx context.Context, text string, err error) {
	s.proposal.resolve(text, err)
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "proposal failed", slog.Any("error", err))
	}
	s.metrics.RecordProposal(ctx, string(s.proposal.state.Status))
	s.publish()
}

// publish projects the current state and hands it to readers.
func (s *Session) publish() {
	s.version++
	v := Project(s.store.Inputs(), s.sim.view(s.debouncer.Armed()), s.proposal.state)
	v.Version = s.version
	s.view.Store(&v)

	s.subMu.Lock()
	defer s.subMu.Unlock()
	for ch := range s.subs {
		select {
		case ch <- v:
		default:
			// replace the unread view with the newer one
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- v:
			default:
			}
		}
	}
}
