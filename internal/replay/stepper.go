package replay

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"MarketTimeMachine/internal/allocation"
	"MarketTimeMachine/internal/calculator"
	"MarketTimeMachine/internal/model"
)

// ErrNoDataset is returned by Start before a dataset has been loaded.
var ErrNoDataset = errors.New("no dataset loaded")

// Config holds the replay constants.
type Config struct {
	Notional          float64
	TickInterval      time.Duration
	EventPause        time.Duration
	LeverageCeiling   float64
	ExposureTolerance float64
}

// DefaultConfig returns the conservative (non-leveraged) settings.
func DefaultConfig() Config {
	return Config{
		Notional:          10000,
		TickInterval:      500 * time.Millisecond,
		EventPause:        4000 * time.Millisecond,
		LeverageCeiling:   1.0,
		ExposureTolerance: 0.05,
	}
}

// Option customizes a Stepper.
type Option func(*Stepper)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option { return func(s *Stepper) { s.clock = c } }

// WithObserver sets the output subscriber.
func WithObserver(o Observer) Option { return func(s *Stepper) { s.observer = o } }

// WithLogger sets the logger used for simulation log lines.
func WithLogger(l zerolog.Logger) Option { return func(s *Stepper) { s.logger = l } }

// Stepper replays a dataset against an allocation, one timestamp per tick.
//
// At most one callback (tick or event resume) is armed at any moment. Every
// arm bumps gen; a callback whose generation is stale does nothing, which
// covers a timer that fired while Start or Reset held the lock.
type Stepper struct {
	mu sync.Mutex

	cfg      Config
	alloc    *allocation.Model
	clock    Clock
	observer Observer
	logger   zerolog.Logger

	dataset *model.Dataset
	state   model.State
	index   int
	value   float64
	samples []model.Sample

	pending Timer
	gen     uint64

	outbox   []emission
	draining bool
}

// New creates an idle stepper reading weights from alloc.
func New(cfg Config, alloc *allocation.Model, opts ...Option) *Stepper {
	s := &Stepper{
		cfg:      cfg,
		alloc:    alloc,
		clock:    RealClock(),
		observer: Multi(nil),
		logger:   log.Logger,
		state:    model.StateIdle,
		value:    cfg.Notional,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// emission is a queued observer call, delivered after the state lock drops.
type emission func(Observer)

// Load installs the dataset. A running replay is reset first.
func (s *Stepper) Load(ds *model.Dataset) {
	s.mu.Lock()
	out := s.resetLocked()
	s.dataset = ds
	out = append(out, s.logf("Loaded scenario %q (%d ticks, %d events)", ds.Scenario, ds.Len(), len(ds.Events)))
	s.deliver(out)
}

// Loaded reports whether a dataset is installed.
func (s *Stepper) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dataset != nil
}

// Start validates the allocation and begins a fresh replay from index 0.
// It returns ErrNoDataset or an *allocation.ExposureError without touching
// any state.
func (s *Stepper) Start() error {
	s.mu.Lock()
	if s.dataset == nil {
		out := []emission{s.logf("Start ignored: %v", ErrNoDataset)}
		s.deliver(out)
		return ErrNoDataset
	}
	if err := s.alloc.CheckExposure(s.cfg.LeverageCeiling, s.cfg.ExposureTolerance); err != nil {
		out := []emission{s.logf("ERROR: Exposure > %.0f%%", s.cfg.LeverageCeiling*100)}
		s.deliver(out)
		return err
	}

	s.cancelLocked()
	s.index = 0
	s.value = s.cfg.Notional
	s.samples = nil
	// A restart always announces RUNNING so subscribers drop the old curve.
	s.state = model.StateRunning
	out := []emission{
		func(o Observer) { o.OnState(model.StateRunning) },
		s.logf("Started simulation..."),
	}
	s.armLocked(s.cfg.TickInterval, s.tick)
	s.deliver(out)
	return nil
}

// Reset cancels any pending callback and returns to IDLE at index 0.
func (s *Stepper) Reset() {
	s.mu.Lock()
	out := s.resetLocked()
	s.deliver(out)
}

// State returns the current lifecycle state.
func (s *Stepper) State() model.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Snapshot returns a copy of the simulation state.
func (s *Stepper) Snapshot() model.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	samples := make([]model.Sample, len(s.samples))
	copy(samples, s.samples)
	return model.Snapshot{
		State:   s.state,
		Index:   s.index,
		Value:   s.value,
		Samples: samples,
	}
}

func (s *Stepper) tick(gen uint64) {
	s.mu.Lock()
	if gen != s.gen || s.state != model.StateRunning {
		s.mu.Unlock()
		return
	}
	s.pending = nil

	if s.index >= s.dataset.Len() {
		s.deliver(s.completeLocked(nil))
		return
	}

	var out []emission
	timestamp := s.dataset.MarketData.Timestamps[s.index]
	value, errs := PortfolioValue(s.index, s.alloc.Weights(), s.dataset.MarketData.Prices, s.cfg.Notional)
	for _, err := range errs {
		out = append(out, s.logf("ERROR: %v", err))
	}
	s.value = value
	sample := model.Sample{Index: s.index, Timestamp: timestamp, Value: value}
	s.samples = append(s.samples, sample)
	out = append(out, func(o Observer) { o.OnSample(sample) })

	event, hit := s.dataset.EventAt(timestamp)
	s.index++

	if hit {
		out = s.setStateLocked(out, model.StatePaused)
		out = append(out, func(o Observer) { o.OnEvent(event) })
		out = append(out, s.logf("EVENT: [%s] - %s", event.Title, event.Description))
		s.armLocked(s.cfg.EventPause, s.resume)
	} else {
		s.armLocked(s.cfg.TickInterval, s.tick)
	}
	s.deliver(out)
}

func (s *Stepper) resume(gen uint64) {
	s.mu.Lock()
	if gen != s.gen || s.state != model.StatePaused {
		s.mu.Unlock()
		return
	}
	s.pending = nil

	if s.index >= s.dataset.Len() {
		s.deliver(s.completeLocked(nil))
		return
	}
	out := s.setStateLocked(nil, model.StateRunning)
	s.armLocked(s.cfg.TickInterval, s.tick)
	s.deliver(out)
}

func (s *Stepper) completeLocked(out []emission) []emission {
	s.cancelLocked()
	out = s.setStateLocked(out, model.StateComplete)
	out = append(out, s.logf("SIMULATION COMPLETE."))
	if sum, err := calculator.Summarize(s.samples); err == nil {
		out = append(out, s.logf("Final value %.2f (%+.2f%%), high %.2f, low %.2f, max drawdown %.2f%%",
			sum.Final, sum.Return*100, sum.High, sum.Low, sum.MaxDrawdown*100))
	}
	return out
}

func (s *Stepper) resetLocked() []emission {
	s.cancelLocked()
	s.index = 0
	s.value = s.cfg.Notional
	s.samples = nil
	return s.setStateLocked(nil, model.StateIdle)
}

func (s *Stepper) setStateLocked(out []emission, st model.State) []emission {
	if s.state == st {
		return out
	}
	s.state = st
	return append(out, func(o Observer) { o.OnState(st) })
}

// armLocked replaces the single pending slot.
func (s *Stepper) armLocked(d time.Duration, fn func(uint64)) {
	s.cancelLocked()
	gen := s.gen
	s.pending = s.clock.AfterFunc(d, func() { fn(gen) })
}

func (s *Stepper) cancelLocked() {
	if s.pending != nil {
		s.pending.Stop()
		s.pending = nil
	}
	s.gen++
}

func (s *Stepper) logf(format string, args ...any) emission {
	line := model.LogLine{Time: s.clock.Now(), Message: fmt.Sprintf(format, args...)}
	s.logger.Info().Str("component", "replay").Msg(line.Message)
	return func(o Observer) { o.OnLog(line) }
}

// deliver queues out and releases s.mu. Whichever goroutine finds the outbox
// idle drains it, so observers run in emission order and never under s.mu.
func (s *Stepper) deliver(out []emission) {
	s.outbox = append(s.outbox, out...)
	if s.draining {
		s.mu.Unlock()
		return
	}
	s.draining = true
	for {
		batch := s.outbox
		s.outbox = nil
		if len(batch) == 0 {
			s.draining = false
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()
		for _, e := range batch {
			e(s.observer)
		}
		s.mu.Lock()
	}
}
