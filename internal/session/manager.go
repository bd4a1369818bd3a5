package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"MarketTimeMachine/internal/allocation"
	"MarketTimeMachine/internal/metrics"
	"MarketTimeMachine/internal/model"
	"MarketTimeMachine/internal/replay"
)

// ErrNotFound is returned for an unknown session id.
var ErrNotFound = errors.New("session not found")

// Loader supplies datasets by scenario id.
type Loader interface {
	Collect(ctx context.Context, scenario string) (*model.Dataset, error)
}

// ObserverFactory builds an extra observer for a new session.
type ObserverFactory func(id, scenario string) replay.Observer

// Option customizes a Manager.
type Option func(*Manager)

// WithClock sets the clock handed to every stepper.
func WithClock(c replay.Clock) Option { return func(m *Manager) { m.clock = c } }

// WithJournalSize bounds each session's log journal.
func WithJournalSize(n int) Option { return func(m *Manager) { m.journalSize = n } }

// WithMetrics records session and start metrics on reg.
func WithMetrics(reg *metrics.Registry) Option { return func(m *Manager) { m.metrics = reg } }

// WithObserverFactory attaches an observer to every new session.
func WithObserverFactory(f ObserverFactory) Option {
	return func(m *Manager) { m.factories = append(m.factories, f) }
}

// Manager owns the live sessions.
type Manager struct {
	ctx         context.Context
	cfg         replay.Config
	loader      Loader
	clock       replay.Clock
	journalSize int
	metrics     *metrics.Registry
	factories   []ObserverFactory

	mu       sync.RWMutex
	sessions map[string]*Session
	loads    sync.WaitGroup
}

// NewManager creates a Manager. Dataset loads run under ctx.
func NewManager(ctx context.Context, cfg replay.Config, loader Loader, opts ...Option) *Manager {
	m := &Manager{
		ctx:         ctx,
		cfg:         cfg,
		loader:      loader,
		clock:       replay.RealClock(),
		journalSize: 200,
		sessions:    make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create starts a new session for scenario. The dataset loads in the
// background; the session stays IDLE until it arrives.
func (m *Manager) Create(scenario string) (*Session, error) {
	return m.create(uuid.NewString(), scenario)
}

// Ensure returns session id, creating it for scenario if absent.
func (m *Manager) Ensure(id, scenario string) (*Session, error) {
	if s, err := m.Get(id); err == nil {
		return s, nil
	}
	return m.create(id, scenario)
}

func (m *Manager) create(id, scenario string) (*Session, error) {
	if scenario == "" {
		return nil, fmt.Errorf("create session: empty scenario id")
	}

	s := &Session{
		ID:        id,
		Scenario:  scenario,
		CreatedAt: m.clock.Now(),
		Alloc:     allocation.New(),
		Journal:   NewJournal(m.journalSize),
		Hub:       NewHub(m.cfg.Notional),
		metrics:   m.metrics,
		ready:     make(chan struct{}),
	}
	observers := replay.Multi{s.Journal, s.Hub}
	if m.metrics != nil {
		observers = append(observers, m.metrics.Observer(id, scenario))
	}
	for _, f := range m.factories {
		if o := f(id, scenario); o != nil {
			observers = append(observers, o)
		}
	}
	s.Stepper = replay.New(m.cfg, s.Alloc,
		replay.WithClock(m.clock),
		replay.WithObserver(observers),
		replay.WithLogger(log.With().Str("session", id).Logger()),
	)

	m.mu.Lock()
	if existing, ok := m.sessions[id]; ok {
		m.mu.Unlock()
		return existing, nil
	}
	m.sessions[id] = s
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.ActiveSessions.Inc()
	}
	log.Info().Str("session", id).Str("scenario", scenario).Msg("session created")

	m.loads.Add(1)
	go func() {
		defer m.loads.Done()
		m.load(s)
	}()
	return s, nil
}

func (m *Manager) load(s *Session) {
	ds, err := m.loader.Collect(m.ctx, s.Scenario)
	if err != nil {
		log.Error().Err(err).Str("session", s.ID).Str("scenario", s.Scenario).Msg("dataset load failed")
		s.Journal.Add(model.LogLine{Time: m.clock.Now(), Message: fmt.Sprintf("ERROR: could not load scenario %q: %v", s.Scenario, err)})
		s.finishLoad(err)
		return
	}
	s.Stepper.Load(ds)
	s.finishLoad(nil)
}

// Get returns the session with id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("get %q: %w", id, ErrNotFound)
	}
	return s, nil
}

// List returns all sessions, oldest first.
func (m *Manager) List() []*Session {
	m.mu.RLock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Delete resets and forgets a session.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("delete %q: %w", id, ErrNotFound)
	}

	s.Reset()
	if m.metrics != nil {
		m.metrics.ActiveSessions.Dec()
		m.metrics.Forget(id)
	}
	log.Info().Str("session", id).Msg("session deleted")
	return nil
}

// Close resets every session and waits for pending dataset loads, up to
// timeout.
func (m *Manager) Close(timeout time.Duration) {
	m.mu.RLock()
	for _, s := range m.sessions {
		s.Reset()
	}
	m.mu.RUnlock()

	done := make(chan struct{})
	go func() {
		m.loads.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		log.Warn().Msg("timed out waiting for dataset loads")
	}
}
