package session

import (
	"errors"
	"sync"
	"time"

	"MarketTimeMachine/internal/allocation"
	"MarketTimeMachine/internal/metrics"
	"MarketTimeMachine/internal/model"
	"MarketTimeMachine/internal/replay"
)

// Session is one user's replay: an allocation, the stepper reading it and the
// outputs collected from the stepper.
type Session struct {
	ID        string    `json:"id"`
	Scenario  string    `json:"scenario"`
	CreatedAt time.Time `json:"created_at"`

	Alloc   *allocation.Model `json:"-"`
	Stepper *replay.Stepper   `json:"-"`
	Journal *Journal          `json:"-"`
	Hub     *Hub              `json:"-"`

	metrics *metrics.Registry
	ready   chan struct{}

	mu      sync.Mutex
	loadErr error
}

// Ready is closed once the dataset load attempt has finished.
func (s *Session) Ready() <-chan struct{} {
	return s.ready
}

// LoadErr returns the dataset load failure, if any.
func (s *Session) LoadErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadErr
}

// Start begins a replay and records the outcome.
func (s *Session) Start() error {
	err := s.Stepper.Start()
	if s.metrics != nil {
		switch {
		case err == nil:
			s.metrics.StartResult(metrics.StartOK)
		case errors.Is(err, replay.ErrNoDataset):
			s.metrics.StartResult(metrics.StartNoData)
		default:
			s.metrics.StartResult(metrics.StartRejected)
		}
	}
	return err
}

// Reset stops the replay and returns it to IDLE.
func (s *Session) Reset() {
	s.Stepper.Reset()
}

// View is the JSON shape of a session.
type View struct {
	ID            string             `json:"id"`
	Scenario      string             `json:"scenario"`
	CreatedAt     time.Time          `json:"created_at"`
	Loaded        bool               `json:"loaded"`
	LoadError     string             `json:"load_error,omitempty"`
	Weights       map[string]float64 `json:"weights"`
	GrossExposure float64            `json:"gross_exposure"`
	Snapshot      model.Snapshot     `json:"snapshot"`
}

// View returns a point-in-time copy of the session.
func (s *Session) View() View {
	v := View{
		ID:            s.ID,
		Scenario:      s.Scenario,
		CreatedAt:     s.CreatedAt,
		Loaded:        s.Stepper.Loaded(),
		Weights:       s.Alloc.Weights(),
		GrossExposure: s.Alloc.GrossExposure(),
		Snapshot:      s.Stepper.Snapshot(),
	}
	if err := s.LoadErr(); err != nil {
		v.LoadError = err.Error()
	}
	return v
}

func (s *Session) finishLoad(err error) {
	s.mu.Lock()
	s.loadErr = err
	s.mu.Unlock()
	close(s.ready)
}
