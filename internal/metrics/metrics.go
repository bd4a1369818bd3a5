package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"MarketTimeMachine/internal/model"
	"MarketTimeMachine/internal/replay"
)

// Start outcomes recorded by StartResult.
const (
	StartOK       = "ok"
	StartRejected = "rejected"
	StartNoData   = "no_data"
)

// Registry holds the replay metrics on its own prometheus registry.
type Registry struct {
	Registry *prometheus.Registry

	Ticks          *prometheus.CounterVec
	Events         *prometheus.CounterVec
	Starts         *prometheus.CounterVec
	ActiveSessions prometheus.Gauge
	PortfolioValue *prometheus.GaugeVec
}

// NewRegistry creates and registers all metrics.
func NewRegistry() *Registry {
	r := &Registry{
		Registry: prometheus.NewRegistry(),
		Ticks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "timemachine_ticks_total",
				Help: "Equity samples emitted, by scenario",
			},
			[]string{"scenario"},
		),
		Events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "timemachine_events_total",
				Help: "Market events that paused a replay, by scenario",
			},
			[]string{"scenario"},
		),
		Starts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "timemachine_starts_total",
				Help: "Replay start attempts by outcome",
			},
			[]string{"result"},
		),
		ActiveSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "timemachine_active_sessions",
				Help: "Sessions currently held by the manager",
			},
		),
		PortfolioValue: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "timemachine_portfolio_value",
				Help: "Latest portfolio value per session",
			},
			[]string{"session"},
		),
	}
	r.Registry.MustRegister(r.Ticks, r.Events, r.Starts, r.ActiveSessions, r.PortfolioValue)
	return r
}

// StartResult counts one start attempt.
func (r *Registry) StartResult(result string) {
	r.Starts.WithLabelValues(result).Inc()
}

// Forget drops the per-session series.
func (r *Registry) Forget(session string) {
	r.PortfolioValue.DeleteLabelValues(session)
}

// Observer returns a replay observer feeding this registry for one session.
func (r *Registry) Observer(session, scenario string) replay.Observer {
	return &sessionObserver{reg: r, session: session, scenario: scenario}
}

type sessionObserver struct {
	reg      *Registry
	session  string
	scenario string
}

func (o *sessionObserver) OnSample(s model.Sample) {
	o.reg.Ticks.WithLabelValues(o.scenario).Inc()
	o.reg.PortfolioValue.WithLabelValues(o.session).Set(s.Value)
}

func (o *sessionObserver) OnState(model.State) {}

func (o *sessionObserver) OnEvent(model.MarketEvent) {
	o.reg.Events.WithLabelValues(o.scenario).Inc()
}

func (o *sessionObserver) OnLog(model.LogLine) {}
