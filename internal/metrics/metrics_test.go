package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"MarketTimeMachine/internal/model"
)

func TestObserver_CountsTicksAndEvents(t *testing.T) {
	r := NewRegistry()
	o := r.Observer("s1", "crash-2008")

	o.OnState(model.StateRunning)
	o.OnSample(model.Sample{Index: 0, Value: 10000})
	o.OnSample(model.Sample{Index: 1, Value: 9100})
	o.OnEvent(model.MarketEvent{Title: "Lehman"})

	assert.Equal(t, 2.0, testutil.ToFloat64(r.Ticks.WithLabelValues("crash-2008")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Events.WithLabelValues("crash-2008")))
	assert.Equal(t, 9100.0, testutil.ToFloat64(r.PortfolioValue.WithLabelValues("s1")))
}

func TestStartResult(t *testing.T) {
	r := NewRegistry()
	r.StartResult(StartOK)
	r.StartResult(StartRejected)
	r.StartResult(StartRejected)
	assert.Equal(t, 2.0, testutil.ToFloat64(r.Starts.WithLabelValues(StartRejected)))
	assert.Equal(t, 1, testutil.CollectAndCount(r.Starts.WithLabelValues(StartOK)))
}
