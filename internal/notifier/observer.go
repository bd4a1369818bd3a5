package notifier

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"MarketTimeMachine/internal/calculator"
	"MarketTimeMachine/internal/model"
)

// Sender delivers a formatted message.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// ReplayObserver forwards market events and completion summaries of one
// replay to a chat. Sends run in the background so the stepper never waits.
type ReplayObserver struct {
	ctx      context.Context
	sender   Sender
	scenario string

	mu      sync.Mutex
	samples []model.Sample
	wg      sync.WaitGroup
}

func NewReplayObserver(ctx context.Context, sender Sender, scenario string) *ReplayObserver {
	return &ReplayObserver{ctx: ctx, sender: sender, scenario: scenario}
}

func (o *ReplayObserver) OnSample(s model.Sample) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if s.Index == 0 {
		o.samples = o.samples[:0]
	}
	o.samples = append(o.samples, s)
}

func (o *ReplayObserver) OnState(st model.State) {
	if st != model.StateComplete {
		return
	}
	o.mu.Lock()
	sum, err := calculator.Summarize(o.samples)
	o.mu.Unlock()
	if err != nil {
		return
	}
	o.send(FormatSummary(o.scenario, sum))
}

func (o *ReplayObserver) OnEvent(e model.MarketEvent) {
	o.send(FormatEvent(o.scenario, e))
}

func (o *ReplayObserver) OnLog(model.LogLine) {}

// Wait blocks until every queued send has finished.
func (o *ReplayObserver) Wait() {
	o.wg.Wait()
}

func (o *ReplayObserver) send(text string) {
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		if err := o.sender.SendWithRetry(o.ctx, text, 3); err != nil {
			log.Error().Err(err).Str("scenario", o.scenario).Msg("send notification")
		}
	}()
}
