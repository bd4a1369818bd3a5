package session

import (
	"sync"

	"github.com/rs/zerolog/log"

	"MarketTimeMachine/internal/model"
	"MarketTimeMachine/internal/notifier"
)

// Message types pushed to stream subscribers.
const (
	MsgSample = "sample"
	MsgStatus = "status"
	MsgState  = "state"
	MsgEvent  = "event"
	MsgLog    = "log"
)

// Message is one item of a session's output stream.
type Message struct {
	Type   string             `json:"type"`
	Sample *model.Sample      `json:"sample,omitempty"`
	Status *notifier.Status   `json:"status,omitempty"`
	State  model.State        `json:"state,omitempty"`
	Event  *model.MarketEvent `json:"event,omitempty"`
	Log    *model.LogLine     `json:"log,omitempty"`
}

const subscriberBuffer = 64

// Hub fans replay output out to subscribers. A subscriber that falls behind
// loses messages instead of stalling the replay.
type Hub struct {
	mu       sync.Mutex
	notional float64
	subs     map[chan Message]struct{}
}

func NewHub(notional float64) *Hub {
	return &Hub{notional: notional, subs: make(map[chan Message]struct{})}
}

// Subscribe registers a new subscriber. Call cancel to release it.
func (h *Hub) Subscribe() (<-chan Message, func()) {
	ch := make(chan Message, subscriberBuffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Subscribers returns the number of live subscribers.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Hub) publish(m Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- m:
		default:
			log.Warn().Str("type", m.Type).Msg("stream subscriber lagging, message dropped")
		}
	}
}

func (h *Hub) OnSample(s model.Sample) {
	h.publish(Message{Type: MsgSample, Sample: &s})
	st := notifier.FormatStatus(s.Value, h.notional)
	h.publish(Message{Type: MsgStatus, Status: &st})
}

func (h *Hub) OnState(st model.State) {
	h.publish(Message{Type: MsgState, State: st})
}

func (h *Hub) OnEvent(e model.MarketEvent) {
	h.publish(Message{Type: MsgEvent, Event: &e})
}

func (h *Hub) OnLog(l model.LogLine) {
	h.publish(Message{Type: MsgLog, Log: &l})
}
