// Package replaytest provides a deterministic clock for driving a replay
// stepper in tests.
package replaytest

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// callbackTimeout bounds how long Advance waits for one fired callback.
const callbackTimeout = 5 * time.Second

// Clock wraps a clockwork fake clock. clockwork runs AfterFunc callbacks on
// their own goroutine; Advance moves the fake clock one deadline at a time
// and waits for each callback to return, so timers armed by a callback fire
// within the same Advance.
type Clock struct {
	fake fakeClock

	mu      sync.Mutex
	seq     int
	pending map[*timer]struct{}
}

type fakeClock interface {
	clockwork.Clock
	Advance(d time.Duration)
}

type timer struct {
	clockwork.Timer
	clock *Clock
	at    time.Time
	seq   int
	done  chan struct{}
}

// NewClock creates a clock frozen at start.
func NewClock(start time.Time) *Clock {
	return &Clock{
		fake:    clockwork.NewFakeClockAt(start),
		pending: make(map[*timer]struct{}),
	}
}

func (c *Clock) Now() time.Time { return c.fake.Now() }

func (c *Clock) AfterFunc(d time.Duration, f func()) clockwork.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	t := &timer{clock: c, at: c.fake.Now().Add(d), seq: c.seq, done: make(chan struct{})}
	t.Timer = c.fake.AfterFunc(d, func() {
		defer close(t.done)
		c.mu.Lock()
		delete(c.pending, t)
		c.mu.Unlock()
		f()
	})
	c.pending[t] = struct{}{}
	return t
}

func (t *timer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	delete(t.clock.pending, t)
	return t.Timer.Stop()
}

// Reset is not supported; the stepper arms a fresh timer instead.
func (t *timer) Reset(time.Duration) bool {
	panic("replaytest: Reset is not supported")
}

// Advance moves the clock forward by d, firing every timer that falls due in
// deadline order, including timers armed by callbacks during the advance.
func (c *Clock) Advance(d time.Duration) {
	target := c.fake.Now().Add(d)
	for {
		next := c.nextDue(target)
		if next == nil {
			if gap := target.Sub(c.fake.Now()); gap > 0 {
				c.fake.Advance(gap)
			}
			return
		}
		if gap := next.at.Sub(c.fake.Now()); gap > 0 {
			c.fake.Advance(gap)
		} else {
			c.fake.Advance(0)
		}
		select {
		case <-next.done:
		case <-time.After(callbackTimeout):
			panic(fmt.Sprintf("replaytest: callback due at %s did not return", next.at))
		}
	}
}

// Pending returns the number of armed timers.
func (c *Clock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

func (c *Clock) nextDue(target time.Time) *timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	due := make([]*timer, 0, len(c.pending))
	for t := range c.pending {
		if !t.at.After(target) {
			due = append(due, t)
		}
	}
	if len(due) == 0 {
		return nil
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].at.Equal(due[j].at) {
			return due[i].seq < due[j].seq
		}
		return due[i].at.Before(due[j].at)
	})
	return due[0]
}
