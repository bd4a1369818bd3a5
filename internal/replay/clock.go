package replay

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// Timer is a pending one-shot callback.
type Timer = clockwork.Timer

// Clock is the part of clockwork.Clock the stepper uses. The stepper never
// sleeps; it only arms timers.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// RealClock returns the wall clock.
func RealClock() Clock {
	return clockwork.NewRealClock()
}

// ScaledClock runs every delay Speed times faster than Base. A nil Base is
// the wall clock.
type ScaledClock struct {
	Speed float64
	Base  clockwork.Clock
}

func (c ScaledClock) base() clockwork.Clock {
	if c.Base == nil {
		return clockwork.NewRealClock()
	}
	return c.Base
}

func (c ScaledClock) Now() time.Time { return c.base().Now() }

func (c ScaledClock) AfterFunc(d time.Duration, f func()) Timer {
	if c.Speed > 0 {
		d = time.Duration(float64(d) / c.Speed)
	}
	return c.base().AfterFunc(d, f)
}
