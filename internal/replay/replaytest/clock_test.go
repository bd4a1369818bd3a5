package replaytest

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var epoch = time.Date(2008, 9, 15, 9, 30, 0, 0, time.UTC)

func TestClock_FiresInDeadlineOrder(t *testing.T) {
	c := NewClock(epoch)
	var mu sync.Mutex
	var order []string
	record := func(s string) {
		mu.Lock()
		defer mu.Unlock()
		order = append(order, s)
	}
	c.AfterFunc(300*time.Millisecond, func() { record("c") })
	c.AfterFunc(100*time.Millisecond, func() { record("a") })
	c.AfterFunc(200*time.Millisecond, func() {
		record("b")
		c.AfterFunc(50*time.Millisecond, func() { record("b2") })
	})

	c.Advance(time.Second)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"a", "b", "b2", "c"}, order)
	assert.Equal(t, epoch.Add(time.Second), c.Now())
	assert.Zero(t, c.Pending())
}

func TestClock_NothingFiresEarly(t *testing.T) {
	c := NewClock(epoch)
	var fired sync.WaitGroup
	fired.Add(1)
	c.AfterFunc(time.Second, fired.Done)

	c.Advance(999 * time.Millisecond)
	assert.Equal(t, 1, c.Pending())
	c.Advance(time.Millisecond)
	fired.Wait()
	assert.Zero(t, c.Pending())
}

func TestClock_Stop(t *testing.T) {
	c := NewClock(epoch)
	var mu sync.Mutex
	fired := false
	tm := c.AfterFunc(time.Second, func() {
		mu.Lock()
		fired = true
		mu.Unlock()
	})
	assert.True(t, tm.Stop())
	assert.False(t, tm.Stop())
	assert.Zero(t, c.Pending())

	c.Advance(2 * time.Second)
	mu.Lock()
	defer mu.Unlock()
	assert.False(t, fired)
}
