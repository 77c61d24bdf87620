package countdown

import (
	"sync"
	"time"
)

// Clock abstracts time so the countdown can be driven manually in
// tests instead of waiting on the wall clock.
type Clock interface {
	After(d time.Duration) <-chan time.Time
}

type systemClock struct{}

func (systemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

func SystemClock() Clock { return systemClock{} }

// Countdown counts a window down one second at a time. Remaining
// seconds are delivered on Ticks; when the window reaches zero the
// Expired channel is closed instead of a final tick. Stop is an
// idempotent no-op after expiry. No tick is delivered after Stop or
// after Expired has fired.
type Countdown struct {
	ticks    chan int
	expired  chan struct{}
	stop     chan struct{}
	stopOnce sync.Once
}

func Start(clock Clock, seconds int) *Countdown {
	c := &Countdown{
		ticks:   make(chan int),
		expired: make(chan struct{}),
		stop:    make(chan struct{}),
	}
	go c.run(clock, seconds)
	return c
}

func (c *Countdown) run(clock Clock, seconds int) {
	remaining := seconds
	for remaining > 0 {
		select {
		case <-c.stop:
			return
		case <-clock.After(time.Second):
		}

		// a stop that raced the clock wins
		select {
		case <-c.stop:
			return
		default:
		}

		remaining--
		if remaining == 0 {
			break
		}

		select {
		case c.ticks <- remaining:
		case <-c.stop:
			return
		}
	}
	close(c.expired)
}

// Ticks delivers the remaining seconds once per elapsed second.
func (c *Countdown) Ticks() <-chan int { return c.ticks }

// Expired is closed when the window reaches zero.
func (c *Countdown) Expired() <-chan struct{} { return c.expired }

// Stop halts further emissions. Safe to call multiple times and after
// expiry.
func (c *Countdown) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
}
