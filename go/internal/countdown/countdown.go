package countdown

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// RefreshInterval is the cadence at which a running countdown re-samples the clock.
const RefreshInterval = time.Second

// Clock is the interface we use for time operations.
// In production, use clockwork.NewRealClock(). In tests, a FakeClock.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) clockwork.Ticker
}

// Countdown is a live countdown to a single deadline. Instances share no
// state with each other.
type Countdown struct {
	endTime time.Time
	clock   Clock

	mu      sync.Mutex
	current Tick
	running bool
	stopped bool

	ticks  chan Tick
	stopCh chan struct{}
	done   chan struct{}
}

// New creates a countdown to endTime. A nil clock means the real clock.
func New(endTime time.Time, clock Clock) *Countdown {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Countdown{
		endTime: endTime,
		clock:   clock,
		ticks:   make(chan Tick),
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// EndTime returns the deadline this countdown runs to.
func (c *Countdown) EndTime() time.Time {
	return c.endTime
}

// Start computes the first tick synchronously and returns it, then keeps
// refreshing every RefreshInterval until Stop is called or ctx is done.
// Calling Start again returns the latest tick without starting anything.
func (c *Countdown) Start(ctx context.Context) Tick {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running || c.stopped {
		return c.current
	}

	now := c.clock.Now()
	c.current = Tick{State: Remaining(c.endTime, now), At: now}
	c.running = true

	ticker := c.clock.NewTicker(RefreshInterval)
	go c.run(ctx, ticker)

	return c.current
}

// C delivers every tick after the first. It is unbuffered and closed once
// the countdown stops.
func (c *Countdown) C() <-chan Tick {
	return c.ticks
}

// Current returns the last computed tick.
func (c *Countdown) Current() Tick {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Stop ends the countdown and waits for the refresh goroutine to exit, so
// nothing is delivered on C after it returns. It is safe to call more than once.
func (c *Countdown) Stop() {
	c.mu.Lock()
	running := c.running
	if !c.stopped {
		c.stopped = true
		close(c.stopCh)
		if !running {
			close(c.ticks)
		}
	}
	c.mu.Unlock()

	if running {
		<-c.done
	}
}

func (c *Countdown) run(ctx context.Context, ticker clockwork.Ticker) {
	defer close(c.done)
	defer close(c.ticks)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		case <-ticker.Chan():
			tick := c.refresh()
			select {
			case c.ticks <- tick:
			case <-ctx.Done():
				return
			case <-c.stopCh:
				return
			}
		}
	}
}

// refresh recomputes from the absolute deadline, so clock jumps in either
// direction are picked up on the next tick without drift.
func (c *Countdown) refresh() Tick {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	next := Remaining(c.endTime, now)
	c.current = Tick{
		State:   next,
		Changed: Diff(c.current.State, next),
		At:      now,
	}
	return c.current
}
