package countdown

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func receive(t *testing.T, ch <-chan Tick) Tick {
	t.Helper()
	select {
	case tick, ok := <-ch:
		require.True(t, ok, "tick channel closed")
		return tick
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for tick")
		return Tick{}
	}
}

// shiftedClock ticks with the fake clock but reports Now with an adjustable
// offset, like a wall clock being corrected under a running ticker.
type shiftedClock struct {
	*clockwork.FakeClock

	mu     sync.Mutex
	offset time.Duration
}

func (c *shiftedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.FakeClock.Now().Add(c.offset)
}

func (c *shiftedClock) shift(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.offset += d
}

func TestCountdown_StartIsSynchronous(t *testing.T) {
	clock := clockwork.NewFakeClockAt(epoch)
	cd := New(epoch.Add(90_061*time.Second), clock)
	defer cd.Stop()

	first := cd.Start(context.Background())

	assert.Equal(t, State{Days: 1, Hours: 1, Minutes: 1, Seconds: 1}, first.State)
	assert.Equal(t, Changed{}, first.Changed)
	assert.Equal(t, epoch, first.At)
	assert.Equal(t, first, cd.Current())
}

func TestCountdown_RefreshesEverySecond(t *testing.T) {
	clock := clockwork.NewFakeClockAt(epoch)
	cd := New(epoch.Add(61*time.Second), clock)
	defer cd.Stop()

	cd.Start(context.Background())

	clock.Advance(RefreshInterval)
	tick := receive(t, cd.C())
	assert.Equal(t, State{Minutes: 1}, tick.State)
	assert.Equal(t, Changed{Seconds: true}, tick.Changed)

	clock.Advance(RefreshInterval)
	tick = receive(t, cd.C())
	assert.Equal(t, State{Seconds: 59}, tick.State)
	assert.Equal(t, Changed{Minutes: true, Seconds: true}, tick.Changed)
	assert.Equal(t, epoch.Add(2*time.Second), tick.At)
}

func TestCountdown_ExpiresAndStaysExpired(t *testing.T) {
	clock := clockwork.NewFakeClockAt(epoch)
	cd := New(epoch.Add(2*time.Second), clock)
	defer cd.Stop()

	cd.Start(context.Background())

	clock.Advance(RefreshInterval)
	assert.Equal(t, State{Seconds: 1}, receive(t, cd.C()).State)

	clock.Advance(RefreshInterval)
	tick := receive(t, cd.C())
	assert.Equal(t, Expired, tick.State)
	assert.Equal(t, Changed{Seconds: true, Expired: true}, tick.Changed)

	clock.Advance(RefreshInterval)
	tick = receive(t, cd.C())
	assert.Equal(t, Expired, tick.State)
	assert.False(t, tick.Changed.Any())
}

func TestCountdown_PastDeadlineStartsExpired(t *testing.T) {
	clock := clockwork.NewFakeClockAt(epoch)
	cd := New(epoch.Add(-time.Hour), clock)
	defer cd.Stop()

	first := cd.Start(context.Background())

	assert.Equal(t, Expired, first.State)
}

func TestCountdown_StopEndsEmissions(t *testing.T) {
	clock := clockwork.NewFakeClockAt(epoch)
	cd := New(epoch.Add(10*time.Second), clock)

	cd.Start(context.Background())
	cd.Stop()

	clock.Advance(time.Minute)

	_, ok := <-cd.C()
	assert.False(t, ok, "no tick may arrive after Stop")
	assert.Equal(t, State{Seconds: 10}, cd.Current().State)

	cd.Stop()
}

func TestCountdown_StopWithoutStart(t *testing.T) {
	cd := New(epoch, clockwork.NewFakeClockAt(epoch))

	cd.Stop()

	_, ok := <-cd.C()
	assert.False(t, ok)
	assert.Equal(t, Tick{}, cd.Start(context.Background()))
}

func TestCountdown_ContextCancelStops(t *testing.T) {
	clock := clockwork.NewFakeClockAt(epoch)
	cd := New(epoch.Add(time.Hour), clock)
	ctx, cancel := context.WithCancel(context.Background())

	cd.Start(ctx)
	cancel()

	select {
	case _, ok := <-cd.C():
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("countdown did not stop on context cancel")
	}
	cd.Stop()
}

func TestCountdown_InstancesAreIndependent(t *testing.T) {
	clock := clockwork.NewFakeClockAt(epoch)
	short := New(epoch.Add(3*time.Second), clock)
	long := New(epoch.Add(3*time.Hour), clock)
	defer short.Stop()
	defer long.Stop()

	short.Start(context.Background())
	long.Start(context.Background())
	short.Stop()

	clock.Advance(RefreshInterval)
	tick := receive(t, long.C())

	assert.Equal(t, State{Hours: 2, Minutes: 59, Seconds: 59}, tick.State)
	assert.Equal(t, State{Seconds: 3}, short.Current().State)
}

func TestCountdown_ClockJumpBackwardRecomputes(t *testing.T) {
	clock := &shiftedClock{FakeClock: clockwork.NewFakeClockAt(epoch)}
	cd := New(epoch.Add(10*time.Second), clock)
	defer cd.Stop()

	assert.Equal(t, State{Seconds: 10}, cd.Start(context.Background()).State)

	clock.Advance(RefreshInterval)
	assert.Equal(t, State{Seconds: 9}, receive(t, cd.C()).State)

	// Wall clock set back a minute: the next tick reads from the deadline
	// again, so the display grows instead of drifting.
	clock.shift(-time.Minute)
	clock.Advance(RefreshInterval)
	tick := receive(t, cd.C())
	assert.Equal(t, State{Minutes: 1, Seconds: 8}, tick.State)
	assert.Equal(t, Changed{Minutes: true, Seconds: true}, tick.Changed)
	assert.Equal(t, epoch.Add(2*time.Second-time.Minute), tick.At)

	clock.Advance(RefreshInterval)
	tick = receive(t, cd.C())
	assert.Equal(t, State{Minutes: 1, Seconds: 7}, tick.State)
	assert.Equal(t, Changed{Seconds: true}, tick.Changed)
}

func TestCountdown_ClockJumpBackwardAfterExpiry(t *testing.T) {
	clock := &shiftedClock{FakeClock: clockwork.NewFakeClockAt(epoch)}
	cd := New(epoch.Add(time.Second), clock)
	defer cd.Stop()

	cd.Start(context.Background())

	clock.Advance(RefreshInterval)
	require.Equal(t, Expired, receive(t, cd.C()).State)

	clock.shift(-5 * time.Second)
	clock.Advance(RefreshInterval)
	tick := receive(t, cd.C())
	assert.Equal(t, State{Seconds: 4}, tick.State)
	assert.Equal(t, Changed{Seconds: true, Expired: true}, tick.Changed)
}
